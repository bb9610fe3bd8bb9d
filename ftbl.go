package stackimport

import "log/slog"

// Font table offsets, per spec §4.5.
const (
	offFtblCount = 6
	ftblReserved = 4
)

// FontTable maps font ids to their legacy-encoded, now-transcoded names.
// A missing id resolves to the empty string rather than an error, since a
// dangling font reference is non-fatal (spec §7).
type FontTable map[int16]string

// Name looks up a font id, returning "" if unknown.
func (ft FontTable) Name(id int16) string {
	return ft[id]
}

// DecodeFontTable decodes an FTBL block into a FontTable.
func DecodeFontTable(payload ByteBuffer, blockID int32, log *slog.Logger) (FontTable, error) {
	count, err := payload.BEInt16(offFtblCount)
	if err != nil {
		return nil, blockError(KindTruncated, "FTBL", blockID, offFtblCount, "font count")
	}
	ft := make(FontTable, count)
	cursor := offFtblCount + 2 + ftblReserved
	for i := int16(0); i < count; i++ {
		id, err := payload.BEInt16(cursor)
		if err != nil {
			logwarn(log, "FTBL: truncated before expected record count", slog.Int("record", int(i)))
			break
		}
		cursor += 2
		name, consumed := readCStringLen(payload, cursor)
		cursor += consumed
		if consumed%2 != 0 {
			cursor++ // align to even byte after each record
		}
		ft[id] = name
	}
	loginfo(log, "decoded FTBL", slog.Int("count", len(ft)), slog.Int64("block", int64(blockID)))
	return ft, nil
}
