package stackimport

import "testing"

func buildFTBLPayload(entries []struct {
	id   int16
	name string
}) ByteBuffer {
	b := NewByteBuffer(offFtblCount + 2 + ftblReserved)
	b.SetAt(offFtblCount, byte(len(entries)>>8))
	b.SetAt(offFtblCount+1, byte(len(entries)))
	for _, e := range entries {
		b.Resize(b.Size() + 2)
		off := b.Size() - 2
		b.SetAt(off, byte(uint16(e.id)>>8))
		b.SetAt(off+1, byte(e.id))
		nameBytes := append([]byte(e.name), 0)
		if len(nameBytes)%2 != 0 {
			nameBytes = append(nameBytes, 0)
		}
		b.Resize(b.Size() + len(nameBytes))
		b.CopyBytes(b.Size()-len(nameBytes), nameBytes, 0, len(nameBytes))
	}
	return b
}

func TestDecodeFontTable(t *testing.T) {
	payload := buildFTBLPayload([]struct {
		id   int16
		name string
	}{
		{3, "Geneva"},
		{4, "Chicago"},
	})
	ft, err := DecodeFontTable(payload, 1, nil)
	if err != nil {
		t.Fatal(err)
	}
	if ft.Name(3) != "Geneva" || ft.Name(4) != "Chicago" {
		t.Fatalf("font table = %v", ft)
	}
	if ft.Name(99) != "" {
		t.Fatal("unknown font id should resolve to empty string, not an error")
	}
}
