package stackimport

import (
	"fmt"
	"log/slog"
	"os"
)

// progressReporter emits the two line-oriented diagnostic streams of
// spec §6: `Status: ...` and `Progress: M of N`, each independently
// suppressible via Config.
type progressReporter struct {
	cfg   Config
	log   *slog.Logger
	total int
	done  int
}

func newProgressReporter(cfg Config, log *slog.Logger) *progressReporter {
	return &progressReporter{cfg: cfg, log: log}
}

// SetTotal fixes N for subsequent Progress lines.
func (r *progressReporter) SetTotal(n int) {
	r.total = n
}

// Status emits an informational line, unless suppressed.
func (r *progressReporter) Status(msg string) {
	logdebug(r.log, msg)
	if r.cfg.QuietStatus {
		return
	}
	fmt.Fprintf(os.Stdout, "Status: %s\n", msg)
}

// Advance increments the completed-unit counter by one and emits a
// monotonic Progress line, unless suppressed.
func (r *progressReporter) Advance() {
	r.done++
	if r.cfg.QuietProgress {
		return
	}
	fmt.Fprintf(os.Stdout, "Progress: %d of %d\n", r.done, r.total)
}
