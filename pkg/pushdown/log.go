package pushdown

import (
	"log/slog"
	"os"
	"sync/atomic"
)

// LevelTrace is the slog level of per-edge saturation events. It sits
// below Debug.
const LevelTrace slog.Level = -8

// Per-edge tracing is opt-in: set PDAAAL_TRACE=1, or call EnableTrace.
// The Config logger must also be enabled at LevelTrace.
var traceOn atomic.Bool

func init() {
	if os.Getenv("PDAAAL_TRACE") == "1" {
		traceOn.Store(true)
	}
}

// EnableTrace turns per-edge tracing on or off.
func EnableTrace(on bool) { traceOn.Store(on) }

func traceEnabled() bool { return traceOn.Load() }
