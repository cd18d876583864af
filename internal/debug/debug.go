package debug

import (
	"fmt"
	"time"

	"github.com/crm-sirene/internal/logging"
)

// DebugHeader marks the start of a traced call if debugging is enabled
func DebugHeader(enabled bool) {
	if enabled {
		logging.Default().Debug().Msg("=== DEBUG START ===")
	}
}

// DebugFooter marks the end of a traced call if debugging is enabled
func DebugFooter(enabled bool) {
	if enabled {
		logging.Default().Debug().Msg("=== DEBUG END ===")
	}
}

// DebugOutput emits a debug event if debugging is enabled
func DebugOutput(enabled bool, format string, args ...interface{}) {
	if enabled {
		logging.Default().Debug().Msg(fmt.Sprintf(format, args...))
	}
}

// DebugTiming measures and logs execution time if debugging is enabled
func DebugTiming(enabled bool, operation string) func() {
	if !enabled {
		return func() {}
	}

	start := time.Now()
	DebugOutput(enabled, "Starting: %s", operation)

	return func() {
		logging.Default().Debug().
			Str("operation", operation).
			Dur("took", time.Since(start)).
			Msg("Completed")
	}
}
