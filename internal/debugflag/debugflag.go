// Package debugflag holds a process-wide debug-logging toggle readable
// without threading a config value through every call site.
package debugflag

import (
	"os"
	"sync"
)

var (
	enabled bool
	mu      sync.RWMutex
)

func init() {
	InitFromEnv()
}

// Enabled returns whether debug logging is enabled.
func Enabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	return enabled
}

// SetEnabled sets whether debug logging is enabled.
func SetEnabled(value bool) {
	mu.Lock()
	defer mu.Unlock()
	enabled = value
}

// InitFromEnv initializes the flag from APACK_DEBUG or LOG_LEVEL=debug.
func InitFromEnv() {
	if os.Getenv("APACK_DEBUG") == "true" {
		SetEnabled(true)
		return
	}
	if os.Getenv("LOG_LEVEL") == "debug" {
		SetEnabled(true)
		return
	}
	SetEnabled(false)
}

// InitFromLogLevel sets the flag from a parsed config log level, unless
// an environment variable already overrides it.
func InitFromLogLevel(logLevel string) {
	if os.Getenv("APACK_DEBUG") == "" && os.Getenv("LOG_LEVEL") == "" {
		SetEnabled(logLevel == "debug")
	}
}
