// Package hardware reports CPU cryptographic acceleration support. Its
// Config is the hardware-acceleration toggle carried by config.Config.
package hardware

import (
	"runtime"

	"golang.org/x/sys/cpu"
)

// Config toggles whether detected acceleration is actually used.
type Config struct {
	EnableAESNI    bool
	EnableARMv8AES bool
}

// DefaultConfig enables whatever the CPU supports.
func DefaultConfig() Config {
	return Config{EnableAESNI: true, EnableARMv8AES: true}
}

// HasAESSupport reports whether the running CPU has AES instructions.
func HasAESSupport() bool {
	switch runtime.GOARCH {
	case "amd64", "386":
		return cpu.X86.HasAES
	case "arm64":
		return cpu.ARM64.HasAES
	case "s390x":
		return cpu.S390X.HasAES
	default:
		return false
	}
}

// AccelerationEnabled reports whether AES hardware acceleration is both
// supported by the CPU and enabled by cfg.
func AccelerationEnabled(cfg Config) bool {
	if !HasAESSupport() {
		return false
	}
	switch runtime.GOARCH {
	case "amd64", "386":
		return cfg.EnableAESNI
	case "arm64":
		return cfg.EnableARMv8AES
	default:
		return true
	}
}

// Info reports acceleration details for logging and metrics labels.
func Info(cfg Config) map[string]any {
	return map[string]any{
		"aes_hardware_support":          HasAESSupport(),
		"architecture":                  runtime.GOARCH,
		"goos":                          runtime.GOOS,
		"go_version":                    runtime.Version(),
		"aes_ni_enabled":                cfg.EnableAESNI,
		"armv8_aes_enabled":             cfg.EnableARMv8AES,
		"hardware_acceleration_active":  AccelerationEnabled(cfg),
	}
}
