package urm

import "gopkg.in/ini.v1"

// Config holds the two tunables spec.md assigns to Initialize: capacity and
// soft_size_limit. LoadConfig reads them from an `[urm]` section the way
// server/conf.Cfg reads `[mysqld]`/`[session]`, but never calls os.Exit
// and never returns an error: a missing or unparsable key falls back to its
// default.
type Config struct {
	Capacity      int
	SoftSizeLimit int
}

// DefaultConfig ties capacity to a modest default session count, the same
// rule of thumb spec.md §6 suggests ("a reasonable default ties it to the
// maximum number of concurrent sessions").
func DefaultConfig() Config {
	return Config{
		Capacity:      DefaultCapacity,
		SoftSizeLimit: DefaultCapacity * 3 / 4,
	}
}

// LoadConfig reads the `[urm]` section of an already-opened ini file.
// Missing keys fall back to DefaultConfig's values rather than erroring,
// since both tunables are optional performance knobs, not required
// settings.
func LoadConfig(file *ini.File) Config {
	cfg := DefaultConfig()
	if file == nil {
		return cfg
	}
	section := file.Section("urm")
	cfg.Capacity = section.Key("capacity").MustInt(cfg.Capacity)
	cfg.SoftSizeLimit = section.Key("soft_size_limit").MustInt(cfg.SoftSizeLimit)
	return cfg
}

// NewManagerFromConfig is a convenience constructor wiring Config straight
// into NewManager.
func NewManagerFromConfig(cfg Config, opts ...Option) *Manager {
	return NewManager(cfg.Capacity, cfg.SoftSizeLimit, opts...)
}
