package syncer

import "fmt"

// Mode selects the sync strategy.
type Mode int

const (
	// ModeIncremental is a quick pass bounded by MaxItems.
	ModeIncremental Mode = iota
	// ModeFull is an open-ended pass ended by a short empty-page streak.
	ModeFull
	// ModeDeep is an exhaustive pass with a longer empty-page tolerance,
	// re-walking the catalog regardless of prior ingestion state.
	ModeDeep
)

// Default stop-condition settings per mode. Full and Deep share one code
// path, differentiated only by how many consecutive empty pages end the
// run.
const (
	DefaultMaxItems          = 50
	DefaultFullMaxEmptyPages = 2
	DefaultDeepMaxEmptyPages = 5
	DefaultPageSize          = 50
)

// String returns the mode's display name.
func (m Mode) String() string {
	switch m {
	case ModeFull:
		return "full"
	case ModeDeep:
		return "deep"
	default:
		return "incremental"
	}
}

// ParseMode parses a mode name. Unknown names map to ModeIncremental
// with an error.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "incremental", "quick", "":
		return ModeIncremental, nil
	case "full":
		return ModeFull, nil
	case "deep":
		return ModeDeep, nil
	default:
		return ModeIncremental, fmt.Errorf("syncer: unknown mode %q", s)
	}
}

// ConfigurationError rejects an invalid sync configuration before any
// network call is made.
type ConfigurationError struct {
	Reason string
}

// Error returns a string representation of the configuration error.
func (e *ConfigurationError) Error() string {
	return "syncer: invalid configuration: " + e.Reason
}

// Config is the immutable configuration of one sync run.
type Config struct {
	// Mode selects incremental, full, or deep semantics.
	Mode Mode
	// IncludeRegular admits long-form videos; IncludeShorts admits
	// Shorts. At least one must be set.
	IncludeRegular bool
	IncludeShorts  bool
	// SyncMetadata requests full descriptions and durations per page at
	// the cost of one extra quota unit per page.
	SyncMetadata bool
	// MaxItems bounds an incremental run; ignored by full/deep runs.
	MaxItems int
	// MaxEmptyPages is the consecutive-empty-page streak that ends a
	// full/deep run; ignored by incremental runs.
	MaxEmptyPages int
	// PageSize is the requested items per page.
	PageSize int
}

// withDefaults returns a copy with unset knobs filled per mode.
func (c Config) withDefaults() Config {
	if c.PageSize <= 0 {
		c.PageSize = DefaultPageSize
	}
	if c.Mode == ModeIncremental && c.MaxItems <= 0 {
		c.MaxItems = DefaultMaxItems
	}
	if c.MaxEmptyPages <= 0 {
		switch c.Mode {
		case ModeDeep:
			c.MaxEmptyPages = DefaultDeepMaxEmptyPages
		default:
			c.MaxEmptyPages = DefaultFullMaxEmptyPages
		}
	}
	return c
}

// validate rejects configurations that could never make progress. It
// runs after defaults are applied, so the stop-condition knobs are
// always positive by the time it sees them.
func (c Config) validate() error {
	if !c.IncludeRegular && !c.IncludeShorts {
		return &ConfigurationError{Reason: "at least one of regular videos or shorts must be included"}
	}
	return nil
}
