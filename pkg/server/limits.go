package server

import (
	"errors"
	"fmt"
	"sync/atomic"
	"unicode/utf8"

	"github.com/bastiangx/sentserve/pkg/config"
)

var (
	// ErrPrefixLength is returned for prefixes outside the configured rune range.
	ErrPrefixLength = errors.New("server: prefix length out of range")
	// ErrBadLimit is returned for negative or non-numeric limits.
	ErrBadLimit = errors.New("server: invalid limit")
)

// Limits bound what a single request may ask for.
type Limits struct {
	MaxLimit     int
	DefaultLimit int
	MinPrefix    int
	MaxPrefix    int
}

// LimitsFromConfig copies the request limits out of the server config.
func LimitsFromConfig(c config.ServerConfig) Limits {
	return Limits{
		MaxLimit:     c.MaxLimit,
		DefaultLimit: c.DefaultLimit,
		MinPrefix:    c.MinPrefix,
		MaxPrefix:    c.MaxPrefix,
	}
}

// resolve validates prefix and returns the effective limit. A negative
// requested limit means "use the default".
func (l Limits) resolve(prefix string, requested int) (int, error) {
	n := utf8.RuneCountInString(prefix)
	if n > 0 && l.MinPrefix > 0 && n < l.MinPrefix {
		return 0, fmt.Errorf("%w: prefix must be at least %d characters", ErrPrefixLength, l.MinPrefix)
	}
	if l.MaxPrefix > 0 && n > l.MaxPrefix {
		return 0, fmt.Errorf("%w: prefix exceeds maximum length of %d characters", ErrPrefixLength, l.MaxPrefix)
	}

	limit := requested
	if limit < 0 {
		limit = l.DefaultLimit
	}
	if l.MaxLimit > 0 && limit > l.MaxLimit {
		limit = l.MaxLimit
	}
	return limit, nil
}

// limitSet holds Limits that can be swapped while requests are in flight.
type limitSet struct {
	current atomic.Pointer[Limits]
}

func newLimitSet(l Limits) *limitSet {
	ls := &limitSet{}
	ls.current.Store(&l)
	return ls
}

func (ls *limitSet) load() Limits { return *ls.current.Load() }

func (ls *limitSet) store(l Limits) { ls.current.Store(&l) }
