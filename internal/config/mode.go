package config

import (
	"errors"
	"fmt"
)

// Mode selects which optional build behaviours are active.
type Mode string

const (
	ModeDevelopment Mode = "development"
	ModeProduction  Mode = "production"
)

var (
	// ErrUnknownMode indicates the requested mode is neither development nor production
	ErrUnknownMode = errors.New("unknown build mode")
	// ErrInvalidPaths indicates the source and output roots overlap
	ErrInvalidPaths = errors.New("invalid build paths")
)

// ParseMode maps a mode string to a Mode. An empty string is development.
// Unrecognized values also return ModeDevelopment, along with ErrUnknownMode
// so callers can decide whether to reject them.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeDevelopment:
		return ModeDevelopment, nil
	case ModeProduction:
		return ModeProduction, nil
	default:
		return ModeDevelopment, fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
}

func (m Mode) IsProduction() bool {
	return m == ModeProduction
}

func (m Mode) IsDevelopment() bool {
	return m == ModeDevelopment
}

func (m Mode) String() string {
	return string(m)
}
