package config

import (
	"errors"
	"time"
)

// Limits groups the thresholds, timeouts and pauses that drive the fetch
// strategies and the orchestrator. It is passed by value so a running
// pipeline never observes a change.
type Limits struct {
	// LowContentThreshold is the total section text length below which a
	// static result is flagged and above which it counts as sufficient.
	LowContentThreshold int `yaml:"lowContentThreshold"` // default: 300

	// MaxRedirects caps redirects followed by the static fetcher.
	MaxRedirects int `yaml:"maxRedirects"` // default: 5

	// MaxBodyBytes caps the static response body.
	MaxBodyBytes int64 `yaml:"maxBodyBytes"` // default: 10 MiB

	// MaxScrolls is the number of viewport scrolls in rendering mode.
	MaxScrolls int `yaml:"maxScrolls"` // default: 3

	StaticTimeout     time.Duration `yaml:"staticTimeout"`     // default: 30s
	NavigationTimeout time.Duration `yaml:"navigationTimeout"` // default: 60s

	// ActionTimeout bounds a single click or scroll.
	ActionTimeout time.Duration `yaml:"actionTimeout"` // default: 5s

	DismissPause  time.Duration `yaml:"dismissPause"`  // default: 500ms
	LoadMorePause time.Duration `yaml:"loadMorePause"` // default: 2s
	ScrollPause   time.Duration `yaml:"scrollPause"`   // default: 1s
}

// DefaultLimits returns the production limits.
func DefaultLimits() Limits {
	return Limits{
		LowContentThreshold: 300,
		MaxRedirects:        5,
		MaxBodyBytes:        10 << 20,
		MaxScrolls:          3,
		StaticTimeout:       30 * time.Second,
		NavigationTimeout:   60 * time.Second,
		ActionTimeout:       5 * time.Second,
		DismissPause:        500 * time.Millisecond,
		LoadMorePause:       2 * time.Second,
		ScrollPause:         time.Second,
	}
}

// Validate rejects values that would make the pipeline misbehave.
func (l Limits) Validate() error {
	switch {
	case l.LowContentThreshold < 0:
		return errors.New("limits: lowContentThreshold must not be negative")
	case l.MaxRedirects < 0:
		return errors.New("limits: maxRedirects must not be negative")
	case l.MaxBodyBytes <= 0:
		return errors.New("limits: maxBodyBytes must be positive")
	case l.MaxScrolls < 0:
		return errors.New("limits: maxScrolls must not be negative")
	case l.StaticTimeout <= 0 || l.NavigationTimeout <= 0:
		return errors.New("limits: timeouts must be positive")
	case l.DismissPause < 0 || l.LoadMorePause < 0 || l.ScrollPause < 0:
		return errors.New("limits: pauses must not be negative")
	}
	return nil
}
