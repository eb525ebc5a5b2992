// Package config holds the frame loop's runtime configuration.
//
// A Config starts from Default and is optionally overlaid with a TOML or YAML
// file; fields missing from the file keep their defaults.
//
//	frames_in_flight = 3
//	max_phase_concurrency = 4
//	fence_timeout = "2s"
//	target_frame_rate = 60
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/gogpu/frameloop/gpu"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("config: invalid")

// Config is the frame loop configuration.
type Config struct {
	// FramesInFlight is the number of frame slots, 1..gpu.MaxFramesInFlight.
	FramesInFlight int `toml:"frames_in_flight" yaml:"frames_in_flight"`

	// MaxFrames stops Run after this many frames. Zero runs until stopped.
	MaxFrames uint64 `toml:"max_frames" yaml:"max_frames"`

	// FenceTimeout bounds each fence wait. Negative disables the bound.
	FenceTimeout Duration `toml:"fence_timeout" yaml:"fence_timeout"`

	// MaxPhaseConcurrency caps concurrent module tasks in an async phase.
	// Zero means unlimited; 1 runs modules one at a time.
	MaxPhaseConcurrency int `toml:"max_phase_concurrency" yaml:"max_phase_concurrency"`

	// StopOnCriticalFailure stops Run after a frame aborted by a critical
	// module.
	StopOnCriticalFailure bool `toml:"stop_on_critical_failure" yaml:"stop_on_critical_failure"`

	// Workers sizes the offload pool. Zero means GOMAXPROCS.
	Workers int `toml:"workers" yaml:"workers"`

	// TargetFrameRate caps frames per second. Zero is uncapped.
	TargetFrameRate float64 `toml:"target_frame_rate" yaml:"target_frame_rate"`

	// Backend names the GPU backend. Empty picks the best available.
	Backend string `toml:"backend" yaml:"backend"`

	// LogLevel is debug, info, warn or error.
	LogLevel string `toml:"log_level" yaml:"log_level"`
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		FramesInFlight:        2,
		FenceTimeout:          Duration(gpu.DefaultFenceTimeout),
		StopOnCriticalFailure: true,
		LogLevel:              "info",
	}
}

// Validate reports every invalid field, joined.
func (c Config) Validate() error {
	var errs []error
	if c.FramesInFlight < 1 || c.FramesInFlight > gpu.MaxFramesInFlight {
		errs = append(errs, fmt.Errorf("%w: frames_in_flight %d not in 1..%d", ErrInvalid, c.FramesInFlight, gpu.MaxFramesInFlight))
	}
	if c.MaxPhaseConcurrency < 0 {
		errs = append(errs, fmt.Errorf("%w: max_phase_concurrency %d is negative", ErrInvalid, c.MaxPhaseConcurrency))
	}
	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("%w: workers %d is negative", ErrInvalid, c.Workers))
	}
	if c.TargetFrameRate < 0 {
		errs = append(errs, fmt.Errorf("%w: target_frame_rate %g is negative", ErrInvalid, c.TargetFrameRate))
	}
	if _, err := c.Level(); err != nil {
		errs = append(errs, fmt.Errorf("%w: log_level: %w", ErrInvalid, err))
	}
	return errors.Join(errs...)
}

// Level parses LogLevel. Empty means info.
func (c Config) Level() (slog.Level, error) {
	var l slog.Level
	if c.LogLevel == "" {
		return slog.LevelInfo, nil
	}
	err := l.UnmarshalText([]byte(strings.ToUpper(c.LogLevel)))
	return l, err
}

// FrameInterval returns the minimum frame duration implied by
// TargetFrameRate, or zero when uncapped.
func (c Config) FrameInterval() time.Duration {
	if c.TargetFrameRate <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / c.TargetFrameRate)
}

// SubmitterOptions returns the gpu.Submitter settings carried by c. Logger
// and Observer are left for the caller.
func (c Config) SubmitterOptions() gpu.SubmitterOptions {
	return gpu.SubmitterOptions{
		FramesInFlight: c.FramesInFlight,
		FenceTimeout:   c.FenceTimeout.Std(),
	}
}

// Duration is a time.Duration written as a string ("250ms", "5s") in files.
type Duration time.Duration

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("config: duration %q: %w", text, err)
	}
	*d = Duration(v)
	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.ScalarNode {
		return fmt.Errorf("config: line %d: duration must be a scalar", n.Line)
	}
	return d.UnmarshalText([]byte(n.Value))
}
