// Package guidance wraps the navigation state calculator with the stateful
// policy layer of a guidance session: arrival latching, haptic triggers, and
// debounced voice announcements.
package guidance

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/wfinley/park-compass/pkg/navigation"
)

// SubscribeOptions configures a location subscription.
type SubscribeOptions struct {
	// MinInterval is the minimum time between delivered fixes
	MinInterval time.Duration

	// MinDistanceMeters is the minimum movement between delivered fixes
	MinDistanceMeters float64
}

// LocationSource delivers position fixes. Implementations are expected to
// stop delivering and close the channel when the context is cancelled or
// Stop is called.
type LocationSource interface {
	// Subscribe starts delivery of fixes. It returns
	// *LocationUnavailableError (possibly wrapped) when permission is denied
	// or the source cannot start.
	Subscribe(ctx context.Context, opts SubscribeOptions) (<-chan navigation.Fix, error)

	// Stop ends delivery and releases the underlying source.
	Stop()
}

// HeadingUpdate is a single compass heading sample.
type HeadingUpdate struct {
	// Degrees is the compass heading [0, 360)
	Degrees float64

	// Timestamp is when the heading was measured
	Timestamp time.Time
}

// HeadingSource delivers compass heading updates.
type HeadingSource interface {
	Subscribe(ctx context.Context) (<-chan HeadingUpdate, error)
	Stop()
}

// Speaker speaks announcement text. Stop interrupts any in-flight speech.
type Speaker interface {
	Speak(text string) error
	Stop()
}

// HapticPattern is a feedback-intensity token understood by the haptic
// output collaborator.
type HapticPattern string

const (
	HapticLight   HapticPattern = "light"
	HapticMedium  HapticPattern = "medium"
	HapticHeavy   HapticPattern = "heavy"
	HapticSuccess HapticPattern = "success"
	HapticWarning HapticPattern = "warning"
	HapticError   HapticPattern = "error"
)

// Haptics triggers a feedback pulse.
type Haptics interface {
	Pulse(pattern HapticPattern) error
}

// LocationUnavailableError reports that the location source could not start
// or lost access, typically because permission was denied. It is fatal to
// the current session but not to the process.
type LocationUnavailableError struct {
	Reason string
	Err    error
}

func (e *LocationUnavailableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("location unavailable: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("location unavailable: %s", e.Reason)
}

func (e *LocationUnavailableError) Unwrap() error { return e.Err }

// SpeechUnavailableError reports a failed speech request. The engine logs it
// and continues; missing voice output degrades guidance but never stops
// navigation.
type SpeechUnavailableError struct {
	Err error
}

func (e *SpeechUnavailableError) Error() string {
	return fmt.Sprintf("speech unavailable: %v", e.Err)
}

func (e *SpeechUnavailableError) Unwrap() error { return e.Err }

// HapticUnavailableError reports a failed haptic pulse, handled the same way
// as speech failures.
type HapticUnavailableError struct {
	Err error
}

func (e *HapticUnavailableError) Error() string {
	return fmt.Sprintf("haptics unavailable: %v", e.Err)
}

func (e *HapticUnavailableError) Unwrap() error { return e.Err }

// NopSpeaker discards announcements.
type NopSpeaker struct{}

func (NopSpeaker) Speak(string) error { return nil }
func (NopSpeaker) Stop()              {}

// NopHaptics discards pulses.
type NopHaptics struct{}

func (NopHaptics) Pulse(HapticPattern) error { return nil }

// LogSpeaker writes announcements to a structured logger. Useful for demos
// and headless environments.
type LogSpeaker struct {
	Logger *slog.Logger
}

func (s LogSpeaker) Speak(text string) error {
	if s.Logger != nil {
		s.Logger.Info("speak", slog.String("text", text))
	}
	return nil
}

func (s LogSpeaker) Stop() {}

// LogHaptics writes pulses to a structured logger.
type LogHaptics struct {
	Logger *slog.Logger
}

func (h LogHaptics) Pulse(pattern HapticPattern) error {
	if h.Logger != nil {
		h.Logger.Info("haptic pulse", slog.String("pattern", string(pattern)))
	}
	return nil
}
