// Package settings defines the singleton automation settings document.
package settings

import (
	"context"
	"errors"
	"time"
)

var (
	ErrDelayBoundsInverted = errors.New("entry delay minimum exceeds maximum")
	ErrPointBoundsInverted = errors.New("point floor exceeds start threshold")
	ErrNonPositiveCap      = errors.New("cap must be positive")
	ErrNonPositiveInterval = errors.New("interval must be positive")
)

// Settings is the single automation settings document. Pointer fields are
// nullable knobs: nil disables the constraint.
type Settings struct {
	// Session.
	SessionID string `json:"sessionId,omitempty"`
	UserAgent string `json:"userAgent,omitempty"`
	XSRFToken string `json:"xsrfToken,omitempty"`

	// Auto-join thresholds.
	AutomationEnabled bool `json:"automationEnabled"`
	StartAtPoints     int  `json:"startAtPoints"`
	StopAtPoints      int  `json:"stopAtPoints"`
	MinPointPrice     int  `json:"minPointPrice"`
	MinReviewScore    int  `json:"minReviewScore"`
	MinReviewCount    int  `json:"minReviewCount"`
	MaxGameAgeYears   *int `json:"maxGameAgeYears,omitempty"`
	EnterDLC          bool `json:"enterDlc"`

	// Safety.
	SafetyCheckEnabled         bool `json:"safetyCheckEnabled"`
	AutoHideUnsafe             bool `json:"autoHideUnsafe"`
	SafetyCheckIntervalSeconds int  `json:"safetyCheckIntervalSeconds"`

	// Scheduler.
	ScanIntervalMinutes int  `json:"scanIntervalMinutes"`
	MaxEntriesPerCycle  *int `json:"maxEntriesPerCycle,omitempty"`

	// Advanced.
	MaxScanPages         int `json:"maxScanPages"`
	EntryDelayMinSeconds int `json:"entryDelayMinSeconds"`
	EntryDelayMaxSeconds int `json:"entryDelayMaxSeconds"`

	LastSyncedAt *time.Time `json:"lastSyncedAt,omitempty"`
}

// Defaults returns the document used until an operator writes one.
// Automation stays off until explicitly enabled.
func Defaults() Settings {
	maxEntries := 10
	return Settings{
		AutomationEnabled:          false,
		StartAtPoints:              350,
		StopAtPoints:               200,
		MinPointPrice:              10,
		MinReviewScore:             7,
		MinReviewCount:             1000,
		EnterDLC:                   false,
		SafetyCheckEnabled:         true,
		AutoHideUnsafe:             true,
		SafetyCheckIntervalSeconds: 60,
		ScanIntervalMinutes:        30,
		MaxEntriesPerCycle:         &maxEntries,
		MaxScanPages:               3,
		EntryDelayMinSeconds:       8,
		EntryDelayMaxSeconds:       12,
	}
}

// Validate rejects documents that would break the entry pipeline's invariants.
func (s Settings) Validate() error {
	if s.EntryDelayMinSeconds < 0 || s.EntryDelayMaxSeconds < 0 {
		return ErrNonPositiveInterval
	}
	if s.EntryDelayMinSeconds > s.EntryDelayMaxSeconds {
		return ErrDelayBoundsInverted
	}
	if s.StopAtPoints > s.StartAtPoints {
		return ErrPointBoundsInverted
	}
	if s.MaxEntriesPerCycle != nil && *s.MaxEntriesPerCycle <= 0 {
		return ErrNonPositiveCap
	}
	if s.MaxScanPages <= 0 {
		return ErrNonPositiveCap
	}
	if s.ScanIntervalMinutes <= 0 || s.SafetyCheckIntervalSeconds <= 0 {
		return ErrNonPositiveInterval
	}
	return nil
}

// EntryDelayBounds returns the configured inter-entry delay window.
func (s Settings) EntryDelayBounds() (time.Duration, time.Duration) {
	return time.Duration(s.EntryDelayMinSeconds) * time.Second,
		time.Duration(s.EntryDelayMaxSeconds) * time.Second
}

// Authenticated reports whether a session cookie is configured at all.
// It says nothing about the cookie still being accepted remotely.
func (s Settings) Authenticated() bool {
	return s.SessionID != ""
}

type Repository interface {
	// Read returns the stored document, or Defaults() when none was written yet.
	Read(ctx context.Context) (Settings, error)
	Write(ctx context.Context, s Settings) error
}
