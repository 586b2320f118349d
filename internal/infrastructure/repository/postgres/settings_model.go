package postgres

import (
	"time"

	"github.com/riskibarqy/gifthawk/internal/domain/settings"
)

type settingsTableModel struct {
	ID        int    `db:"id"`
	SessionID string `db:"session_id"`
	UserAgent string `db:"user_agent"`
	XSRFToken string `db:"xsrf_token"`

	AutomationEnabled bool `db:"automation_enabled"`
	StartAtPoints     int  `db:"start_at_points"`
	StopAtPoints      int  `db:"stop_at_points"`
	MinPointPrice     int  `db:"min_point_price"`
	MinReviewScore    int  `db:"min_review_score"`
	MinReviewCount    int  `db:"min_review_count"`
	MaxGameAgeYears   *int `db:"max_game_age_years"`
	EnterDLC          bool `db:"enter_dlc"`

	SafetyCheckEnabled         bool `db:"safety_check_enabled"`
	AutoHideUnsafe             bool `db:"auto_hide_unsafe"`
	SafetyCheckIntervalSeconds int  `db:"safety_check_interval_seconds"`

	ScanIntervalMinutes int  `db:"scan_interval_minutes"`
	MaxEntriesPerCycle  *int `db:"max_entries_per_cycle"`

	MaxScanPages         int `db:"max_scan_pages"`
	EntryDelayMinSeconds int `db:"entry_delay_min_seconds"`
	EntryDelayMaxSeconds int `db:"entry_delay_max_seconds"`

	LastSyncedAt *time.Time `db:"last_synced_at"`
}

func (m settingsTableModel) toDomain() settings.Settings {
	return settings.Settings{
		SessionID:                  m.SessionID,
		UserAgent:                  m.UserAgent,
		XSRFToken:                  m.XSRFToken,
		AutomationEnabled:          m.AutomationEnabled,
		StartAtPoints:              m.StartAtPoints,
		StopAtPoints:               m.StopAtPoints,
		MinPointPrice:              m.MinPointPrice,
		MinReviewScore:             m.MinReviewScore,
		MinReviewCount:             m.MinReviewCount,
		MaxGameAgeYears:            m.MaxGameAgeYears,
		EnterDLC:                   m.EnterDLC,
		SafetyCheckEnabled:         m.SafetyCheckEnabled,
		AutoHideUnsafe:             m.AutoHideUnsafe,
		SafetyCheckIntervalSeconds: m.SafetyCheckIntervalSeconds,
		ScanIntervalMinutes:        m.ScanIntervalMinutes,
		MaxEntriesPerCycle:         m.MaxEntriesPerCycle,
		MaxScanPages:               m.MaxScanPages,
		EntryDelayMinSeconds:       m.EntryDelayMinSeconds,
		EntryDelayMaxSeconds:       m.EntryDelayMaxSeconds,
		LastSyncedAt:               m.LastSyncedAt,
	}
}

func settingsModelFromDomain(s settings.Settings) settingsTableModel {
	return settingsTableModel{
		ID:                         settingsRowID,
		SessionID:                  s.SessionID,
		UserAgent:                  s.UserAgent,
		XSRFToken:                  s.XSRFToken,
		AutomationEnabled:          s.AutomationEnabled,
		StartAtPoints:              s.StartAtPoints,
		StopAtPoints:               s.StopAtPoints,
		MinPointPrice:              s.MinPointPrice,
		MinReviewScore:             s.MinReviewScore,
		MinReviewCount:             s.MinReviewCount,
		MaxGameAgeYears:            s.MaxGameAgeYears,
		EnterDLC:                   s.EnterDLC,
		SafetyCheckEnabled:         s.SafetyCheckEnabled,
		AutoHideUnsafe:             s.AutoHideUnsafe,
		SafetyCheckIntervalSeconds: s.SafetyCheckIntervalSeconds,
		ScanIntervalMinutes:        s.ScanIntervalMinutes,
		MaxEntriesPerCycle:         s.MaxEntriesPerCycle,
		MaxScanPages:               s.MaxScanPages,
		EntryDelayMinSeconds:       s.EntryDelayMinSeconds,
		EntryDelayMaxSeconds:       s.EntryDelayMaxSeconds,
		LastSyncedAt:               s.LastSyncedAt,
	}
}
