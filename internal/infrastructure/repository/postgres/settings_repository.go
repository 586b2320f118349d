package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/riskibarqy/gifthawk/internal/domain/settings"
)

// settingsRowID pins the settings document to a single row.
const settingsRowID = 1

type SettingsRepository struct {
	db *sqlx.DB
}

func NewSettingsRepository(db *sqlx.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

func (r *SettingsRepository) Read(ctx context.Context) (settings.Settings, error) {
	var row settingsTableModel
	err := r.db.GetContext(ctx, &row, `
		SELECT id, session_id, user_agent, xsrf_token,
			automation_enabled, start_at_points, stop_at_points, min_point_price,
			min_review_score, min_review_count, max_game_age_years, enter_dlc,
			safety_check_enabled, auto_hide_unsafe, safety_check_interval_seconds,
			scan_interval_minutes, max_entries_per_cycle,
			max_scan_pages, entry_delay_min_seconds, entry_delay_max_seconds, last_synced_at
		FROM settings WHERE id = $1`, settingsRowID)
	if err != nil {
		if isNotFound(err) {
			return settings.Defaults(), nil
		}
		return settings.Settings{}, fmt.Errorf("read settings: %w", err)
	}
	return row.toDomain(), nil
}

func (r *SettingsRepository) Write(ctx context.Context, s settings.Settings) error {
	row := settingsModelFromDomain(s)
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO settings (
			id, session_id, user_agent, xsrf_token,
			automation_enabled, start_at_points, stop_at_points, min_point_price,
			min_review_score, min_review_count, max_game_age_years, enter_dlc,
			safety_check_enabled, auto_hide_unsafe, safety_check_interval_seconds,
			scan_interval_minutes, max_entries_per_cycle,
			max_scan_pages, entry_delay_min_seconds, entry_delay_max_seconds, last_synced_at
		) VALUES (
			:id, :session_id, :user_agent, :xsrf_token,
			:automation_enabled, :start_at_points, :stop_at_points, :min_point_price,
			:min_review_score, :min_review_count, :max_game_age_years, :enter_dlc,
			:safety_check_enabled, :auto_hide_unsafe, :safety_check_interval_seconds,
			:scan_interval_minutes, :max_entries_per_cycle,
			:max_scan_pages, :entry_delay_min_seconds, :entry_delay_max_seconds, :last_synced_at
		)
		ON CONFLICT (id) DO UPDATE SET
			session_id = EXCLUDED.session_id,
			user_agent = EXCLUDED.user_agent,
			xsrf_token = EXCLUDED.xsrf_token,
			automation_enabled = EXCLUDED.automation_enabled,
			start_at_points = EXCLUDED.start_at_points,
			stop_at_points = EXCLUDED.stop_at_points,
			min_point_price = EXCLUDED.min_point_price,
			min_review_score = EXCLUDED.min_review_score,
			min_review_count = EXCLUDED.min_review_count,
			max_game_age_years = EXCLUDED.max_game_age_years,
			enter_dlc = EXCLUDED.enter_dlc,
			safety_check_enabled = EXCLUDED.safety_check_enabled,
			auto_hide_unsafe = EXCLUDED.auto_hide_unsafe,
			safety_check_interval_seconds = EXCLUDED.safety_check_interval_seconds,
			scan_interval_minutes = EXCLUDED.scan_interval_minutes,
			max_entries_per_cycle = EXCLUDED.max_entries_per_cycle,
			max_scan_pages = EXCLUDED.max_scan_pages,
			entry_delay_min_seconds = EXCLUDED.entry_delay_min_seconds,
			entry_delay_max_seconds = EXCLUDED.entry_delay_max_seconds,
			last_synced_at = EXCLUDED.last_synced_at`, row)
	if err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	return nil
}
