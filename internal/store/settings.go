package store

import (
	"context"
)

type UpdateBotSettingsParams struct {
	DefaultTimezone      string
	MaxMessagesPerMinute int
	EnableAnalytics      bool
	AutoCleanupDays      int
	WorkingDays          []int
}

// GetBotSettings reads the singleton settings row. The migration seeds it, so
// a missing row is a real error.
func (s *Store) GetBotSettings(ctx context.Context) (BotSettings, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT default_timezone, max_messages_per_minute, enable_analytics,
		        auto_cleanup_days, working_days, updated_at
		 FROM bot_settings WHERE id = 1`)

	var settings BotSettings
	var workingDays []int32
	err := row.Scan(
		&settings.DefaultTimezone, &settings.MaxMessagesPerMinute, &settings.EnableAnalytics,
		&settings.AutoCleanupDays, &workingDays, &settings.UpdatedAt,
	)
	if err != nil {
		return BotSettings{}, classify(err)
	}
	settings.WorkingDays = make([]int, len(workingDays))
	for i, d := range workingDays {
		settings.WorkingDays[i] = int(d)
	}
	return settings, nil
}

func (s *Store) UpdateBotSettings(ctx context.Context, params UpdateBotSettingsParams) (BotSettings, error) {
	workingDays := make([]int32, len(params.WorkingDays))
	for i, d := range params.WorkingDays {
		workingDays[i] = int32(d)
	}
	_, err := s.pool.Exec(ctx,
		`UPDATE bot_settings
		 SET default_timezone = $1, max_messages_per_minute = $2, enable_analytics = $3,
		     auto_cleanup_days = $4, working_days = $5, updated_at = now()
		 WHERE id = 1`,
		params.DefaultTimezone, params.MaxMessagesPerMinute, params.EnableAnalytics,
		params.AutoCleanupDays, workingDays)
	if err != nil {
		return BotSettings{}, classify(err)
	}
	return s.GetBotSettings(ctx)
}
