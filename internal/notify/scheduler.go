// Package notify fires due scheduled notifications and advances recurrence.
package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/beaconlabs/beacon/internal/store"
)

// defaultWorkingDays is used when the settings read fails mid-tick.
var defaultWorkingDays = []int{1, 2, 3, 4, 5}

// Store is the persistence surface the scheduler consumes.
type Store interface {
	GetBotSettings(ctx context.Context) (store.BotSettings, error)
	GetDueNotifications(ctx context.Context, now time.Time) ([]store.DueNotification, error)
	UpdateNotificationSchedule(ctx context.Context, id int64, patch store.SchedulePatch) error
	CreateNotificationLog(ctx context.Context, notificationID int64, sentAt time.Time, status store.LogStatus, errText *string) error
	PruneNotificationLogs(ctx context.Context, cutoff time.Time) (int64, error)
	PruneForwarderLogs(ctx context.Context, cutoff time.Time) (int64, error)
}

// Sender delivers text to a platform channel.
type Sender interface {
	SendToChannel(ctx context.Context, platformChannelID, text string) error
}

// Scheduler drives the per-minute due-notification tick. Ticks never overlap:
// a tick that outruns the minute causes the next one to be skipped.
type Scheduler struct {
	logger *slog.Logger
	store  Store
	sender Sender
	cron   *cron.Cron
	now    func() time.Time
}

func NewScheduler(log *slog.Logger, st Store, sender Sender) *Scheduler {
	if log == nil {
		log = slog.Default()
	}
	return &Scheduler{
		logger: log.With(slog.String("component", "notify")),
		store:  st,
		sender: sender,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Start begins the minute tick and the daily log cleanup entry. The first
// tick lands on the next whole minute.
func (s *Scheduler) Start() error {
	if s.cron != nil {
		return nil
	}
	c := cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cronLogger{s.logger}),
	))
	if _, err := c.AddFunc("* * * * *", func() { s.Tick(context.Background()) }); err != nil {
		return err
	}
	if _, err := c.AddFunc("30 3 * * *", func() { s.cleanupLogs(context.Background()) }); err != nil {
		return err
	}
	c.Start()
	s.cron = c
	s.logger.Info("scheduler started")
	return nil
}

// Stop halts the tick and waits for an in-flight tick to finish.
func (s *Scheduler) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
	s.cron = nil
	s.logger.Info("scheduler stopped")
}

// Tick selects the due set and processes each row sequentially. Failures in
// one row never affect the others; repository failures end the tick early and
// the next tick retries.
func (s *Scheduler) Tick(ctx context.Context) {
	now := s.now()

	workingDays := defaultWorkingDays
	if settings, err := s.store.GetBotSettings(ctx); err != nil {
		s.logger.Error("settings read failed", slog.Any("error", err))
	} else {
		workingDays = settings.WorkingDays
	}

	due, err := s.store.GetDueNotifications(ctx, now)
	if err != nil {
		s.logger.Error("due query failed", slog.Any("error", err))
		return
	}
	if len(due) == 0 {
		return
	}
	s.logger.Info("processing due notifications", slog.Int("count", len(due)))

	set := weekdaySet(workingDays)
	for _, row := range due {
		s.process(ctx, row, now, set)
	}
}

func (s *Scheduler) process(ctx context.Context, row store.DueNotification, now time.Time, workingDays map[time.Weekday]bool) {
	// A working-days row due on a non-working day is pushed to the next
	// working day at the original clock time. No delivery, no log.
	if row.RepeatType == store.RepeatWorkingDays && !workingDays[now.Weekday()] {
		next := nextWorkingDayAt(now, row.ScheduleDate.Hour(), row.ScheduleDate.Minute(), workingDays)
		err := s.store.UpdateNotificationSchedule(ctx, row.ID, store.SchedulePatch{
			LastSent:      row.LastSent,
			NextScheduled: &next,
			IsActive:      true,
		})
		if err != nil {
			s.logger.Error("working-day push failed",
				slog.Int64("notification_id", row.ID), slog.Any("error", err))
		}
		return
	}

	s.deliver(ctx, row, now)
	s.advance(ctx, row, now, workingDays)
}

func (s *Scheduler) deliver(ctx context.Context, row store.DueNotification, now time.Time) {
	if row.ChannelPlatformID == "" {
		s.recordOutcome(ctx, row.ID, now, store.StatusFailed, "channel not found/accessible")
		return
	}

	body := row.Message
	if row.MentionEveryone {
		body = "@everyone " + body
	}

	if err := s.sender.SendToChannel(ctx, row.ChannelPlatformID, body); err != nil {
		s.logger.Warn("notification send failed",
			slog.Int64("notification_id", row.ID),
			slog.String("channel_id", row.ChannelPlatformID),
			slog.Any("error", err))
		s.recordOutcome(ctx, row.ID, now, store.StatusFailed, err.Error())
		return
	}
	s.recordOutcome(ctx, row.ID, now, store.StatusSuccess, "")
}

// advance moves the row to its next fire time or deactivates it. Runs even
// after a failed delivery so a failed once-row still terminates.
func (s *Scheduler) advance(ctx context.Context, row store.DueNotification, now time.Time, workingDays map[time.Weekday]bool) {
	// Guards against long pauses: never compute the next fire from a stale
	// instant already in the past.
	base := now
	if row.NextScheduled != nil && row.NextScheduled.After(now) {
		base = *row.NextScheduled
	}

	next := nextFire(base, row.RepeatType, workingDays)

	patch := store.SchedulePatch{LastSent: &now}
	if next == nil || (row.EndDate != nil && next.After(*row.EndDate)) {
		patch.NextScheduled = nil
		patch.IsActive = false
	} else {
		patch.NextScheduled = next
		patch.IsActive = true
	}

	if err := s.store.UpdateNotificationSchedule(ctx, row.ID, patch); err != nil {
		s.logger.Error("schedule advance failed",
			slog.Int64("notification_id", row.ID), slog.Any("error", err))
	}
}

func (s *Scheduler) recordOutcome(ctx context.Context, notificationID int64, sentAt time.Time, status store.LogStatus, errText string) {
	var failure *string
	if errText != "" {
		failure = &errText
	}
	if err := s.store.CreateNotificationLog(ctx, notificationID, sentAt, status, failure); err != nil {
		s.logger.Error("notification log write failed",
			slog.Int64("notification_id", notificationID), slog.Any("error", err))
	}
}

// cleanupLogs prunes delivery logs older than the retention window. Disabled
// when auto_cleanup_days is zero.
func (s *Scheduler) cleanupLogs(ctx context.Context) {
	settings, err := s.store.GetBotSettings(ctx)
	if err != nil {
		s.logger.Error("settings read failed", slog.Any("error", err))
		return
	}
	if settings.AutoCleanupDays <= 0 {
		return
	}
	cutoff := s.now().AddDate(0, 0, -settings.AutoCleanupDays)

	removedNotif, err := s.store.PruneNotificationLogs(ctx, cutoff)
	if err != nil {
		s.logger.Error("notification log prune failed", slog.Any("error", err))
	}
	removedFwd, err := s.store.PruneForwarderLogs(ctx, cutoff)
	if err != nil {
		s.logger.Error("forwarder log prune failed", slog.Any("error", err))
	}
	if removedNotif > 0 || removedFwd > 0 {
		s.logger.Info("pruned old logs",
			slog.Int64("notification_logs", removedNotif),
			slog.Int64("forwarder_logs", removedFwd))
	}
}

// cronLogger adapts slog to the cron logger interface so skipped overlapping
// ticks are visible.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, slog.Any("cron", keysAndValues))
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, slog.Any("error", err), slog.Any("cron", keysAndValues))
}
