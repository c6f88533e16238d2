package store

import (
	"context"
	"time"
)

const notificationColumns = `id, user_id, server_id, channel_id, title, message, schedule_date,
	repeat_type, end_date, is_active, timezone, mention_everyone, last_sent, next_scheduled,
	created_at, updated_at`

type CreateNotificationParams struct {
	UserID          int64
	ServerID        int64
	ChannelID       int64
	Title           *string
	Message         string
	ScheduleDate    time.Time
	RepeatType      RepeatType
	EndDate         *time.Time
	Timezone        string
	MentionEveryone bool
	// NextScheduled defaults to ScheduleDate when nil so active rows always
	// carry a next fire time.
	NextScheduled *time.Time
}

type UpdateNotificationParams struct {
	ChannelID       int64
	Title           *string
	Message         string
	ScheduleDate    time.Time
	RepeatType      RepeatType
	EndDate         *time.Time
	Timezone        string
	MentionEveryone bool
	IsActive        bool
	NextScheduled   *time.Time
}

// GetDueNotifications returns active rows whose next fire time has passed,
// joined with the platform handles delivery needs. A LEFT JOIN keeps rows
// whose mirrored channel has been deleted; those surface with an empty
// ChannelPlatformID and fail with "channel not found/accessible".
func (s *Store) GetDueNotifications(ctx context.Context, now time.Time) ([]DueNotification, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT n.id, n.user_id, n.server_id, n.channel_id, n.title, n.message, n.schedule_date,
		        n.repeat_type, n.end_date, n.is_active, n.timezone, n.mention_everyone,
		        n.last_sent, n.next_scheduled, n.created_at, n.updated_at,
		        COALESCE(sv.platform_id, ''), COALESCE(ch.platform_id, '')
		 FROM notifications n
		 LEFT JOIN servers sv ON sv.id = n.server_id
		 LEFT JOIN channels ch ON ch.id = n.channel_id
		 WHERE n.is_active AND n.next_scheduled IS NOT NULL AND n.next_scheduled <= $1
		 ORDER BY n.next_scheduled, n.id`, now)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	var due []DueNotification
	for rows.Next() {
		var d DueNotification
		err := rows.Scan(
			&d.ID, &d.UserID, &d.ServerID, &d.ChannelID, &d.Title, &d.Message,
			&d.ScheduleDate, &d.RepeatType, &d.EndDate, &d.IsActive, &d.Timezone,
			&d.MentionEveryone, &d.LastSent, &d.NextScheduled, &d.CreatedAt, &d.UpdatedAt,
			&d.ServerPlatformID, &d.ChannelPlatformID,
		)
		if err != nil {
			return nil, classify(err)
		}
		due = append(due, d)
	}
	return due, classify(rows.Err())
}

// UpdateNotificationSchedule applies the scheduler's post-fire patch. It never
// touches operator-supplied fields.
func (s *Store) UpdateNotificationSchedule(ctx context.Context, id int64, patch SchedulePatch) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE notifications
		 SET last_sent = $2, next_scheduled = $3, is_active = $4, updated_at = now()
		 WHERE id = $1`,
		id, patch.LastSent, patch.NextScheduled, patch.IsActive)
	if err != nil {
		return classify(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) CreateNotificationLog(ctx context.Context, notificationID int64, sentAt time.Time, status LogStatus, errText *string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO notification_logs (notification_id, sent_at, status, error)
		 VALUES ($1, $2, $3, $4)`,
		notificationID, sentAt, status, errText)
	return classify(err)
}

func (s *Store) GetNotification(ctx context.Context, id int64) (Notification, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+notificationColumns+` FROM notifications WHERE id = $1`, id)
	return scanNotification(row)
}

func (s *Store) ListNotifications(ctx context.Context) ([]Notification, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+notificationColumns+` FROM notifications ORDER BY id`)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	var items []Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, n)
	}
	return items, classify(rows.Err())
}

func (s *Store) CreateNotification(ctx context.Context, params CreateNotificationParams) (Notification, error) {
	next := params.NextScheduled
	if next == nil {
		d := params.ScheduleDate
		next = &d
	}
	row := s.pool.QueryRow(ctx,
		`INSERT INTO notifications (user_id, server_id, channel_id, title, message, schedule_date,
		    repeat_type, end_date, timezone, mention_everyone, next_scheduled)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING `+notificationColumns,
		params.UserID, params.ServerID, params.ChannelID, params.Title, params.Message,
		params.ScheduleDate, params.RepeatType, params.EndDate, params.Timezone,
		params.MentionEveryone, next)
	return scanNotification(row)
}

func (s *Store) UpdateNotification(ctx context.Context, id int64, params UpdateNotificationParams) (Notification, error) {
	row := s.pool.QueryRow(ctx,
		`UPDATE notifications
		 SET channel_id = $2, title = $3, message = $4, schedule_date = $5, repeat_type = $6,
		     end_date = $7, timezone = $8, mention_everyone = $9, is_active = $10,
		     next_scheduled = $11, updated_at = now()
		 WHERE id = $1
		 RETURNING `+notificationColumns,
		id, params.ChannelID, params.Title, params.Message, params.ScheduleDate,
		params.RepeatType, params.EndDate, params.Timezone, params.MentionEveryone,
		params.IsActive, params.NextScheduled)
	return scanNotification(row)
}

func (s *Store) DeleteNotification(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM notifications WHERE id = $1`, id)
	if err != nil {
		return classify(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// PruneNotificationLogs deletes outcome rows older than the cutoff and
// returns the number removed.
func (s *Store) PruneNotificationLogs(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM notification_logs WHERE sent_at < $1`, cutoff)
	if err != nil {
		return 0, classify(err)
	}
	return tag.RowsAffected(), nil
}

func scanNotification(row pgxScanner) (Notification, error) {
	var n Notification
	err := row.Scan(
		&n.ID, &n.UserID, &n.ServerID, &n.ChannelID, &n.Title, &n.Message,
		&n.ScheduleDate, &n.RepeatType, &n.EndDate, &n.IsActive, &n.Timezone,
		&n.MentionEveryone, &n.LastSent, &n.NextScheduled, &n.CreatedAt, &n.UpdatedAt,
	)
	if err != nil {
		return Notification{}, classify(err)
	}
	return n, nil
}
