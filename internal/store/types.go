package store

import "time"

// RepeatType enumerates notification recurrence modes.
type RepeatType string

const (
	RepeatOnce        RepeatType = "once"
	RepeatDaily       RepeatType = "daily"
	RepeatWeekly      RepeatType = "weekly"
	RepeatMonthly     RepeatType = "monthly"
	RepeatWorkingDays RepeatType = "working_days"
)

// Valid reports whether the repeat type is one of the known modes.
func (r RepeatType) Valid() bool {
	switch r {
	case RepeatOnce, RepeatDaily, RepeatWeekly, RepeatMonthly, RepeatWorkingDays:
		return true
	default:
		return false
	}
}

// MatchType enumerates forwarder keyword matching modes.
type MatchType string

const (
	MatchContains MatchType = "contains"
	MatchExact    MatchType = "exact"
)

func (m MatchType) Valid() bool {
	return m == MatchContains || m == MatchExact
}

// LogStatus is the outcome recorded in notification and forwarder logs.
type LogStatus string

const (
	StatusSuccess LogStatus = "success"
	StatusFailed  LogStatus = "failed"
)

// ChannelKind is the mirrored channel type. Only text-like channels are tracked.
type ChannelKind string

const (
	ChannelText         ChannelKind = "text"
	ChannelAnnouncement ChannelKind = "announcement"
)

// Server mirrors one Discord guild the bot has seen.
type Server struct {
	ID          int64      `json:"id"`
	PlatformID  string     `json:"platform_id"`
	Name        string     `json:"name"`
	IconURL     *string    `json:"icon_url,omitempty"`
	MemberCount *int32     `json:"member_count,omitempty"`
	IsConnected bool       `json:"is_connected"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Channel mirrors one text-like Discord channel.
type Channel struct {
	ID         int64       `json:"id"`
	PlatformID string      `json:"platform_id"`
	ServerID   int64       `json:"server_id"`
	Name       string      `json:"name"`
	Kind       ChannelKind `json:"kind"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

// Notification is an operator-defined scheduled message.
type Notification struct {
	ID              int64      `json:"id"`
	UserID          int64      `json:"user_id"`
	ServerID        int64      `json:"server_id"`
	ChannelID       int64      `json:"channel_id"`
	Title           *string    `json:"title,omitempty"`
	Message         string     `json:"message"`
	ScheduleDate    time.Time  `json:"schedule_date"`
	RepeatType      RepeatType `json:"repeat_type"`
	EndDate         *time.Time `json:"end_date,omitempty"`
	IsActive        bool       `json:"is_active"`
	Timezone        string     `json:"timezone"`
	MentionEveryone bool       `json:"mention_everyone"`
	LastSent        *time.Time `json:"last_sent,omitempty"`
	NextScheduled   *time.Time `json:"next_scheduled,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// DueNotification is a due row joined with the platform handles the scheduler
// needs for delivery. ChannelPlatformID is empty when the mirrored channel row
// no longer exists.
type DueNotification struct {
	Notification
	ServerPlatformID  string `json:"server_platform_id"`
	ChannelPlatformID string `json:"channel_platform_id"`
}

// SchedulePatch is the only mutation the scheduler applies to a notification.
type SchedulePatch struct {
	LastSent      *time.Time
	NextScheduled *time.Time
	IsActive      bool
}

// NotificationLog is an append-only delivery outcome.
type NotificationLog struct {
	ID             int64     `json:"id"`
	NotificationID int64     `json:"notification_id"`
	SentAt         time.Time `json:"sent_at"`
	Status         LogStatus `json:"status"`
	Error          *string   `json:"error,omitempty"`
}

// Forwarder is an operator-defined keyword forwarding rule.
type Forwarder struct {
	ID                   int64     `json:"id"`
	UserID               int64     `json:"user_id"`
	Name                 string    `json:"name"`
	SourceServerID       int64     `json:"source_server_id"`
	SourceChannelID      int64     `json:"source_channel_id"`
	SourceThreadID       *string   `json:"source_thread_id,omitempty"`
	DestinationServerID  int64     `json:"destination_server_id"`
	DestinationChannelID int64     `json:"destination_channel_id"`
	DestinationThreadID  *string   `json:"destination_thread_id,omitempty"`
	Keywords             []string  `json:"keywords"`
	MatchType            MatchType `json:"match_type"`
	IsActive             bool      `json:"is_active"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// ActiveForwarder is an active rule joined with the platform channel handles
// the matcher keys on and sends to.
type ActiveForwarder struct {
	Forwarder
	SourceChannelPlatformID      string `json:"source_channel_platform_id"`
	DestinationChannelPlatformID string `json:"destination_channel_platform_id"`
}

// ForwarderLog is an append-only forwarding outcome with provenance.
type ForwarderLog struct {
	ID              int64     `json:"id"`
	ForwarderID     int64     `json:"forwarder_id"`
	ForwardedAt     time.Time `json:"forwarded_at"`
	OriginalMessage string    `json:"original_message"`
	MatchedKeyword  *string   `json:"matched_keyword,omitempty"`
	Status          LogStatus `json:"status"`
	Error           *string   `json:"error,omitempty"`
}

// BotSettings is the singleton settings row.
type BotSettings struct {
	DefaultTimezone      string    `json:"default_timezone"`
	MaxMessagesPerMinute int       `json:"max_messages_per_minute"`
	EnableAnalytics      bool      `json:"enable_analytics"`
	AutoCleanupDays      int       `json:"auto_cleanup_days"`
	WorkingDays          []int     `json:"working_days"`
	UpdatedAt            time.Time `json:"updated_at"`
}
