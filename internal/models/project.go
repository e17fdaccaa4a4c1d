package models

import "time"

// Project is the scheduling subject: one social account with its own
// templates, assets, and publishing credentials.
type Project struct {
	ID                string     `json:"id"`
	Name              string     `json:"name"`
	Active            bool       `json:"active"`
	// ScheduleEveryDays gates the fixed daily triggers: the project only
	// fires when at least this many days have passed since the last
	// scheduled run. Nil means fire at every trigger.
	ScheduleEveryDays *int       `json:"schedule_every_days,omitempty"`
	MorningTemplateID *string    `json:"morning_template_id,omitempty"`
	EveningTemplateID *string    `json:"evening_template_id,omitempty"`
	PlatformUserID    string     `json:"platform_user_id,omitempty"`
	AccessToken       string     `json:"-"`
	LastScheduledAt   *time.Time `json:"last_scheduled_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}
