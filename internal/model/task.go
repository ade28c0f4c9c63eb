package model

import "time"

// Task priorities and statuses as stored and exposed over the API.
const (
	PriorityLow    = "Low"
	PriorityMedium = "Medium"
	PriorityHigh   = "High"

	StatusPending   = "Pending"
	StatusCompleted = "Completed"

	DefaultCategory = "General"
)

// Task represents a single item owned by one user.
type Task struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	UserID           string     `gorm:"index;size:36;not null" json:"user_id"`
	Title            string     `gorm:"column:task;size:200;not null" json:"task"`
	Category         string     `gorm:"size:50;not null;default:General" json:"category"`
	Priority         string     `gorm:"size:20;not null;default:Medium" json:"priority"`
	Deadline         *string    `gorm:"size:10" json:"deadline"`
	Status           string     `gorm:"size:20;not null;default:Pending;index" json:"status"`
	Recurring        bool       `gorm:"not null;default:false" json:"recurring"`
	ConsistencyScore int        `gorm:"not null;default:0" json:"consistency_score"`
	LastCompleted    *time.Time `json:"last_completed"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// ValidPriority reports whether p is one of the known priorities.
func ValidPriority(p string) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// ValidStatus reports whether s is one of the known statuses.
func ValidStatus(s string) bool {
	return s == StatusPending || s == StatusCompleted
}
