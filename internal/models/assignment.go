package models

import "time"

// Assignment represents an assignment definition owned by an instructor.
type Assignment struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Title       string    `gorm:"size:255;not null" json:"title"`
	Description string    `gorm:"type:text" json:"description"`
	DueDate     time.Time `gorm:"not null" json:"due_date"`
	MaxScore    float64   `gorm:"not null;default:100" json:"max_score"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// IsPastDue returns true when the assignment deadline has already passed.
func (a Assignment) IsPastDue(reference time.Time) bool {
	return reference.After(a.DueDate)
}

// EffectiveMaxScore falls back to 100 when no maximum is configured.
func (a Assignment) EffectiveMaxScore() float64 {
	if a.MaxScore <= 0 {
		return 100
	}
	return a.MaxScore
}
