package entity

import (
	"time"
)

// Assignment представляет задание, выданное классу.
// Сами задания создаются и редактируются основной платформой; движку
// живых сессий нужны только поля, влияющие на допуск к попытке.
type Assignment struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	ClassID      int64      `gorm:"not null;index" json:"class_id"`
	StartDate    time.Time  `gorm:"not null" json:"start_date"`
	EndDate      time.Time  `gorm:"not null" json:"end_date"`
	Canceled     bool       `gorm:"not null;default:false" json:"canceled"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	AttemptLimit int        `gorm:"not null;default:1" json:"attempt_limit"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (Assignment) TableName() string {
	return "assignments"
}

// IsCompleted проверяет, закрыто ли задание
func (a *Assignment) IsCompleted() bool {
	return a.CompletedAt != nil
}

// InWindow проверяет, попадает ли момент t в окно выполнения задания
func (a *Assignment) InWindow(t time.Time) bool {
	return !t.Before(a.StartDate) && !t.After(a.EndDate)
}
