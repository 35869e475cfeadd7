package entity

import (
	"time"
)

// GameAttempt представляет зачтенную попытку ученика по игре задания.
// Счетчик попыток для Assignment Gate считается по этим строкам.
type GameAttempt struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	AssignmentID  uint      `gorm:"not null;index:idx_attempt_triple;uniqueIndex:idx_attempt_unique" json:"assignment_id"`
	GameID        uint      `gorm:"not null;index:idx_attempt_triple;uniqueIndex:idx_attempt_unique" json:"game_id"`
	StudentID     uint      `gorm:"not null;index:idx_attempt_triple;uniqueIndex:idx_attempt_unique" json:"student_id"`
	SessionID     string    `gorm:"size:36;not null" json:"session_id"`
	AttemptNumber int       `gorm:"not null;uniqueIndex:idx_attempt_unique" json:"attempt_number"`
	Score         int       `gorm:"not null;default:0" json:"score"`
	ElapsedTimeMs int64     `gorm:"not null;default:0" json:"elapsed_time_ms"`
	WrongCount    int       `gorm:"not null;default:0" json:"wrong_count"`
	CreatedAt     time.Time `json:"created_at"`
}

// TableName определяет имя таблицы для GORM
func (GameAttempt) TableName() string {
	return "game_attempts"
}
