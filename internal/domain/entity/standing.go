package entity

import (
	"time"
)

// Standing представляет строку итоговой таблицы сессии.
// Снимок делается один раз в момент завершения сессии и далее неизменен.
type Standing struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	SessionID       string    `gorm:"size:36;not null;index;uniqueIndex:idx_session_user" json:"session_id"`
	UserID          uint      `gorm:"not null;uniqueIndex:idx_session_user" json:"user_id"`
	DisplayName     string    `gorm:"size:100;not null" json:"display_name"`
	Score           int       `gorm:"not null;default:0" json:"score"`
	ElapsedTimeMs   int64     `gorm:"not null;default:0" json:"elapsed_time_ms"`
	WrongCount      int       `gorm:"not null;default:0" json:"wrong_count"`
	EffectiveTimeMs int64     `gorm:"not null;default:0" json:"effective_time_ms"`
	Finished        bool      `gorm:"not null;default:false" json:"finished"`
	Rank            int       `gorm:"not null;default:0;index:idx_session_rank" json:"rank"`
	JoinedAt        time.Time `gorm:"not null" json:"joined_at"`
	CreatedAt       time.Time `json:"created_at"`
}

// TableName определяет имя таблицы для GORM
func (Standing) TableName() string {
	return "live_standings"
}
