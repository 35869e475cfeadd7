package entity

import (
	"time"

	"github.com/lib/pq"
)

// Константы статусов живой сессии
const (
	SessionStatusLobby     = "lobby"
	SessionStatusActive    = "active"
	SessionStatusEnded     = "ended"
	SessionStatusAbandoned = "abandoned"
)

// LiveSession представляет живую игровую сессию (комнату).
// В БД попадают только завершенные сессии: пока сессия в lobby/active,
// она живет в памяти актора комнаты (осознанный трейд-офф: незаконченные
// сессии не переживают рестарт процесса).
type LiveSession struct {
	ID                string        `gorm:"primaryKey;size:36" json:"id"`
	Code              string        `gorm:"size:12;not null;index" json:"code"`
	GameID            uint          `gorm:"not null;index" json:"game_id"`
	HostID            uint          `gorm:"not null;index" json:"host_id"`
	AllowedClassIDs   pq.Int64Array `gorm:"type:bigint[]" json:"allowed_class_ids"`
	Status            string        `gorm:"size:20;not null;default:'lobby';index" json:"status"`
	PenaltyPerWrongMs int64         `gorm:"not null;default:0" json:"penalty_per_wrong_ms"`
	ScorePerCorrect   int           `gorm:"not null;default:1" json:"score_per_correct"`
	CreatedAt         time.Time     `json:"created_at"`
	StartedAt         *time.Time    `json:"started_at,omitempty"`
	EndedAt           *time.Time    `json:"ended_at,omitempty"`
	Standings         []Standing    `gorm:"foreignKey:SessionID" json:"standings,omitempty"`
}

// TableName определяет имя таблицы для GORM
func (LiveSession) TableName() string {
	return "live_sessions"
}

// IsLobby проверяет, находится ли сессия в зале ожидания
func (s *LiveSession) IsLobby() bool {
	return s.Status == SessionStatusLobby
}

// IsActive проверяет, идет ли игра
func (s *LiveSession) IsActive() bool {
	return s.Status == SessionStatusActive
}

// IsEnded проверяет, завершена ли сессия
func (s *LiveSession) IsEnded() bool {
	return s.Status == SessionStatusEnded
}

// ClassAllowed проверяет класс ученика против списка допущенных классов.
// Пустой список означает, что ограничение по классам не включено.
func (s *LiveSession) ClassAllowed(classID int64) bool {
	if len(s.AllowedClassIDs) == 0 {
		return true
	}
	for _, id := range s.AllowedClassIDs {
		if id == classID {
			return true
		}
	}
	return false
}
