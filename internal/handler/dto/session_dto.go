package dto

import (
	"time"

	"github.com/yourusername/live-api/internal/domain/entity"
	"github.com/yourusername/live-api/internal/service"
)

// CreateSessionRequest - тело запроса на создание живой сессии
type CreateSessionRequest struct {
	GameID            uint    `json:"game_id" binding:"required"`
	AllowedClassIDs   []int64 `json:"allowed_class_ids"`
	PenaltyPerWrongMs *int64  `json:"penalty_per_wrong_ms"`
	ScorePerCorrect   *int    `json:"score_per_correct"`
}

// SessionResponse представляет сессию в формате для ответа клиенту
type SessionResponse struct {
	ID                string     `json:"id"`
	Code              string     `json:"code"`
	GameID            uint       `json:"game_id"`
	HostID            uint       `json:"host_id"`
	Status            string     `json:"status"`
	AllowedClassIDs   []int64    `json:"allowed_class_ids,omitempty"`
	PenaltyPerWrongMs int64      `json:"penalty_per_wrong_ms"`
	ScorePerCorrect   int        `json:"score_per_correct"`
	CreatedAt         time.Time  `json:"created_at"`
	StartedAt         *time.Time `json:"started_at,omitempty"`
	EndedAt           *time.Time `json:"ended_at,omitempty"`
}

// StandingResponse представляет строку итогового рейтинга
type StandingResponse struct {
	UserID          uint   `json:"user_id"`
	DisplayName     string `json:"display_name"`
	Score           int    `json:"score"`
	EffectiveTimeMs int64  `json:"effective_time_ms"`
	WrongCount      int    `json:"wrong_count"`
	Finished        bool   `json:"finished"`
	Rank            int    `json:"rank"`
}

// SummaryResponse представляет итог завершенной сессии
type SummaryResponse struct {
	Session   SessionResponse    `json:"session"`
	Standings []StandingResponse `json:"standings"`
}

// GateDecisionResponse представляет решение о допуске к попытке
type GateDecisionResponse struct {
	Allow             bool   `json:"allow"`
	Reason            string `json:"reason,omitempty"`
	AttemptNumber     int    `json:"attempt_number,omitempty"`
	AttemptLimit      int    `json:"attempt_limit"`
	AttemptsRemaining int    `json:"attempts_remaining"`
}

// AttemptResponse представляет засчитанную попытку
type AttemptResponse struct {
	ID            uint      `json:"id"`
	AssignmentID  uint      `json:"assignment_id"`
	GameID        uint      `json:"game_id"`
	StudentID     uint      `json:"student_id"`
	SessionID     string    `json:"session_id"`
	AttemptNumber int       `json:"attempt_number"`
	Score         int       `json:"score"`
	ElapsedTimeMs int64     `json:"elapsed_time_ms"`
	WrongCount    int       `json:"wrong_count"`
	CreatedAt     time.Time `json:"created_at"`
}

// NewSessionResponse создает DTO для сессии
func NewSessionResponse(s *entity.LiveSession) SessionResponse {
	return SessionResponse{
		ID:                s.ID,
		Code:              s.Code,
		GameID:            s.GameID,
		HostID:            s.HostID,
		Status:            s.Status,
		AllowedClassIDs:   s.AllowedClassIDs,
		PenaltyPerWrongMs: s.PenaltyPerWrongMs,
		ScorePerCorrect:   s.ScorePerCorrect,
		CreatedAt:         s.CreatedAt,
		StartedAt:         s.StartedAt,
		EndedAt:           s.EndedAt,
	}
}

// NewSummaryResponse создает DTO итога по сессии с загруженными строками рейтинга
func NewSummaryResponse(s *entity.LiveSession) *SummaryResponse {
	standings := make([]StandingResponse, 0, len(s.Standings))
	for _, st := range s.Standings {
		standings = append(standings, StandingResponse{
			UserID:          st.UserID,
			DisplayName:     st.DisplayName,
			Score:           st.Score,
			EffectiveTimeMs: st.EffectiveTimeMs,
			WrongCount:      st.WrongCount,
			Finished:        st.Finished,
			Rank:            st.Rank,
		})
	}
	return &SummaryResponse{
		Session:   NewSessionResponse(s),
		Standings: standings,
	}
}

// NewGateDecisionResponse создает DTO решения гейта
func NewGateDecisionResponse(d *service.AttemptGateDecision) GateDecisionResponse {
	return GateDecisionResponse{
		Allow:             d.Allow,
		Reason:            string(d.Reason),
		AttemptNumber:     d.AttemptNumber,
		AttemptLimit:      d.AttemptLimit,
		AttemptsRemaining: d.AttemptsRemaining,
	}
}

// NewAttemptResponse создает DTO попытки
func NewAttemptResponse(a *entity.GameAttempt) AttemptResponse {
	return AttemptResponse{
		ID:            a.ID,
		AssignmentID:  a.AssignmentID,
		GameID:        a.GameID,
		StudentID:     a.StudentID,
		SessionID:     a.SessionID,
		AttemptNumber: a.AttemptNumber,
		Score:         a.Score,
		ElapsedTimeMs: a.ElapsedTimeMs,
		WrongCount:    a.WrongCount,
		CreatedAt:     a.CreatedAt,
	}
}
