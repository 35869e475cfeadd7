package service

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/lib/pq"

	"github.com/yourusername/live-api/internal/domain/entity"
	"github.com/yourusername/live-api/internal/domain/repository"
)

// GateReason - закрытое перечисление причин блокировки попытки.
// Вызывающая сторона реагирует на каждую причину по-разному, поэтому
// это структурированные значения, а не ошибки.
type GateReason string

const (
	GateReasonCanceled            GateReason = "canceled"
	GateReasonTimeWindow          GateReason = "time_window"
	GateReasonAssignmentCompleted GateReason = "assignment_completed"
	GateReasonAttemptLimit        GateReason = "attempt_limit"
)

// AttemptGateDecision - решение гейта по тройке (задание, игра, ученик).
// Для движка живых сессий это read-only вход в момент сдачи результата.
type AttemptGateDecision struct {
	Allow             bool       `json:"allow"`
	Reason            GateReason `json:"reason,omitempty"`
	AttemptNumber     int        `json:"attempt_number"`
	AttemptLimit      int        `json:"attempt_limit"`
	AttemptsRemaining int        `json:"attempts_remaining"`
}

// AssignmentGateService решает, допущен ли ученик к новой попытке по
// заданию. Живая сессия без assignment-контекста гейт не проходит вовсе
// (free-play).
type AssignmentGateService struct {
	assignmentRepo repository.AssignmentRepository
	sessionRepo    repository.SessionRepository
}

// NewAssignmentGateService создает новый сервис гейта заданий
func NewAssignmentGateService(
	assignmentRepo repository.AssignmentRepository,
	sessionRepo repository.SessionRepository,
) *AssignmentGateService {
	return &AssignmentGateService{
		assignmentRepo: assignmentRepo,
		sessionRepo:    sessionRepo,
	}
}

// CanAttempt вычисляет решение гейта. Порядок проверок фиксирован:
// canceled → time_window → assignment_completed → attempt_limit → allow.
func (s *AssignmentGateService) CanAttempt(assignmentID, gameID, studentID uint) (*AttemptGateDecision, error) {
	assignment, err := s.assignmentRepo.GetByID(assignmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load assignment #%d: %w", assignmentID, err)
	}

	prior, err := s.assignmentRepo.CountAttempts(assignmentID, gameID, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to count attempts for assignment #%d: %w", assignmentID, err)
	}

	decision := &AttemptGateDecision{
		AttemptNumber:     prior + 1,
		AttemptLimit:      assignment.AttemptLimit,
		AttemptsRemaining: assignment.AttemptLimit - prior,
	}
	if decision.AttemptsRemaining < 0 {
		decision.AttemptsRemaining = 0
	}

	switch {
	case assignment.Canceled:
		decision.Reason = GateReasonCanceled
	case !assignment.InWindow(time.Now()):
		decision.Reason = GateReasonTimeWindow
	case assignment.IsCompleted():
		decision.Reason = GateReasonAssignmentCompleted
	case prior >= assignment.AttemptLimit:
		decision.Reason = GateReasonAttemptLimit
	default:
		decision.Allow = true
	}

	return decision, nil
}

// SubmitLiveResult сдает итог завершенной живой сессии как попытку по
// заданию. Гейт перепроверяется в момент сдачи: решение, полученное
// учеником заранее, могло устареть.
func (s *AssignmentGateService) SubmitLiveResult(sessionID string, assignmentID, gameID, studentID uint) (*entity.GameAttempt, *AttemptGateDecision, error) {
	session, err := s.sessionRepo.GetWithStandings(sessionID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load session %s: %w", sessionID, err)
	}
	if !session.IsEnded() {
		return nil, nil, ErrSessionNotEnded
	}

	var standing *entity.Standing
	for i := range session.Standings {
		if session.Standings[i].UserID == studentID {
			standing = &session.Standings[i]
			break
		}
	}
	if standing == nil {
		return nil, nil, ErrNoStandingForStudent
	}

	decision, err := s.CanAttempt(assignmentID, gameID, studentID)
	if err != nil {
		return nil, nil, err
	}
	if !decision.Allow {
		log.Printf("[AssignmentGate] Попытка заблокирована: assignment #%d, game #%d, student #%d, причина %s",
			assignmentID, gameID, studentID, decision.Reason)
		return nil, decision, ErrAttemptBlocked
	}

	attempt := &entity.GameAttempt{
		AssignmentID:  assignmentID,
		GameID:        gameID,
		StudentID:     studentID,
		SessionID:     sessionID,
		AttemptNumber: decision.AttemptNumber,
		Score:         standing.Score,
		ElapsedTimeMs: standing.ElapsedTimeMs,
		WrongCount:    standing.WrongCount,
	}
	if err := s.assignmentRepo.SaveAttempt(attempt); err != nil {
		// Две параллельные сдачи проходят CountAttempts до того, как любая
		// из них вставит строку; гонку разрешает уникальный индекс по
		// (assignment_id, game_id, student_id, attempt_number).
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			log.Printf("[AssignmentGate] Параллельная сдача отклонена БД: assignment #%d, game #%d, student #%d, попытка %d",
				assignmentID, gameID, studentID, attempt.AttemptNumber)
			decision.Allow = false
			decision.Reason = GateReasonAttemptLimit
			return nil, decision, ErrAttemptBlocked
		}
		return nil, decision, fmt.Errorf("failed to save attempt: %w", err)
	}

	log.Printf("[AssignmentGate] Попытка %d/%d зачтена: assignment #%d, game #%d, student #%d, score %d",
		attempt.AttemptNumber, decision.AttemptLimit, assignmentID, gameID, studentID, attempt.Score)
	return attempt, decision, nil
}
