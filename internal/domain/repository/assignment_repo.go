package repository

import (
	"github.com/yourusername/live-api/internal/domain/entity"
)

// AssignmentRepository определяет методы для работы с заданиями и попытками.
// Движок живых сессий только читает задания и дописывает попытки;
// создание/редактирование заданий — зона ответственности основной платформы.
type AssignmentRepository interface {
	GetByID(id uint) (*entity.Assignment, error)
	// CountAttempts возвращает число зачтенных попыток по тройке
	// (задание, игра, ученик).
	CountAttempts(assignmentID, gameID, studentID uint) (int, error)
	SaveAttempt(attempt *entity.GameAttempt) error
}
