package postgres

import (
	"errors"

	"gorm.io/gorm"

	"github.com/yourusername/live-api/internal/domain/entity"
	apperrors "github.com/yourusername/live-api/internal/pkg/errors"
)

// AssignmentRepo реализует repository.AssignmentRepository
type AssignmentRepo struct {
	db *gorm.DB
}

// NewAssignmentRepo создает новый репозиторий заданий
func NewAssignmentRepo(db *gorm.DB) *AssignmentRepo {
	return &AssignmentRepo{db: db}
}

// GetByID возвращает задание по ID
func (r *AssignmentRepo) GetByID(id uint) (*entity.Assignment, error) {
	var assignment entity.Assignment
	err := r.db.First(&assignment, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &assignment, nil
}

// CountAttempts возвращает число зачтенных попыток по тройке (задание, игра, ученик)
func (r *AssignmentRepo) CountAttempts(assignmentID, gameID, studentID uint) (int, error) {
	var count int64
	err := r.db.Model(&entity.GameAttempt{}).
		Where("assignment_id = ? AND game_id = ? AND student_id = ?", assignmentID, gameID, studentID).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return int(count), nil
}

// SaveAttempt сохраняет зачтенную попытку
func (r *AssignmentRepo) SaveAttempt(attempt *entity.GameAttempt) error {
	return r.db.Create(attempt).Error
}
