package postgres

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/yourusername/live-api/internal/domain/entity"
	apperrors "github.com/yourusername/live-api/internal/pkg/errors"
)

// SessionRepo реализует repository.SessionRepository
type SessionRepo struct {
	db *gorm.DB
}

// NewSessionRepo создает новый репозиторий живых сессий
func NewSessionRepo(db *gorm.DB) *SessionRepo {
	return &SessionRepo{db: db}
}

// SaveSummary атомарно сохраняет сессию и ее итоговую таблицу.
// Используем транзакцию: либо снимок записан целиком, либо не записан вовсе.
func (r *SessionRepo) SaveSummary(session *entity.LiveSession, standings []entity.Standing) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(session).Error; err != nil {
			return fmt.Errorf("failed to insert session %s: %w", session.ID, err)
		}
		if len(standings) > 0 {
			if err := tx.Create(&standings).Error; err != nil {
				return fmt.Errorf("failed to insert standings for session %s: %w", session.ID, err)
			}
		}
		return nil
	})
}

// GetWithStandings возвращает сессию вместе с итоговой таблицей,
// упорядоченной по рангу.
func (r *SessionRepo) GetWithStandings(id string) (*entity.LiveSession, error) {
	var session entity.LiveSession
	err := r.db.
		Preload("Standings", func(db *gorm.DB) *gorm.DB {
			return db.Order("rank ASC")
		}).
		First(&session, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &session, nil
}

// Delete удаляет завершенную сессию вместе с итоговой таблицей
func (r *SessionRepo) Delete(id string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("session_id = ?", id).Delete(&entity.Standing{}).Error; err != nil {
			return fmt.Errorf("failed to delete standings for session %s: %w", id, err)
		}
		res := tx.Delete(&entity.LiveSession{}, "id = ?", id)
		if res.Error != nil {
			return fmt.Errorf("failed to delete session %s: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			return apperrors.ErrNotFound
		}
		return nil
	})
}

// ListByHost возвращает сохраненные сессии учителя с пагинацией, новые первыми
func (r *SessionRepo) ListByHost(hostID uint, limit, offset int) ([]entity.LiveSession, int64, error) {
	var sessions []entity.LiveSession
	var total int64

	if err := r.db.Model(&entity.LiveSession{}).Where("host_id = ?", hostID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := r.db.
		Where("host_id = ?", hostID).
		Order("ended_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&sessions).Error
	if err != nil {
		return nil, 0, err
	}
	return sessions, total, nil
}
