package repository

import (
	"github.com/yourusername/live-api/internal/domain/entity"
)

// SessionRepository определяет методы для работы с завершенными живыми сессиями.
// Строка сессии вместе с итоговой таблицей пишется один раз в момент end
// (SaveSummary) и после этого неизменна.
type SessionRepository interface {
	// SaveSummary атомарно сохраняет сессию и ее итоговую таблицу.
	// Повторный вызов для того же session ID должен вернуть ошибку
	// уникальности, а не продублировать снимок.
	SaveSummary(session *entity.LiveSession, standings []entity.Standing) error
	GetWithStandings(id string) (*entity.LiveSession, error)
	// Delete удаляет завершенную сессию вместе с итоговой таблицей
	// (административное действие, отличное от end).
	Delete(id string) error
	// ListByHost возвращает сохраненные сессии учителя, свежие первыми.
	ListByHost(hostID uint, limit, offset int) ([]entity.LiveSession, int64, error)
}
