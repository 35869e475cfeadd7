package liveroom

import (
	"errors"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/yourusername/live-api/internal/domain/repository"
	apperrors "github.com/yourusername/live-api/internal/pkg/errors"
)

const codeKeyPrefix = "liveroom:code:"

// Registry отображает короткие коды комнат на ID сессий.
// Резервация кода - SETNX в Redis, поэтому уникальность держится и при
// нескольких инстансах API. Код освобождается, когда сессия доходит до
// терминального состояния, и только после этого может быть выдан заново.
type Registry struct {
	cfg   *Config
	cache repository.CacheRepository

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewRegistry создает новый реестр кодов комнат
func NewRegistry(cfg *Config, cache repository.CacheRepository) *Registry {
	return &Registry{
		cfg:   cfg,
		cache: cache,
		rnd:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// CreateRoom генерирует свободный код и резервирует его за сессией.
// При исчерпании бюджета повторов возвращает ErrExhaustedCodeSpace -
// это сигнал системного исчерпания пространства кодов, не ошибка пользователя.
func (r *Registry) CreateRoom(sessionID string) (string, error) {
	for attempt := 0; attempt < r.cfg.CodeRetries; attempt++ {
		code := r.generateCode()

		ok, err := r.cache.SetNX(codeKeyPrefix+code, sessionID, r.cfg.CodeTTL)
		if err != nil {
			return "", fmt.Errorf("failed to reserve room code: %w", err)
		}
		if ok {
			log.Printf("[Registry] Код %s зарезервирован за сессией %s (попытка %d)", code, sessionID, attempt+1)
			return code, nil
		}
		// Коллизия - код занят незавершенной сессией, пробуем заново
	}

	log.Printf("[Registry] CRITICAL: бюджет из %d попыток генерации кода исчерпан", r.cfg.CodeRetries)
	return "", ErrExhaustedCodeSpace
}

// Resolve возвращает ID сессии, владеющей кодом
func (r *Registry) Resolve(code string) (string, error) {
	sessionID, err := r.cache.Get(codeKeyPrefix + NormalizeCode(code))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return "", ErrRoomNotFound
		}
		return "", fmt.Errorf("failed to resolve room code: %w", err)
	}
	return sessionID, nil
}

// Release освобождает код завершенной сессии для повторного использования
func (r *Registry) Release(code string) error {
	if err := r.cache.Delete(codeKeyPrefix + NormalizeCode(code)); err != nil {
		return fmt.Errorf("failed to release room code %s: %w", code, err)
	}
	log.Printf("[Registry] Код %s освобожден", code)
	return nil
}

// generateCode выдает случайный код из настроенного алфавита
func (r *Registry) generateCode() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var b strings.Builder
	b.Grow(r.cfg.CodeLength)
	for i := 0; i < r.cfg.CodeLength; i++ {
		b.WriteByte(r.cfg.CodeAlphabet[r.rnd.Intn(len(r.cfg.CodeAlphabet))])
	}
	return b.String()
}

// NormalizeCode приводит код, набранный учеником, к каноническому виду
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
