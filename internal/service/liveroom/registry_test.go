package liveroom

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "github.com/yourusername/live-api/internal/pkg/errors"
)

// ============================================================================
// Моки для Registry
// ============================================================================

// MockCacheRepoForRegistry реализует repository.CacheRepository
type MockCacheRepoForRegistry struct {
	mock.Mock
}

func (m *MockCacheRepoForRegistry) Set(key string, value interface{}, expiration time.Duration) error {
	args := m.Called(key, value, expiration)
	return args.Error(0)
}

func (m *MockCacheRepoForRegistry) Get(key string) (string, error) {
	args := m.Called(key)
	return args.String(0), args.Error(1)
}

func (m *MockCacheRepoForRegistry) Delete(key string) error {
	args := m.Called(key)
	return args.Error(0)
}

func (m *MockCacheRepoForRegistry) Exists(key string) (bool, error) {
	args := m.Called(key)
	return args.Bool(0), args.Error(1)
}

func (m *MockCacheRepoForRegistry) SetJSON(key string, value interface{}, expiration time.Duration) error {
	args := m.Called(key, value, expiration)
	return args.Error(0)
}

func (m *MockCacheRepoForRegistry) GetJSON(key string, dest interface{}) error {
	args := m.Called(key, dest)
	return args.Error(0)
}

func (m *MockCacheRepoForRegistry) SetNX(key string, value interface{}, expiration time.Duration) (bool, error) {
	args := m.Called(key, value, expiration)
	return args.Bool(0), args.Error(1)
}

// ============================================================================
// Тесты
// ============================================================================

func TestRegistry_CreateRoom_ReservesCode(t *testing.T) {
	// Arrange
	cfg := DefaultConfig()
	mockCache := new(MockCacheRepoForRegistry)
	mockCache.On("SetNX", mock.AnythingOfType("string"), "sess-1", cfg.CodeTTL).Return(true, nil).Once()
	registry := NewRegistry(cfg, mockCache)

	// Act
	code, err := registry.CreateRoom("sess-1")

	// Assert
	require.NoError(t, err)
	assert.Len(t, code, cfg.CodeLength)
	for _, ch := range code {
		assert.Contains(t, cfg.CodeAlphabet, string(ch), "Код должен состоять только из символов алфавита")
	}
	mockCache.AssertExpectations(t)
}

func TestRegistry_CreateRoom_RetriesOnCollision(t *testing.T) {
	// Arrange: первые два кода заняты, третий свободен
	cfg := DefaultConfig()
	mockCache := new(MockCacheRepoForRegistry)
	mockCache.On("SetNX", mock.AnythingOfType("string"), "sess-1", cfg.CodeTTL).Return(false, nil).Twice()
	mockCache.On("SetNX", mock.AnythingOfType("string"), "sess-1", cfg.CodeTTL).Return(true, nil).Once()
	registry := NewRegistry(cfg, mockCache)

	// Act
	code, err := registry.CreateRoom("sess-1")

	// Assert
	require.NoError(t, err)
	assert.Len(t, code, cfg.CodeLength)
	mockCache.AssertNumberOfCalls(t, "SetNX", 3)
}

func TestRegistry_CreateRoom_ExhaustedCodeSpace(t *testing.T) {
	// Arrange: все попытки упираются в занятый код
	cfg := DefaultConfig()
	cfg.CodeRetries = 5
	mockCache := new(MockCacheRepoForRegistry)
	mockCache.On("SetNX", mock.AnythingOfType("string"), "sess-1", cfg.CodeTTL).Return(false, nil)
	registry := NewRegistry(cfg, mockCache)

	// Act
	code, err := registry.CreateRoom("sess-1")

	// Assert
	assert.ErrorIs(t, err, ErrExhaustedCodeSpace)
	assert.Empty(t, code)
	// Число попыток должно равняться бюджету
	mockCache.AssertNumberOfCalls(t, "SetNX", 5)
}

func TestRegistry_CreateRoom_CacheError(t *testing.T) {
	// Arrange: Redis недоступен - ошибка сразу, без дожигания бюджета
	cfg := DefaultConfig()
	mockCache := new(MockCacheRepoForRegistry)
	mockCache.On("SetNX", mock.AnythingOfType("string"), "sess-1", cfg.CodeTTL).
		Return(false, errors.New("connection refused")).Once()
	registry := NewRegistry(cfg, mockCache)

	// Act
	_, err := registry.CreateRoom("sess-1")

	// Assert
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrExhaustedCodeSpace)
	mockCache.AssertNumberOfCalls(t, "SetNX", 1)
}

func TestRegistry_Resolve_ReturnsSessionID(t *testing.T) {
	// Arrange
	cfg := DefaultConfig()
	mockCache := new(MockCacheRepoForRegistry)
	mockCache.On("Get", codeKeyPrefix+"KQWZ34").Return("sess-1", nil)
	registry := NewRegistry(cfg, mockCache)

	// Act: код набран учеником в нижнем регистре с пробелом
	sessionID, err := registry.Resolve(" kqwz34")

	// Assert: нормализация происходит до похода в кеш
	require.NoError(t, err)
	assert.Equal(t, "sess-1", sessionID)
	mockCache.AssertExpectations(t)
}

func TestRegistry_Resolve_NotFound(t *testing.T) {
	// Arrange
	cfg := DefaultConfig()
	mockCache := new(MockCacheRepoForRegistry)
	mockCache.On("Get", codeKeyPrefix+"NOSUCH").Return("", apperrors.ErrNotFound)
	registry := NewRegistry(cfg, mockCache)

	// Act
	_, err := registry.Resolve("NOSUCH")

	// Assert
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestRegistry_Release_DeletesKey(t *testing.T) {
	// Arrange
	cfg := DefaultConfig()
	mockCache := new(MockCacheRepoForRegistry)
	mockCache.On("Delete", codeKeyPrefix+"KQWZ34").Return(nil)
	registry := NewRegistry(cfg, mockCache)

	// Act
	err := registry.Release("kqwz34")

	// Assert
	require.NoError(t, err)
	mockCache.AssertExpectations(t)
}

func TestNormalizeCode(t *testing.T) {
	assert.Equal(t, "KQWZ34", NormalizeCode("kqwz34"))
	assert.Equal(t, "KQWZ34", NormalizeCode("  KQWZ34  "))
	assert.Equal(t, "KQWZ34", NormalizeCode("KqWz34"))
	assert.Equal(t, "", NormalizeCode("   "))
}
