package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestJWTService(t *testing.T) *JWTService {
	t.Helper()
	s, err := NewJWTService("test-secret-key", 1, 60)
	require.NoError(t, err)
	return s
}

func TestNewJWTService_RequiresSecret(t *testing.T) {
	// Act
	_, err := NewJWTService("", 24, 60)

	// Assert
	assert.Error(t, err, "Пустой секрет должен быть отклонен")
}

func TestJWTService_TokenRoundTrip(t *testing.T) {
	// Arrange
	s := newTestJWTService(t)

	// Act
	token, err := s.GenerateToken(42, "student", 5)
	require.NoError(t, err)
	claims, err := s.ParseToken(token)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "student", claims.Role)
	assert.Equal(t, int64(5), claims.ClassID)
	assert.Empty(t, claims.Usage)
}

func TestJWTService_WSTicketRoundTrip(t *testing.T) {
	// Arrange
	s := newTestJWTService(t)

	// Act
	ticket, err := s.GenerateWSTicket(42, "teacher", 0)
	require.NoError(t, err)
	claims, err := s.ParseWSTicket(ticket)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "teacher", claims.Role)
	assert.Equal(t, "websocket_auth", claims.Usage)
}

func TestJWTService_WSTicketRejectedAsAccessToken(t *testing.T) {
	// Arrange: короткоживущий тикет не должен открывать REST API
	s := newTestJWTService(t)
	ticket, err := s.GenerateWSTicket(42, "student", 5)
	require.NoError(t, err)

	// Act
	_, err = s.ParseToken(ticket)

	// Assert
	assert.Error(t, err)
}

func TestJWTService_AccessTokenRejectedAsWSTicket(t *testing.T) {
	// Arrange: и наоборот - долгоживущий токен не принимается в /ws
	s := newTestJWTService(t)
	token, err := s.GenerateToken(42, "student", 5)
	require.NoError(t, err)

	// Act
	_, err = s.ParseWSTicket(token)

	// Assert
	assert.Error(t, err)
}

func TestJWTService_WrongSignature(t *testing.T) {
	// Arrange: токен подписан другим секретом
	issuer, err := NewJWTService("other-secret", 1, 60)
	require.NoError(t, err)
	token, err := issuer.GenerateToken(42, "student", 5)
	require.NoError(t, err)

	s := newTestJWTService(t)

	// Act
	_, err = s.ParseToken(token)

	// Assert
	require.Error(t, err)
	assert.Contains(t, err.Error(), "signature")
}

func TestJWTService_MalformedToken(t *testing.T) {
	// Arrange
	s := newTestJWTService(t)

	// Act
	_, err := s.ParseToken("not-a-jwt")

	// Assert
	require.Error(t, err)
	assert.Contains(t, err.Error(), "malformed")
}
