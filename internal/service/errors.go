package service

import "errors"

// Определяем кастомные ошибки для сервисов
var (
	// ErrSessionNotEnded - итог запрошен до завершения сессии
	ErrSessionNotEnded = errors.New("session summary is available only once the session has ended")

	// ErrSessionStillLive - административное удаление незавершенной сессии
	ErrSessionStillLive = errors.New("session cannot be deleted before it has ended")

	// ErrNoStandingForStudent - в итоговой таблице сессии нет строки ученика
	ErrNoStandingForStudent = errors.New("student has no standing in this session")

	// ErrAttemptBlocked - попытка отклонена Assignment Gate; детали в решении
	ErrAttemptBlocked = errors.New("attempt blocked by assignment gate")
)
