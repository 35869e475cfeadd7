package liveroom

import "errors"

// Закрытая таксономия ошибок движка. Обработчики матчат их через
// errors.Is и отдают клиенту различимые коды, а не общий "что-то пошло не так".
var (
	// ErrInvalidTransition - попытка перехода состояния вне lobby→active→ended
	ErrInvalidTransition = errors.New("invalid session state transition")

	// ErrRoomNotJoinable - попытка входа в комнату не в состоянии lobby
	ErrRoomNotJoinable = errors.New("room is not joinable")

	// ErrNotHost - операция, доступная только ведущему
	ErrNotHost = errors.New("caller is not the session host")

	// ErrEmptyRoom - старт комнаты без единого участника
	ErrEmptyRoom = errors.New("cannot start an empty room")

	// ErrUnknownParticipant - событие прогресса от пользователя, который не входил
	ErrUnknownParticipant = errors.New("participant never joined this session")

	// ErrClassNotEligible - класс ученика не входит в allowed_class_ids сессии
	ErrClassNotEligible = errors.New("student class is not allowed in this session")

	// ErrExhaustedCodeSpace - исчерпан бюджет генерации кода.
	// Системная проблема (алерт), а не пользовательская ошибка.
	ErrExhaustedCodeSpace = errors.New("room code space exhausted")

	// ErrRoomNotFound - код не числится ни за одной незавершенной сессией
	ErrRoomNotFound = errors.New("room code not found")

	// ErrRoomClosed - актор комнаты уже остановлен
	ErrRoomClosed = errors.New("room is shut down")
)
