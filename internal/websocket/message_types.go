package websocket

// Типы входящих сообщений живой сессии (клиент → сервер)
const (
	// ROOM_HOST - ведущий привязывается к своей комнате
	ROOM_HOST = "room:host"

	// ROOM_JOIN - ученик входит в комнату по коду
	ROOM_JOIN = "room:join"

	// ROOM_START - ведущий стартует игру (lobby → active)
	ROOM_START = "room:start"

	// ROOM_ANSWER - событие ответа участника (с номером seq для дедупа)
	ROOM_ANSWER = "room:answer"

	// ROOM_FINISH - участник доиграл, опционально с клиентским итогом времени
	ROOM_FINISH = "room:finish"

	// ROOM_END - ведущий завершает сессию
	ROOM_END = "room:end"

	// ROOM_STATE - запрос снимка состояния (resync после reconnect)
	ROOM_STATE = "room:state"

	// USER_HEARTBEAT - проверка соединения
	USER_HEARTBEAT = "user:heartbeat"
)

// Типы исходящих сообщений (сервер → клиент), не привязанные к комнате.
// События комнаты (roster:updated, standings:updated и т.д.) определены
// рядом с актором в пакете liveroom.
const (
	// ROOM_JOINED - подтверждение входа с текущим ростером
	ROOM_JOINED = "room:joined"

	// ROOM_STATE_SNAPSHOT - ответ на ROOM_STATE
	ROOM_STATE_SNAPSHOT = "room:state_snapshot"

	// SERVER_ERROR - стандартизированная ошибка с машинным кодом
	SERVER_ERROR = "server:error"

	// SERVER_HEARTBEAT - ответ на USER_HEARTBEAT
	SERVER_HEARTBEAT = "server:heartbeat"
)
