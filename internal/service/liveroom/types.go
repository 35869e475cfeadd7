package liveroom

import (
	"time"

	"github.com/yourusername/live-api/internal/domain/entity"
	"github.com/yourusername/live-api/internal/domain/repository"
)

// Constants for default values
const (
	// DefaultCodeAlphabet не содержит 0/O/1/I, чтобы код можно было
	// диктовать вслух и набирать с доски без ошибок
	DefaultCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

	DefaultCodeLength        = 6
	DefaultCodeRetries       = 25
	DefaultPenaltyPerWrongMs = 5000
	DefaultScorePerCorrect   = 1
)

// Config содержит настройки для всех компонентов живой сессии
type Config struct {
	// Настройки кодов комнат
	CodeAlphabet string        // Алфавит генерации кодов
	CodeLength   int           // Длина кода комнаты
	CodeRetries  int           // Бюджет повторов при коллизии кода
	CodeTTL      time.Duration // Страховочный TTL резервации кода в Redis

	// Политики подсчета
	PenaltyPerWrongMs int64 // Штраф ко времени за каждый неверный ответ (мс)
	ScorePerCorrect   int   // Очки за верный ответ, если событие не несет дельту
	MaxTotalTimeMs    int64 // Потолок клиентского итогового времени (защита от мусора)

	// Политики состояния
	AllowEmptyStart bool // Разрешить старт комнаты без участников

	// Настройки персистентности итогов
	PersistRetries int           // Повторы записи итогов при ошибке хранилища
	PersistBackoff time.Duration // Базовый интервал между повторами

	// Буфер канала команд актора комнаты
	CommandBuffer int

	// Сторожевые таймауты
	HostGracePeriod  time.Duration // Сколько active-комната живет без сокета ведущего
	LobbyTTL         time.Duration // Сколько lobby-комната живет без активности
	WatchdogInterval time.Duration // Период обхода комнат сторожем
	EndLinger        time.Duration // Сколько завершенная комната остается в памяти
}

// DefaultConfig возвращает конфигурацию по умолчанию
func DefaultConfig() *Config {
	return &Config{
		CodeAlphabet:      DefaultCodeAlphabet,
		CodeLength:        DefaultCodeLength,
		CodeRetries:       DefaultCodeRetries,
		CodeTTL:           24 * time.Hour,
		PenaltyPerWrongMs: DefaultPenaltyPerWrongMs,
		ScorePerCorrect:   DefaultScorePerCorrect,
		MaxTotalTimeMs:    6 * time.Hour.Milliseconds(),
		AllowEmptyStart:   false,
		PersistRetries:    3,
		PersistBackoff:    500 * time.Millisecond,
		CommandBuffer:     64,
		HostGracePeriod:   90 * time.Second,
		LobbyTTL:          30 * time.Minute,
		WatchdogInterval:  15 * time.Second,
		EndLinger:         1 * time.Minute,
	}
}

// Notifier рассылает событие всем подключенным к комнате клиентам.
// Доставка best-effort: медленный подписчик не должен тормозить актора.
type Notifier interface {
	NotifyRoom(code string, eventType string, data interface{})
}

// Alerter поднимает операционный алерт (не пользовательскую ошибку)
type Alerter interface {
	Alert(subject string, message string)
}

// Dependencies содержит зависимости компонентов живой сессии
type Dependencies struct {
	SessionRepo repository.SessionRepository
	CacheRepo   repository.CacheRepository
	Notifier    Notifier
	Alerter     Alerter
}

// Participant представляет участника комнаты.
// Ключ членства - (sessionID, userID); порядок входа сохраняется
// и служит последним ключом тай-брейка в рейтинге.
type Participant struct {
	UserID      uint      `json:"user_id"`
	DisplayName string    `json:"display_name"`
	ClassID     int64     `json:"class_id"`
	JoinedAt    time.Time `json:"joined_at"`
	JoinOrder   int       `json:"-"`
}

// ProgressRecord хранит накопленный прогресс одного участника.
// Score и WrongCount монотонно неубывающие; EffectiveTimeMs всегда
// производная величина и отдельно не хранится.
type ProgressRecord struct {
	Score         int
	ElapsedTimeMs int64
	WrongCount    int
	Finished      bool
	LastSeq       uint64
}

// AnswerEvent представляет одно событие ответа участника.
// Seq - монотонный номер события в рамках участника; по нему
// аггрегатор обеспечивает apply-once при повторной доставке.
type AnswerEvent struct {
	UserID      uint
	Correct     bool
	DeltaTimeMs int64
	ScoreDelta  *int
	Seq         uint64
}

// FinishEvent представляет событие завершения игры участником.
// Клиентское итоговое время (если есть) авторитетнее накопленных дельт.
type FinishEvent struct {
	UserID      uint
	TotalTimeMs *int64
}

// RankedEntry представляет строку рейтинга. Пересчитывается заново
// на каждую рассылку и никогда не мутируется на месте.
type RankedEntry struct {
	UserID          uint   `json:"user_id"`
	DisplayName     string `json:"display_name"`
	Score           int    `json:"score"`
	EffectiveTimeMs int64  `json:"effective_time_ms"`
	WrongCount      int    `json:"wrong_count"`
	Finished        bool   `json:"finished"`
	Rank            int    `json:"rank"`
}

// Summary представляет неизменяемый итог завершенной сессии
type Summary struct {
	Session  *entity.LiveSession `json:"session"`
	Ranking  []RankedEntry       `json:"ranking"`
	Revision uint64              `json:"revision"`
}
