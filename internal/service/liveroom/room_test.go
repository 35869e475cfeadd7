package liveroom

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/live-api/internal/domain/entity"
)

// ============================================================================
// Моки для Room
// ============================================================================

// MockSessionRepoForRoom реализует repository.SessionRepository
type MockSessionRepoForRoom struct {
	mock.Mock
}

func (m *MockSessionRepoForRoom) SaveSummary(session *entity.LiveSession, standings []entity.Standing) error {
	args := m.Called(session, standings)
	return args.Error(0)
}

func (m *MockSessionRepoForRoom) GetWithStandings(id string) (*entity.LiveSession, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.LiveSession), args.Error(1)
}

func (m *MockSessionRepoForRoom) Delete(id string) error {
	args := m.Called(id)
	return args.Error(0)
}

func (m *MockSessionRepoForRoom) ListByHost(hostID uint, limit, offset int) ([]entity.LiveSession, int64, error) {
	args := m.Called(hostID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]entity.LiveSession), args.Get(1).(int64), args.Error(2)
}

// recordedEvent - одно событие, перехваченное нотификатором
type recordedEvent struct {
	Code string
	Type string
	Data interface{}
}

// RecordingNotifier перехватывает рассылки комнаты для проверок
type RecordingNotifier struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (n *RecordingNotifier) NotifyRoom(code string, eventType string, data interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, recordedEvent{Code: code, Type: eventType, Data: data})
}

// Events возвращает снимок перехваченных событий
func (n *RecordingNotifier) Events() []recordedEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]recordedEvent, len(n.events))
	copy(out, n.events)
	return out
}

// ByType возвращает события заданного типа в порядке рассылки
func (n *RecordingNotifier) ByType(eventType string) []recordedEvent {
	var out []recordedEvent
	for _, e := range n.Events() {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

// MockAlerterForRoom реализует Alerter
type MockAlerterForRoom struct {
	mock.Mock
}

func (m *MockAlerterForRoom) Alert(subject string, message string) {
	m.Called(subject, message)
}

// ============================================================================
// Вспомогательные конструкторы
// ============================================================================

func sessionFixture() *entity.LiveSession {
	return &entity.LiveSession{
		ID:                "sess-1",
		Code:              "KQWZ34",
		GameID:            77,
		HostID:            10,
		Status:            entity.SessionStatusLobby,
		PenaltyPerWrongMs: 5000,
		ScorePerCorrect:   1,
		CreatedAt:         time.Now(),
	}
}

func testRoom(t *testing.T, session *entity.LiveSession, repo *MockSessionRepoForRoom, notifier *RecordingNotifier) *Room {
	t.Helper()
	cfg := DefaultConfig()
	cfg.PersistBackoff = time.Millisecond
	room := NewRoom(session, session.Code, cfg, &Dependencies{
		SessionRepo: repo,
		Notifier:    notifier,
	})
	t.Cleanup(room.Close)
	return room
}

func intPtr(v int) *int       { return &v }
func int64Ptr(v int64) *int64 { return &v }

// ============================================================================
// Вход в комнату
// ============================================================================

func TestRoom_Join_AddsParticipantAndBroadcasts(t *testing.T) {
	// Arrange
	notifier := &RecordingNotifier{}
	room := testRoom(t, sessionFixture(), new(MockSessionRepoForRoom), notifier)
	ctx := context.Background()

	// Act
	roster, err := room.Join(ctx, 42, 5, "Аня")

	// Assert
	require.NoError(t, err)
	require.Len(t, roster, 1)
	assert.Equal(t, uint(42), roster[0].UserID)
	assert.Equal(t, "Аня", roster[0].DisplayName)

	rosterEvents := notifier.ByType(EventRosterUpdated)
	require.Len(t, rosterEvents, 1, "Вход должен разослать обновление ростера")
	assert.Len(t, notifier.ByType(EventStandingsUpdate), 1, "Вход должен разослать свежий рейтинг")
}

func TestRoom_Join_SameUserIsIdempotentUpsert(t *testing.T) {
	// Arrange
	notifier := &RecordingNotifier{}
	room := testRoom(t, sessionFixture(), new(MockSessionRepoForRoom), notifier)
	ctx := context.Background()

	_, err := room.Join(ctx, 42, 5, "Аня")
	require.NoError(t, err)

	// Act: повторный вход того же пользователя с новым именем
	roster, err := room.Join(ctx, 42, 5, "Анна")

	// Assert: одна строка ростера, имя обновлено
	require.NoError(t, err)
	require.Len(t, roster, 1, "Повторный вход не должен дублировать участника")
	assert.Equal(t, "Анна", roster[0].DisplayName)
}

func TestRoom_Join_ClassNotEligible(t *testing.T) {
	// Arrange: сессия ограничена классами 5 и 6
	session := sessionFixture()
	session.AllowedClassIDs = pq.Int64Array{5, 6}
	notifier := &RecordingNotifier{}
	room := testRoom(t, session, new(MockSessionRepoForRoom), notifier)

	// Act
	_, err := room.Join(context.Background(), 42, 9, "Аня")

	// Assert
	assert.ErrorIs(t, err, ErrClassNotEligible)
	assert.Empty(t, notifier.Events(), "Отклоненный вход не должен ничего рассылать")
}

func TestRoom_Join_RejectedAfterStart(t *testing.T) {
	// Arrange
	session := sessionFixture()
	room := testRoom(t, session, new(MockSessionRepoForRoom), &RecordingNotifier{})
	ctx := context.Background()

	_, err := room.Join(ctx, 42, 5, "Аня")
	require.NoError(t, err)
	require.NoError(t, room.Start(ctx, session.HostID))

	// Act: опоздавший
	_, err = room.Join(ctx, 43, 5, "Борис")

	// Assert: ростер заморожен с момента старта
	assert.ErrorIs(t, err, ErrRoomNotJoinable)
}

// ============================================================================
// Старт
// ============================================================================

func TestRoom_Start_OnlyHost(t *testing.T) {
	// Arrange
	room := testRoom(t, sessionFixture(), new(MockSessionRepoForRoom), &RecordingNotifier{})
	ctx := context.Background()
	_, err := room.Join(ctx, 42, 5, "Аня")
	require.NoError(t, err)

	// Act
	err = room.Start(ctx, 99)

	// Assert
	assert.ErrorIs(t, err, ErrNotHost)
}

func TestRoom_Start_EmptyRoomRejected(t *testing.T) {
	// Arrange
	session := sessionFixture()
	room := testRoom(t, session, new(MockSessionRepoForRoom), &RecordingNotifier{})

	// Act
	err := room.Start(context.Background(), session.HostID)

	// Assert
	assert.ErrorIs(t, err, ErrEmptyRoom)
}

func TestRoom_Start_TwiceIsInvalidTransition(t *testing.T) {
	// Arrange
	session := sessionFixture()
	notifier := &RecordingNotifier{}
	room := testRoom(t, session, new(MockSessionRepoForRoom), notifier)
	ctx := context.Background()
	_, err := room.Join(ctx, 42, 5, "Аня")
	require.NoError(t, err)
	require.NoError(t, room.Start(ctx, session.HostID))

	// Act
	err = room.Start(ctx, session.HostID)

	// Assert
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Len(t, notifier.ByType(EventRoomStarted), 1, "room:started должен уйти ровно один раз")
}

// ============================================================================
// Агрегатор прогресса
// ============================================================================

func TestRoom_RecordAnswer_AccumulatesProgress(t *testing.T) {
	// Arrange
	session := sessionFixture()
	room := testRoom(t, session, new(MockSessionRepoForRoom), &RecordingNotifier{})
	ctx := context.Background()
	_, err := room.Join(ctx, 42, 5, "Аня")
	require.NoError(t, err)
	require.NoError(t, room.Start(ctx, session.HostID))

	// Act: верный, неверный, верный с явной дельтой очков
	require.NoError(t, room.RecordAnswer(ctx, AnswerEvent{UserID: 42, Correct: true, DeltaTimeMs: 2000, Seq: 1}))
	require.NoError(t, room.RecordAnswer(ctx, AnswerEvent{UserID: 42, Correct: false, DeltaTimeMs: 3000, Seq: 2}))
	require.NoError(t, room.RecordAnswer(ctx, AnswerEvent{UserID: 42, Correct: true, DeltaTimeMs: 1000, ScoreDelta: intPtr(3), Seq: 3}))

	// Assert
	st, err := room.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, st.Ranking, 1)
	assert.Equal(t, 4, st.Ranking[0].Score, "1 за верный + 3 явной дельты")
	assert.Equal(t, 1, st.Ranking[0].WrongCount)
	assert.Equal(t, int64(6000+5000), st.Ranking[0].EffectiveTimeMs, "Накопленное время плюс штраф за ошибку")
}

func TestRoom_RecordAnswer_NegativeScoreDeltaIgnored(t *testing.T) {
	// Arrange
	session := sessionFixture()
	room := testRoom(t, session, new(MockSessionRepoForRoom), &RecordingNotifier{})
	ctx := context.Background()
	_, err := room.Join(ctx, 42, 5, "Аня")
	require.NoError(t, err)
	require.NoError(t, room.Start(ctx, session.HostID))

	require.NoError(t, room.RecordAnswer(ctx, AnswerEvent{UserID: 42, Correct: true, ScoreDelta: intPtr(5), Seq: 1}))

	// Act: клиент присылает отрицательную дельту очков
	require.NoError(t, room.RecordAnswer(ctx, AnswerEvent{UserID: 42, Correct: false, ScoreDelta: intPtr(-100), Seq: 2}))

	// Assert: счет не уменьшился, остальная часть события применилась
	st, err := room.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, st.Ranking[0].Score, "Отрицательная дельта не должна уменьшать счет")
	assert.Equal(t, 1, st.Ranking[0].WrongCount)
}

func TestRoom_RecordAnswer_DuplicateSeqIsNoOp(t *testing.T) {
	// Arrange
	session := sessionFixture()
	room := testRoom(t, session, new(MockSessionRepoForRoom), &RecordingNotifier{})
	ctx := context.Background()
	_, err := room.Join(ctx, 42, 5, "Аня")
	require.NoError(t, err)
	require.NoError(t, room.Start(ctx, session.HostID))

	require.NoError(t, room.RecordAnswer(ctx, AnswerEvent{UserID: 42, Correct: true, DeltaTimeMs: 2000, Seq: 7}))

	// Act: повторная доставка того же seq и запоздавший меньший seq
	require.NoError(t, room.RecordAnswer(ctx, AnswerEvent{UserID: 42, Correct: true, DeltaTimeMs: 2000, Seq: 7}))
	require.NoError(t, room.RecordAnswer(ctx, AnswerEvent{UserID: 42, Correct: true, DeltaTimeMs: 2000, Seq: 3}))

	// Assert: применился ровно один раз
	st, err := room.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, st.Ranking[0].Score, "Дубликаты seq не должны накручивать счет")
	assert.Equal(t, int64(2000), st.Ranking[0].EffectiveTimeMs)
}

func TestRoom_RecordAnswer_UnknownParticipant(t *testing.T) {
	// Arrange
	session := sessionFixture()
	room := testRoom(t, session, new(MockSessionRepoForRoom), &RecordingNotifier{})
	ctx := context.Background()
	_, err := room.Join(ctx, 42, 5, "Аня")
	require.NoError(t, err)
	require.NoError(t, room.Start(ctx, session.HostID))

	// Act: событие от пользователя, который никогда не входил
	err = room.RecordAnswer(ctx, AnswerEvent{UserID: 99, Correct: true, Seq: 1})

	// Assert
	assert.ErrorIs(t, err, ErrUnknownParticipant)
}

func TestRoom_RecordAnswer_BeforeStartIsNoOp(t *testing.T) {
	// Arrange
	room := testRoom(t, sessionFixture(), new(MockSessionRepoForRoom), &RecordingNotifier{})
	ctx := context.Background()
	_, err := room.Join(ctx, 42, 5, "Аня")
	require.NoError(t, err)

	// Act: сессия еще в lobby
	err = room.RecordAnswer(ctx, AnswerEvent{UserID: 42, Correct: true, Seq: 1})

	// Assert: no-op без ошибки
	require.NoError(t, err)
	st, err := room.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, st.Ranking[0].Score)
}

func TestRoom_RecordFinish_ClampsImplausibleTotal(t *testing.T) {
	// Arrange
	session := sessionFixture()
	repo := new(MockSessionRepoForRoom)
	room := testRoom(t, session, repo, &RecordingNotifier{})
	ctx := context.Background()
	_, err := room.Join(ctx, 42, 5, "Аня")
	require.NoError(t, err)
	require.NoError(t, room.Start(ctx, session.HostID))
	require.NoError(t, room.RecordAnswer(ctx, AnswerEvent{UserID: 42, Correct: true, DeltaTimeMs: 4000, Seq: 1}))

	// Act: отрицательный итог отбрасывается в пользу накопленного
	require.NoError(t, room.RecordFinish(ctx, FinishEvent{UserID: 42, TotalTimeMs: int64Ptr(-100)}))

	// Assert
	st, err := room.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4000), st.Ranking[0].EffectiveTimeMs)
	assert.True(t, st.Ranking[0].Finished)
}

func TestRoom_RecordFinish_ClientTotalOverridesAccumulated(t *testing.T) {
	// Arrange
	session := sessionFixture()
	room := testRoom(t, session, new(MockSessionRepoForRoom), &RecordingNotifier{})
	ctx := context.Background()
	_, err := room.Join(ctx, 42, 5, "Аня")
	require.NoError(t, err)
	require.NoError(t, room.Start(ctx, session.HostID))
	require.NoError(t, room.RecordAnswer(ctx, AnswerEvent{UserID: 42, Correct: true, DeltaTimeMs: 4000, Seq: 1}))

	// Act
	require.NoError(t, room.RecordFinish(ctx, FinishEvent{UserID: 42, TotalTimeMs: int64Ptr(9500)}))

	// Assert: правдоподобный клиентский итог авторитетнее дельт
	st, err := room.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(9500), st.Ranking[0].EffectiveTimeMs)
}

// ============================================================================
// Ревизии рассылок
// ============================================================================

func TestRoom_StandingsRevisionIsMonotonic(t *testing.T) {
	// Arrange
	session := sessionFixture()
	notifier := &RecordingNotifier{}
	room := testRoom(t, session, new(MockSessionRepoForRoom), notifier)
	ctx := context.Background()
	_, err := room.Join(ctx, 42, 5, "Аня")
	require.NoError(t, err)
	require.NoError(t, room.Start(ctx, session.HostID))
	require.NoError(t, room.RecordAnswer(ctx, AnswerEvent{UserID: 42, Correct: true, DeltaTimeMs: 1000, Seq: 1}))
	require.NoError(t, room.RecordAnswer(ctx, AnswerEvent{UserID: 42, Correct: false, DeltaTimeMs: 1000, Seq: 2}))

	// Act
	updates := notifier.ByType(EventStandingsUpdate)

	// Assert: каждая рассылка несет строго возрастающую ревизию
	require.GreaterOrEqual(t, len(updates), 3)
	var prev uint64
	for i, e := range updates {
		payload, ok := e.Data.(map[string]interface{})
		require.True(t, ok)
		rev, ok := payload["revision"].(uint64)
		require.True(t, ok)
		if i > 0 {
			assert.Greater(t, rev, prev, "Ревизия должна строго расти от рассылки к рассылке")
		}
		prev = rev
	}
}

// ============================================================================
// Завершение
// ============================================================================

func TestRoom_End_PersistsSummaryOnce(t *testing.T) {
	// Arrange
	session := sessionFixture()
	repo := new(MockSessionRepoForRoom)
	repo.On("SaveSummary", session, mock.AnythingOfType("[]entity.Standing")).Return(nil).Once()
	notifier := &RecordingNotifier{}
	room := testRoom(t, session, repo, notifier)
	ctx := context.Background()

	_, err := room.Join(ctx, 42, 5, "Аня")
	require.NoError(t, err)
	_, err = room.Join(ctx, 43, 5, "Борис")
	require.NoError(t, err)
	require.NoError(t, room.Start(ctx, session.HostID))
	require.NoError(t, room.RecordAnswer(ctx, AnswerEvent{UserID: 43, Correct: true, DeltaTimeMs: 1500, Seq: 1}))

	// Act
	summary, err := room.End(ctx, session.HostID, false)

	// Assert
	require.NoError(t, err)
	require.NotNil(t, summary)
	assert.Equal(t, entity.SessionStatusEnded, summary.Session.Status)
	require.Len(t, summary.Ranking, 2)
	assert.Equal(t, uint(43), summary.Ranking[0].UserID)
	assert.Len(t, notifier.ByType(EventRoomEnded), 1)
	repo.AssertExpectations(t)
}

func TestRoom_End_IsIdempotent(t *testing.T) {
	// Arrange
	session := sessionFixture()
	repo := new(MockSessionRepoForRoom)
	repo.On("SaveSummary", session, mock.AnythingOfType("[]entity.Standing")).Return(nil).Once()
	notifier := &RecordingNotifier{}
	room := testRoom(t, session, repo, notifier)
	ctx := context.Background()

	_, err := room.Join(ctx, 42, 5, "Аня")
	require.NoError(t, err)
	require.NoError(t, room.Start(ctx, session.HostID))

	first, err := room.End(ctx, session.HostID, false)
	require.NoError(t, err)

	// Act: гонка клика ведущего со сторожевым таймером
	second, err := room.End(ctx, 0, true)

	// Assert: тот же итог, без второй записи и второй рассылки
	require.NoError(t, err)
	assert.Same(t, first, second, "Повторный end должен вернуть уже построенный итог")
	assert.Len(t, notifier.ByType(EventRoomEnded), 1)
	repo.AssertNumberOfCalls(t, "SaveSummary", 1)
}

func TestRoom_End_NotHost(t *testing.T) {
	// Arrange
	session := sessionFixture()
	room := testRoom(t, session, new(MockSessionRepoForRoom), &RecordingNotifier{})
	ctx := context.Background()
	_, err := room.Join(ctx, 42, 5, "Аня")
	require.NoError(t, err)
	require.NoError(t, room.Start(ctx, session.HostID))

	// Act
	_, err = room.End(ctx, 42, false)

	// Assert
	assert.ErrorIs(t, err, ErrNotHost)
}

func TestRoom_End_FromLobbyIsInvalidTransition(t *testing.T) {
	// Arrange
	session := sessionFixture()
	room := testRoom(t, session, new(MockSessionRepoForRoom), &RecordingNotifier{})

	// Act
	_, err := room.End(context.Background(), session.HostID, false)

	// Assert
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestRoom_End_PersistFailureRetriesAndAlerts(t *testing.T) {
	// Arrange: хранилище падает на всех попытках
	session := sessionFixture()
	repo := new(MockSessionRepoForRoom)
	storageErr := errors.New("connection refused")
	repo.On("SaveSummary", session, mock.AnythingOfType("[]entity.Standing")).Return(storageErr)
	alerter := new(MockAlerterForRoom)
	alerter.On("Alert", mock.AnythingOfType("string"), mock.AnythingOfType("string")).Once()

	cfg := DefaultConfig()
	cfg.PersistRetries = 2
	cfg.PersistBackoff = time.Millisecond
	room := NewRoom(session, session.Code, cfg, &Dependencies{
		SessionRepo: repo,
		Notifier:    &RecordingNotifier{},
		Alerter:     alerter,
	})
	t.Cleanup(room.Close)
	ctx := context.Background()

	_, err := room.Join(ctx, 42, 5, "Аня")
	require.NoError(t, err)
	require.NoError(t, room.Start(ctx, session.HostID))

	// Act
	summary, err := room.End(ctx, session.HostID, false)

	// Assert: итог построен и разослан, но ошибка записи всплывает
	require.Error(t, err)
	assert.ErrorIs(t, err, storageErr)
	require.NotNil(t, summary, "Итог должен вернуться даже при ошибке записи")
	// Исходная попытка плюс два повтора
	repo.AssertNumberOfCalls(t, "SaveSummary", 3)
	alerter.AssertExpectations(t)
}

func TestRoom_AnswerAfterEndIsNoOp(t *testing.T) {
	// Arrange
	session := sessionFixture()
	repo := new(MockSessionRepoForRoom)
	repo.On("SaveSummary", session, mock.AnythingOfType("[]entity.Standing")).Return(nil)
	notifier := &RecordingNotifier{}
	room := testRoom(t, session, repo, notifier)
	ctx := context.Background()

	_, err := room.Join(ctx, 42, 5, "Аня")
	require.NoError(t, err)
	require.NoError(t, room.Start(ctx, session.HostID))
	_, err = room.End(ctx, session.HostID, false)
	require.NoError(t, err)
	broadcastsAtEnd := len(notifier.ByType(EventStandingsUpdate))

	// Act: запоздавшее событие после end
	err = room.RecordAnswer(ctx, AnswerEvent{UserID: 42, Correct: true, DeltaTimeMs: 1000, Seq: 5})

	// Assert: молча проглочено, рейтинг не воскрес
	require.NoError(t, err)
	assert.Len(t, notifier.ByType(EventStandingsUpdate), broadcastsAtEnd,
		"Событие после завершения не должно порождать рассылок")
}

// ============================================================================
// Брошенные lobby
// ============================================================================

func TestRoom_Abandon_LobbyOnly(t *testing.T) {
	// Arrange
	session := sessionFixture()
	notifier := &RecordingNotifier{}
	room := testRoom(t, session, new(MockSessionRepoForRoom), notifier)
	ctx := context.Background()

	// Act
	err := room.Abandon(ctx)

	// Assert: терминальное состояние без снимка итогов
	require.NoError(t, err)
	st, err := room.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, entity.SessionStatusAbandoned, st.Status)
	assert.Nil(t, st.Summary)
	assert.Len(t, notifier.ByType(EventRoomAbandoned), 1)
}

func TestRoom_Abandon_ActiveRejected(t *testing.T) {
	// Arrange
	session := sessionFixture()
	room := testRoom(t, session, new(MockSessionRepoForRoom), &RecordingNotifier{})
	ctx := context.Background()
	_, err := room.Join(ctx, 42, 5, "Аня")
	require.NoError(t, err)
	require.NoError(t, room.Start(ctx, session.HostID))

	// Act
	err = room.Abandon(ctx)

	// Assert
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

// ============================================================================
// Жизненный цикл актора
// ============================================================================

func TestRoom_ClosedRoomRejectsCommands(t *testing.T) {
	// Arrange
	room := testRoom(t, sessionFixture(), new(MockSessionRepoForRoom), &RecordingNotifier{})
	room.Close()

	// Буфер команд может принять команду наперегонки с done,
	// поэтому ограничиваем ожидание ответа контекстом
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	// Act
	_, err := room.Join(ctx, 42, 5, "Аня")

	// Assert: либо отказ сразу, либо ответ так и не пришел
	require.Error(t, err)
	if !errors.Is(err, ErrRoomClosed) {
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	}
}

func TestRoom_HostPresenceVisibleInSnapshot(t *testing.T) {
	// Arrange
	room := testRoom(t, sessionFixture(), new(MockSessionRepoForRoom), &RecordingNotifier{})
	ctx := context.Background()

	// Act
	room.SetHostPresence(true)
	st, err := room.Snapshot(ctx)
	require.NoError(t, err)
	assert.True(t, st.HostOnline)

	room.SetHostPresence(false)
	st, err = room.Snapshot(ctx)

	// Assert
	require.NoError(t, err)
	assert.False(t, st.HostOnline)
}
