package liveroom

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/yourusername/live-api/internal/domain/entity"
)

// Типы исходящих событий комнаты
const (
	EventRoomCreated     = "room:created"
	EventRosterUpdated   = "roster:updated"
	EventRoomStarted     = "room:started"
	EventStandingsUpdate = "standings:updated"
	EventRoomEnded       = "room:ended"
	EventRoomAbandoned   = "room:abandoned"
)

// Room - актор одной живой сессии. Все мутации состояния сессии
// (переходы, входы, события прогресса) сериализуются через канал команд
// и выполняются единственной горутиной run. Благодаря этому гонка
// "end против record" разрешается детерминированно порядком очереди,
// а агрегат не требует ни одного мьютекса.
type Room struct {
	cfg  *Config
	deps *Dependencies

	commands  chan roomCmd
	done      chan struct{}
	closeOnce sync.Once

	// --- Состояние ниже принадлежит исключительно горутине run ---

	session *entity.LiveSession
	code    string

	roster   []*Participant
	byUser   map[uint]*Participant
	progress map[uint]*ProgressRecord

	revision   uint64
	summary    *Summary
	persistErr error

	lastActivity time.Time
	hostOnline   bool
	hostSeen     time.Time
}

// roomCmd - типизированная команда актору комнаты
type roomCmd interface{ isRoomCmd() }

type joinCmd struct {
	userID      uint
	classID     int64
	displayName string
	reply       chan joinResult
}

type joinResult struct {
	roster []Participant
	err    error
}

type startCmd struct {
	byHostID uint
	reply    chan error
}

type answerCmd struct {
	ev    AnswerEvent
	reply chan error
}

type finishCmd struct {
	ev    FinishEvent
	reply chan error
}

type endCmd struct {
	byHostID uint
	bySystem bool
	reply    chan endResult
}

type endResult struct {
	summary *Summary
	err     error
}

type abandonCmd struct {
	reply chan error
}

type snapshotCmd struct {
	reply chan State
}

type hostPresenceCmd struct {
	online bool
}

func (joinCmd) isRoomCmd()         {}
func (startCmd) isRoomCmd()        {}
func (answerCmd) isRoomCmd()       {}
func (finishCmd) isRoomCmd()       {}
func (endCmd) isRoomCmd()          {}
func (abandonCmd) isRoomCmd()      {}
func (snapshotCmd) isRoomCmd()     {}
func (hostPresenceCmd) isRoomCmd() {}

// State - снимок состояния комнаты для resync и сторожевых таймеров
type State struct {
	SessionID    string
	Code         string
	Status       string
	HostID       uint
	Roster       []Participant
	Ranking      []RankedEntry
	Revision     uint64
	HostOnline   bool
	HostSeen     time.Time
	LastActivity time.Time
	Summary      *Summary
}

// NewRoom создает комнату в состоянии lobby и запускает ее актора
func NewRoom(session *entity.LiveSession, code string, cfg *Config, deps *Dependencies) *Room {
	now := time.Now()
	r := &Room{
		cfg:          cfg,
		deps:         deps,
		commands:     make(chan roomCmd, cfg.CommandBuffer),
		done:         make(chan struct{}),
		session:      session,
		code:         code,
		byUser:       make(map[uint]*Participant),
		progress:     make(map[uint]*ProgressRecord),
		lastActivity: now,
		hostSeen:     now,
	}
	go r.run()
	log.Printf("[Room %s] Комната создана для сессии %s (игра #%d, ведущий #%d)",
		code, session.ID, session.GameID, session.HostID)
	return r
}

// run - единственная горутина, мутирующая состояние комнаты
func (r *Room) run() {
	for {
		select {
		case cmd := <-r.commands:
			r.dispatch(cmd)
		case <-r.done:
			return
		}
	}
}

func (r *Room) dispatch(cmd roomCmd) {
	switch c := cmd.(type) {
	case joinCmd:
		roster, err := r.handleJoin(c.userID, c.classID, c.displayName)
		c.reply <- joinResult{roster: roster, err: err}
	case startCmd:
		c.reply <- r.handleStart(c.byHostID)
	case answerCmd:
		c.reply <- r.handleAnswer(c.ev)
	case finishCmd:
		c.reply <- r.handleFinish(c.ev)
	case endCmd:
		summary, err := r.handleEnd(c.byHostID, c.bySystem)
		c.reply <- endResult{summary: summary, err: err}
	case abandonCmd:
		c.reply <- r.handleAbandon()
	case snapshotCmd:
		c.reply <- r.buildState()
	case hostPresenceCmd:
		r.hostOnline = c.online
		r.hostSeen = time.Now()
	}
}

// send ставит команду в очередь актора с учетом контекста вызывающего
func (r *Room) send(ctx context.Context, cmd roomCmd) error {
	select {
	case r.commands <- cmd:
		return nil
	case <-r.done:
		return ErrRoomClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Join добавляет участника в комнату. Повторный вход той же пары
// (sessionID, userID) в lobby идемпотентен: обновляется только имя.
func (r *Room) Join(ctx context.Context, userID uint, classID int64, displayName string) ([]Participant, error) {
	reply := make(chan joinResult, 1)
	if err := r.send(ctx, joinCmd{userID: userID, classID: classID, displayName: displayName, reply: reply}); err != nil {
		return nil, err
	}
	select {
	case res := <-reply:
		return res.roster, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Start переводит комнату lobby → active. С этого мгновения ростер
// заморожен и все дальнейшие входы отклоняются.
func (r *Room) Start(ctx context.Context, byHostID uint) error {
	reply := make(chan error, 1)
	if err := r.send(ctx, startCmd{byHostID: byHostID, reply: reply}); err != nil {
		return err
	}
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RecordAnswer передает событие ответа агрегатору комнаты
func (r *Room) RecordAnswer(ctx context.Context, ev AnswerEvent) error {
	reply := make(chan error, 1)
	if err := r.send(ctx, answerCmd{ev: ev, reply: reply}); err != nil {
		return err
	}
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RecordFinish передает событие завершения игры агрегатору комнаты
func (r *Room) RecordFinish(ctx context.Context, ev FinishEvent) error {
	reply := make(chan error, 1)
	if err := r.send(ctx, finishCmd{ev: ev, reply: reply}); err != nil {
		return err
	}
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// End завершает сессию. Идемпотентен: повторный вызов (гонка клика
// ведущего с таймаут-сторожем) возвращает уже построенный итог.
func (r *Room) End(ctx context.Context, byHostID uint, bySystem bool) (*Summary, error) {
	reply := make(chan endResult, 1)
	if err := r.send(ctx, endCmd{byHostID: byHostID, bySystem: bySystem, reply: reply}); err != nil {
		return nil, err
	}
	select {
	case res := <-reply:
		return res.summary, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Abandon переводит брошенную lobby-комнату в терминальное состояние
// без снимка итогов (ее некому было играть)
func (r *Room) Abandon(ctx context.Context) error {
	reply := make(chan error, 1)
	if err := r.send(ctx, abandonCmd{reply: reply}); err != nil {
		return err
	}
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Snapshot возвращает консистентный снимок состояния комнаты
func (r *Room) Snapshot(ctx context.Context) (State, error) {
	reply := make(chan State, 1)
	if err := r.send(ctx, snapshotCmd{reply: reply}); err != nil {
		return State{}, err
	}
	select {
	case st := <-reply:
		return st, nil
	case <-ctx.Done():
		return State{}, ctx.Err()
	}
}

// SetHostPresence отмечает подключение/отключение сокета ведущего.
// Команда без ответа: сторожу важен только порядок относительно мутаций.
func (r *Room) SetHostPresence(online bool) {
	select {
	case r.commands <- hostPresenceCmd{online: online}:
	case <-r.done:
	}
}

// Close останавливает актора комнаты. Вызывается сервисом после того,
// как комната покинула реестр.
func (r *Room) Close() {
	r.closeOnce.Do(func() {
		close(r.done)
	})
}

// --- Обработчики команд (только из горутины run) ---

func (r *Room) handleJoin(userID uint, classID int64, displayName string) ([]Participant, error) {
	if !r.session.IsLobby() {
		return nil, ErrRoomNotJoinable
	}
	if !r.session.ClassAllowed(classID) {
		return nil, ErrClassNotEligible
	}

	if existing, ok := r.byUser[userID]; ok {
		// Повторный вход (reconnect, двойной эмит) - идемпотентный upsert,
		// а не вторая строка ростера
		existing.DisplayName = displayName
		log.Printf("[Room %s] Повторный вход участника #%d, имя обновлено", r.code, userID)
	} else {
		p := &Participant{
			UserID:      userID,
			DisplayName: displayName,
			ClassID:     classID,
			JoinedAt:    time.Now(),
			JoinOrder:   len(r.roster),
		}
		r.roster = append(r.roster, p)
		r.byUser[userID] = p
		r.progress[userID] = &ProgressRecord{}
		log.Printf("[Room %s] Участник #%d (%s) вошел, всего %d", r.code, userID, displayName, len(r.roster))
	}

	r.lastActivity = time.Now()
	roster := r.rosterSnapshot()
	r.deps.Notifier.NotifyRoom(r.code, EventRosterUpdated, roster)
	r.broadcastStandings()
	return roster, nil
}

func (r *Room) handleStart(byHostID uint) error {
	if !r.session.IsLobby() {
		return ErrInvalidTransition
	}
	if byHostID != r.session.HostID {
		return ErrNotHost
	}
	if len(r.roster) == 0 && !r.cfg.AllowEmptyStart {
		return ErrEmptyRoom
	}

	now := time.Now()
	r.session.Status = entity.SessionStatusActive
	r.session.StartedAt = &now
	r.lastActivity = now

	log.Printf("[Room %s] Сессия %s стартовала с %d участниками", r.code, r.session.ID, len(r.roster))

	r.deps.Notifier.NotifyRoom(r.code, EventRoomStarted, map[string]interface{}{
		"game_id":    r.session.GameID,
		"started_at": now,
	})
	r.broadcastStandings()
	return nil
}

func (r *Room) handleAnswer(ev AnswerEvent) error {
	if !r.session.IsActive() {
		// Событие после end (или до start) не должно воскрешать рейтинг:
		// молча дропаем с логом, это no-op по контракту
		log.Printf("[Room %s] Ответ участника #%d отброшен: сессия в состоянии %s", r.code, ev.UserID, r.session.Status)
		return nil
	}

	rec, ok := r.progress[ev.UserID]
	if !ok {
		return fmt.Errorf("%w: user #%d, session %s", ErrUnknownParticipant, ev.UserID, r.session.ID)
	}

	// Apply-once по номеру последовательности: при повторной доставке
	// того же seq событие применяется ровно один раз
	if ev.Seq <= rec.LastSeq {
		log.Printf("[Room %s] Дубликат события seq=%d от участника #%d (применен seq=%d), пропуск",
			r.code, ev.Seq, ev.UserID, rec.LastSeq)
		return nil
	}
	rec.LastSeq = ev.Seq

	if ev.DeltaTimeMs > 0 {
		rec.ElapsedTimeMs += ev.DeltaTimeMs
	}
	if !ev.Correct {
		rec.WrongCount++
	}

	switch {
	case ev.ScoreDelta != nil:
		// Счет монотонно неубывающий: отрицательную клиентскую дельту
		// отбрасываем так же, как отрицательную дельту времени
		if *ev.ScoreDelta > 0 {
			rec.Score += *ev.ScoreDelta
		}
	case ev.Correct:
		rec.Score += r.cfg.ScorePerCorrect
	}

	r.lastActivity = time.Now()
	r.broadcastStandings()
	return nil
}

func (r *Room) handleFinish(ev FinishEvent) error {
	if !r.session.IsActive() {
		log.Printf("[Room %s] Финиш участника #%d отброшен: сессия в состоянии %s", r.code, ev.UserID, r.session.Status)
		return nil
	}

	rec, ok := r.progress[ev.UserID]
	if !ok {
		return fmt.Errorf("%w: user #%d, session %s", ErrUnknownParticipant, ev.UserID, r.session.ID)
	}

	// Клиентский итог точнее накопленных дельт шумного потока событий,
	// но неправдоподобные значения отбрасываем в пользу накопленного
	if ev.TotalTimeMs != nil {
		total := *ev.TotalTimeMs
		if total >= 0 && total <= r.cfg.MaxTotalTimeMs {
			rec.ElapsedTimeMs = total
		} else {
			log.Printf("[Room %s] Неправдоподобный итог времени %d мс от участника #%d, оставляем накопленные %d мс",
				r.code, total, ev.UserID, rec.ElapsedTimeMs)
		}
	}
	rec.Finished = true

	r.lastActivity = time.Now()
	r.broadcastStandings()
	return nil
}

func (r *Room) handleEnd(byHostID uint, bySystem bool) (*Summary, error) {
	// Идемпотентность: второй end (гонка клика ведущего с таймаутом)
	// возвращает тот же итог, что и первый
	if r.session.IsEnded() {
		return r.summary, nil
	}
	if !r.session.IsActive() {
		return nil, ErrInvalidTransition
	}
	if !bySystem && byHostID != r.session.HostID {
		return nil, ErrNotHost
	}

	now := time.Now()
	r.session.Status = entity.SessionStatusEnded
	r.session.EndedAt = &now
	r.revision++

	ranking := ComputeRanking(r.roster, r.progress, r.session.PenaltyPerWrongMs)
	r.summary = &Summary{
		Session:  r.session,
		Ranking:  ranking,
		Revision: r.revision,
	}

	r.deps.Notifier.NotifyRoom(r.code, EventRoomEnded, map[string]interface{}{
		"session_id": r.session.ID,
		"ended_at":   now,
		"revision":   r.revision,
		"ranking":    ranking,
	})

	if bySystem {
		log.Printf("[Room %s] Сессия %s завершена сторожевым таймером", r.code, r.session.ID)
	} else {
		log.Printf("[Room %s] Сессия %s завершена ведущим #%d", r.code, r.session.ID, byHostID)
	}

	// Персистентность итога - единственная фатальная точка завершения:
	// повторяем с бэкоффом и лишь потом отдаем жесткую ошибку ведущему
	r.persistErr = r.persistSummary()
	if r.persistErr != nil {
		return r.summary, r.persistErr
	}
	return r.summary, nil
}

func (r *Room) handleAbandon() error {
	if !r.session.IsLobby() {
		return ErrInvalidTransition
	}
	r.session.Status = entity.SessionStatusAbandoned
	log.Printf("[Room %s] Lobby-сессия %s помечена брошенной", r.code, r.session.ID)
	r.deps.Notifier.NotifyRoom(r.code, EventRoomAbandoned, map[string]interface{}{
		"session_id": r.session.ID,
	})
	return nil
}

// persistSummary записывает неизменяемый итог сессии с повторами
func (r *Room) persistSummary() error {
	standings := make([]entity.Standing, 0, len(r.summary.Ranking))
	for _, e := range r.summary.Ranking {
		p := r.byUser[e.UserID]
		rec := r.progress[e.UserID]
		standings = append(standings, entity.Standing{
			SessionID:       r.session.ID,
			UserID:          e.UserID,
			DisplayName:     e.DisplayName,
			Score:           e.Score,
			ElapsedTimeMs:   rec.ElapsedTimeMs,
			WrongCount:      e.WrongCount,
			EffectiveTimeMs: e.EffectiveTimeMs,
			Finished:        e.Finished,
			Rank:            e.Rank,
			JoinedAt:        p.JoinedAt,
		})
	}

	var err error
	for attempt := 0; attempt <= r.cfg.PersistRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(r.cfg.PersistBackoff * time.Duration(attempt))
		}
		if err = r.deps.SessionRepo.SaveSummary(r.session, standings); err == nil {
			log.Printf("[Room %s] Итог сессии %s сохранен (%d строк)", r.code, r.session.ID, len(standings))
			return nil
		}
		log.Printf("[Room %s] Ошибка сохранения итога сессии %s (попытка %d): %v", r.code, r.session.ID, attempt+1, err)
	}

	if r.deps.Alerter != nil {
		r.deps.Alerter.Alert(
			"live session summary persistence failed",
			fmt.Sprintf("session %s (room %s): %v", r.session.ID, r.code, err),
		)
	}
	return fmt.Errorf("failed to persist summary for session %s: %w", r.session.ID, err)
}

// broadcastStandings пересчитывает рейтинг и рассылает его всем сокетам
// комнаты. Ревизия монотонно растет на каждую принятую мутацию - клиент
// отбрасывает снимки не новее уже отрисованного.
func (r *Room) broadcastStandings() {
	r.revision++
	ranking := ComputeRanking(r.roster, r.progress, r.session.PenaltyPerWrongMs)
	r.deps.Notifier.NotifyRoom(r.code, EventStandingsUpdate, map[string]interface{}{
		"revision": r.revision,
		"ranking":  ranking,
	})
}

func (r *Room) rosterSnapshot() []Participant {
	roster := make([]Participant, 0, len(r.roster))
	for _, p := range r.roster {
		roster = append(roster, *p)
	}
	return roster
}

func (r *Room) buildState() State {
	return State{
		SessionID:    r.session.ID,
		Code:         r.code,
		Status:       r.session.Status,
		HostID:       r.session.HostID,
		Roster:       r.rosterSnapshot(),
		Ranking:      ComputeRanking(r.roster, r.progress, r.session.PenaltyPerWrongMs),
		Revision:     r.revision,
		HostOnline:   r.hostOnline,
		HostSeen:     r.hostSeen,
		LastActivity: r.lastActivity,
		Summary:      r.summary,
	}
}
