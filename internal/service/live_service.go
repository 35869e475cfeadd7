package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/yourusername/live-api/internal/domain/entity"
	"github.com/yourusername/live-api/internal/domain/repository"
	"github.com/yourusername/live-api/internal/service/liveroom"
)

// LiveService координирует живые сессии: владеет реестром кодов, картой
// акторов комнат и сторожевыми таймерами. Все мутации конкретной сессии
// проходят через ее актора; сервис лишь маршрутизирует вызовы по коду.
type LiveService struct {
	cfg  *liveroom.Config
	deps *liveroom.Dependencies

	registry    *liveroom.Registry
	sessionRepo repository.SessionRepository
	alerter     AlertService

	roomsMu sync.RWMutex
	rooms   map[string]*liveroom.Room // ключ: session ID
	byCode  map[string]*liveroom.Room // ключ: код комнаты

	// Контекст для управления жизненным циклом
	ctx    context.Context
	cancel context.CancelFunc
}

// SessionOptions - настройки создаваемой сессии, приходящие от ведущего
type SessionOptions struct {
	PenaltyPerWrongMs *int64
	ScorePerCorrect   *int
}

// NewLiveService создает новый сервис живых сессий и запускает сторожа
func NewLiveService(
	cfg *liveroom.Config,
	sessionRepo repository.SessionRepository,
	cacheRepo repository.CacheRepository,
	notifier liveroom.Notifier,
	alerter AlertService,
) *LiveService {
	ctx, cancel := context.WithCancel(context.Background())

	s := &LiveService{
		cfg: cfg,
		deps: &liveroom.Dependencies{
			SessionRepo: sessionRepo,
			CacheRepo:   cacheRepo,
			Notifier:    notifier,
			Alerter:     alerter,
		},
		registry:    liveroom.NewRegistry(cfg, cacheRepo),
		sessionRepo: sessionRepo,
		alerter:     alerter,
		rooms:       make(map[string]*liveroom.Room),
		byCode:      make(map[string]*liveroom.Room),
		ctx:         ctx,
		cancel:      cancel,
	}

	go s.runWatchdog()

	log.Println("[LiveService] Сервис живых сессий инициализирован")
	return s
}

// CreateSession создает сессию в состоянии lobby и резервирует код комнаты
func (s *LiveService) CreateSession(hostID, gameID uint, allowedClassIDs []int64, opts SessionOptions) (*entity.LiveSession, error) {
	session := &entity.LiveSession{
		ID:                uuid.NewString(),
		GameID:            gameID,
		HostID:            hostID,
		AllowedClassIDs:   pq.Int64Array(allowedClassIDs),
		Status:            entity.SessionStatusLobby,
		PenaltyPerWrongMs: s.cfg.PenaltyPerWrongMs,
		ScorePerCorrect:   s.cfg.ScorePerCorrect,
		CreatedAt:         time.Now(),
	}
	if opts.PenaltyPerWrongMs != nil && *opts.PenaltyPerWrongMs >= 0 {
		session.PenaltyPerWrongMs = *opts.PenaltyPerWrongMs
	}
	if opts.ScorePerCorrect != nil && *opts.ScorePerCorrect > 0 {
		session.ScorePerCorrect = *opts.ScorePerCorrect
	}

	code, err := s.registry.CreateRoom(session.ID)
	if err != nil {
		if errors.Is(err, liveroom.ErrExhaustedCodeSpace) && s.alerter != nil {
			s.alerter.Alert("room code space exhausted",
				fmt.Sprintf("failed to allocate a code for session %s (host #%d)", session.ID, hostID))
		}
		return nil, err
	}
	session.Code = code

	room := liveroom.NewRoom(session, code, s.cfg, s.deps)

	s.roomsMu.Lock()
	s.rooms[session.ID] = room
	s.byCode[code] = room
	s.roomsMu.Unlock()

	log.Printf("[LiveService] Сессия %s создана, код %s", session.ID, code)
	return session, nil
}

// JoinRoom проводит ученика в комнату по коду
func (s *LiveService) JoinRoom(ctx context.Context, code string, userID uint, classID int64, displayName string) ([]liveroom.Participant, error) {
	room, err := s.roomByCode(code)
	if err != nil {
		return nil, err
	}
	return room.Join(ctx, userID, classID, displayName)
}

// StartRoom переводит комнату lobby → active
func (s *LiveService) StartRoom(ctx context.Context, code string, byHostID uint) error {
	room, err := s.roomByCode(code)
	if err != nil {
		return err
	}
	return room.Start(ctx, byHostID)
}

// RecordAnswer передает событие ответа в агрегатор комнаты.
// Ошибка UnknownParticipant здесь логируется и НЕ доходит до отправителя:
// одно битое событие не должно ломать сессию.
func (s *LiveService) RecordAnswer(ctx context.Context, code string, ev liveroom.AnswerEvent) error {
	room, err := s.roomByCode(code)
	if err != nil {
		return err
	}
	if err := room.RecordAnswer(ctx, ev); err != nil {
		log.Printf("[LiveService] Событие ответа отброшено (комната %s, user #%d): %v", code, ev.UserID, err)
	}
	return nil
}

// RecordFinish передает событие финиша в агрегатор комнаты
func (s *LiveService) RecordFinish(ctx context.Context, code string, ev liveroom.FinishEvent) error {
	room, err := s.roomByCode(code)
	if err != nil {
		return err
	}
	if err := room.RecordFinish(ctx, ev); err != nil {
		log.Printf("[LiveService] Событие финиша отброшено (комната %s, user #%d): %v", code, ev.UserID, err)
	}
	return nil
}

// EndRoom завершает сессию (ведущим или сторожем). Идемпотентен на
// уровне актора; после завершения код освобождается, а комната остается
// в памяти еще EndLinger, чтобы обслужить гонку повторного end.
func (s *LiveService) EndRoom(ctx context.Context, code string, byHostID uint, bySystem bool) (*liveroom.Summary, error) {
	room, err := s.roomByCode(code)
	if err != nil {
		return nil, err
	}

	summary, err := room.End(ctx, byHostID, bySystem)
	if err != nil && summary == nil {
		return nil, err
	}

	// Сессия дошла до терминального состояния: код можно переиспользовать
	if relErr := s.registry.Release(code); relErr != nil {
		log.Printf("[LiveService] Не удалось освободить код %s: %v", code, relErr)
	}
	s.scheduleRemoval(summary.Session.ID, code)

	return summary, err
}

// Snapshot возвращает снимок комнаты для resync после reconnect
func (s *LiveService) Snapshot(ctx context.Context, code string) (liveroom.State, error) {
	room, err := s.roomByCode(code)
	if err != nil {
		return liveroom.State{}, err
	}
	return room.Snapshot(ctx)
}

// SetHostPresence отмечает подключение/отключение сокета ведущего комнаты
func (s *LiveService) SetHostPresence(code string, online bool) {
	room, err := s.roomByCode(code)
	if err != nil {
		return
	}
	room.SetHostPresence(online)
}

// GetSummary возвращает персистентный итог завершенной сессии.
// Для еще живой сессии итога нет - это ErrSessionNotEnded, а не 404.
func (s *LiveService) GetSummary(sessionID string) (*entity.LiveSession, error) {
	s.roomsMu.RLock()
	room, live := s.rooms[sessionID]
	s.roomsMu.RUnlock()

	if live {
		st, err := room.Snapshot(context.Background())
		if err == nil && st.Status != entity.SessionStatusEnded {
			return nil, ErrSessionNotEnded
		}
	}

	return s.sessionRepo.GetWithStandings(sessionID)
}

// ListSessions возвращает сохраненные сессии учителя, свежие первыми
func (s *LiveService) ListSessions(hostID uint, limit, offset int) ([]entity.LiveSession, error) {
	sessions, _, err := s.sessionRepo.ListByHost(hostID, limit, offset)
	return sessions, err
}

// DeleteSession удаляет завершенную сессию вместе с итоговой таблицей.
// Разрешено только для ended: живую сессию сначала нужно завершить.
func (s *LiveService) DeleteSession(sessionID string) error {
	s.roomsMu.RLock()
	room, live := s.rooms[sessionID]
	s.roomsMu.RUnlock()

	if live {
		st, err := room.Snapshot(context.Background())
		if err == nil && st.Status != entity.SessionStatusEnded {
			return ErrSessionStillLive
		}
	}

	return s.sessionRepo.Delete(sessionID)
}

// Shutdown корректно останавливает сервис и всех акторов комнат
func (s *LiveService) Shutdown() {
	log.Println("[LiveService] Завершение работы сервиса живых сессий...")
	s.cancel()

	s.roomsMu.Lock()
	for id, room := range s.rooms {
		room.Close()
		delete(s.rooms, id)
	}
	s.byCode = make(map[string]*liveroom.Room)
	s.roomsMu.Unlock()

	log.Println("[LiveService] Сервис живых сессий остановлен")
}

// --- Внутренние методы ---

func (s *LiveService) roomByCode(code string) (*liveroom.Room, error) {
	code = liveroom.NormalizeCode(code)

	s.roomsMu.RLock()
	room, ok := s.byCode[code]
	s.roomsMu.RUnlock()
	if ok {
		return room, nil
	}

	// Комнаты нет в памяти этого инстанса. Реестр знает код -
	// значит, сессию держит другой инстанс (или процесс перезапускался:
	// незаконченные сессии не переживают рестарт - осознанный трейд-офф).
	if _, err := s.registry.Resolve(code); err != nil {
		return nil, err
	}
	return nil, liveroom.ErrRoomNotFound
}

// scheduleRemoval убирает завершенную комнату из карт после паузы.
// Пауза нужна, чтобы проигравшая гонку копия end получила тот же итог
// из еще живого актора, а не ушла в БД.
func (s *LiveService) scheduleRemoval(sessionID, code string) {
	time.AfterFunc(s.cfg.EndLinger, func() {
		s.roomsMu.Lock()
		room, ok := s.rooms[sessionID]
		if ok {
			delete(s.rooms, sessionID)
			delete(s.byCode, code)
		}
		s.roomsMu.Unlock()
		if ok {
			room.Close()
			log.Printf("[LiveService] Комната %s (сессия %s) выгружена из памяти", code, sessionID)
		}
	})
}

// runWatchdog периодически обходит комнаты и закрывает осиротевшие:
// active-комнату без ведущего завершает системным end (идемпотентно
// относительно клика ведущего), брошенное lobby переводит в abandoned.
func (s *LiveService) runWatchdog() {
	ticker := time.NewTicker(s.cfg.WatchdogInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			log.Println("[LiveService] Завершение работы сторожа комнат")
			return
		case <-ticker.C:
			s.sweepRooms()
		}
	}
}

func (s *LiveService) sweepRooms() {
	s.roomsMu.RLock()
	codes := make([]string, 0, len(s.byCode))
	for code := range s.byCode {
		codes = append(codes, code)
	}
	s.roomsMu.RUnlock()

	now := time.Now()
	for _, code := range codes {
		room, err := s.roomByCode(code)
		if err != nil {
			continue
		}

		ctx, cancel := context.WithTimeout(s.ctx, 5*time.Second)
		st, err := room.Snapshot(ctx)
		cancel()
		if err != nil {
			continue
		}

		switch st.Status {
		case entity.SessionStatusActive:
			if !st.HostOnline && now.Sub(st.HostSeen) > s.cfg.HostGracePeriod {
				log.Printf("[LiveService] Комната %s: ведущий отсутствует %s, системное завершение",
					code, now.Sub(st.HostSeen).Round(time.Second))
				ctx, cancel := context.WithTimeout(s.ctx, 10*time.Second)
				if _, err := s.EndRoom(ctx, code, 0, true); err != nil {
					log.Printf("[LiveService] Ошибка системного завершения комнаты %s: %v", code, err)
				}
				cancel()
			}
		case entity.SessionStatusLobby:
			if now.Sub(st.LastActivity) > s.cfg.LobbyTTL {
				log.Printf("[LiveService] Комната %s: lobby неактивно %s, перевод в abandoned",
					code, now.Sub(st.LastActivity).Round(time.Second))
				ctx, cancel := context.WithTimeout(s.ctx, 10*time.Second)
				if err := room.Abandon(ctx); err != nil {
					log.Printf("[LiveService] Ошибка abandon комнаты %s: %v", code, err)
				}
				cancel()
				if err := s.registry.Release(code); err != nil {
					log.Printf("[LiveService] Не удалось освободить код %s: %v", code, err)
				}
				s.scheduleRemoval(st.SessionID, code)
			}
		}
	}
}
