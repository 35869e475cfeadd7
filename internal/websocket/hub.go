package websocket

import (
	"log"
	"sync"

	"github.com/google/uuid"
)

// roomMessage - сообщение для рассылки всем клиентам комнаты
type roomMessage struct {
	roomCode string
	payload  []byte
}

// Hub ведет учет активных клиентов и рассылает сообщения по комнатам.
// Все мутации карт происходят в цикле run, внешние методы общаются
// с ним через каналы.
type Hub struct {
	// Активные клиенты по ID соединения
	clients map[string]*Client

	// Клиенты по ID пользователя. Повторное подключение того же
	// пользователя вытесняет прежнее соединение.
	userMap map[string]*Client

	// Подписчики каждой комнаты
	rooms map[string]map[*Client]struct{}

	register   chan *Client
	unregister chan *Client
	broadcast  chan roomMessage
	subscribe  chan subscription
	done       chan struct{}
	closeOnce  sync.Once

	// Межинстансная доставка сообщений комнат
	pubsub     PubSubProvider
	instanceID string

	// Хуки присутствия: вызываются из цикла run при входе/выходе клиента
	onDisconnect func(client *Client)

	mu sync.RWMutex
}

type subscription struct {
	client   *Client
	roomCode string
	leave    bool
}

// NewHub создает новый хаб. pubsub может быть nil - тогда рассылка
// ограничена текущим инстансом.
func NewHub(pubsub PubSubProvider) *Hub {
	if pubsub == nil {
		pubsub = &NoOpPubSub{}
	}
	return &Hub{
		clients:    make(map[string]*Client),
		userMap:    make(map[string]*Client),
		rooms:      make(map[string]map[*Client]struct{}),
		register:   make(chan *Client, 64),
		unregister: make(chan *Client, 64),
		broadcast:  make(chan roomMessage, 256),
		subscribe:  make(chan subscription, 64),
		done:       make(chan struct{}),
		pubsub:     pubsub,
		instanceID: uuid.NewString(),
	}
}

// SetDisconnectHandler задает хук, вызываемый после отключения клиента.
// Должен быть установлен до Run.
func (h *Hub) SetDisconnectHandler(fn func(client *Client)) {
	h.onDisconnect = fn
}

// Run запускает главный цикл хаба и подписку на межинстансный канал.
// Блокирует до Close.
func (h *Hub) Run() {
	go h.runPubSubListener()

	for {
		select {
		case client := <-h.register:
			h.handleRegister(client)

		case client := <-h.unregister:
			h.handleUnregister(client)

		case sub := <-h.subscribe:
			h.handleSubscribe(sub)

		case msg := <-h.broadcast:
			h.deliverToRoom(msg.roomCode, msg.payload)

		case <-h.done:
			h.closeAllClients()
			return
		}
	}
}

// Close останавливает цикл хаба и закрывает все соединения
func (h *Hub) Close() {
	h.closeOnce.Do(func() {
		close(h.done)
	})
}

// Register ставит клиента в очередь на регистрацию
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
	}
}

// Unregister ставит клиента в очередь на удаление
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// JoinRoom подписывает клиента на события комнаты
func (h *Hub) JoinRoom(client *Client, roomCode string) {
	select {
	case h.subscribe <- subscription{client: client, roomCode: roomCode}:
	case <-h.done:
	}
}

// LeaveRoom отписывает клиента от комнаты
func (h *Hub) LeaveRoom(client *Client) {
	select {
	case h.subscribe <- subscription{client: client, leave: true}:
	case <-h.done:
	}
}

// BroadcastToRoom рассылает сообщение всем подписчикам комнаты на этом
// инстансе и публикует его для остальных инстансов. Не блокирует
// вызывающего: переполненный канал рассылки означает деградацию, о
// которой сообщаем в лог.
func (h *Hub) BroadcastToRoom(roomCode string, message []byte) {
	select {
	case h.broadcast <- roomMessage{roomCode: roomCode, payload: message}:
	default:
		log.Printf("[Hub] Канал рассылки переполнен, сообщение для комнаты %s отброшено", roomCode)
	}

	if err := h.pubsub.Publish(ClusterMessage{
		InstanceID: h.instanceID,
		RoomCode:   roomCode,
		Payload:    message,
	}); err != nil {
		log.Printf("[Hub] Ошибка публикации в межинстансный канал: %v", err)
	}
}

// SendToUser отправляет сообщение конкретному пользователю, если он
// подключен к этому инстансу. Возвращает false, если пользователь не найден.
func (h *Hub) SendToUser(userID string, message []byte) bool {
	h.mu.RLock()
	client, ok := h.userMap[userID]
	h.mu.RUnlock()
	if !ok {
		return false
	}
	return client.QueueMessage(message)
}

// ClientCount возвращает число активных соединений
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// RoomSubscriberCount возвращает число подписчиков комнаты на этом инстансе
func (h *Hub) RoomSubscriberCount(roomCode string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomCode])
}

func (h *Hub) handleRegister(client *Client) {
	h.mu.Lock()
	if old, ok := h.userMap[client.UserID]; ok && old != client {
		// Новое соединение того же пользователя вытесняет старое
		log.Printf("[Hub] Пользователь %s переподключился, закрываем старое соединение %s", client.UserID, old.ConnectionID)
		delete(h.clients, old.ConnectionID)
		h.removeFromRoomLocked(old)
		old.CloseSend()
	}
	h.clients[client.ConnectionID] = client
	h.userMap[client.UserID] = client
	h.mu.Unlock()

	log.Printf("[Hub] Клиент зарегистрирован: user=%s conn=%s (всего: %d)", client.UserID, client.ConnectionID, h.ClientCount())
}

func (h *Hub) handleUnregister(client *Client) {
	h.mu.Lock()
	current, ok := h.clients[client.ConnectionID]
	if !ok || current != client {
		h.mu.Unlock()
		return
	}
	delete(h.clients, client.ConnectionID)
	if h.userMap[client.UserID] == client {
		delete(h.userMap, client.UserID)
	}
	h.removeFromRoomLocked(client)
	h.mu.Unlock()

	client.CloseSend()
	log.Printf("[Hub] Клиент отключен: user=%s conn=%s (всего: %d)", client.UserID, client.ConnectionID, h.ClientCount())

	if h.onDisconnect != nil {
		h.onDisconnect(client)
	}
}

func (h *Hub) handleSubscribe(sub subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.removeFromRoomLocked(sub.client)
	if sub.leave {
		sub.client.SetRoomCode("")
		return
	}

	set, ok := h.rooms[sub.roomCode]
	if !ok {
		set = make(map[*Client]struct{})
		h.rooms[sub.roomCode] = set
	}
	set[sub.client] = struct{}{}
	sub.client.SetRoomCode(sub.roomCode)
}

// removeFromRoomLocked убирает клиента из его текущей комнаты.
// Вызывается под h.mu.
func (h *Hub) removeFromRoomLocked(client *Client) {
	code := client.RoomCode()
	if code == "" {
		return
	}
	if set, ok := h.rooms[code]; ok {
		delete(set, client)
		if len(set) == 0 {
			delete(h.rooms, code)
		}
	}
}

func (h *Hub) deliverToRoom(roomCode string, message []byte) {
	h.mu.RLock()
	set := h.rooms[roomCode]
	targets := make([]*Client, 0, len(set))
	for client := range set {
		targets = append(targets, client)
	}
	h.mu.RUnlock()

	for _, client := range targets {
		client.QueueMessage(message)
	}
}

func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, client := range h.clients {
		client.CloseSend()
	}
	h.clients = make(map[string]*Client)
	h.userMap = make(map[string]*Client)
	h.rooms = make(map[string]map[*Client]struct{})
}

// runPubSubListener принимает сообщения комнат от других инстансов
func (h *Hub) runPubSubListener() {
	ch, err := h.pubsub.Subscribe()
	if err != nil {
		log.Printf("[Hub] Ошибка подписки на межинстансный канал: %v", err)
		return
	}

	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			// Свои же публикации пропускаем, иначе клиенты получат дубли
			if msg.InstanceID == h.instanceID {
				continue
			}
			h.deliverToRoom(msg.RoomCode, msg.Payload)

		case <-h.done:
			return
		}
	}
}
