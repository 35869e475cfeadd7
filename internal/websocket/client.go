package websocket

import (
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Время, которое разрешено писать сообщение клиенту.
	writeWait = 10 * time.Second

	// Время, которое разрешено клиенту читать следующее сообщение.
	pongWait = 30 * time.Second

	// Периодичность отправки ping-сообщений клиенту.
	pingPeriod = (pongWait * 9) / 10

	// Максимальный размер входящего сообщения
	maxMessageSize = 2048

	// Размер буфера канала отправки сообщений клиенту
	defaultClientBufferSize = 128
)

// Роли клиента в комнате
const (
	RoleHost   = "host"
	RolePlayer = "player"
)

// Client является посредником между WebSocket соединением и хабом.
// Запись в сокет идет только из writePump, чтение - только из readPump.
type Client struct {
	// ID пользователя (из JWT-тикета)
	UserID string

	// Уникальный ID для каждого соединения
	ConnectionID string

	// Роль в комнате: host или player
	Role string

	// ID класса участника (0 для хостов)
	ClassID int64

	hub  *Hub
	conn *websocket.Conn

	// Буферизованный канал для исходящих сообщений. Запись и закрытие
	// сериализованы через sendMu: проверка флага и send/close под одним
	// замком, иначе QueueMessage может попасть в уже закрытый канал.
	send       chan []byte
	sendMu     sync.RWMutex
	sendClosed bool
	closeOnce  sync.Once

	// Код комнаты, к которой привязан клиент ("" если ни к одной)
	roomCode atomic.Value

	// Время последней активности клиента
	lastActivity time.Time
}

// NewClient создает нового клиента поверх установленного соединения
func NewClient(hub *Hub, conn *websocket.Conn, userID, role string, classID int64) *Client {
	c := &Client{
		UserID:       userID,
		ConnectionID: uuid.NewString(),
		Role:         role,
		ClassID:      classID,
		hub:          hub,
		conn:         conn,
		send:         make(chan []byte, defaultClientBufferSize),
		lastActivity: time.Now(),
	}
	c.roomCode.Store("")
	return c
}

// RoomCode возвращает код комнаты клиента ("" если не привязан)
func (c *Client) RoomCode() string {
	code, _ := c.roomCode.Load().(string)
	return code
}

// SetRoomCode запоминает код комнаты клиента
func (c *Client) SetRoomCode(code string) {
	c.roomCode.Store(code)
}

// StartPumps регистрирует клиента в хабе и запускает насосы чтения/записи.
// handler вызывается для каждого входящего сообщения; ненулевая ошибка
// обработчика закрывает соединение.
func (c *Client) StartPumps(handler func(message []byte, client *Client) error) {
	c.hub.Register(c)
	go c.writePump()
	go c.readPump(handler)
}

// QueueMessage ставит сообщение в буфер отправки клиенту без блокировки.
// Переполненный буфер означает мертвого или безнадежно медленного
// подписчика: сообщение дропается, мутацию комнаты это не тормозит.
func (c *Client) QueueMessage(message []byte) bool {
	c.sendMu.RLock()
	defer c.sendMu.RUnlock()

	if c.sendClosed {
		return false
	}
	select {
	case c.send <- message:
		return true
	default:
		log.Printf("[Client %s/%s] Буфер отправки переполнен, сообщение отброшено", c.UserID, c.ConnectionID)
		return false
	}
}

// CloseSend безопасно закрывает канал отправки
func (c *Client) CloseSend() {
	c.closeOnce.Do(func() {
		c.sendMu.Lock()
		c.sendClosed = true
		close(c.send)
		c.sendMu.Unlock()
	})
}

// readPump читает сообщения из сокета и передает их обработчику
func (c *Client) readPump(handler func(message []byte, client *Client) error) {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		c.lastActivity = time.Now()
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[Client %s/%s] Неожиданное закрытие соединения: %v", c.UserID, c.ConnectionID, err)
			}
			return
		}

		c.lastActivity = time.Now()
		if err := handler(message, c); err != nil {
			log.Printf("[Client %s/%s] Обработчик вернул фатальную ошибку, закрываем соединение: %v", c.UserID, c.ConnectionID, err)
			return
		}
	}
}

// writePump пишет сообщения из канала send в сокет и шлет пинги
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
