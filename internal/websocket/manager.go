package websocket

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
)

// Event - конверт всех сообщений, проходящих через WebSocket
type Event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// ErrorPayload - тело события server:error
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// MessageHandler обрабатывает одно входящее событие конкретного типа
type MessageHandler func(data json.RawMessage, client *Client) error

// Manager маршрутизирует входящие события по зарегистрированным
// обработчикам и сериализует исходящие. Реализует liveroom.Notifier.
type Manager struct {
	hub      *Hub
	handlers map[string]MessageHandler
	mu       sync.RWMutex
}

// NewManager создает менеджер сообщений поверх хаба
func NewManager(hub *Hub) *Manager {
	return &Manager{
		hub:      hub,
		handlers: make(map[string]MessageHandler),
	}
}

// RegisterHandler регистрирует обработчик для типа события.
// Повторная регистрация того же типа перезаписывает обработчик.
func (m *Manager) RegisterHandler(eventType string, handler MessageHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[eventType] = handler
}

// HandleMessage разбирает входящее сообщение и вызывает его обработчик.
// Неизвестный тип события не считается фатальным: клиент получает
// server:error, соединение остается открытым.
func (m *Manager) HandleMessage(message []byte, client *Client) error {
	var event Event
	if err := json.Unmarshal(message, &event); err != nil {
		m.SendErrorToClient(client, "bad_message", "некорректный формат сообщения")
		return nil
	}

	m.mu.RLock()
	handler, ok := m.handlers[event.Type]
	m.mu.RUnlock()

	if !ok {
		log.Printf("[Manager] Неизвестный тип события %q от user=%s", event.Type, client.UserID)
		m.SendErrorToClient(client, "unknown_event", fmt.Sprintf("неизвестный тип события: %s", event.Type))
		return nil
	}

	return handler(event.Data, client)
}

// SendEventToClient отправляет типизированное событие конкретному соединению
func (m *Manager) SendEventToClient(client *Client, eventType string, data interface{}) {
	payload, err := marshalEvent(eventType, data)
	if err != nil {
		log.Printf("[Manager] Ошибка сериализации события %s: %v", eventType, err)
		return
	}
	client.QueueMessage(payload)
}

// SendErrorToClient отправляет клиенту событие server:error
func (m *Manager) SendErrorToClient(client *Client, code, message string) {
	m.SendEventToClient(client, SERVER_ERROR, ErrorPayload{Code: code, Message: message})
}

// SendEventToUser отправляет событие пользователю по его ID.
// Возвращает false, если пользователь не подключен к этому инстансу.
func (m *Manager) SendEventToUser(userID string, eventType string, data interface{}) bool {
	payload, err := marshalEvent(eventType, data)
	if err != nil {
		log.Printf("[Manager] Ошибка сериализации события %s: %v", eventType, err)
		return false
	}
	return m.hub.SendToUser(userID, payload)
}

// NotifyRoom рассылает событие всем подписчикам комнаты.
// Доставка best-effort: мертвые подписчики не блокируют отправителя.
func (m *Manager) NotifyRoom(roomCode string, eventType string, data interface{}) {
	payload, err := marshalEvent(eventType, data)
	if err != nil {
		log.Printf("[Manager] Ошибка сериализации события %s для комнаты %s: %v", eventType, roomCode, err)
		return
	}
	m.hub.BroadcastToRoom(roomCode, payload)
}

func marshalEvent(eventType string, data interface{}) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Event{Type: eventType, Data: raw})
}
