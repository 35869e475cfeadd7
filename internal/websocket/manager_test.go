package websocket

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testClient создает клиента без сокета: насосы не запускаются,
// сообщения читаются напрямую из буфера отправки
func testClient(hub *Hub, userID string) *Client {
	return NewClient(hub, nil, userID, RolePlayer, 5)
}

// takeQueued достает одно сообщение из буфера отправки клиента
func takeQueued(t *testing.T, c *Client) []byte {
	t.Helper()
	select {
	case msg := <-c.send:
		return msg
	case <-time.After(time.Second):
		t.Fatal("в буфере отправки нет сообщения")
		return nil
	}
}

func decodeEvent(t *testing.T, raw []byte) Event {
	t.Helper()
	var event Event
	require.NoError(t, json.Unmarshal(raw, &event))
	return event
}

// ============================================================================
// Маршрутизация входящих сообщений
// ============================================================================

func TestManager_HandleMessage_RoutesToHandler(t *testing.T) {
	// Arrange
	manager := NewManager(nil)
	client := testClient(nil, "42")

	var gotData json.RawMessage
	var gotClient *Client
	manager.RegisterHandler("room:join", func(data json.RawMessage, c *Client) error {
		gotData = data
		gotClient = c
		return nil
	})

	// Act
	err := manager.HandleMessage([]byte(`{"type":"room:join","data":{"code":"KQWZ34"}}`), client)

	// Assert
	require.NoError(t, err)
	assert.JSONEq(t, `{"code":"KQWZ34"}`, string(gotData))
	assert.Same(t, client, gotClient)
}

func TestManager_HandleMessage_UnknownTypeIsNotFatal(t *testing.T) {
	// Arrange
	manager := NewManager(nil)
	client := testClient(nil, "42")

	// Act
	err := manager.HandleMessage([]byte(`{"type":"no:such:event"}`), client)

	// Assert: соединение живет, клиенту уходит server:error
	require.NoError(t, err, "Неизвестный тип события не должен закрывать соединение")
	event := decodeEvent(t, takeQueued(t, client))
	assert.Equal(t, SERVER_ERROR, event.Type)

	var payload ErrorPayload
	require.NoError(t, json.Unmarshal(event.Data, &payload))
	assert.Equal(t, "unknown_event", payload.Code)
}

func TestManager_HandleMessage_MalformedJSON(t *testing.T) {
	// Arrange
	manager := NewManager(nil)
	client := testClient(nil, "42")

	// Act
	err := manager.HandleMessage([]byte(`{not json`), client)

	// Assert
	require.NoError(t, err)
	event := decodeEvent(t, takeQueued(t, client))
	assert.Equal(t, SERVER_ERROR, event.Type)

	var payload ErrorPayload
	require.NoError(t, json.Unmarshal(event.Data, &payload))
	assert.Equal(t, "bad_message", payload.Code)
}

func TestManager_HandleMessage_HandlerErrorPropagates(t *testing.T) {
	// Arrange
	manager := NewManager(nil)
	client := testClient(nil, "42")
	manager.RegisterHandler("room:start", func(data json.RawMessage, c *Client) error {
		return assert.AnError
	})

	// Act
	err := manager.HandleMessage([]byte(`{"type":"room:start"}`), client)

	// Assert: фатальную ошибку обработчика решает readPump, не менеджер
	assert.ErrorIs(t, err, assert.AnError)
}

// ============================================================================
// Рассылка по комнате через хаб
// ============================================================================

func TestManager_NotifyRoom_DeliversToSubscribers(t *testing.T) {
	// Arrange: хаб без кластерного pub/sub
	hub := NewHub(nil)
	go hub.Run()
	t.Cleanup(hub.Close)
	manager := NewManager(hub)

	subscriber := testClient(hub, "42")
	outsider := testClient(hub, "43")
	hub.Register(subscriber)
	hub.Register(outsider)
	hub.JoinRoom(subscriber, "KQWZ34")

	// Регистрация и подписка идут через каналы хаба
	require.Eventually(t, func() bool {
		return hub.RoomSubscriberCount("KQWZ34") == 1
	}, time.Second, 5*time.Millisecond, "Подписчик должен появиться в комнате")

	// Act
	manager.NotifyRoom("KQWZ34", "standings:updated", map[string]interface{}{"revision": 3})

	// Assert
	event := decodeEvent(t, takeQueued(t, subscriber))
	assert.Equal(t, "standings:updated", event.Type)
	assert.JSONEq(t, `{"revision":3}`, string(event.Data))

	select {
	case <-outsider.send:
		t.Fatal("Событие комнаты не должно доходить до постороннего клиента")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestManager_SendEventToUser_NotConnected(t *testing.T) {
	// Arrange
	hub := NewHub(nil)
	go hub.Run()
	t.Cleanup(hub.Close)
	manager := NewManager(hub)

	// Act
	delivered := manager.SendEventToUser("999", "room:ended", nil)

	// Assert
	assert.False(t, delivered, "Отправка неподключенному пользователю должна вернуть false")
}

func TestManager_SendEventToUser_Connected(t *testing.T) {
	// Arrange
	hub := NewHub(nil)
	go hub.Run()
	t.Cleanup(hub.Close)
	manager := NewManager(hub)

	client := testClient(hub, "42")
	hub.Register(client)
	require.Eventually(t, func() bool {
		return hub.ClientCount() == 1
	}, time.Second, 5*time.Millisecond)

	// Act
	delivered := manager.SendEventToUser("42", "room:ended", map[string]interface{}{"session_id": "sess-1"})

	// Assert
	assert.True(t, delivered)
	event := decodeEvent(t, takeQueued(t, client))
	assert.Equal(t, "room:ended", event.Type)
}
