package websocket

import (
	"context"
	"encoding/json"
	"log"

	"github.com/go-redis/redis/v8"
)

// ClusterMessage - сообщение комнаты, пересылаемое между инстансами
type ClusterMessage struct {
	InstanceID string `json:"instance_id"`
	RoomCode   string `json:"room_code"`
	Payload    []byte `json:"payload"`
}

// PubSubProvider абстрагирует механизм межинстансной доставки сообщений
type PubSubProvider interface {
	Publish(msg ClusterMessage) error
	Subscribe() (<-chan ClusterMessage, error)
	Close() error
}

// NoOpPubSub - заглушка для одноинстансного развертывания
type NoOpPubSub struct {
	ch chan ClusterMessage
}

func (p *NoOpPubSub) Publish(msg ClusterMessage) error { return nil }

func (p *NoOpPubSub) Subscribe() (<-chan ClusterMessage, error) {
	if p.ch == nil {
		p.ch = make(chan ClusterMessage)
	}
	return p.ch, nil
}

func (p *NoOpPubSub) Close() error {
	if p.ch != nil {
		close(p.ch)
		p.ch = nil
	}
	return nil
}

// RedisPubSub доставляет сообщения комнат между инстансами через Redis Pub/Sub
type RedisPubSub struct {
	client  redis.UniversalClient
	channel string
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewRedisPubSub создает провайдер поверх существующего подключения к Redis
func NewRedisPubSub(client redis.UniversalClient, channel string) *RedisPubSub {
	ctx, cancel := context.WithCancel(context.Background())
	return &RedisPubSub{
		client:  client,
		channel: channel,
		ctx:     ctx,
		cancel:  cancel,
	}
}

func (p *RedisPubSub) Publish(msg ClusterMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return p.client.Publish(p.ctx, p.channel, data).Err()
}

func (p *RedisPubSub) Subscribe() (<-chan ClusterMessage, error) {
	sub := p.client.Subscribe(p.ctx, p.channel)
	// Дожидаемся подтверждения подписки, чтобы не терять ранние сообщения
	if _, err := sub.Receive(p.ctx); err != nil {
		return nil, err
	}

	out := make(chan ClusterMessage, 256)
	go func() {
		defer close(out)
		defer sub.Close()

		for {
			select {
			case raw, ok := <-sub.Channel():
				if !ok {
					return
				}
				var msg ClusterMessage
				if err := json.Unmarshal([]byte(raw.Payload), &msg); err != nil {
					log.Printf("[RedisPubSub] Некорректное сообщение в канале %s: %v", p.channel, err)
					continue
				}
				out <- msg

			case <-p.ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

func (p *RedisPubSub) Close() error {
	p.cancel()
	return nil
}
