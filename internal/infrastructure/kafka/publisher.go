// Package kafka publica los eventos del ledger después del commit.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/jhoicas/inventario-ledger/internal/application/inventory"
)

var _ inventory.EventPublisher = (*Publisher)(nil)

// Publisher escribe eventos JSON en un tópico. Los mensajes con la misma clave
// (id de venta o de producto) caen en la misma partición y conservan su orden.
type Publisher struct {
	writer *kafka.Writer
}

// NewPublisher construye el writer.
func NewPublisher(brokers []string, topic string) *Publisher {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           10 * time.Millisecond,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
	return &Publisher{writer: writer}
}

// Publish serializa y escribe el evento.
func (p *Publisher) Publish(ctx context.Context, key string, event any) error {
	msg, err := message(key, event, time.Now())
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka write: %w", err)
	}
	return nil
}

// Close vacía el buffer y cierra el writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}

func message(key string, event any, at time.Time) (kafka.Message, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("serializar evento: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(key),
		Value: data,
		Time:  at,
	}
	if ev, ok := event.(inventory.LedgerEvent); ok {
		msg.Headers = append(msg.Headers, kafka.Header{Key: "event-type", Value: []byte(ev.Type)})
	}
	return msg, nil
}
