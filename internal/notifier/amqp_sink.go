package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"pkce-auth-server/internal/model"

	amqp "github.com/rabbitmq/amqp091-go"
)

// AMQPPublisher : часть amqp.Channel, нужная для публикации
type AMQPPublisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AMQPSink : публикует события в exchange брокера
type AMQPSink struct {
	channel    AMQPPublisher
	exchange   string
	routingKey string
}

func NewAMQPSink(channel AMQPPublisher, exchange, routingKey string) *AMQPSink {
	return &AMQPSink{channel: channel, exchange: exchange, routingKey: routingKey}
}

// DialAMQP подключается к брокеру и объявляет topic exchange.
// Возвращенная функция закрывает канал и соединение.
func DialAMQP(url, exchange, routingKey string) (*AMQPSink, func() error, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("ошибка подключения к AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("ошибка открытия канала AMQP: %w", err)
	}

	if err := channel.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		_ = channel.Close()
		_ = conn.Close()
		return nil, nil, fmt.Errorf("ошибка объявления exchange %s: %w", exchange, err)
	}

	closeFn := func() error {
		_ = channel.Close()
		return conn.Close()
	}
	return NewAMQPSink(channel, exchange, routingKey), closeFn, nil
}

func (s *AMQPSink) Publish(ctx context.Context, event model.SecurityEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("ошибка сериализации события: %w", err)
	}

	err = s.channel.PublishWithContext(ctx, s.exchange, s.routingKey+"."+string(event.Type), false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    event.OccurredAt,
		Type:         string(event.Type),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("ошибка публикации события в AMQP: %w", err)
	}
	return nil
}
