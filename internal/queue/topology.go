package queue

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// DeadLetterQueue receives reservation events that could not be delivered.
const DeadLetterQueue = ReservationConfirmedQueue + ".dead"

// QueueDeclarer is the part of *amqp.Channel needed to declare queues.
type QueueDeclarer interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
}

// confirmedQueueArgs routes rejected messages to DeadLetterQueue through
// the default exchange. Publisher and consumer must declare the same args.
func confirmedQueueArgs() amqp.Table {
	return amqp.Table{
		"x-dead-letter-exchange":    "",
		"x-dead-letter-routing-key": DeadLetterQueue,
	}
}

// DeclareTopology declares the dead-letter queue and the durable
// reservation.confirmed queue bound to it.
func DeclareTopology(ch QueueDeclarer) error {
	if _, err := ch.QueueDeclare(DeadLetterQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare %s: %w", DeadLetterQueue, err)
	}
	if _, err := ch.QueueDeclare(ReservationConfirmedQueue, true, false, false, false, confirmedQueueArgs()); err != nil {
		return fmt.Errorf("declare %s: %w", ReservationConfirmedQueue, err)
	}
	return nil
}
