/*
Package notify
File: kafka.go
Description:
    Kafka sink. Messages are queued and published as JSON from a background
    goroutine, keyed by the installation's source name.
*/

package notify

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/everforgeworks/ecosnap-engine/internal/logger"
)

const kafkaQueueSize = 256

// messageWriter is the subset of *kafka.Writer the sink needs. Tests swap it.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Kafka publishes notifications to a topic from a background goroutine so
// Notify never waits on the network. When the queue is full the message is
// dropped and logged.
type Kafka struct {
	writer messageWriter
	log    *logger.Logger
	source string

	queue     chan Message
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewKafka wires a writer for topic on brokers. source is stamped into the
// message key so consumers can tell installations apart.
func NewKafka(brokers []string, topic, source string, log *logger.Logger) (*Kafka, error) {
	if len(brokers) == 0 {
		return nil, errors.New("notify: at least one broker is required")
	}
	if strings.TrimSpace(topic) == "" {
		return nil, errors.New("notify: kafka topic must not be empty")
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: false,
		BatchTimeout:           200 * time.Millisecond,
	}
	return newKafkaWithWriter(w, source, log), nil
}

func newKafkaWithWriter(w messageWriter, source string, log *logger.Logger) *Kafka {
	if log == nil {
		log = logger.Nop()
	}
	k := &Kafka{
		writer: w,
		log:    log.With("component", "kafka_notify"),
		source: source,
		queue:  make(chan Message, kafkaQueueSize),
	}
	k.wg.Add(1)
	go k.run()
	return k
}

func (k *Kafka) Notify(msg Message) {
	select {
	case k.queue <- msg:
	default:
		k.log.Warn("notification dropped", "reason", "queue_full", "text", msg.Text)
	}
}

func (k *Kafka) run() {
	defer k.wg.Done()
	for msg := range k.queue {
		payload, err := json.Marshal(msg)
		if err != nil {
			k.log.Error("notification encode failed", "err", err)
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err = k.writer.WriteMessages(ctx, kafka.Message{
			Key:   []byte(k.source),
			Value: payload,
			Time:  msg.At,
		})
		cancel()
		if err != nil {
			k.log.Error("notification publish failed", "err", err)
		}
	}
}

// Close drains the queue and closes the writer.
func (k *Kafka) Close() error {
	var err error
	k.closeOnce.Do(func() {
		close(k.queue)
		k.wg.Wait()
		err = k.writer.Close()
	})
	return err
}
