package kafka

import (
	"context"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

type Writer = kafka.Writer

// NewWriter cria o produtor de um tópico de fatos do motor (pool_opened,
// bet_placed, oracle_requests...). brokers aceita lista separada por vírgula.
// O balancer por hash mantém os fatos de uma mesma chave (país, request id)
// na mesma partição, em ordem.
func NewWriter(brokers string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(strings.Split(brokers, ",")...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}
}

// NewReader cria o consumidor de grupo usado pelo oracle-worker para drenar
// oracle_requests.
func NewReader(brokers string, topic string, groupID string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:        strings.Split(brokers, ","),
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       1,
		MaxBytes:       10e6,
		MaxWait:        time.Second,
		CommitInterval: time.Second,
	})
}

// WriteJSON publica um payload já serializado com a chave de partição dada.
func WriteJSON(ctx context.Context, w *kafka.Writer, key string, payload []byte) error {
	return w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: payload,
		Time:  time.Now(),
	})
}
