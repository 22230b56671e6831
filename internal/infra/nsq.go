package infra

import (
	"fmt"

	"github.com/nsqio/go-nsq"
)

// NewNSQProducer configures an nsqd producer and verifies connectivity.
func NewNSQProducer(addr string) (*nsq.Producer, error) {
	if addr == "" {
		return nil, fmt.Errorf("nsqd address is required")
	}

	producer, err := nsq.NewProducer(addr, nsq.NewConfig())
	if err != nil {
		return nil, fmt.Errorf("create nsq producer: %w", err)
	}

	if err := producer.Ping(); err != nil {
		producer.Stop()
		return nil, fmt.Errorf("ping nsqd: %w", err)
	}

	return producer, nil
}
