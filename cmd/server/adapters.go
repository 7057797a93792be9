package main

import (
	"turnstile/internal/audit"
	"turnstile/internal/platform/kafka/producer"
)

// kafkaAuditProducer adapts the platform Kafka producer to the audit sink's
// producer interface so the audit package stays free of kafka imports.
type kafkaAuditProducer struct {
	producer *producer.Producer
}

func (p *kafkaAuditProducer) ProduceAsync(msg *audit.ProducerMessage) error {
	return p.producer.ProduceAsync(&producer.Message{
		Topic:   msg.Topic,
		Key:     msg.Key,
		Value:   msg.Value,
		Headers: msg.Headers,
	})
}
