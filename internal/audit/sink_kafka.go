package audit

import (
	"context"
	"encoding/json"

	dErrors "turnstile/pkg/domain-errors"
)

// Producer is the subset of the Kafka producer used by the sink.
type Producer interface {
	ProduceAsync(msg *ProducerMessage) error
}

// ProducerMessage mirrors the platform producer message shape so this package
// does not import the kafka client directly.
type ProducerMessage struct {
	Topic   string
	Key     []byte
	Value   []byte
	Headers map[string]string
}

// KafkaSink forwards audit events to a Kafka topic for downstream compliance
// consumers. It only writes; ListBySubject is served by a queryable store and
// is not supported here.
type KafkaSink struct {
	producer Producer
	topic    string
}

func NewKafkaSink(producer Producer, topic string) *KafkaSink {
	return &KafkaSink{producer: producer, topic: topic}
}

func (s *KafkaSink) Append(_ context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "could not encode audit event")
	}
	return s.producer.ProduceAsync(&ProducerMessage{
		Topic: s.topic,
		Key:   []byte(event.Subject),
		Value: payload,
		Headers: map[string]string{
			"action": event.Action,
		},
	})
}

func (s *KafkaSink) ListBySubject(context.Context, string) ([]Event, error) {
	return nil, dErrors.New(dErrors.CodeInternal, "kafka sink is write-only")
}

// Tee fans one Append out to several stores. List reads go to the first store.
// A failing secondary sink never fails the append; audit fan-out is best
// effort beyond the primary.
type Tee struct {
	Primary    Store
	Secondary  []Store
	OnSinkFail func(err error)
}

func (t *Tee) Append(ctx context.Context, event Event) error {
	err := t.Primary.Append(ctx, event)
	for _, s := range t.Secondary {
		if serr := s.Append(ctx, event); serr != nil && t.OnSinkFail != nil {
			t.OnSinkFail(serr)
		}
	}
	return err
}

func (t *Tee) ListBySubject(ctx context.Context, subject string) ([]Event, error) {
	return t.Primary.ListBySubject(ctx, subject)
}
