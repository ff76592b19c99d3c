package feed

import (
	"context"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"
	"go.uber.org/zap"
)

// KafkaSource consumes venue events from a Kafka topic - recorded
// sessions or a relay of the live feed. Partition ordering is the
// feed's delivery order, so the topic must be single-partition per
// session for the ordering guarantees of the engine to hold.
type KafkaSource struct {
	client  *kgo.Client
	log     *zap.SugaredLogger
	pending []*kgo.Record
}

func NewKafkaSource(brokers []string, group, topic string, log *zap.SugaredLogger) (*KafkaSource, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ConsumerGroup(group),
		kgo.ConsumeTopics(topic),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka client: %w", err)
	}

	log.Infow("kafka source ready", "brokers", brokers, "group", group, "topic", topic)
	return &KafkaSource{client: client, log: log}, nil
}

func (k *KafkaSource) Next(ctx context.Context) (Event, error) {
	for len(k.pending) == 0 {
		fetches := k.client.PollFetches(ctx)
		if err := ctx.Err(); err != nil {
			return Event{}, err
		}
		if fetches.IsClientClosed() {
			return Event{}, fmt.Errorf("kafka client closed")
		}
		if errs := fetches.Errors(); len(errs) > 0 {
			return Event{}, fmt.Errorf("kafka fetch %s/%d: %w",
				errs[0].Topic, errs[0].Partition, errs[0].Err)
		}
		k.pending = fetches.Records()
	}

	rec := k.pending[0]
	k.pending = k.pending[1:]

	ev, err := Decode(rec.Value)
	if err != nil {
		// A malformed record is a producer bug, not a mirror
		// invariant breach; skip it loudly.
		k.log.Warnw("malformed feed record skipped",
			"topic", rec.Topic, "offset", rec.Offset, "err", err)
		return k.Next(ctx)
	}
	return ev, nil
}

func (k *KafkaSource) Close() error {
	k.client.Close()
	return nil
}
