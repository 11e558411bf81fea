// Package kafka decodes Kafka records as ingest.Envelope JSON and flushes
// the rows they carry into the store, using franz-go as the consumer
// client.
package kafka

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/pkg/sasl"
	"github.com/twmb/franz-go/pkg/sasl/plain"
	"github.com/twmb/franz-go/pkg/sasl/scram"

	"segstore/internal/flush"
	"segstore/internal/ingest"
	"segstore/internal/keytype"
	"segstore/internal/logging"
)

// SASLConfig holds SASL authentication parameters.
type SASLConfig struct {
	Mechanism string // "plain", "scram-sha-256", "scram-sha-512"
	User      string
	Password  string
}

// Config holds Kafka ingester configuration.
type Config struct {
	ID      string
	Brokers []string
	Topic   string
	Group   string
	TLS     bool
	SASL    *SASLConfig
	Logger  *slog.Logger
}

// Ingester consumes ingest.Envelope batches from a Kafka topic and
// flushes each one's rows through a flush.Protocol.
type Ingester struct {
	cfg      Config
	protocol *flush.Protocol
	keyType  keytype.KeyType
	logger   *slog.Logger
}

// New creates a Kafka ingester that flushes decoded rows through
// protocol, encoding keys with kt.
func New(cfg Config, protocol *flush.Protocol, kt keytype.KeyType) *Ingester {
	return &Ingester{
		cfg:      cfg,
		protocol: protocol,
		keyType:  kt,
		logger:   logging.Default(cfg.Logger).With("component", "ingest", "type", "kafka"),
	}
}

// Run connects to Kafka and polls messages until ctx is cancelled.
func (ing *Ingester) Run(ctx context.Context) error {
	opts := []kgo.Opt{
		kgo.SeedBrokers(ing.cfg.Brokers...),
		kgo.ConsumeTopics(ing.cfg.Topic),
		kgo.ConsumerGroup(ing.cfg.Group),
	}

	if ing.cfg.TLS {
		opts = append(opts, kgo.DialTLSConfig(&tls.Config{
			MinVersion: tls.VersionTLS12,
		}))
	}

	if ing.cfg.SASL != nil {
		mech, err := buildSASLMechanism(ing.cfg.SASL)
		if err != nil {
			return err
		}
		opts = append(opts, kgo.SASL(mech))
	}

	client, err := kgo.NewClient(opts...)
	if err != nil {
		return fmt.Errorf("kafka client: %w", err)
	}
	defer client.Close()

	ing.logger.Info("kafka consumer started",
		"brokers", ing.cfg.Brokers,
		"topic", ing.cfg.Topic,
		"group", ing.cfg.Group,
	)

	for {
		fetches := client.PollFetches(ctx)
		if ctx.Err() != nil {
			ing.logger.Info("kafka consumer stopping")
			_ = client.CommitUncommittedOffsets(context.Background())
			return nil
		}

		if errs := fetches.Errors(); len(errs) > 0 {
			for _, e := range errs {
				ing.logger.Warn("kafka fetch error",
					"topic", e.Topic,
					"partition", e.Partition,
					"error", e.Err,
				)
			}
		}

		fetches.EachRecord(func(rec *kgo.Record) {
			if err := ing.handleRecord(ctx, rec.Value); err != nil {
				ing.logger.Warn("kafka record dropped", "topic", rec.Topic, "offset", rec.Offset, "error", err)
			}
		})
	}
}

func (ing *Ingester) handleRecord(ctx context.Context, value []byte) error {
	var env ingest.Envelope
	if err := json.Unmarshal(value, &env); err != nil {
		return fmt.Errorf("decode envelope: %w", err)
	}

	batch, err := ingest.BuildBatch(env.Rows, ing.keyType)
	if err != nil {
		return fmt.Errorf("build batch: %w", err)
	}
	if batch.NumRows == 0 {
		return nil
	}

	for {
		ok, err := ing.protocol.Flush(ctx, env.Partition, env.Segment, batch)
		if err != nil {
			return fmt.Errorf("flush %s/%s: %w", env.Partition, env.Segment, err)
		}
		if ok {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func buildSASLMechanism(cfg *SASLConfig) (sasl.Mechanism, error) {
	switch cfg.Mechanism {
	case "plain":
		return plain.Auth{
			User: cfg.User,
			Pass: cfg.Password,
		}.AsMechanism(), nil
	case "scram-sha-256":
		return scram.Auth{
			User: cfg.User,
			Pass: cfg.Password,
		}.AsSha256Mechanism(), nil
	case "scram-sha-512":
		return scram.Auth{
			User: cfg.User,
			Pass: cfg.Password,
		}.AsSha512Mechanism(), nil
	default:
		return nil, fmt.Errorf("unsupported SASL mechanism: %q", cfg.Mechanism)
	}
}
