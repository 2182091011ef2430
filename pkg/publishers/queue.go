package publishers

import (
	"context"
	"fmt"
	"io"
)

// queueSender abstracts provider-specific queue senders.
type queueSender interface {
	Send(ctx context.Context, p Payload) error
}

type senderFactory func(ctx context.Context, cfg *QueuePublisherConfig, log Logger) (queueSender, error)

var queueSenders = map[string]senderFactory{
	QueueProviderAWSSQS: func(ctx context.Context, cfg *QueuePublisherConfig, log Logger) (queueSender, error) {
		return newAWSSQSSender(ctx, cfg.AWS, log)
	},
	QueueProviderAWSSNS: func(ctx context.Context, cfg *QueuePublisherConfig, log Logger) (queueSender, error) {
		return newAWSSNSSender(ctx, cfg.SNS, log)
	},
	QueueProviderGCP: func(ctx context.Context, cfg *QueuePublisherConfig, log Logger) (queueSender, error) {
		return newGCPPubSubSender(ctx, cfg.GCP, log)
	},
}

// queuePublisher hands the document to a cloud queue provider.
type queuePublisher struct {
	id       string
	provider string
	sender   queueSender
	log      Logger
}

func newQueuePublisher(ctx context.Context, cfg PublisherConfig, log Logger) (Publisher, error) {
	if cfg.Queue == nil {
		return nil, fmt.Errorf("publisher %q missing queue configuration", cfg.ID)
	}

	factory, ok := queueSenders[cfg.Queue.Provider]
	if !ok {
		if cfg.Queue.Provider == QueueProviderAzure {
			return nil, fmt.Errorf("queue provider %q not implemented", cfg.Queue.Provider)
		}
		return nil, fmt.Errorf("queue provider %q is not supported", cfg.Queue.Provider)
	}

	sender, err := factory(ctx, cfg.Queue, log)
	if err != nil {
		return nil, err
	}
	return &queuePublisher{
		id:       cfg.ID,
		provider: cfg.Queue.Provider,
		sender:   sender,
		log:      ensureLogger(log),
	}, nil
}

func (p *queuePublisher) ID() string   { return p.id }
func (p *queuePublisher) Type() string { return TypeQueue }

// Publish forwards the payload to the configured queue provider.
func (p *queuePublisher) Publish(ctx context.Context, payload Payload) error {
	if err := p.sender.Send(ctx, payload); err != nil {
		return fmt.Errorf("queue provider %s send failed: %w", p.provider, err)
	}
	p.log.DebugObj("document queued", "publisher_queue_delivery", map[string]any{
		"publisher": p.id,
		"provider":  p.provider,
		"kind":      payload.Kind(),
	})
	return nil
}

// Close releases provider clients that hold connections.
func (p *queuePublisher) Close() error {
	if c, ok := p.sender.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
