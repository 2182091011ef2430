// Package publishers delivers the serialized output document to its
// configured destinations.
package publishers

import (
	"context"
	"time"

	"github.com/minicomputer-shop/blog-harvester/internal/logger"
)

// Logger is the structured logger publishers report through.
type Logger = logger.Logger

// Payload is one serialized document. Every destination receives the same
// Body bytes.
type Payload struct {
	Body       []byte
	Articles   int
	Generated  time.Time
	Checkpoint bool
}

// Kind labels the payload for message attributes.
func (p Payload) Kind() string {
	if p.Checkpoint {
		return "checkpoint"
	}
	return "final"
}

// Publisher delivers payloads to one destination.
type Publisher interface {
	ID() string
	Type() string
	Publish(ctx context.Context, p Payload) error
}

func ensureLogger(log Logger) Logger {
	if log == nil {
		return logger.NopLogger{}
	}
	return log
}
