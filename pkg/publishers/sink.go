package publishers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/minicomputer-shop/blog-harvester/internal/domain"
)

var (
	ErrNoDestinations     = errors.New("no enabled destinations")
	ErrPrimaryFailed      = errors.New("primary destination failed")
	ErrPrimaryNotReadable = errors.New("primary destination cannot be read back")
)

// Destination is a built publisher together with its role in the sink.
type Destination struct {
	Publisher  Publisher
	Primary    bool
	Checkpoint bool
}

// Result is the outcome of one destination.
type Result struct {
	ID      string
	Type    string
	Primary bool
	Err     error
}

// Report collects the per-destination results of a publish.
type Report struct {
	Results []Result
	Bytes   int
}

// Failed counts destinations that returned an error.
func (r Report) Failed() int {
	n := 0
	for _, res := range r.Results {
		if res.Err != nil {
			n++
		}
	}
	return n
}

// documentReader is implemented by destinations that can return the document
// they hold.
type documentReader interface {
	Load(ctx context.Context) (*domain.OutputDocument, error)
}

// Sink serializes a document once and fans it out to every destination.
type Sink struct {
	dests []Destination
	log   Logger
}

// NewSink builds a sink. When no destination is marked primary the first one
// becomes primary.
func NewSink(dests []Destination, log Logger) (*Sink, error) {
	if len(dests) == 0 {
		return nil, ErrNoDestinations
	}

	out := make([]Destination, len(dests))
	copy(out, dests)

	primary := -1
	for i, d := range out {
		if d.Primary {
			if primary >= 0 {
				return nil, fmt.Errorf("destinations %q and %q both marked primary", out[primary].Publisher.ID(), d.Publisher.ID())
			}
			primary = i
		}
	}
	if primary < 0 {
		out[0].Primary = true
	}

	return &Sink{dests: out, log: ensureLogger(log)}, nil
}

// BuildSink instantiates the enabled publishers of cfgs with reg.
func BuildSink(ctx context.Context, reg Registry, cfgs []PublisherConfig, log Logger) (*Sink, error) {
	enabled := make([]PublisherConfig, 0, len(cfgs))
	for _, cfg := range cfgs {
		if cfg.EnabledValue() {
			enabled = append(enabled, cfg)
		}
	}
	if len(enabled) == 0 {
		return nil, ErrNoDestinations
	}

	pubs, err := BuildAll(ctx, reg, enabled, log)
	if err != nil {
		return nil, err
	}

	dests := make([]Destination, len(pubs))
	for i, pub := range pubs {
		dests[i] = Destination{
			Publisher:  pub,
			Primary:    enabled[i].Primary,
			Checkpoint: enabled[i].CheckpointValue(),
		}
	}
	return NewSink(dests, log)
}

// Encode serializes the document with two-space indentation.
func Encode(doc domain.OutputDocument) ([]byte, error) {
	if doc.Articles == nil {
		doc.Articles = []domain.Article{}
	}
	body, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return body, nil
}

// Primary returns the primary destination.
func (s *Sink) Primary() Destination {
	for _, d := range s.dests {
		if d.Primary {
			return d
		}
	}
	return s.dests[0]
}

// Publish delivers doc to every destination. Failures of secondary
// destinations are only reported; the returned error wraps ErrPrimaryFailed
// when the primary destination failed.
func (s *Sink) Publish(ctx context.Context, doc domain.OutputDocument) (Report, error) {
	body, err := Encode(doc)
	if err != nil {
		return Report{}, err
	}
	payload := Payload{Body: body, Articles: len(doc.Articles), Generated: doc.Generated}

	report := s.fanOut(ctx, s.dests, payload)
	for _, res := range report.Results {
		fields := map[string]any{
			"publisher": res.ID,
			"type":      res.Type,
			"primary":   res.Primary,
			"bytes":     report.Bytes,
		}
		if res.Err != nil {
			fields["error"] = res.Err.Error()
			s.log.ErrorObj("destination failed", "publish_failed", fields)
			continue
		}
		s.log.InfoObj("destination updated", "publish_succeeded", fields)
	}

	for _, res := range report.Results {
		if res.Primary && res.Err != nil {
			return report, fmt.Errorf("%w: %s: %w", ErrPrimaryFailed, res.ID, res.Err)
		}
	}
	return report, nil
}

// Checkpoint writes an in-progress document to checkpoint destinations.
// Errors are logged and never fail the run.
func (s *Sink) Checkpoint(ctx context.Context, doc domain.OutputDocument) {
	var dests []Destination
	for _, d := range s.dests {
		if d.Checkpoint {
			dests = append(dests, d)
		}
	}
	if len(dests) == 0 {
		return
	}

	body, err := Encode(doc)
	if err != nil {
		s.log.WarnObj("checkpoint encode failed", "checkpoint_failed", map[string]any{"error": err.Error()})
		return
	}
	payload := Payload{Body: body, Articles: len(doc.Articles), Generated: doc.Generated, Checkpoint: true}

	report := s.fanOut(ctx, dests, payload)
	for _, res := range report.Results {
		if res.Err != nil {
			s.log.WarnObj("checkpoint write failed", "checkpoint_failed", map[string]any{
				"publisher": res.ID,
				"error":     res.Err.Error(),
			})
		}
	}
}

// LoadPrimary reads the document held by the primary destination.
func (s *Sink) LoadPrimary(ctx context.Context) (*domain.OutputDocument, error) {
	primary := s.Primary()
	reader, ok := primary.Publisher.(documentReader)
	if !ok {
		return nil, fmt.Errorf("%w: %s (%s)", ErrPrimaryNotReadable, primary.Publisher.ID(), primary.Publisher.Type())
	}
	return reader.Load(ctx)
}

// Close releases destinations that hold connections.
func (s *Sink) Close() error {
	var errs []error
	for _, d := range s.dests {
		if c, ok := d.Publisher.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close %s: %w", d.Publisher.ID(), err))
			}
		}
	}
	return errors.Join(errs...)
}

// fanOut publishes payload concurrently; each goroutine owns one result slot.
func (s *Sink) fanOut(ctx context.Context, dests []Destination, payload Payload) Report {
	results := make([]Result, len(dests))

	var wg sync.WaitGroup
	for i, d := range dests {
		wg.Add(1)
		go func(idx int, d Destination) {
			defer wg.Done()
			results[idx] = Result{
				ID:      d.Publisher.ID(),
				Type:    d.Publisher.Type(),
				Primary: d.Primary,
				Err:     d.Publisher.Publish(ctx, payload),
			}
		}(i, d)
	}
	wg.Wait()

	return Report{Results: results, Bytes: len(payload.Body)}
}
