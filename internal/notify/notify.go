// Package notify combines notification sinks.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"bankbot/internal/log"
	"bankbot/internal/ports"
)

// Target is a named sink.
type Target struct {
	Name string
	Sink ports.NotificationSink
}

// Fanout posts every message to all targets concurrently.
type Fanout struct {
	targets []Target
	logger  *log.Logger
}

var _ ports.NotificationSink = (*Fanout)(nil)

// NewFanout creates a fan-out over targets. Nil sinks are skipped.
func NewFanout(logger *log.Logger, targets ...Target) *Fanout {
	if logger == nil {
		logger = log.Discard()
	}
	f := &Fanout{logger: logger.WithComponent(log.ComponentNotify)}
	for _, t := range targets {
		if t.Sink != nil {
			f.targets = append(f.targets, t)
		}
	}
	return f
}

// PostMessage delivers to every target. One target failing does not stop
// the others; all failures are logged and returned joined.
func (f *Fanout) PostMessage(ctx context.Context, text, channel string) error {
	errs := make([]error, len(f.targets))

	var g errgroup.Group
	for i, t := range f.targets {
		g.Go(func() error {
			start := time.Now()
			err := t.Sink.PostMessage(ctx, text, channel)
			if err != nil {
				f.logger.ErrorContext(ctx, "Sink failed",
					log.FieldSink, t.Name,
					log.FieldOperation, log.OpDeliver,
					log.FieldError, err)
				errs[i] = fmt.Errorf("%s: %w", t.Name, err)
				return nil
			}
			f.logger.DebugContext(ctx, "Sink delivered",
				log.FieldSink, t.Name,
				log.FieldDuration, time.Since(start).Milliseconds())
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

// DryRun logs messages instead of sending them. It stands in for the chat
// sink when no token is configured.
type DryRun struct {
	logger *log.Logger
}

var _ ports.NotificationSink = (*DryRun)(nil)

// NewDryRun creates a log-only sink.
func NewDryRun(logger *log.Logger) *DryRun {
	if logger == nil {
		logger = log.Discard()
	}
	return &DryRun{logger: logger.WithComponent(log.ComponentNotify)}
}

func (d *DryRun) PostMessage(ctx context.Context, text, channel string) error {
	d.logger.InfoContext(ctx, "Dry run, message not sent",
		log.FieldChannel, channel,
		log.FieldMessageBytes, len(text),
		"text", text)
	return nil
}
