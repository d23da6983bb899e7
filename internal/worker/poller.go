package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"bankbot/internal/core"
	"bankbot/internal/log"
	"bankbot/internal/ports"
	"bankbot/internal/services"
)

// Processor runs one account cycle. *services.AccountProcessor implements it.
type Processor interface {
	Process(ctx context.Context, account core.Account, state services.AccountState, now time.Time) (services.Outcome, services.AccountState)
}

// Sleeper waits for d or until ctx is done, whichever comes first.
type Sleeper func(ctx context.Context, d time.Duration) error

// SleepContext is the production Sleeper.
func SleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Config holds poller configuration
type Config struct {
	Accounts []core.Account
	Channel  string
	Interval time.Duration
	// Skew is added to every sleep so cycles drift past upstream rate
	// limit windows.
	Skew time.Duration
}

// Poller drives the poll cycle over every configured account. It owns the
// per-account state; nothing else may read or write it.
type Poller struct {
	config    Config
	processor Processor
	sink      ports.NotificationSink
	exporter  ports.TransactionExporter
	journal   ports.DeliveryJournal
	logger    *log.Logger

	now   func() time.Time
	sleep Sleeper
	newID func() string

	states []services.AccountState

	mu        sync.RWMutex
	snapshots []AccountSnapshot
	lastCycle time.Time
}

// Option configures optional Poller collaborators.
type Option func(*Poller)

// WithExporter sets where newly detected transactions are exported.
func WithExporter(e ports.TransactionExporter) Option {
	return func(p *Poller) { p.exporter = e }
}

// WithJournal sets the delivery journal.
func WithJournal(j ports.DeliveryJournal) Option {
	return func(p *Poller) { p.journal = j }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(p *Poller) { p.now = now }
}

// WithSleeper replaces SleepContext.
func WithSleeper(s Sleeper) Option {
	return func(p *Poller) { p.sleep = s }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(p *Poller) { p.logger = l }
}

// NewPoller creates a poller with every account in the uninitialized state.
func NewPoller(config Config, processor Processor, sink ports.NotificationSink, opts ...Option) *Poller {
	p := &Poller{
		config:    config,
		processor: processor,
		sink:      sink,
		logger:    log.Discard(),
		now:       time.Now,
		sleep:     SleepContext,
		newID:     uuid.NewString,
		states:    make([]services.AccountState, len(config.Accounts)),
		snapshots: make([]AccountSnapshot, len(config.Accounts)),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.WithComponent(log.ComponentPoller)
	for i, a := range config.Accounts {
		p.snapshots[i] = AccountSnapshot{Name: a.Name}
	}
	return p
}

// SleepDuration is the wait between the end of a cycle and the next one.
func (p *Poller) SleepDuration() time.Duration {
	return p.config.Interval + p.config.Skew
}

// Run repeats cycles until ctx is cancelled. It only returns ctx's error.
func (p *Poller) Run(ctx context.Context) error {
	p.logger.InfoContext(ctx, "Poller started",
		"accounts", len(p.config.Accounts),
		log.FieldSleep, p.SleepDuration().String())

	for {
		if err := ctx.Err(); err != nil {
			p.logger.InfoContext(ctx, "Poller stopped", "reason", err)
			return err
		}

		cycleCtx := log.WithCycleID(ctx, p.newID())
		text, err := p.Step(cycleCtx)
		switch {
		case err != nil && ctx.Err() != nil:
			p.logger.InfoContext(cycleCtx, "Cycle abandoned", "reason", ctx.Err())
			return ctx.Err()
		case err != nil:
			p.logger.ErrorContext(cycleCtx, "Caught error in poll cycle", log.FieldError, err)
		default:
			p.deliver(cycleCtx, text)
		}

		d := p.SleepDuration()
		p.logger.DebugContext(cycleCtx, "Sleeping", log.FieldSleep, d.String())
		if err := p.sleep(ctx, d); err != nil {
			p.logger.InfoContext(ctx, "Poller stopped", "reason", err)
			return err
		}
	}
}

// Step runs one cycle over all accounts, in configured order, and returns
// the message to deliver (possibly empty). A panic anywhere in the cycle is
// recovered and returned as an error; accounts finished before it keep
// their updated state.
func (p *Poller) Step(ctx context.Context) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("unexpected error in cycle: %v", r)
			p.logger.ErrorContext(ctx, "Recovered from panic in poll cycle",
				log.FieldError, err,
				"stack", string(debug.Stack()))
		}
	}()

	start := p.now()
	var b strings.Builder
	for i, account := range p.config.Accounts {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		outcome, next := p.processor.Process(ctx, account, p.states[i], p.now())
		p.states[i] = next
		if outcome.Kind == services.OutcomeCancelled {
			return "", ctx.Err()
		}
		p.publishSnapshot(i, outcome, next)

		b.WriteString(outcome.Text)
		if len(outcome.NewTransactions) > 0 {
			p.export(ctx, account, outcome.NewTransactions)
		}
	}

	p.mu.Lock()
	p.lastCycle = start
	p.mu.Unlock()

	p.logger.InfoContext(ctx, "Cycle complete",
		log.FieldMessageBytes, b.Len(),
		log.FieldDuration, p.now().Sub(start).Milliseconds())
	return b.String(), nil
}

// State returns a copy of the state of the account at index i.
func (p *Poller) State(i int) services.AccountState {
	return p.states[i]
}

func (p *Poller) deliver(ctx context.Context, text string) {
	if text == "" {
		p.logger.DebugContext(ctx, "Nothing to deliver")
		return
	}
	if p.sink == nil {
		p.logger.WarnContext(ctx, "No notification sink configured, dropping message")
		return
	}

	err := p.sink.PostMessage(ctx, text, p.config.Channel)
	if err != nil {
		p.logger.ErrorContext(ctx, "Failed to deliver message",
			log.FieldChannel, p.config.Channel,
			log.FieldError, err)
	} else {
		p.logger.InfoContext(ctx, "Message delivered",
			log.FieldChannel, p.config.Channel,
			log.FieldMessageBytes, len(text))
	}
	p.record(ctx, text, err)
}

func (p *Poller) record(ctx context.Context, text string, deliveryErr error) {
	if p.journal == nil {
		return
	}
	d := ports.Delivery{
		CycleID:   log.CycleID(ctx),
		Channel:   p.config.Channel,
		Text:      text,
		Delivered: deliveryErr == nil,
		At:        p.now(),
	}
	if deliveryErr != nil {
		d.Error = deliveryErr.Error()
	}
	if err := p.journal.RecordDelivery(ctx, d); err != nil {
		p.logger.ErrorContext(ctx, "Failed to record delivery", log.FieldError, err)
	}
}

func (p *Poller) export(ctx context.Context, account core.Account, txs []core.Transaction) {
	if p.exporter == nil {
		return
	}
	if err := p.exporter.Export(ctx, account, txs); err != nil {
		p.logger.ErrorContext(ctx, "Failed to export transactions",
			log.FieldAccount, account.Name,
			log.FieldOperation, log.OpExport,
			log.FieldError, err)
	}
}

// ErrNoAccounts is returned by Validate for an empty account list.
var ErrNoAccounts = errors.New("no accounts configured")

// Validate checks the poller can run.
func (c Config) Validate() error {
	if len(c.Accounts) == 0 {
		return ErrNoAccounts
	}
	if c.Interval <= 0 {
		return fmt.Errorf("invalid interval %v", c.Interval)
	}
	if c.Skew < 0 {
		return fmt.Errorf("invalid skew %v", c.Skew)
	}
	return nil
}
