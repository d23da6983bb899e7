package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"bankbot/internal/amqp"
	"bankbot/internal/cli"
	"bankbot/internal/config"
	"bankbot/internal/gocardless"
	bhttp "bankbot/internal/http"
	"bankbot/internal/log"
	"bankbot/internal/notify"
	"bankbot/internal/ports"
	"bankbot/internal/services"
	"bankbot/internal/sheets/google"
	"bankbot/internal/slack"
	"bankbot/internal/worker"
)

type botOptions struct {
	accounts []string
	channel  string
	interval time.Duration
}

func newBotCmd() *cobra.Command {
	opts := &botOptions{}

	c := &cobra.Command{
		Use:   "bot",
		Short: "Poll accounts and post new transactions until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBot(cmd, opts)
		},
	}

	bindBotFlags(c, opts)
	return c
}

func bindBotFlags(c *cobra.Command, opts *botOptions) {
	c.Flags().StringSliceVar(&opts.accounts, "accounts", nil, "accounts as name:accountId, comma separated (overrides BANKBOT_ACCOUNTS)")
	c.Flags().StringVar(&opts.channel, "channel", "", "Slack channel (overrides SLACK_CHANNEL)")
	c.Flags().DurationVar(&opts.interval, "interval", 0, "base poll interval (overrides POLL_INTERVAL)")
}

// apply copies the flags the user set over the environment values.
func (o *botOptions) apply(cmd *cobra.Command) func(*config.Config) {
	return func(cfg *config.Config) {
		if cmd.Flags().Changed("accounts") {
			cfg.SetAccounts(o.accounts)
		}
		if cmd.Flags().Changed("channel") {
			cfg.SlackChannel = o.channel
		}
		if cmd.Flags().Changed("interval") {
			cfg.PollInterval = o.interval
		}
	}
}

func runBot(cmd *cobra.Command, opts *botOptions) error {
	cfg, err := cli.LoadAndValidateConfig(opts.apply(cmd))
	if err != nil {
		return err
	}
	logger, err := cli.SetupLogger(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := cli.GracefulShutdown(logger)
	defer cancel()

	filter, err := services.NewLabelFilter(cfg.IgnoreInSpentEarned)
	if err != nil {
		return err
	}
	source := gocardless.NewClient(gocardless.Config{
		SecretID:   cfg.GoCardlessSecretID,
		SecretKey:  cfg.GoCardlessSecretKey,
		BaseURL:    cfg.GoCardlessBaseURL,
		DailyLimit: cfg.GoCardlessDailyLimit,
	}, gocardless.WithLogger(logger))
	processor := services.NewAccountProcessor(source, filter, logger)

	sink, closeSink, err := buildSink(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeSink()

	pollerOpts := []worker.Option{worker.WithLogger(logger)}
	var serverOpts []bhttp.Option

	journal, err := cli.InitJournal(logger, cfg.JournalDBPath)
	if err != nil {
		return err
	}
	if journal != nil {
		defer journal.Close()
		pollerOpts = append(pollerOpts, worker.WithJournal(journal))
		serverOpts = append(serverOpts, bhttp.WithDeliveries(journal))
	}

	if cfg.GoogleSpreadsheetID != "" {
		exporter, err := google.NewFromEnv(ctx, cfg.GoogleSpreadsheetID, cfg.GoogleSheetName, logger)
		if err != nil {
			return fmt.Errorf("initialize sheets export: %w", err)
		}
		if err := exporter.EnsureHeader(ctx); err != nil {
			logger.Warn("Could not write sheet header", log.FieldError, err)
		}
		pollerOpts = append(pollerOpts, worker.WithExporter(exporter))
	}

	poller := worker.NewPoller(worker.Config{
		Accounts: cfg.Accounts,
		Channel:  cfg.SlackChannel,
		Interval: cfg.PollInterval,
		Skew:     cfg.PollSkew,
	}, processor, sink, pollerOpts...)

	logger.Info("Starting bankbot",
		log.FieldOperation, log.OpStartup,
		"version", version,
		"accounts", len(cfg.Accounts),
		log.FieldChannel, cfg.SlackChannel,
		log.FieldSleep, cfg.SleepDuration().String())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := poller.Run(gctx); !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	if cfg.StatusAddr != "" {
		srv := bhttp.NewServer(cfg.StatusAddr, poller, logger, serverOpts...)
		g.Go(func() error { return srv.Run(gctx) })
	}

	err = g.Wait()
	logger.Info("bankbot stopped", log.FieldOperation, log.OpShutdown)
	return err
}

// buildSink returns Slack (or the dry-run sink without a token), fanned out
// to the AMQP publisher when one is configured.
func buildSink(ctx context.Context, cfg *config.Config, logger *log.Logger) (ports.NotificationSink, func(), error) {
	var chat notify.Target
	if cfg.SlackAuthToken == "" {
		logger.Warn("SLACK_AUTH_TOKEN not set, messages will only be logged")
		chat = notify.Target{Name: "dry-run", Sink: notify.NewDryRun(logger)}
	} else {
		chat = notify.Target{Name: "slack", Sink: slack.NewClient(cfg.SlackAuthToken, "", logger)}
	}

	if cfg.AMQPURL == "" {
		return chat.Sink, func() {}, nil
	}

	publisher := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPRoutingKey, logger)
	if err := publisher.Connect(ctx); err != nil {
		// the publisher reconnects on the next message
		logger.Warn("AMQP not reachable at startup", log.FieldError, err)
	}
	fanout := notify.NewFanout(logger, chat, notify.Target{Name: "amqp", Sink: publisher})
	return fanout, func() { _ = publisher.Close() }, nil
}
