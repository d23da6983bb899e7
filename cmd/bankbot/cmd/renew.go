package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"bankbot/internal/config"
	"bankbot/internal/gocardless"
	"bankbot/internal/log"
)

type renewOptions struct {
	institutionID string
	redirect      string
}

func newRenewCmd() *cobra.Command {
	opts := &renewOptions{}

	c := &cobra.Command{
		Use:   "renew",
		Short: "Create a new bank consent and print the link to approve it",
		Long: `Bank consents expire (usually after 90 days). renew creates an end user
agreement and a requisition for the institution and prints the link the
account holder must open to grant access again.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRenew(cmd, opts)
		},
	}

	c.Flags().StringVar(&opts.institutionID, "institution-id", "", "GoCardless institution id, e.g. REVOLUT_REVOGB21")
	c.Flags().StringVar(&opts.redirect, "redirect", gocardless.DefaultRedirectURL, "URL the bank redirects to after consent")
	_ = c.MarkFlagRequired("institution-id")
	return c
}

func runRenew(cmd *cobra.Command, opts *renewOptions) error {
	cfg := config.Load()
	if err := cfg.ValidateGoCardless(); err != nil {
		return err
	}

	lc := log.DefaultConfig()
	lc.Output = cmd.ErrOrStderr()
	if level, err := log.ParseLevel(cfg.LogLevel); err == nil {
		lc.Level = level
	}
	logger := log.New(lc)

	client := gocardless.NewClient(gocardless.Config{
		SecretID:  cfg.GoCardlessSecretID,
		SecretKey: cfg.GoCardlessSecretKey,
		BaseURL:   cfg.GoCardlessBaseURL,
	}, gocardless.WithLogger(logger))

	req, err := client.Renew(cmd.Context(), opts.institutionID, opts.redirect)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Requisition %s created. Open this link to grant access:\n%s\n", req.ID, req.Link)
	return nil
}
