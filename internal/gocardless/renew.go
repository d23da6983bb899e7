package gocardless

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"bankbot/internal/log"
)

// DefaultRedirectURL is where the bank sends the user after consent.
const DefaultRedirectURL = "https://gocardless.com"

// Requisition links an end-user agreement to a bank consent session.
type Requisition struct {
	ID   string `json:"id"`
	Link string `json:"link"`
}

// CreateEndUserAgreement creates an agreement with institutionID and returns
// its id.
func (c *Client) CreateEndUserAgreement(ctx context.Context, institutionID string) (string, error) {
	payload, err := json.Marshal(map[string]string{"institution_id": institutionID})
	if err != nil {
		return "", fmt.Errorf("failed to encode agreement request: %w", err)
	}

	var resp struct {
		ID string `json:"id"`
	}
	if err := c.request(ctx, http.MethodPost, "agreements/enduser/", payload, &resp); err != nil {
		return "", fmt.Errorf("failed to create end user agreement: %w", err)
	}
	return resp.ID, nil
}

// CreateRequisition starts a consent session for agreementID. The returned
// link must be opened by the account holder.
func (c *Client) CreateRequisition(ctx context.Context, institutionID, agreementID, redirect string) (Requisition, error) {
	if redirect == "" {
		redirect = DefaultRedirectURL
	}
	payload, err := json.Marshal(map[string]string{
		"institution_id": institutionID,
		"agreement":      agreementID,
		"redirect":       redirect,
	})
	if err != nil {
		return Requisition{}, fmt.Errorf("failed to encode requisition request: %w", err)
	}

	var req Requisition
	if err := c.request(ctx, http.MethodPost, "requisitions/", payload, &req); err != nil {
		return Requisition{}, fmt.Errorf("failed to create requisition: %w", err)
	}
	return req, nil
}

// Renew runs the agreement and requisition steps and returns the consent
// link.
func (c *Client) Renew(ctx context.Context, institutionID, redirect string) (Requisition, error) {
	agreementID, err := c.CreateEndUserAgreement(ctx, institutionID)
	if err != nil {
		return Requisition{}, err
	}
	c.logger.InfoContext(ctx, "End user agreement created",
		log.FieldOperation, log.OpRenew,
		"agreement_id", agreementID)

	return c.CreateRequisition(ctx, institutionID, agreementID, redirect)
}
