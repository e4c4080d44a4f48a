package gateways

import (
	"context"

	"storefront-service/errors"
	"storefront-service/models"
)

// VerifyStatus is the outcome of asking a gateway about a payment.
type VerifyStatus string

const (
	VerifyCompleted VerifyStatus = "completed"
	VerifyPending   VerifyStatus = "pending"
	VerifyFailed    VerifyStatus = "failed"
)

// InitiateResult is what a gateway hands back when a payment starts.
// Hosted gateways return a RedirectURL; form-post gateways return a
// PaymentURL plus the signed PaymentData the client must submit.
type InitiateResult struct {
	Reference   string            `json:"reference"`
	RedirectURL string            `json:"redirect_url,omitempty"`
	PaymentURL  string            `json:"payment_url,omitempty"`
	PaymentData map[string]string `json:"payment_data,omitempty"`
}

// VerifyResult is the gateway's answer for one payment reference.
type VerifyResult struct {
	Status      VerifyStatus `json:"status"`
	ExternalRef string       `json:"external_ref,omitempty"`
}

// Gateway abstracts one payment method. Implementations must never
// report VerifyFailed on a transport error: an unreachable gateway
// means the answer is unknown, not that the customer did not pay.
type Gateway interface {
	Slug() string
	Initiate(ctx context.Context, order *models.Order) (*InitiateResult, error)
	Verify(ctx context.Context, reference string) (*VerifyResult, error)
}

// Registry holds the configured gateways keyed by slug.
type Registry struct {
	gateways map[string]Gateway
}

// NewRegistry creates a registry from the given gateways.
func NewRegistry(gws ...Gateway) *Registry {
	r := &Registry{gateways: make(map[string]Gateway)}
	for _, g := range gws {
		r.gateways[g.Slug()] = g
	}
	return r
}

// Get returns the gateway for a slug.
func (r *Registry) Get(slug string) (Gateway, error) {
	g, ok := r.gateways[slug]
	if !ok {
		return nil, errors.ErrPaymentNotConfigured
	}
	return g, nil
}

// Slugs returns the configured gateway slugs.
func (r *Registry) Slugs() []string {
	slugs := make([]string, 0, len(r.gateways))
	for slug := range r.gateways {
		slugs = append(slugs, slug)
	}
	return slugs
}
