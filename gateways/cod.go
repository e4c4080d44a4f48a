package gateways

import (
	"context"

	"storefront-service/models"
)

// CODGateway is cash on delivery. There is nothing to redirect to and
// nothing to verify online; payment completes when an admin marks the
// order paid after collection.
type CODGateway struct{}

// NewCODGateway creates a new CODGateway.
func NewCODGateway() *CODGateway {
	return &CODGateway{}
}

func (g *CODGateway) Slug() string { return "cod" }

func (g *CODGateway) Initiate(_ context.Context, order *models.Order) (*InitiateResult, error) {
	return &InitiateResult{Reference: order.Invoice}, nil
}

func (g *CODGateway) Verify(_ context.Context, _ string) (*VerifyResult, error) {
	return &VerifyResult{Status: VerifyPending}, nil
}
