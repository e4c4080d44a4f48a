package gateways

import (
	"context"

	"storefront-service/models"
)

// BankTransferGateway is a manual transfer: the customer uploads a
// payment screenshot and transaction reference at checkout, and an
// admin confirms the transfer out of band. Verify therefore always
// answers pending.
type BankTransferGateway struct{}

// NewBankTransferGateway creates a new BankTransferGateway.
func NewBankTransferGateway() *BankTransferGateway {
	return &BankTransferGateway{}
}

func (g *BankTransferGateway) Slug() string { return "bank_transfer" }

func (g *BankTransferGateway) Initiate(_ context.Context, order *models.Order) (*InitiateResult, error) {
	return &InitiateResult{Reference: order.Invoice}, nil
}

func (g *BankTransferGateway) Verify(_ context.Context, _ string) (*VerifyResult, error) {
	return &VerifyResult{Status: VerifyPending}, nil
}
