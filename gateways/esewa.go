package gateways

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"storefront-service/errors"
	"storefront-service/models"
)

// EsewaGateway implements Gateway for the eSewa ePay v2 form API. The
// client POSTs the signed PaymentData to PaymentURL; eSewa hosts the
// payment page. The order total is sent as-is with tax_amount zero,
// since tax is already folded into total_amount at checkout.
type EsewaGateway struct {
	merchantCode string
	secretKey    string
	paymentURL   string
	statusURL    string
	successURL   string
	failureURL   string
	httpClient   *http.Client
}

// NewEsewaGateway creates a new EsewaGateway.
func NewEsewaGateway(merchantCode, secretKey, paymentURL, statusURL, successURL, failureURL string) *EsewaGateway {
	return &EsewaGateway{
		merchantCode: merchantCode,
		secretKey:    secretKey,
		paymentURL:   paymentURL,
		statusURL:    statusURL,
		successURL:   successURL,
		failureURL:   failureURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (g *EsewaGateway) Slug() string { return "esewa" }

type esewaStatusResponse struct {
	Status string `json:"status"`
	RefID  string `json:"ref_id"`
}

// Initiate builds the signed form payload for the eSewa payment page.
// The signature is HMAC-SHA256 over the signed fields in declaration
// order, base64 encoded.
func (g *EsewaGateway) Initiate(_ context.Context, order *models.Order) (*InitiateResult, error) {
	if g.merchantCode == "" || g.secretKey == "" {
		return nil, errors.ErrPaymentNotConfigured
	}

	transactionUUID := fmt.Sprintf("ORDER-%s-%d", order.ID, time.Now().Unix())
	totalAmount := formatAmount(order.TotalAmount)

	data := map[string]string{
		"amount":                  totalAmount,
		"tax_amount":              "0",
		"total_amount":            totalAmount,
		"transaction_uuid":        transactionUUID,
		"product_code":            g.merchantCode,
		"product_service_charge":  "0",
		"product_delivery_charge": "0",
		"success_url":             fmt.Sprintf("%s/%s", g.successURL, order.ID),
		"failure_url":             fmt.Sprintf("%s/%s", g.failureURL, order.ID),
		"signed_field_names":      "total_amount,transaction_uuid,product_code",
	}
	data["signature"] = g.sign(totalAmount, transactionUUID)

	return &InitiateResult{
		Reference:   MakeReference(transactionUUID, order.TotalAmount),
		PaymentURL:  g.paymentURL,
		PaymentData: data,
	}, nil
}

// Verify queries the eSewa transaction status endpoint. The reference
// encodes both transaction UUID and amount as "uuid|amount" because
// eSewa requires the original total to look a transaction up.
func (g *EsewaGateway) Verify(ctx context.Context, reference string) (*VerifyResult, error) {
	if g.merchantCode == "" || g.secretKey == "" {
		return nil, errors.ErrPaymentNotConfigured
	}

	transactionUUID, totalAmount := splitReference(reference)

	q := url.Values{}
	q.Set("product_code", g.merchantCode)
	q.Set("total_amount", totalAmount)
	q.Set("transaction_uuid", transactionUUID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.statusURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, errors.New(http.StatusGatewayTimeout, "Payment gateway timed out", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.New(http.StatusBadGateway, "Payment gateway error", err)
	}

	var status esewaStatusResponse
	if err := json.Unmarshal(respBytes, &status); err != nil {
		return nil, errors.New(http.StatusBadGateway, "Payment gateway error", fmt.Errorf("decode response: %w", err))
	}

	switch status.Status {
	case "COMPLETE":
		return &VerifyResult{Status: VerifyCompleted, ExternalRef: status.RefID}, nil
	case "PENDING", "AMBIGUOUS":
		return &VerifyResult{Status: VerifyPending, ExternalRef: status.RefID}, nil
	default:
		return &VerifyResult{Status: VerifyFailed, ExternalRef: status.RefID}, nil
	}
}

func (g *EsewaGateway) sign(totalAmount, transactionUUID string) string {
	msg := fmt.Sprintf("total_amount=%s,transaction_uuid=%s,product_code=%s",
		totalAmount, transactionUUID, g.merchantCode)
	mac := hmac.New(sha256.New, []byte(g.secretKey))
	mac.Write([]byte(msg))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// MakeReference packs the transaction UUID and amount into the single
// reference string stored on the payment record.
func MakeReference(transactionUUID string, totalAmount float64) string {
	return transactionUUID + "|" + formatAmount(totalAmount)
}

func splitReference(ref string) (transactionUUID, totalAmount string) {
	for i := len(ref) - 1; i >= 0; i-- {
		if ref[i] == '|' {
			return ref[:i], ref[i+1:]
		}
	}
	return ref, ""
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
