package gateways

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"storefront-service/errors"
	"storefront-service/models"
)

// KhaltiGateway implements Gateway for the Khalti ePayment API.
// Reference: https://docs.khalti.com/khalti-epayment/
type KhaltiGateway struct {
	secretKey  string
	baseURL    string
	returnURL  string
	websiteURL string
	httpClient *http.Client
}

// NewKhaltiGateway creates a new KhaltiGateway. baseURL points at the
// Khalti API root, e.g. https://khalti.com/api/v2.
func NewKhaltiGateway(secretKey, baseURL, returnURL, websiteURL string) *KhaltiGateway {
	return &KhaltiGateway{
		secretKey:  secretKey,
		baseURL:    baseURL,
		returnURL:  returnURL,
		websiteURL: websiteURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (g *KhaltiGateway) Slug() string { return "khalti" }

// ---- Khalti API request/response structs ----

type khaltiCustomerInfo struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

type khaltiInitiateRequest struct {
	ReturnURL         string             `json:"return_url"`
	WebsiteURL        string             `json:"website_url"`
	Amount            int64              `json:"amount"` // paisa
	PurchaseOrderID   string             `json:"purchase_order_id"`
	PurchaseOrderName string             `json:"purchase_order_name"`
	CustomerInfo      khaltiCustomerInfo `json:"customer_info"`
}

type khaltiInitiateResponse struct {
	Pidx       string `json:"pidx"`
	PaymentURL string `json:"payment_url"`
	Detail     string `json:"detail"`
	ErrorKey   string `json:"error_key"`
}

type khaltiLookupRequest struct {
	Pidx string `json:"pidx"`
}

type khaltiLookupResponse struct {
	Pidx          string `json:"pidx"`
	Status        string `json:"status"`
	TransactionID string `json:"transaction_id"`
	Detail        string `json:"detail"`
}

// Initiate registers the payment with Khalti and returns the hosted
// payment page URL. The amount is sent in paisa.
func (g *KhaltiGateway) Initiate(ctx context.Context, order *models.Order) (*InitiateResult, error) {
	if g.secretKey == "" {
		return nil, errors.ErrPaymentNotConfigured
	}

	reqBody := khaltiInitiateRequest{
		ReturnURL:         fmt.Sprintf("%s/%s", g.returnURL, order.ID),
		WebsiteURL:        g.websiteURL,
		Amount:            int64(math.Round(order.TotalAmount * 100)),
		PurchaseOrderID:   order.Invoice,
		PurchaseOrderName: "Order " + order.Invoice,
		CustomerInfo: khaltiCustomerInfo{
			Name:  order.RecipientName,
			Phone: order.Phone,
		},
	}

	var resp khaltiInitiateResponse
	if err := g.doRequest(ctx, "/epayment/initiate/", reqBody, &resp); err != nil {
		return nil, err
	}
	if resp.Pidx == "" {
		msg := resp.Detail
		if msg == "" {
			msg = resp.ErrorKey
		}
		return nil, errors.New(http.StatusBadGateway, "Payment gateway error", fmt.Errorf("khalti initiate: %s", msg))
	}

	return &InitiateResult{
		Reference:   resp.Pidx,
		RedirectURL: resp.PaymentURL,
	}, nil
}

// Verify looks up the payment by pidx. Khalti reports "Completed" for
// settled payments; "Pending" and "Initiated" mean the customer has not
// finished yet. Anything else (Expired, User canceled, Refunded) is a
// definitive failure.
func (g *KhaltiGateway) Verify(ctx context.Context, reference string) (*VerifyResult, error) {
	if g.secretKey == "" {
		return nil, errors.ErrPaymentNotConfigured
	}

	var resp khaltiLookupResponse
	if err := g.doRequest(ctx, "/epayment/lookup/", khaltiLookupRequest{Pidx: reference}, &resp); err != nil {
		return nil, err
	}

	switch resp.Status {
	case "Completed":
		return &VerifyResult{Status: VerifyCompleted, ExternalRef: resp.TransactionID}, nil
	case "Pending", "Initiated":
		return &VerifyResult{Status: VerifyPending, ExternalRef: resp.TransactionID}, nil
	default:
		return &VerifyResult{Status: VerifyFailed, ExternalRef: resp.TransactionID}, nil
	}
}

// doRequest posts JSON to the Khalti API. Transport failures come back
// as gateway timeout errors so callers never mistake an unreachable
// gateway for a declined payment.
func (g *KhaltiGateway) doRequest(ctx context.Context, path string, body interface{}, out interface{}) error {
	b, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, bytes.NewReader(b))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Key "+g.secretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return errors.New(http.StatusGatewayTimeout, "Payment gateway timed out", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.New(http.StatusBadGateway, "Payment gateway error", err)
	}

	if resp.StatusCode >= 500 {
		return errors.New(http.StatusBadGateway, "Payment gateway error",
			fmt.Errorf("khalti API status %d: %s", resp.StatusCode, string(respBytes)))
	}

	if err := json.Unmarshal(respBytes, out); err != nil {
		return errors.New(http.StatusBadGateway, "Payment gateway error", fmt.Errorf("decode response: %w", err))
	}
	return nil
}
