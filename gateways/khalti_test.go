package gateways

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	apperrors "storefront-service/errors"
	"storefront-service/models"
)

func testOrder() *models.Order {
	return &models.Order{
		Invoice:       "NTX202601150042",
		RecipientName: "Sita Sharma",
		Phone:         "9800000000",
		TotalAmount:   1117.0,
	}
}

func TestKhaltiInitiate_Success(t *testing.T) {
	var gotBody khaltiInitiateRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/epayment/initiate/", r.URL.Path)
		assert.Equal(t, "Key test-secret", r.Header.Get("Authorization"))
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(khaltiInitiateResponse{
			Pidx:       "bZQLD9wRVWo4CdESSfuSsB",
			PaymentURL: "https://test-pay.khalti.com/?pidx=bZQLD9wRVWo4CdESSfuSsB",
		})
	}))
	defer server.Close()

	gw := NewKhaltiGateway("test-secret", server.URL, "https://shop.example/payment/khalti/success", "https://shop.example")

	result, err := gw.Initiate(context.Background(), testOrder())
	assert.NoError(t, err)
	assert.Equal(t, "bZQLD9wRVWo4CdESSfuSsB", result.Reference)
	assert.Contains(t, result.RedirectURL, "pidx=")
	assert.Equal(t, int64(111700), gotBody.Amount, "amount must be converted to paisa")
	assert.Equal(t, "NTX202601150042", gotBody.PurchaseOrderID)
}

func TestKhaltiVerify_Completed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/epayment/lookup/", r.URL.Path)
		var req khaltiLookupRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		_ = json.NewEncoder(w).Encode(khaltiLookupResponse{
			Pidx:          req.Pidx,
			Status:        "Completed",
			TransactionID: "GFq9PFS7b2iYvL8Lir9oXe",
		})
	}))
	defer server.Close()

	gw := NewKhaltiGateway("test-secret", server.URL, "", "")

	result, err := gw.Verify(context.Background(), "bZQLD9wRVWo4CdESSfuSsB")
	assert.NoError(t, err)
	assert.Equal(t, VerifyCompleted, result.Status)
	assert.Equal(t, "GFq9PFS7b2iYvL8Lir9oXe", result.ExternalRef)
}

func TestKhaltiVerify_PendingStates(t *testing.T) {
	for _, status := range []string{"Pending", "Initiated"} {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(khaltiLookupResponse{Status: status})
		}))

		gw := NewKhaltiGateway("test-secret", server.URL, "", "")
		result, err := gw.Verify(context.Background(), "pidx-1")
		server.Close()

		assert.NoError(t, err)
		assert.Equal(t, VerifyPending, result.Status, "status %q should verify as pending", status)
	}
}

func TestKhaltiVerify_ExpiredIsFailed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(khaltiLookupResponse{Status: "Expired"})
	}))
	defer server.Close()

	gw := NewKhaltiGateway("test-secret", server.URL, "", "")

	result, err := gw.Verify(context.Background(), "pidx-1")
	assert.NoError(t, err)
	assert.Equal(t, VerifyFailed, result.Status)
}

func TestKhaltiVerify_TimeoutIsNotFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	gw := NewKhaltiGateway("test-secret", server.URL, "", "")
	gw.httpClient.Timeout = 50 * time.Millisecond

	result, err := gw.Verify(context.Background(), "pidx-1")
	assert.Nil(t, result)
	assert.True(t, apperrors.Is(err, apperrors.ErrGatewayTimeout), "transport error must surface as timeout, never as a failed payment")
}

func TestKhaltiInitiate_MissingSecret(t *testing.T) {
	gw := NewKhaltiGateway("", "https://khalti.com/api/v2", "", "")

	_, err := gw.Initiate(context.Background(), testOrder())
	assert.True(t, apperrors.Is(err, apperrors.ErrPaymentNotConfigured))
}
