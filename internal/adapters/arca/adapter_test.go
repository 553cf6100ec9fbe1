package arca

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/payng/fee-payment-service/internal/domain"
	"github.com/payng/fee-payment-service/internal/domain/ports"
	"github.com/payng/fee-payment-service/internal/testutil/mocks"
)

type stubHTTPClient struct {
	do func(req *http.Request) (*http.Response, error)
}

func (s *stubHTTPClient) Do(req *http.Request) (*http.Response, error) {
	return s.do(req)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewReader([]byte(body))),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
	}
}

func testConfig() Config {
	return Config{
		APIKey:        "pk_test_xxx",
		SecretKey:     "sk_test_xxx",
		WebhookSecret: "whsec_test_xxx",
		BaseURL:       "https://api.arca.example",
	}
}

func sign(secret string, body []byte) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestToKobo(t *testing.T) {
	tests := []struct {
		amount  string
		want    int64
		wantErr bool
	}{
		{amount: "50000", want: 5_000_000},
		{amount: "50000.50", want: 5_000_050},
		{amount: "0.01", want: 1},
		{amount: "100.005", wantErr: true},
		{amount: "0.001", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			kobo, err := toKobo(decimal.RequireFromString(tt.amount))
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, domain.ErrorCodeAmountInvalid, domain.GetErrorCode(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, kobo)
		})
	}
}

func TestFromKobo(t *testing.T) {
	assert.True(t, decimal.RequireFromString("50000.50").Equal(fromKobo(5_000_050)))
	assert.True(t, decimal.RequireFromString("0.01").Equal(fromKobo(1)))
}

func TestInitiate_SendsKoboAmount(t *testing.T) {
	var captured []byte
	client := &stubHTTPClient{do: func(req *http.Request) (*http.Response, error) {
		var err error
		captured, err = io.ReadAll(req.Body)
		require.NoError(t, err)
		assert.Equal(t, "Bearer sk_test_xxx", req.Header.Get("Authorization"))
		assert.Equal(t, "https://api.arca.example/transaction/initialize", req.URL.String())
		return jsonResponse(200, `{
			"status": true,
			"message": "Authorization URL created",
			"data": {
				"authorization_url": "https://checkout.arca.example/abc123",
				"access_code": "abc123",
				"reference": "PAY-2026-AAA111"
			}
		}`), nil
	}}
	adapter := NewAdapter(testConfig(), client, mocks.Logger{})

	result, err := adapter.Initiate(context.Background(), &ports.InitiateRequest{
		Amount:    decimal.RequireFromString("50000.50"),
		Currency:  "NGN",
		Email:     "parent@example.com",
		Reference: "PAY-2026-AAA111",
	})

	require.NoError(t, err)
	assert.Equal(t, "https://checkout.arca.example/abc123", result.AuthorizationURL)
	assert.Equal(t, "abc123", result.AccessCode)
	assert.Contains(t, string(captured), `"amount":5000050`)
}

func TestInitiate_SubKoboAmountRejectedLocally(t *testing.T) {
	client := &stubHTTPClient{do: func(req *http.Request) (*http.Response, error) {
		t.Fatal("no request should be made for an unrepresentable amount")
		return nil, nil
	}}
	adapter := NewAdapter(testConfig(), client, mocks.Logger{})

	_, err := adapter.Initiate(context.Background(), &ports.InitiateRequest{
		Amount:    decimal.RequireFromString("100.005"),
		Reference: "PAY-2026-AAA111",
	})

	require.Error(t, err)
	assert.Equal(t, domain.ErrorCodeAmountInvalid, domain.GetErrorCode(err))
}

func TestInitiate_DeclinedByProvider(t *testing.T) {
	client := &stubHTTPClient{do: func(req *http.Request) (*http.Response, error) {
		return jsonResponse(200, `{"status": false, "message": "Invalid key"}`), nil
	}}
	adapter := NewAdapter(testConfig(), client, mocks.Logger{})

	_, err := adapter.Initiate(context.Background(), &ports.InitiateRequest{
		Amount:    decimal.NewFromInt(50_000),
		Reference: "PAY-2026-AAA111",
	})

	require.Error(t, err)
	assert.Equal(t, domain.ErrorCodeGatewayRejected, domain.GetErrorCode(err))
}

func TestMakeRequest_ServerErrorIsUnavailable(t *testing.T) {
	client := &stubHTTPClient{do: func(req *http.Request) (*http.Response, error) {
		return jsonResponse(503, `{"message": "service down"}`), nil
	}}
	adapter := NewAdapter(testConfig(), client, mocks.Logger{})

	_, err := adapter.Verify(context.Background(), "PAY-2026-AAA111")

	require.Error(t, err)
	assert.Equal(t, domain.ErrorCodeGatewayUnavailable, domain.GetErrorCode(err))
}

func TestMakeRequest_ClientErrorIsRejected(t *testing.T) {
	client := &stubHTTPClient{do: func(req *http.Request) (*http.Response, error) {
		return jsonResponse(404, `{"message": "Transaction reference not found"}`), nil
	}}
	adapter := NewAdapter(testConfig(), client, mocks.Logger{})

	_, err := adapter.Verify(context.Background(), "PAY-2026-MISSING")

	require.Error(t, err)
	assert.Equal(t, domain.ErrorCodeGatewayRejected, domain.GetErrorCode(err))
	assert.Contains(t, err.Error(), "Transaction reference not found")
}

func TestMakeRequest_TransportErrorIsUnavailable(t *testing.T) {
	client := &stubHTTPClient{do: func(req *http.Request) (*http.Response, error) {
		return nil, errors.New("connection refused")
	}}
	adapter := NewAdapter(testConfig(), client, mocks.Logger{})

	_, err := adapter.Verify(context.Background(), "PAY-2026-AAA111")

	require.Error(t, err)
	assert.Equal(t, domain.ErrorCodeGatewayUnavailable, domain.GetErrorCode(err))
}

func TestVerify_MapsProviderStatuses(t *testing.T) {
	tests := []struct {
		provider string
		want     ports.VerificationStatus
	}{
		{provider: "success", want: ports.VerificationSuccessful},
		{provider: "failed", want: ports.VerificationFailed},
		{provider: "abandoned", want: ports.VerificationFailed},
		{provider: "reversed", want: ports.VerificationFailed},
		{provider: "pending", want: ports.VerificationPending},
		{provider: "ongoing", want: ports.VerificationPending},
	}

	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			client := &stubHTTPClient{do: func(req *http.Request) (*http.Response, error) {
				return jsonResponse(200, `{
					"status": true,
					"message": "Verification successful",
					"data": {
						"status": "`+tt.provider+`",
						"reference": "PAY-2026-AAA111",
						"amount": 5000000,
						"currency": "NGN",
						"paid_at": "2026-03-10T12:00:00Z",
						"channel": "card"
					}
				}`), nil
			}}
			adapter := NewAdapter(testConfig(), client, mocks.Logger{})

			result, err := adapter.Verify(context.Background(), "PAY-2026-AAA111")

			require.NoError(t, err)
			assert.Equal(t, tt.want, result.Status)
			assert.True(t, result.Amount.Equal(decimal.NewFromInt(50_000)))
			assert.Equal(t, "NGN", result.Currency)
		})
	}
}

func TestVerifyWebhook_ValidSignature(t *testing.T) {
	adapter := NewAdapter(testConfig(), &stubHTTPClient{}, mocks.Logger{})
	body := []byte(`{
		"event": "charge.success",
		"data": {
			"status": "success",
			"reference": "PAY-2026-AAA111",
			"amount": 5000000,
			"currency": "NGN",
			"paid_at": "2026-03-10T12:00:00Z"
		}
	}`)

	result := adapter.VerifyWebhook(body, sign("whsec_test_xxx", body))

	require.True(t, result.Valid)
	assert.Equal(t, "charge.success", result.Event)
	assert.Equal(t, "PAY-2026-AAA111", result.Reference)
	require.NotNil(t, result.Verification)
	assert.Equal(t, ports.VerificationSuccessful, result.Verification.Status)
	assert.True(t, result.Verification.Amount.Equal(decimal.NewFromInt(50_000)))
	require.NotNil(t, result.Verification.PaidAt)
}

func TestVerifyWebhook_SuccessEventWithFailedChargeStaysFailed(t *testing.T) {
	adapter := NewAdapter(testConfig(), &stubHTTPClient{}, mocks.Logger{})
	body := []byte(`{
		"event": "charge.success",
		"data": {
			"status": "failed",
			"reference": "PAY-2026-AAA111",
			"amount": 5000000,
			"currency": "NGN"
		}
	}`)

	result := adapter.VerifyWebhook(body, sign("whsec_test_xxx", body))

	require.True(t, result.Valid)
	require.NotNil(t, result.Verification)
	assert.Equal(t, ports.VerificationFailed, result.Verification.Status)
}

func TestVerifyWebhook_InvalidSignature(t *testing.T) {
	adapter := NewAdapter(testConfig(), &stubHTTPClient{}, mocks.Logger{})
	body := []byte(`{"event": "charge.success", "data": {"reference": "PAY-2026-AAA111"}}`)

	tests := []struct {
		name      string
		signature string
	}{
		{name: "wrong secret", signature: sign("wrong-secret", body)},
		{name: "empty signature", signature: ""},
		{name: "garbage signature", signature: "deadbeef"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := adapter.VerifyWebhook(body, tt.signature)
			assert.False(t, result.Valid)
			assert.Nil(t, result.Verification)
		})
	}
}

func TestVerifyWebhook_TamperedBody(t *testing.T) {
	adapter := NewAdapter(testConfig(), &stubHTTPClient{}, mocks.Logger{})
	body := []byte(`{"event": "charge.success", "data": {"amount": 5000000}}`)
	signature := sign("whsec_test_xxx", body)

	tampered := bytes.Replace(body, []byte("5000000"), []byte("1"), 1)
	result := adapter.VerifyWebhook(tampered, signature)

	assert.False(t, result.Valid)
}

func TestVerifyWebhook_MissingSecretRejectsAll(t *testing.T) {
	cfg := testConfig()
	cfg.WebhookSecret = ""
	adapter := NewAdapter(cfg, &stubHTTPClient{}, mocks.Logger{})
	body := []byte(`{"event": "charge.success"}`)

	result := adapter.VerifyWebhook(body, sign("", body))

	assert.False(t, result.Valid)
}
