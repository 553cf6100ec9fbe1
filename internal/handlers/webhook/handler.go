package webhook

import (
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/payng/fee-payment-service/internal/adapters/arca"
	"github.com/payng/fee-payment-service/internal/adapters/flutterwave"
	"github.com/payng/fee-payment-service/internal/domain"
	"github.com/payng/fee-payment-service/internal/domain/models"
	"github.com/payng/fee-payment-service/internal/domain/ports"
	"github.com/payng/fee-payment-service/internal/services/reconcile"
)

// maxBodySize caps webhook payloads at 1 MiB.
const maxBodySize = 1 << 20

// Handler receives gateway webhooks. Signature validation happens in the
// adapters; this layer only routes the raw body and signature header to the
// reconciler and translates the outcome to a status code. An invalid
// signature is 400 so a misconfigured secret is visible at the provider;
// everything else valid is 200, including duplicates, so providers stop
// retrying.
type Handler struct {
	reconciler *reconcile.Service
	logger     ports.Logger
}

// NewHandler creates a webhook HTTP handler
func NewHandler(reconciler *reconcile.Service, logger ports.Logger) *Handler {
	return &Handler{reconciler: reconciler, logger: logger}
}

// Register mounts the webhook routes on the router.
func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/webhooks/{provider}", h.Receive).Methods(http.MethodPost)
}

// Receive handles POST /webhooks/{provider}
func (h *Handler) Receive(w http.ResponseWriter, r *http.Request) {
	provider := mux.Vars(r)["provider"]

	gateway, signature, ok := resolveProvider(provider, r)
	if !ok {
		http.Error(w, "unknown provider", http.StatusNotFound)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	if err := h.reconciler.HandleWebhook(r.Context(), gateway, body, signature); err != nil {
		if errors.Is(err, domain.ErrWebhookSignature) || domain.IsDomainError(err, domain.ErrorCodeWebhookSignature) {
			http.Error(w, "invalid signature", http.StatusBadRequest)
			return
		}
		h.logger.Error("webhook processing failed",
			ports.String("provider", provider),
			ports.Err(err))
		http.Error(w, "processing failed", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func resolveProvider(provider string, r *http.Request) (models.Gateway, string, bool) {
	switch provider {
	case string(models.GatewayArca):
		return models.GatewayArca, r.Header.Get(arca.SignatureHeader), true
	case string(models.GatewayFlutterwave):
		return models.GatewayFlutterwave, r.Header.Get(flutterwave.SignatureHeader), true
	default:
		return "", "", false
	}
}
