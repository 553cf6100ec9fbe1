package payment

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/payng/fee-payment-service/internal/domain/models"
	"github.com/payng/fee-payment-service/internal/domain/ports"
	"github.com/payng/fee-payment-service/internal/handlers/httpx"
	"github.com/payng/fee-payment-service/internal/services/ledger"
	"github.com/payng/fee-payment-service/internal/services/payment"
)

// Handler exposes the payment API over HTTP.
type Handler struct {
	service *payment.Service
	logger  ports.Logger
}

// NewHandler creates a payment HTTP handler
func NewHandler(service *payment.Service, logger ports.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the payment routes on the router.
func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/api/v1/payments/initiate", h.Initiate).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/payments/verify", h.Verify).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/payments/manual", h.RecordManual).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/payments/{reference}", h.Get).Methods(http.MethodGet)
}

type allocationRequest struct {
	AssignmentID int64           `json:"assignment_id"`
	Amount       decimal.Decimal `json:"amount"`
}

type initiateRequest struct {
	SchoolID         int64               `json:"school_id"`
	StudentID        int64               `json:"student_id"`
	ParentUserID     *int64              `json:"parent_user_id,omitempty"`
	Amount           decimal.Decimal     `json:"amount"`
	Currency         string              `json:"currency"`
	Method           string              `json:"method"`
	Email            string              `json:"email"`
	CustomerName     string              `json:"customer_name"`
	CustomerPhone    string              `json:"customer_phone"`
	PreferredGateway string              `json:"preferred_gateway"`
	Allocations      []allocationRequest `json:"allocations"`
	Notes            string              `json:"notes"`
}

type initiateResponse struct {
	Reference        string `json:"reference"`
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code,omitempty"`
	Gateway          string `json:"gateway"`
	Status           string `json:"status"`
}

type verifyRequest struct {
	Reference string `json:"reference"`
}

type allocationResponse struct {
	AssignmentID int64           `json:"assignment_id"`
	Amount       decimal.Decimal `json:"amount"`
}

type paymentResponse struct {
	Reference         string               `json:"reference"`
	ExternalReference string               `json:"external_reference,omitempty"`
	Amount            decimal.Decimal      `json:"amount"`
	Currency          string               `json:"currency"`
	Method            string               `json:"method"`
	Gateway           string               `json:"gateway,omitempty"`
	Status            string               `json:"status"`
	Allocations       []allocationResponse `json:"allocations"`
	PaidAt            *time.Time           `json:"paid_at,omitempty"`
	FailureReason     string               `json:"failure_reason,omitempty"`
	ReceiptGenerated  bool                 `json:"receipt_generated"`
	CreatedAt         time.Time            `json:"created_at"`
}

// Initiate handles POST /api/v1/payments/initiate
func (h *Handler) Initiate(w http.ResponseWriter, r *http.Request) {
	var req initiateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteJSON(w, http.StatusBadRequest, httpx.ErrorResponse{Error: "invalid request body"})
		return
	}

	result, err := h.service.InitiatePayment(r.Context(), &payment.InitiatePaymentRequest{
		CreatePaymentRequest: ledger.CreatePaymentRequest{
			SchoolID:     req.SchoolID,
			StudentID:    req.StudentID,
			ParentUserID: req.ParentUserID,
			Amount:       req.Amount,
			Currency:     req.Currency,
			Method:       models.PaymentMethod(req.Method),
			Allocations:  toAllocations(req.Allocations),
			Notes:        req.Notes,
		},
		Email:            req.Email,
		CustomerName:     req.CustomerName,
		CustomerPhone:    req.CustomerPhone,
		PreferredGateway: models.Gateway(req.PreferredGateway),
	})
	if err != nil {
		h.logger.Warn("payment initiation rejected", ports.Err(err))
		httpx.WriteError(w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, initiateResponse{
		Reference:        result.Payment.ReferenceNumber,
		AuthorizationURL: result.AuthorizationURL,
		AccessCode:       result.AccessCode,
		Gateway:          string(result.Gateway),
		Status:           string(result.Payment.Status),
	})
}

// Verify handles POST /api/v1/payments/verify
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Reference == "" {
		httpx.WriteJSON(w, http.StatusBadRequest, httpx.ErrorResponse{Error: "reference is required"})
		return
	}

	p, err := h.service.VerifyPayment(r.Context(), req.Reference)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toPaymentResponse(p))
}

// Get handles GET /api/v1/payments/{reference}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	reference := mux.Vars(r)["reference"]

	p, err := h.service.GetPayment(r.Context(), reference)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toPaymentResponse(p))
}

// RecordManual handles POST /api/v1/payments/manual. It records an
// admin-entered cash or bank-deposit payment and settles it immediately.
func (h *Handler) RecordManual(w http.ResponseWriter, r *http.Request) {
	var req initiateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteJSON(w, http.StatusBadRequest, httpx.ErrorResponse{Error: "invalid request body"})
		return
	}

	p, err := h.service.RecordManualPayment(r.Context(), &ledger.CreatePaymentRequest{
		SchoolID:     req.SchoolID,
		StudentID:    req.StudentID,
		ParentUserID: req.ParentUserID,
		Amount:       req.Amount,
		Currency:     req.Currency,
		Method:       models.PaymentMethod(req.Method),
		Allocations:  toAllocations(req.Allocations),
		Notes:        req.Notes,
	})
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, toPaymentResponse(p))
}

func toAllocations(in []allocationRequest) []models.Allocation {
	out := make([]models.Allocation, len(in))
	for i, a := range in {
		out[i] = models.Allocation{AssignmentID: a.AssignmentID, Amount: a.Amount}
	}
	return out
}

func toPaymentResponse(p *models.Payment) paymentResponse {
	allocations := make([]allocationResponse, len(p.Allocations))
	for i, a := range p.Allocations {
		allocations[i] = allocationResponse{AssignmentID: a.AssignmentID, Amount: a.Amount}
	}
	return paymentResponse{
		Reference:         p.ReferenceNumber,
		ExternalReference: p.ExternalReference,
		Amount:            p.Amount,
		Currency:          p.Currency,
		Method:            string(p.Method),
		Gateway:           string(p.Gateway),
		Status:            string(p.Status),
		Allocations:       allocations,
		PaidAt:            p.PaidAt,
		FailureReason:     p.FailureReason,
		ReceiptGenerated:  p.ReceiptGenerated,
		CreatedAt:         p.CreatedAt,
	}
}
