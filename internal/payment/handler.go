package payment

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"

	errors "github.com/zennest/payment-service/internal"
	"github.com/zennest/payment-service/internal/transport"
)

type Handler struct {
	transport.BaseHandler
	Service ServiceAPI
	Logger  *slog.Logger
}

func NewHandler(service ServiceAPI, logger *slog.Logger) *Handler {
	return &Handler{
		BaseHandler: transport.BaseHandler{Logger: logger},
		Service:     service,
		Logger:      logger,
	}
}

// InitializePayment handles POST /payment/initialize
func (h *Handler) InitializePayment(w http.ResponseWriter, r *http.Request) {
	var req InitializePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Error("InitializePayment: failed to parse request body", "error", err)
		h.HandleError(w, errors.NewValidationError("invalid request body", errors.ErrCodeValidationFailed))
		return
	}

	result, err := h.Service.InitializePayment(r.Context(), &req)
	if err != nil {
		h.Logger.Error("InitializePayment: service error", "error", err, "email", req.Email)
		h.HandleError(w, err)
		return
	}

	// Pass the provider's response through unchanged; it carries the
	// authorization_url the payer is redirected to.
	h.WriteRawJSON(w, http.StatusOK, result.Raw)
}

// VerifyPayment handles GET /payment/verify/{reference}
func (h *Handler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	reference := chi.URLParam(r, "reference")
	if reference == "" {
		h.HandleError(w, errors.NewValidationError("reference is required", errors.ErrCodeValidationFailed))
		return
	}

	outcome, err := h.Service.VerifyPayment(r.Context(), reference)
	if err != nil {
		h.Logger.Error("VerifyPayment: service error", "error", err, "reference", reference)
		h.HandleError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, outcome)
}

// GetBanks handles GET /banks
func (h *Handler) GetBanks(w http.ResponseWriter, r *http.Request) {
	h.WriteRawJSON(w, http.StatusOK, h.Service.GetBanks(r.Context()))
}

// ResolveAccount handles POST /payout-profile/resolve
func (h *Handler) ResolveAccount(w http.ResponseWriter, r *http.Request) {
	var req ResolveAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Error("ResolveAccount: failed to parse request body", "error", err)
		h.HandleError(w, errors.NewValidationError("invalid request body", errors.ErrCodeValidationFailed))
		return
	}

	h.Logger.Info("ResolveAccount: resolving payout profile", "user_id", req.UserID)

	resolved, err := h.Service.ResolveAccount(r.Context(), &req)
	if err != nil {
		h.Logger.Error("ResolveAccount: service error", "error", err, "user_id", req.UserID)
		h.HandleError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, resolved)
}
