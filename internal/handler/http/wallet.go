package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/utafrali/agromarket-storefront/internal/domain"
	"github.com/utafrali/agromarket-storefront/internal/service"
	"github.com/utafrali/agromarket-storefront/pkg/httputil"
)

// FarmerHandler handles the farmer wallet and certificate.
type FarmerHandler struct {
	wallet       *service.WalletService
	certificates *service.CertificateService
	logger       *slog.Logger
}

// NewFarmerHandler creates a new farmer HTTP handler.
func NewFarmerHandler(wallet *service.WalletService, certificates *service.CertificateService, logger *slog.Logger) *FarmerHandler {
	return &FarmerHandler{wallet: wallet, certificates: certificates, logger: logger}
}

// Balance handles GET /api/v1/farmer/wallet
func (h *FarmerHandler) Balance(w http.ResponseWriter, r *http.Request) {
	ws, err := h.wallet.Balance(r.Context(), sessionID(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, ws)
}

// History handles GET /api/v1/farmer/wallet/history
func (h *FarmerHandler) History(w http.ResponseWriter, r *http.Request) {
	ws, err := h.wallet.History(r.Context(), sessionID(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, ws)
}

// Withdraw handles POST /api/v1/farmer/wallet/withdrawals
func (h *FarmerHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	var req domain.WithdrawalRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	ws, err := h.wallet.Withdraw(r.Context(), sessionID(r), req)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusCreated, ws)
}

// Certificate handles GET /api/v1/farmer/certificate
func (h *FarmerHandler) Certificate(w http.ResponseWriter, r *http.Request) {
	cert, err := h.certificates.Render(r.Context(), sessionID(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", cert.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(cert.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(cert.Data)
}
