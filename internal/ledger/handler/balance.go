package handler

import (
	"net/http"

	"github.com/julienschmidt/httprouter"

	"dogdays/internal/ledger/service"
	httputil "dogdays/pkg/http"
	"dogdays/pkg/logger"
	"dogdays/pkg/model"
)

// BalanceResponse is the external balance view: the account plus the
// derived spendable figure.
type BalanceResponse struct {
	Account        *model.SubscriptionAccount `json:"account"`
	RemainingHours float64                    `json:"remaining_hours"`
}

type BalanceHandler struct {
	service service.LedgerService
	log     *logger.Logger
}

func NewBalanceHandler(service service.LedgerService, log *logger.Logger) *BalanceHandler {
	return &BalanceHandler{
		service: service,
		log:     log,
	}
}

func (h *BalanceHandler) GetBalance(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	account, err := h.service.GetBalance(r.Context(), ps.ByName("id"))
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "GetBalance", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, BalanceResponse{
		Account:        account,
		RemainingHours: account.Remaining(),
	}); err != nil {
		h.log.Error("failed to write success response", "handler", "GetBalance", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BalanceHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/owners/:id/balance", h.GetBalance)
}
