package handler

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/elpasoverse/portal/internal/queue"
	"github.com/elpasoverse/portal/internal/wallet"
)

// maxUTXOs bounds the work of a single wallet scan.
const maxUTXOs = 1000

// WalletHandler reports the PASO token balance of a connected browser wallet.
// The figure is informational; credits live in the ledger.
type WalletHandler struct {
	asset  wallet.Asset
	events queue.Emitter
	logger *slog.Logger
}

func NewWalletHandler(events queue.Emitter, logger *slog.Logger) *WalletHandler {
	if events == nil {
		events = queue.Discard{}
	}
	return &WalletHandler{asset: wallet.Paso(), events: events, logger: logger.With("component", "wallet")}
}

type walletReq struct {
	Address    string   `json:"address"`
	WalletType string   `json:"wallet_type"`
	UTXOs      []string `json:"utxos"`
}

// Balance sums PASO over the UTXOs the wallet reported and logs the
// connection.
func (h *WalletHandler) Balance(c echo.Context) error {
	var req walletReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Address = strings.TrimSpace(req.Address)
	if req.Address == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "address required"})
	}
	if len(req.UTXOs) > maxUTXOs {
		return c.JSON(http.StatusRequestEntityTooLarge, echo.Map{"error": "too many utxos"})
	}

	b := h.asset.Scan(req.UTXOs)
	if b.Skipped > 0 {
		h.logger.Warn("undecodable utxos", "address", req.Address, "skipped", b.Skipped, "scanned", b.Scanned)
	}

	userID, email := "", "unknown"
	if id := currentIdentity(c); id != nil {
		userID = id.ID
		if id.Email != "" {
			email = id.Email
		}
	}
	h.events.Emit(queue.NewEvent(queue.SheetWallets, map[string]any{
		"userId":            userID,
		"email":             email,
		"walletAddress":     req.Address,
		"walletType":        req.WalletType,
		"walletPasoBalance": b.Amount,
		"connectionDate":    time.Now().UTC().Format(time.RFC3339),
	}))
	return c.JSON(http.StatusOK, echo.Map{
		"address":      req.Address,
		"paso_balance": b.Amount,
		"scanned":      b.Scanned,
		"skipped":      b.Skipped,
	})
}
