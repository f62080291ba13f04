package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"amafaranga/internal/services/ledger"
	"amafaranga/internal/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"
)

const streamKeepAlive = 15 * time.Second

type WalletHandler struct {
	ledger *ledger.Service
	log    zerolog.Logger
}

func NewWalletHandler(ledger *ledger.Service, log zerolog.Logger) *WalletHandler {
	return &WalletHandler{ledger: ledger, log: log}
}

// GetBalance handles GET /api/wallet/balance.
func (h *WalletHandler) GetBalance(c *fiber.Ctx) error {
	claims, err := accountClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	snap, err := h.ledger.Snapshot(c.UserContext(), claims.AccountID)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return utils.Success(c, fiber.Map{"balance": snap.Balance})
}

// StreamBalance handles GET /api/wallet/balance/stream as Server-Sent Events.
// The subscription lives until the client goes away.
func (h *WalletHandler) StreamBalance(c *fiber.Ctx) error {
	claims, err := accountClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	ctx, cancel := context.WithCancel(context.Background())
	balances, err := h.ledger.ObserveBalance(ctx, claims.AccountID)
	if err != nil {
		cancel()
		return respondError(c, h.log, err)
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")

	accountID := claims.AccountID
	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer cancel()

		ticker := time.NewTicker(streamKeepAlive)
		defer ticker.Stop()

		for {
			select {
			case balance, ok := <-balances:
				if !ok {
					return
				}
				data, _ := json.Marshal(fiber.Map{"balance": balance})
				fmt.Fprintf(w, "event: balance\ndata: %s\n\n", data)
			case <-ticker.C:
				fmt.Fprint(w, ": keep-alive\n\n")
			}
			if err := w.Flush(); err != nil {
				h.log.Debug().Str("account_id", accountID).Msg("balance stream closed by client")
				return
			}
		}
	}))
	return nil
}
