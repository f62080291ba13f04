package routes

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"amafaranga/internal/handlers"
	"amafaranga/internal/middleware"
	"amafaranga/internal/models"
	"amafaranga/internal/repositories/idempotency"
	"amafaranga/internal/repositories/memstore"
	"amafaranga/internal/services/auth"
	"amafaranga/internal/services/fees"
	"amafaranga/internal/services/games"
	"amafaranga/internal/services/ledger"
	"amafaranga/internal/services/recipient"
	"amafaranga/internal/services/settlement"
	"amafaranga/internal/services/transfer"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	aliceCard = "1111111111"
	bobCard   = "2222222222"
	adminCard = "9999999999"
	password  = "secret-pass"
)

type testServer struct {
	app   *fiber.App
	store *memstore.Store
	alice string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx := context.Background()
	log := zerolog.Nop()
	store := memstore.New()

	hash, err := auth.HashPassword(password)
	require.NoError(t, err)

	alice := &models.Account{CardNumber: aliceCard, FullNames: "Alice Uwase", PasswordHash: hash, Balance: decimal.NewFromInt(500)}
	require.NoError(t, store.CreateAccount(ctx, alice))
	require.NoError(t, store.CreateAccount(ctx, &models.Account{CardNumber: bobCard, FullNames: "Bob Mugisha", PasswordHash: hash}))
	require.NoError(t, store.CreateAccount(ctx, &models.Account{CardNumber: adminCard, FullNames: "Admin", PasswordHash: hash, Role: models.RoleAdmin}))

	idem, err := idempotency.New(filepath.Join(t.TempDir(), "idempotency.db"))
	require.NoError(t, err)
	t.Cleanup(func() { idem.Close() })

	authService := auth.NewService(store, "test-secret", time.Hour, log)
	resolver := recipient.NewResolver(store, nil, log)
	policy := fees.DefaultPolicy()

	app := fiber.New()
	SetupRoutes(app, Dependencies{
		Auth:           handlers.NewAuthHandler(authService, log),
		Wallet:         handlers.NewWalletHandler(ledger.NewService(store, log), log),
		Recipients:     handlers.NewRecipientHandler(resolver, log),
		Transfers:      handlers.NewTransferHandler(transfer.NewService(store, resolver, policy, nil, transfer.DefaultOptions(), log), log),
		Settlements:    handlers.NewSettlementHandler(settlement.NewService(store, policy, nil, log), log),
		Games:          handlers.NewGamesHandler(games.NewService(store, log), log),
		Health:         handlers.NewHealthHandler(nil),
		AuthMiddleware: middleware.NewAuthMiddleware(authService, log),
		Idempotency:    middleware.Idempotency(idem, log),
	})

	return &testServer{app: app, store: store, alice: alice.ID}
}

type response struct {
	status int
	header map[string]string
	body   map[string]interface{}
}

func (s *testServer) call(t *testing.T, method, path, token, body string, headers ...string) response {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	out := response{status: resp.StatusCode, header: map[string]string{}}
	for k := range resp.Header {
		out.header[k] = resp.Header.Get(k)
	}
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(data) > 0 {
		require.NoError(t, json.Unmarshal(data, &out.body), string(data))
	}
	return out
}

func (s *testServer) login(t *testing.T, card string) string {
	t.Helper()
	resp := s.call(t, "POST", "/api/login", "", `{"card_number":"`+card+`","password":"`+password+`"}`)
	require.Equal(t, fiber.StatusOK, resp.status)
	token, _ := resp.body["access_token"].(string)
	require.NotEmpty(t, token)
	return token
}

func amount(t *testing.T, v interface{}) decimal.Decimal {
	t.Helper()
	s, ok := v.(string)
	require.True(t, ok, "expected decimal string, got %v", v)
	return decimal.RequireFromString(s)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	s := newTestServer(t)

	resp := s.call(t, "POST", "/api/login", "", `{"card_number":"`+aliceCard+`","password":"nope"}`)
	assert.Equal(t, fiber.StatusUnauthorized, resp.status)
	assert.Equal(t, "INVALID_CREDENTIALS", resp.body["code"])
}

func TestRefreshIssuesNewTokens(t *testing.T) {
	s := newTestServer(t)

	login := s.call(t, "POST", "/api/login", "", `{"card_number":"`+aliceCard+`","password":"`+password+`"}`)
	refresh, _ := login.body["refresh_token"].(string)

	resp := s.call(t, "POST", "/api/refresh", "", `{"refresh_token":"`+refresh+`"}`)
	require.Equal(t, fiber.StatusOK, resp.status)
	assert.NotEmpty(t, resp.body["access_token"])

	// An access token is not accepted as a refresh token.
	access, _ := login.body["access_token"].(string)
	resp = s.call(t, "POST", "/api/refresh", "", `{"refresh_token":"`+access+`"}`)
	assert.Equal(t, fiber.StatusUnauthorized, resp.status)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	s := newTestServer(t)

	resp := s.call(t, "GET", "/api/wallet/balance", "", "")
	assert.Equal(t, fiber.StatusUnauthorized, resp.status)
}

func TestTransferFlow(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t, aliceCard)

	lookup := s.call(t, "GET", "/api/recipients/"+bobCard, token, "")
	require.Equal(t, fiber.StatusOK, lookup.status)
	assert.Equal(t, "Bob Mugisha", lookup.body["full_names"])
	assert.NotContains(t, lookup.body, "balance")

	body := `{"card_number":"` + bobCard + `","amount":"100"}`
	first := s.call(t, "POST", "/api/transfers", token, body, middleware.IdempotencyHeader, "tx-1")
	require.Equal(t, fiber.StatusCreated, first.status)
	assert.True(t, amount(t, first.body["fee"]).Equal(decimal.NewFromInt(10)))
	assert.True(t, amount(t, first.body["total"]).Equal(decimal.NewFromInt(110)))

	again := s.call(t, "POST", "/api/transfers", token, body, middleware.IdempotencyHeader, "tx-1")
	require.Equal(t, fiber.StatusCreated, again.status)
	assert.Equal(t, "true", again.header["Idempotent-Replayed"])
	assert.Equal(t, first.body["id"], again.body["id"])

	balance := s.call(t, "GET", "/api/wallet/balance", token, "")
	require.Equal(t, fiber.StatusOK, balance.status)
	assert.True(t, amount(t, balance.body["balance"]).Equal(decimal.NewFromInt(390)))
}

// readBalanceEvent reads SSE lines up to the next balance event and returns
// its balance.
func readBalanceEvent(t *testing.T, r *bufio.Reader) decimal.Decimal {
	t.Helper()
	var event string
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\r\n")
		switch {
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: ") && event == "balance":
			var payload struct {
				Balance decimal.Decimal `json:"balance"`
			}
			require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &payload))
			return payload.Balance
		}
	}
}

func TestBalanceStreamFollowsTransfers(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t, aliceCard)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = s.app.Listener(ln) }()
	t.Cleanup(func() { _ = s.app.ShutdownWithTimeout(time.Second) })

	req, err := http.NewRequest("GET", "http://"+ln.Addr().String()+"/api/wallet/balance/stream", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	frames := bufio.NewReader(resp.Body)
	assert.True(t, readBalanceEvent(t, frames).Equal(decimal.NewFromInt(500)))

	sent := s.call(t, "POST", "/api/transfers", token, `{"card_number":"`+bobCard+`","amount":"100"}`)
	require.Equal(t, fiber.StatusCreated, sent.status)

	assert.True(t, readBalanceEvent(t, frames).Equal(decimal.NewFromInt(390)))
}

func TestTransferErrors(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t, aliceCard)

	tests := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{"non-positive amount", `{"card_number":"` + bobCard + `","amount":"0"}`, fiber.StatusBadRequest, "INVALID_AMOUNT"},
		{"short card", `{"card_number":"12345","amount":"10"}`, fiber.StatusBadRequest, "INCOMPLETE_CARD_NUMBER"},
		{"unknown card", `{"card_number":"3333333333","amount":"10"}`, fiber.StatusNotFound, "RECIPIENT_NOT_FOUND"},
		{"insufficient funds", `{"card_number":"` + bobCard + `","amount":"460"}`, fiber.StatusUnprocessableEntity, "INSUFFICIENT_FUNDS"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := s.call(t, "POST", "/api/transfers", token, tt.body)
			assert.Equal(t, tt.status, resp.status)
			assert.Equal(t, tt.code, resp.body["code"])
		})
	}

	resp := s.call(t, "POST", "/api/transfers", token, `{"card_number":"`+bobCard+`","amount":"460"}`)
	assert.True(t, amount(t, resp.body["shortfall"]).Equal(decimal.NewFromInt(6)))
	assert.True(t, s.store.Balance(s.alice).Equal(decimal.NewFromInt(500)))
}

func TestWithdrawalApprovedByAdmin(t *testing.T) {
	s := newTestServer(t)
	user := s.login(t, aliceCard)
	admin := s.login(t, adminCard)

	created := s.call(t, "POST", "/api/withdrawals", user, `{"amount":"100","phone":"0788123456","full_names":"Alice Uwase"}`)
	require.Equal(t, fiber.StatusCreated, created.status)
	id, _ := created.body["id"].(string)
	require.NotEmpty(t, id)

	forbidden := s.call(t, "GET", "/api/admin/settlements", user, "")
	assert.Equal(t, fiber.StatusForbidden, forbidden.status)

	pending := s.call(t, "GET", "/api/admin/settlements?kind=withdrawal", admin, "")
	require.Equal(t, fiber.StatusOK, pending.status)
	assert.Len(t, pending.body["settlements"], 1)

	bad := s.call(t, "GET", "/api/admin/settlements?kind=refund", admin, "")
	assert.Equal(t, fiber.StatusBadRequest, bad.status)

	decided := s.call(t, "POST", "/api/admin/settlements/"+id+"/decision", admin, `{"approve":true,"note":"paid out"}`)
	require.Equal(t, fiber.StatusOK, decided.status)
	assert.Equal(t, string(models.SettlementApproved), decided.body["status"])
	assert.True(t, s.store.Balance(s.alice).Equal(decimal.NewFromInt(375)))

	again := s.call(t, "POST", "/api/admin/settlements/"+id+"/decision", admin, `{"approve":false}`)
	assert.Equal(t, fiber.StatusConflict, again.status)
	assert.Equal(t, "ALREADY_SETTLED", again.body["code"])

	mine := s.call(t, "GET", "/api/settlements", user, "")
	require.Equal(t, fiber.StatusOK, mine.status)
	assert.Len(t, mine.body["settlements"], 1)
}

func TestGamesRoutes(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t, aliceCard)

	unknown := s.call(t, "POST", "/api/games/chess/complete", token, `{"metric":1}`)
	assert.Equal(t, fiber.StatusBadRequest, unknown.status)
	assert.Equal(t, "UNKNOWN_GAME", unknown.body["code"])

	for _, metric := range []string{"62.5", "71", "58"} {
		done := s.call(t, "POST", "/api/games/typing/complete", token, `{"metric":`+metric+`}`)
		require.Equal(t, fiber.StatusCreated, done.status)
	}

	history := s.call(t, "GET", "/api/games/typing/history?limit=5", token, "")
	require.Equal(t, fiber.StatusOK, history.status)
	assert.Len(t, history.body["results"], 3)
	best, ok := history.body["best"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, 71.0, best["metric"])
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	resp := s.call(t, "GET", "/health", "", "")
	assert.Equal(t, fiber.StatusOK, resp.status)
	assert.Equal(t, "ok", resp.body["status"])
}
