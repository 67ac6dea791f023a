package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"FundLedger/internal/core"
	"FundLedger/internal/event"
	"FundLedger/internal/registry"
	"FundLedger/internal/server"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

func newTestServer(t *testing.T, submitted *int) *server.Server {
	t.Helper()
	reg, err := registry.New("hub",
		[]registry.Asset{{ID: "USDC", Decimals: 6}},
		[]registry.ShareClass{{
			ID:           "SC-1",
			PoolDecimals: 18,
			Assets:       []registry.AssetID{"USDC"},
			Managers:     []string{"manager"},
		}})
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	return server.New("127.0.0.1:0", server.Deps{
		Submit: func(ctx context.Context, op event.Operation) (*core.OpResult, error) {
			*submitted++
			return &core.OpResult{}, nil
		},
		Registry: reg,
		Log:      zerolog.Nop(),
	})
}

func postJSON(t *testing.T, h http.Handler, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	buf, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(buf))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestInvestorRoutes_RejectUnauthorizedCaller(t *testing.T) {
	submitted := 0
	s := newTestServer(t, &submitted)

	body := map[string]interface{}{
		"caller":      "stranger",
		"share_class": "SC-1",
		"asset":       "USDC",
		"investor":    uuid.New(),
		"amount":      100,
	}
	for _, path := range []string{
		"/v1/requests/deposit", "/v1/requests/redeem",
		"/v1/cancels/deposit", "/v1/cancels/redeem",
		"/v1/claims/deposit", "/v1/claims/redeem",
	} {
		rec := postJSON(t, s.Handler(), path, body)
		if rec.Code != http.StatusForbidden {
			t.Errorf("%s: got status %d, want %d", path, rec.Code, http.StatusForbidden)
		}
	}
	if submitted != 0 {
		t.Errorf("unauthorized submissions reached the processor: %d", submitted)
	}
}

func TestInvestorRoutes_RejectMissingCaller(t *testing.T) {
	submitted := 0
	s := newTestServer(t, &submitted)

	rec := postJSON(t, s.Handler(), "/v1/requests/deposit", map[string]interface{}{
		"share_class": "SC-1",
		"asset":       "USDC",
		"investor":    uuid.New(),
		"amount":      100,
	})
	if rec.Code != http.StatusForbidden {
		t.Errorf("got status %d, want %d", rec.Code, http.StatusForbidden)
	}
	if submitted != 0 {
		t.Errorf("callerless submission reached the processor: %d", submitted)
	}
}

func TestInvestorRoutes_AcceptHubAndManager(t *testing.T) {
	submitted := 0
	s := newTestServer(t, &submitted)

	for _, caller := range []string{"hub", "manager"} {
		rec := postJSON(t, s.Handler(), "/v1/requests/deposit", map[string]interface{}{
			"caller":      caller,
			"share_class": "SC-1",
			"asset":       "USDC",
			"investor":    uuid.New(),
			"amount":      100,
		})
		if rec.Code != http.StatusOK {
			t.Errorf("caller %s: got status %d, want %d: %s", caller, rec.Code, http.StatusOK, rec.Body.String())
		}
	}
	if submitted != 2 {
		t.Errorf("submissions: got %d, want 2", submitted)
	}
}
