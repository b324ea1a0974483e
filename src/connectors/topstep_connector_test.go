package connectors

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestTopStep(baseURL string) *TopStepConnector {
	return NewTopStepConnector(Config{
		TopStepBaseURL: baseURL,
		RequestTimeout: 2 * time.Second,
		RetryAttempts:  1,
	})
}

func topStepCreds() Credentials {
	return Credentials{APIToken: "ts-token"}
}

func requireBearer(t *testing.T, next http.HandlerFunc) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer ts-token" {
			t.Fatalf("missing bearer token, got %q", r.Header.Get("Authorization"))
		}
		next(w, r)
	}
}

func TestTopStepAuthenticate(t *testing.T) {
	srv := httptest.NewServer(requireBearer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/user/profile" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"id": 1, "email": "trader@example.com"})
	}))
	defer srv.Close()

	c := newTestTopStep(srv.URL)
	result, err := c.Authenticate(context.Background(), topStepCreds())
	if err != nil {
		t.Fatalf("authenticate failed: %v", err)
	}
	if result.Token != "ts-token" {
		t.Fatalf("unexpected token: %q", result.Token)
	}
}

func TestTopStepMissingToken(t *testing.T) {
	c := newTestTopStep("http://unused.invalid")
	if _, err := c.Authenticate(context.Background(), Credentials{}); !errors.Is(err, ErrBrokerAuth) {
		t.Fatalf("expected ErrBrokerAuth for empty token, got %v", err)
	}
}

func TestTopStepInvalidToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := newTestTopStep(srv.URL)
	if _, err := c.Authenticate(context.Background(), topStepCreds()); !errors.Is(err, ErrBrokerAuth) {
		t.Fatalf("expected ErrBrokerAuth, got %v", err)
	}
}

func TestTopStepUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	c := newTestTopStep(srv.URL)
	if _, err := c.FetchPositions(context.Background(), topStepCreds()); !errors.Is(err, ErrBrokerUnreachable) {
		t.Fatalf("expected ErrBrokerUnreachable, got %v", err)
	}
}

func TestTopStepFetchAccountSnapshotZeroAccounts(t *testing.T) {
	srv := httptest.NewServer(requireBearer(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]map[string]interface{}{})
	}))
	defer srv.Close()

	c := newTestTopStep(srv.URL)
	if _, err := c.FetchAccountSnapshot(context.Background(), topStepCreds()); !errors.Is(err, ErrBrokerProtocol) {
		t.Fatalf("expected ErrBrokerProtocol for zero accounts, got %v", err)
	}
}

func TestTopStepFetchAccountSnapshot(t *testing.T) {
	srv := httptest.NewServer(requireBearer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/accounts" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode([]map[string]interface{}{{
			"id":               "TS-9",
			"name":             "Combine 50K",
			"balance":          50000.0,
			"equity":           50210.0,
			"margin_used":      800.0,
			"margin_available": 49410.0,
		}})
	}))
	defer srv.Close()

	c := newTestTopStep(srv.URL)
	snapshot, err := c.FetchAccountSnapshot(context.Background(), topStepCreds())
	if err != nil {
		t.Fatalf("snapshot failed: %v", err)
	}
	if snapshot.AccountID != "TS-9" || snapshot.AccountName != "Combine 50K" {
		t.Fatalf("unexpected snapshot identity: %+v", snapshot)
	}
}

func TestTopStepFetchPositionsSignMapping(t *testing.T) {
	srv := httptest.NewServer(requireBearer(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]map[string]interface{}{
			{"symbol": "ES", "quantity": -4, "entry_price": 5000.0, "current_price": 4990.0, "unrealized_pnl": 200.0},
		})
	}))
	defer srv.Close()

	c := newTestTopStep(srv.URL)
	positions, err := c.FetchPositions(context.Background(), topStepCreds())
	if err != nil {
		t.Fatalf("fetch positions failed: %v", err)
	}
	if len(positions) != 1 {
		t.Fatalf("expected 1 position, got %d", len(positions))
	}
	if positions[0].Side != "short" || positions[0].Quantity != 4 {
		t.Fatalf("sign mapping wrong: %+v", positions[0])
	}
}

func TestTopStepOrderLifecycleEndpoints(t *testing.T) {
	var gotMethod, gotPath string
	srv := httptest.NewServer(requireBearer(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod, gotPath = r.Method, r.URL.Path
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"id": "ORD-55", "status": "pending"})
	}))
	defer srv.Close()

	c := newTestTopStep(srv.URL)
	ctx := context.Background()

	result, err := c.PlaceOrder(ctx, topStepCreds(), OrderRequest{Symbol: "ES", Side: "buy", OrderType: "market", Quantity: 1})
	if err != nil {
		t.Fatalf("place failed: %v", err)
	}
	if gotMethod != http.MethodPost || gotPath != "/orders" {
		t.Fatalf("place used %s %s", gotMethod, gotPath)
	}
	if result.BrokerOrderID != "ORD-55" {
		t.Fatalf("unexpected broker order id %q", result.BrokerOrderID)
	}

	qty := 3
	if _, err := c.ModifyOrder(ctx, topStepCreds(), "ORD-55", OrderPatch{Quantity: &qty}); err != nil {
		t.Fatalf("modify failed: %v", err)
	}
	if gotMethod != http.MethodPut || gotPath != "/orders/ORD-55" {
		t.Fatalf("modify used %s %s", gotMethod, gotPath)
	}

	if _, err := c.CancelOrder(ctx, topStepCreds(), "ORD-55"); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if gotMethod != http.MethodDelete || gotPath != "/orders/ORD-55" {
		t.Fatalf("cancel used %s %s", gotMethod, gotPath)
	}
}
