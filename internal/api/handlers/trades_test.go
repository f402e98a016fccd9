package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/quantlog/trade-ledger-backend/internal/api"
	"github.com/quantlog/trade-ledger-backend/internal/api/handlers"
	"github.com/quantlog/trade-ledger-backend/internal/config"
	"github.com/quantlog/trade-ledger-backend/internal/database"
	"github.com/quantlog/trade-ledger-backend/internal/model"
	"github.com/quantlog/trade-ledger-backend/internal/testutil"
)

// newTestServer builds a full router over an in-memory database and serves it
// via httptest.
func newTestServer(t *testing.T) (*httptest.Server, *database.SafeDB) {
	t.Helper()

	db := testutil.SetupTestDB(t)
	cfg := &config.Config{
		CORS:   config.CORSConfig{AllowedOrigins: []string{"http://localhost"}},
		Ledger: config.LedgerConfig{DefaultStrategy: "默认策略"},
	}

	router := api.NewRouter(
		db,
		testutil.NewTestTradeService(t, db),
		testutil.NewTestStrategyService(t, db),
		testutil.NewTestAnalysisService(t, db),
		testutil.NewTestReconcileService(t, db),
		cfg,
	)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv, db
}

// postJSON sends a JSON POST and returns the response.
func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()

	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to marshal request body: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(payload)) //nolint:gosec // G107: test server URL
	if err != nil {
		t.Fatalf("POST %s failed: %v", url, err)
	}
	return resp
}

// getJSON sends a GET and decodes the JSON response body into dst.
func getJSON(t *testing.T, url string, dst any) int {
	t.Helper()

	resp, err := http.Get(url) //nolint:gosec // G107: test server URL
	if err != nil {
		t.Fatalf("GET %s failed: %v", url, err)
	}
	defer resp.Body.Close()

	if dst != nil && resp.StatusCode < http.StatusMultipleChoices {
		if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
			t.Fatalf("failed to decode response from %s: %v", url, err)
		}
	}
	return resp.StatusCode
}

// decodeBody decodes a response body into dst and closes it.
func decodeBody(t *testing.T, resp *http.Response, dst any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
}

// TestTradeEndpoints_Lifecycle tests the trade lifecycle through the HTTP
// layer.
//
// WHY: The handlers translate between JSON payloads and service inputs; a
// wiring mistake there is invisible to the service tests.
func TestTradeEndpoints_Lifecycle(t *testing.T) {
	// Setup
	srv, db := newTestServer(t)
	strategy := testutil.CreateStrategy(t, db, "Trend")

	// Execute: open a position
	resp := postJSON(t, srv.URL+"/api/trades/buy", map[string]any{
		"strategyId": strategy.ID,
		"symbolCode": "AAPL",
		"symbolName": "苹果公司",
		"price":      "10.00",
		"quantity":   100,
		"date":       "2025-01-01",
		"fee":        "1.00",
	})

	// Assert
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("Expected 201 from buy, got %d", resp.StatusCode)
	}
	var created handlers.CreatedResponse
	decodeBody(t, resp, &created)
	if created.ID == 0 {
		t.Fatal("Expected a trade ID in the buy response")
	}

	var trade model.Trade
	if status := getJSON(t, srv.URL+"/api/trades/"+itoa(created.ID), &trade); status != http.StatusOK {
		t.Fatalf("Expected 200 from get, got %d", status)
	}
	if trade.RemainingQuantity != 100 || trade.Status != model.StatusOpen {
		t.Errorf("Unexpected trade after buy: %+v", trade)
	}

	// Close it with a sell
	resp = postJSON(t, srv.URL+"/api/trades/"+itoa(created.ID)+"/sell", map[string]any{
		"price":    "12.00",
		"quantity": 100,
		"date":     "2025-01-05",
		"fee":      "1.00",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200 from sell, got %d", resp.StatusCode)
	}
	decodeBody(t, resp, &trade)
	if trade.Status != model.StatusClosed || trade.CloseDate != "2025-01-05" {
		t.Errorf("Expected closed trade, got %+v", trade)
	}

	// Listing carries items and total
	var listing handlers.ListTradesResponse
	if status := getJSON(t, srv.URL+"/api/trades/?status=closed", &listing); status != http.StatusOK {
		t.Fatalf("Expected 200 from list, got %d", status)
	}
	if listing.Total != 1 || len(listing.Items) != 1 {
		t.Errorf("Expected 1 closed trade, got %+v", listing)
	}

	// Overview is served for the position
	var overview model.TradeOverview
	if status := getJSON(t, srv.URL+"/api/trades/"+itoa(created.ID)+"/overview", &overview); status != http.StatusOK {
		t.Fatalf("Expected 200 from overview, got %d", status)
	}
	if overview.DetailCount != 2 {
		t.Errorf("Expected 2 details in overview, got %+v", overview)
	}
}

// TestTradeEndpoints_ErrorMapping tests the HTTP status mapping of service
// errors.
//
// WHY: Clients branch on status codes; a not-found surfacing as a 500 breaks
// their error handling.
func TestTradeEndpoints_ErrorMapping(t *testing.T) {
	// Setup
	srv, db := newTestServer(t)
	strategy := testutil.CreateStrategy(t, db, "Trend")

	t.Run("unknown trade is a 404", func(t *testing.T) {
		if status := getJSON(t, srv.URL+"/api/trades/999999", nil); status != http.StatusNotFound {
			t.Errorf("Expected 404, got %d", status)
		}
	})

	t.Run("validation failures are 400s with field messages", func(t *testing.T) {
		resp := postJSON(t, srv.URL+"/api/trades/buy", map[string]any{
			"strategyId": strategy.ID,
			"symbolCode": "AAPL",
			"symbolName": "苹果公司",
			"price":      "-1",
			"quantity":   100,
			"date":       "2025-01-01",
		})
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("Expected 400, got %d", resp.StatusCode)
		}
		var body struct {
			Error  string            `json:"error"`
			Fields map[string]string `json:"fields"`
		}
		decodeBody(t, resp, &body)
		if body.Fields["price"] == "" {
			t.Errorf("Expected a price field message, got %+v", body)
		}
	})

	t.Run("unknown confirmation intent is a 403", func(t *testing.T) {
		tradeID := testutil.NewTrade(strategy.ID).Build(t, db)
		resp := postJSON(t, srv.URL+"/api/trades/"+itoa(tradeID)+"/confirm?intent=bogus", map[string]any{})
		resp.Body.Close()
		if resp.StatusCode != http.StatusForbidden {
			t.Errorf("Expected 403, got %d", resp.StatusCode)
		}
	})
}

// TestTradeEndpoints_DefaultStrategy tests the configured strategy fallback.
//
// WHY: Buy requests may omit the strategy entirely; they must land on the
// configured default strategy instead of failing resolution.
func TestTradeEndpoints_DefaultStrategy(t *testing.T) {
	// Setup: a strategy named like the configured default
	srv, db := newTestServer(t)
	strategy := testutil.CreateStrategy(t, db, "默认策略")

	// Execute: no strategyId, no strategyName
	resp := postJSON(t, srv.URL+"/api/trades/buy", map[string]any{
		"symbolCode": "AAPL",
		"symbolName": "苹果公司",
		"price":      "10.00",
		"quantity":   100,
		"date":       "2025-01-01",
	})

	// Assert
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("Expected 201 from buy without strategy, got %d", resp.StatusCode)
	}
	var created handlers.CreatedResponse
	decodeBody(t, resp, &created)

	var trade model.Trade
	if status := getJSON(t, srv.URL+"/api/trades/"+itoa(created.ID), &trade); status != http.StatusOK {
		t.Fatalf("Expected 200 from get, got %d", status)
	}
	if trade.StrategyID != strategy.ID {
		t.Errorf("Expected trade on default strategy %d, got %d", strategy.ID, trade.StrategyID)
	}
}

// TestTradeEndpoints_DeleteFlow tests the confirmation-guarded delete flow
// through the HTTP layer.
//
// WHY: The code issued by the confirmation endpoint must be accepted by the
// delete endpoint of the same trade, and deleted trades must vanish from the
// default read paths.
func TestTradeEndpoints_DeleteFlow(t *testing.T) {
	// Setup
	srv, db := newTestServer(t)
	strategy := testutil.CreateStrategy(t, db, "Trend")
	tradeID := testutil.NewTrade(strategy.ID).Build(t, db)

	// Execute: fetch a code, then delete with it
	resp := postJSON(t, srv.URL+"/api/trades/"+itoa(tradeID)+"/confirm?intent=soft_delete", map[string]any{})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200 from confirm, got %d", resp.StatusCode)
	}
	var confirmation handlers.ConfirmationResponse
	decodeBody(t, resp, &confirmation)
	if confirmation.Code == "" {
		t.Fatal("Expected a confirmation code")
	}

	resp = postJSON(t, srv.URL+"/api/trades/"+itoa(tradeID)+"/delete", map[string]any{
		"confirmationCode": confirmation.Code,
		"reason":           "录入错误",
	})
	resp.Body.Close()

	// Assert
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("Expected 204 from delete, got %d", resp.StatusCode)
	}
	if status := getJSON(t, srv.URL+"/api/trades/"+itoa(tradeID), nil); status != http.StatusNotFound {
		t.Errorf("Expected deleted trade hidden from default get, got %d", status)
	}
	if status := getJSON(t, srv.URL+"/api/trades/"+itoa(tradeID)+"?include_deleted=true", nil); status != http.StatusOK {
		t.Errorf("Expected deleted trade visible with include_deleted, got %d", status)
	}

	var deleted []model.Trade
	if status := getJSON(t, srv.URL+"/api/trades/deleted", &deleted); status != http.StatusOK {
		t.Fatalf("Expected 200 from deleted listing, got %d", status)
	}
	if len(deleted) != 1 || deleted[0].ID != tradeID {
		t.Errorf("Expected the deleted trade in the listing, got %+v", deleted)
	}
}

// TestSystemAndReconcileEndpoints tests the operational endpoints.
//
// WHY: Health and validation are the endpoints monitoring depends on; they
// must respond on an empty database.
func TestSystemAndReconcileEndpoints(t *testing.T) {
	// Setup
	srv, _ := newTestServer(t)

	// Execute / Assert
	var health handlers.HealthResponse
	if status := getJSON(t, srv.URL+"/api/system/health", &health); status != http.StatusOK {
		t.Fatalf("Expected 200 from health, got %d", status)
	}
	if health.Status != "ok" || health.Database != "ok" {
		t.Errorf("Unexpected health payload: %+v", health)
	}

	var report struct {
		Summary struct {
			TradesChecked int `json:"tradesChecked"`
		} `json:"summary"`
	}
	if status := getJSON(t, srv.URL+"/api/reconcile/validate", &report); status != http.StatusOK {
		t.Fatalf("Expected 200 from validate, got %d", status)
	}
	if report.Summary.TradesChecked != 0 {
		t.Errorf("Expected 0 trades checked on empty database, got %d", report.Summary.TradesChecked)
	}

	var score struct {
		Rating string `json:"rating"`
	}
	if status := getJSON(t, srv.URL+"/api/analysis/score", &score); status != http.StatusOK {
		t.Fatalf("Expected 200 from score, got %d", status)
	}
	if score.Rating != "D" {
		t.Errorf("Expected rating D on empty database, got %q", score.Rating)
	}
}

// itoa formats a trade ID for URL building.
func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
