package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"trading-core/internal/engine"
	"trading-core/internal/events"
	"trading-core/internal/monitor"
	"trading-core/internal/risk"
	"trading-core/internal/store"
	"trading-core/internal/strategy"

	"github.com/gin-gonic/gin"
)

func newTestAPIServer(t *testing.T) (*httptest.Server, func()) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}

	bus := events.NewBus()
	metrics := monitor.NewSystemMetrics()
	cfg := engine.Config{
		InitialCapital:     100000,
		AllocationFraction: 0.2,
		FeeRate:            0,
		ATRPeriod:          14,
		Risk:               risk.DefaultConfig(),
		Momentum:           strategy.DefaultMomentumConfig(),
		MeanReversion:      strategy.DefaultMeanReversionConfig(),
		Regime:             engine.RegimeParams{VolShort: 50, VolLong: 200, TrendSMA: 300, TrendThreshold: 0.005},
	}

	server := NewServer(bus, st, metrics, cfg, SystemMeta{Version: "test"}, "test-secret", "test-machine")
	httpServer := httptest.NewServer(server.Router)

	cleanup := func() {
		httpServer.Close()
		_ = st.Close()
	}
	return httpServer, cleanup
}

func doJSONRequest(t *testing.T, client *http.Client, method, url, token string, payload, out any) int {
	t.Helper()

	var buf bytes.Buffer
	if payload != nil {
		if err := json.NewEncoder(&buf).Encode(payload); err != nil {
			t.Fatalf("encode payload: %v", err)
		}
	}

	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
	return resp.StatusCode
}

func issueTestToken(t *testing.T, client *http.Client, baseURL string) string {
	t.Helper()
	var resp struct {
		Token string `json:"token"`
	}
	status := doJSONRequest(t, client, http.MethodPost, baseURL+"/api/token", "", map[string]string{
		"client_id": "tester",
	}, &resp)
	if status != http.StatusOK || resp.Token == "" {
		t.Fatalf("issueToken failed status=%d resp=%+v", status, resp)
	}
	return resp.Token
}

func TestHealthEndpoint(t *testing.T) {
	ts, cleanup := newTestAPIServer(t)
	defer cleanup()

	resp, err := ts.Client().Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("health request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("health status = %d, want 200", resp.StatusCode)
	}
}

func TestSubmitRunRequiresAuth(t *testing.T) {
	ts, cleanup := newTestAPIServer(t)
	defer cleanup()

	status := doJSONRequest(t, ts.Client(), http.MethodPost, ts.URL+"/api/runs", "", map[string]any{
		"csv": "timestamp,open,high,low,close,volume\n1700000000,100,105,95,102,1000\n",
	}, nil)
	if status != http.StatusUnauthorized {
		t.Fatalf("expected 401 without a token, got %d", status)
	}
}

func TestSubmitRunAndRetrieveReport(t *testing.T) {
	ts, cleanup := newTestAPIServer(t)
	defer cleanup()

	client := ts.Client()
	token := issueTestToken(t, client, ts.URL)

	// constant-price series: the engine should trade nothing and the
	// report should carry the full initial capital.
	var csv bytes.Buffer
	csv.WriteString("timestamp,open,high,low,close,volume\n")
	for i := 0; i < 50; i++ {
		tsSec := 1700000000 + int64(i*60)
		fmt.Fprintf(&csv, "%d,100,100,100,100,1000\n", tsSec)
	}

	var runResp struct {
		RunID  string        `json:"run_id"`
		Report engine.Report `json:"report"`
	}
	status := doJSONRequest(t, client, http.MethodPost, ts.URL+"/api/runs", token, map[string]any{
		"csv": csv.String(),
	}, &runResp)
	if status != http.StatusCreated {
		t.Fatalf("submitRun status=%d resp=%+v", status, runResp)
	}
	if runResp.RunID == "" {
		t.Fatal("expected a run id")
	}
	if runResp.Report.TotalTrades != 0 {
		t.Fatalf("TotalTrades = %d, want 0 on a constant-price series", runResp.Report.TotalTrades)
	}

	var getResp struct {
		RunID  string        `json:"run_id"`
		Report engine.Report `json:"report"`
	}
	status = doJSONRequest(t, client, http.MethodGet, ts.URL+"/api/runs/"+runResp.RunID, token, nil, &getResp)
	if status != http.StatusOK {
		t.Fatalf("getRun status=%d", status)
	}
	if getResp.Report.FinalEquity != runResp.Report.FinalEquity {
		t.Fatalf("cached report mismatch: got %+v, want %+v", getResp.Report, runResp.Report)
	}
}

func TestGetRunMissingReturns404(t *testing.T) {
	ts, cleanup := newTestAPIServer(t)
	defer cleanup()

	client := ts.Client()
	token := issueTestToken(t, client, ts.URL)

	status := doJSONRequest(t, client, http.MethodGet, ts.URL+"/api/runs/does-not-exist", token, nil, nil)
	if status != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", status)
	}
}

