package httpapi

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stationops/fuelledger/internal/cache"
	"github.com/stationops/fuelledger/internal/ledger"
	"github.com/stationops/fuelledger/internal/metrics"
	"github.com/stationops/fuelledger/internal/pricing"
	"github.com/stationops/fuelledger/internal/service"
	"github.com/stationops/fuelledger/internal/store/memory"
)

func testServer(t *testing.T) *httptest.Server {
	t.Helper()
	mem := memory.New()
	require.NoError(t, mem.Seed())
	registry := prometheus.NewRegistry()
	svc := service.New(mem,
		pricing.NewResolver(mem),
		ledger.NewReader(mem, cache.NewNoop()),
		metrics.New(registry),
		slog.New(slog.NewTextHandler(io.Discard, nil)))
	api := New(svc, slog.New(slog.NewTextHandler(io.Discard, nil)), "test-secret")
	ts := httptest.NewServer(api.Router(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	t.Cleanup(ts.Close)
	return ts
}

func login(t *testing.T, ts *httptest.Server, username, password string) string {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"username": username, "password": password})
	resp, err := http.Post(ts.URL+"/api/v1/auth/login", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.NotEmpty(t, out.Token)
	return out.Token
}

func doJSON(t *testing.T, ts *httptest.Server, method, path, token string, payload any) *http.Response {
	t.Helper()
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, ts.URL+path, body)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func TestHealthz(t *testing.T) {
	ts := testServer(t)
	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	ts := testServer(t)
	body, _ := json.Marshal(map[string]string{"username": "admin", "password": "wrong"})
	resp, err := http.Post(ts.URL+"/api/v1/auth/login", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRoutesRequireAuth(t *testing.T) {
	ts := testServer(t)
	resp := doJSON(t, ts, http.MethodGet, "/api/v1/shifts", "", nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestShiftLifecycleOverHTTP(t *testing.T) {
	ts := testServer(t)
	operator := login(t, ts, "operator", "operator123")

	resp := doJSON(t, ts, http.MethodPost, "/api/v1/shifts", operator, map[string]any{
		"store_id":   "store-main",
		"shift_date": "2025-03-10",
		"shift_no":   1,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var shift struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&shift))
	resp.Body.Close()

	resp = doJSON(t, ts, http.MethodPost, "/api/v1/shifts/"+shift.ID+"/close", operator, map[string]any{
		"pump_readings": []map[string]any{{
			"pump_code":   "P1",
			"product_id":  "prod-pertalite",
			"start_value": "100",
			"end_value":   "150",
			"test_export": "0",
		}},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// Reopen is admin-only.
	resp = doJSON(t, ts, http.MethodPost, "/api/v1/shifts/"+shift.ID+"/reopen", operator, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	admin := login(t, ts, "admin", "admin123")
	resp = doJSON(t, ts, http.MethodPost, "/api/v1/shifts/"+shift.ID+"/reopen", admin, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, ts, http.MethodGet, "/api/v1/stores/store-main/cash/balance", operator, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var bal struct {
		Balance string `json:"balance"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&bal))
	resp.Body.Close()
	assert.Equal(t, "0", bal.Balance)
}

func TestCloseConflictMapsTo409(t *testing.T) {
	ts := testServer(t)
	operator := login(t, ts, "operator", "operator123")

	resp := doJSON(t, ts, http.MethodPost, "/api/v1/shifts", operator, map[string]any{
		"store_id":   "store-main",
		"shift_date": "2025-03-10",
		"shift_no":   1,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var shift struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&shift))
	resp.Body.Close()

	closeBody := map[string]any{
		"pump_readings": []map[string]any{{
			"pump_code":   "P1",
			"product_id":  "prod-pertalite",
			"start_value": "100",
			"end_value":   "150",
		}},
	}
	resp = doJSON(t, ts, http.MethodPost, "/api/v1/shifts/"+shift.ID+"/close", operator, closeBody)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, ts, http.MethodPost, "/api/v1/shifts/"+shift.ID+"/close", operator, closeBody)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()
}
