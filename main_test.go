package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toncenter/ton-indexer/ton-tracing-go/index"
	"github.com/toncenter/ton-indexer/ton-tracing-go/index/emulated"
	"github.com/toncenter/ton-indexer/ton-tracing-go/trace"
)

const (
	rootHash   = "ERERERERERERERERERERERERERERERERERERERERERE="
	rootHex    = "1111111111111111111111111111111111111111111111111111111111111111"
	walletAddr = "0:AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"
	tokenAddr  = "0:BBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBB"
)

type staticSource struct {
	root *trace.MessageRecord
}

func (s staticSource) FetchMessageTree(ctx context.Context, msgHash string) (*trace.MessageRecord, error) {
	if msgHash != s.root.Hash {
		return nil, fmt.Errorf("%w: %s", trace.ErrMessageNotFound, msgHash)
	}
	return s.root, nil
}

func (s staticSource) FetchCodeHashes(ctx context.Context, addrs []string) (map[string]string, error) {
	return map[string]string{}, nil
}

func failingTree() *trace.MessageRecord {
	return &trace.MessageRecord{
		Hash:        rootHash,
		Kind:        trace.MsgExtIn,
		Destination: walletAddr,
		Transaction: &trace.TransactionOutcome{
			Compute: trace.ComputeResult{Success: true, Status: trace.ComputeNormal},
			Action:  &trace.ActionResult{Success: true},
		},
		Children: []*trace.MessageRecord{{
			Hash:        "child",
			Kind:        trace.MsgInternal,
			Source:      walletAddr,
			Destination: tokenAddr,
			Transaction: &trace.TransactionOutcome{
				Compute: trace.ComputeResult{Status: trace.ComputeNormal, ExitCode: 100},
				Aborted: true,
			},
		}},
	}
}

func setupApp(t *testing.T) *fiber.App {
	t.Helper()
	logger.SetOutput(io.Discard)
	settings.Request.Timeout = time.Second
	tracer = trace.NewTracer(trace.TracerConfig{Logger: logger})

	prev := sourceFor
	sourceFor = func(bool) (trace.DataSource, error) {
		return staticSource{root: failingTree()}, nil
	}
	t.Cleanup(func() { sourceFor = prev })
	return NewApp()
}

func doRequest(t *testing.T, app *fiber.App, method, target string, body string) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

func decodeTrace(t *testing.T, data []byte) map[string]any {
	t.Helper()
	var res map[string]any
	require.NoError(t, json.Unmarshal(data, &res))
	return res
}

func TestGetTrace(t *testing.T) {
	app := setupApp(t)

	status, data := doRequest(t, app, http.MethodGet, "/api/v3/trace?msg_hash="+rootHex, "")
	require.Equal(t, http.StatusOK, status, string(data))
	res := decodeTrace(t, data)
	assert.Equal(t, true, res["has_error"])
	assert.Equal(t, float64(2), res["nodes"])
	assert.Equal(t, "child", res["reverted_msg_hash"])

	root := res["trace"].(map[string]any)
	assert.Equal(t, true, root["has_error_in_tree"])
	children := root["out_traces"].([]any)
	require.Len(t, children, 1)
	failure := children[0].(map[string]any)["error"].(map[string]any)
	assert.Equal(t, "compute", failure["phase"])
	assert.Equal(t, float64(100), failure["code"])
}

func TestPostTraceRequestPolicy(t *testing.T) {
	app := setupApp(t)

	body := fmt.Sprintf(`{"msg_hash": %q, "allowed_codes": {"contracts": {%q: {"compute": [100]}}}}`, rootHash, tokenAddr)
	status, data := doRequest(t, app, http.MethodPost, "/api/v3/trace", body)
	require.Equal(t, http.StatusOK, status, string(data))
	res := decodeTrace(t, data)
	assert.Equal(t, false, res["has_error"])
	assert.Nil(t, res["reverted_msg_hash"])

	assert.True(t, tracer.AllowedCodes().ForAddress(tokenAddr).IsEmpty())
}

func TestTraceErrors(t *testing.T) {
	app := setupApp(t)

	status, data := doRequest(t, app, http.MethodGet, "/api/v3/trace?msg_hash="+strings.Repeat("22", 32), "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.JSONEq(t, `{"error": "message not found"}`, string(data))

	status, _ = doRequest(t, app, http.MethodGet, "/api/v3/trace?msg_hash=bad", "")
	assert.Equal(t, http.StatusUnprocessableEntity, status)

	status, _ = doRequest(t, app, http.MethodGet, "/api/v3/trace", "")
	assert.Equal(t, http.StatusUnprocessableEntity, status)

	status, _ = doRequest(t, app, http.MethodPost, "/api/v3/trace", `{"msg_hash": "bad"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, status)

	sourceFor = func(bool) (trace.DataSource, error) {
		return nil, index.IndexError{Code: 400, Message: "emulated traces are not configured"}
	}
	status, _ = doRequest(t, app, http.MethodGet, "/api/v3/trace?emulated=true&msg_hash="+rootHex, "")
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestAllowedCodesEndpoints(t *testing.T) {
	app := setupApp(t)

	status, data := doRequest(t, app, http.MethodPost, "/api/v3/allowedCodes", `{"compute": [100]}`)
	require.Equal(t, http.StatusOK, status, string(data))
	var resp index.AllowedCodesResponse
	require.NoError(t, json.Unmarshal(data, &resp))
	assert.Equal(t, []int32{100}, resp.AllowedCodes.Compute)

	status, data = doRequest(t, app, http.MethodGet, "/api/v3/trace?msg_hash="+rootHex, "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, decodeTrace(t, data)["has_error"])

	status, _ = doRequest(t, app, http.MethodDelete, "/api/v3/allowedCodes", `{"compute": [100]}`)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, tracer.AllowedCodes().Compute)

	status, _ = doRequest(t, app, http.MethodPost, "/api/v3/allowedCodes?address="+tokenAddr, `{"action": [37]}`)
	require.Equal(t, http.StatusOK, status)
	status, data = doRequest(t, app, http.MethodGet, "/api/v3/allowedCodes?address="+tokenAddr, "")
	require.Equal(t, http.StatusOK, status)
	resp = index.AllowedCodesResponse{}
	require.NoError(t, json.Unmarshal(data, &resp))
	require.NotNil(t, resp.Effective)
	assert.Equal(t, []int32{37}, resp.Effective.Action)

	status, _ = doRequest(t, app, http.MethodDelete, "/api/v3/allowedCodes?address="+tokenAddr, `{"action": [37]}`)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, tracer.AllowedCodes().Contracts)

	status, _ = doRequest(t, app, http.MethodPost, "/api/v3/allowedCodes", `{"contracts": {"nowhere": {"compute": [1]}}}`)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
}

func TestHealthAndMetrics(t *testing.T) {
	app := setupApp(t)

	status, data := doRequest(t, app, http.MethodGet, "/healthcheck", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "OK", string(data))

	doRequest(t, app, http.MethodGet, "/api/v3/trace?msg_hash="+rootHex, "")
	status, data = doRequest(t, app, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(data), `ton_tracing_requests_total{result="ok"}`)
	assert.Contains(t, string(data), "ton_tracing_build_seconds")
}

func TestAbiCacheMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	rate := 0.25
	require.NoError(t, registerAbiCacheMetrics(reg, func() float64 { return rate }))

	expected := `
# HELP ton_tracing_abi_cache_hit_ratio Share of ABI lookups served from the cache.
# TYPE ton_tracing_abi_cache_hit_ratio gauge
ton_tracing_abi_cache_hit_ratio 0.25
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "ton_tracing_abi_cache_hit_ratio"))

	rate = 0.5
	families, err := reg.Gather()
	require.NoError(t, err)
	require.Len(t, families, 1)
	assert.Equal(t, 0.5, families[0].GetMetric()[0].GetGauge().GetValue())

	assert.Error(t, registerAbiCacheMetrics(reg, func() float64 { return 0 }))
}

func TestHealthCheckRedis(t *testing.T) {
	app := setupApp(t)
	mr := miniredis.RunT(t)
	emulatedRepo = &emulated.EmulatedTracesRepository{
		Rdb:    redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1}),
		Logger: logger,
	}
	t.Cleanup(func() {
		emulatedRepo.Rdb.Close()
		emulatedRepo = nil
	})

	status, _ := doRequest(t, app, http.MethodGet, "/healthcheck", "")
	assert.Equal(t, http.StatusOK, status)

	mr.Close()
	status, data := doRequest(t, app, http.MethodGet, "/healthcheck", "")
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.JSONEq(t, `{"error": "redis is unavailable"}`, string(data))
}

func TestLoadAllowedCodes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "allowed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
compute: [100, 101]
action: [37]
contracts:
  any:
    compute: [60]
  "0:bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb":
    action: [40]
`), 0o644))

	codes, err := LoadAllowedCodes(path)
	require.NoError(t, err)
	assert.Equal(t, []int32{100, 101}, codes.Compute)
	assert.Equal(t, []int32{37}, codes.Action)
	assert.Equal(t, []int32{60}, codes.Contracts[trace.AnyContract].Compute)
	assert.Equal(t, []int32{40}, codes.Contracts[tokenAddr].Action)

	empty, err := LoadAllowedCodes("")
	require.NoError(t, err)
	assert.True(t, empty.ForAddress(tokenAddr).IsEmpty())

	_, err = LoadAllowedCodes(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
