package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"car-sales/models"
	"car-sales/services"
	"car-sales/storage"
	"car-sales/utils"
)

func ptrF(v float64) *float64 { return &v }

func ptrI(v int64) *int64 { return &v }

func writeFixture(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sales.csv")
	w, err := storage.NewCSVWriter(path)
	require.NoError(t, err)
	require.NoError(t, w.Write(context.Background(), []*models.Listing{
		{Brand: "特斯拉", Series: "Model Y", PriceRange: "24.99-35.49万", MinPrice: ptrF(24.99), MonthlySales: ptrI(40000), Category: "中型SUV"},
		{Brand: "比亚迪", Series: "秦PLUS", PriceRange: "7.98-12.98万", MinPrice: ptrF(7.98), MonthlySales: ptrI(35000), Category: "紧凑型车"},
		{Brand: "比亚迪", Series: "宋PLUS", PriceRange: "15.98-21.98万", MinPrice: ptrF(15.98), MonthlySales: ptrI(30000), Category: "紧凑型SUV"},
	}))
	require.NoError(t, w.Close())
	return path
}

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

func newTestServer(t *testing.T, csvPath string, store Pinger) *Server {
	t.Helper()
	logger := utils.NewTestLogger(t)
	queries := services.NewQueryService(nil, storage.NewCSVSource(csvPath),
		services.Limits{Filter: 15, Ask: 10, Recommend: 5}, logger)
	insights := services.NewInsightService(logger)
	assistant := services.NewAssistant(nil, nil, queries, insights, nil, time.Minute, logger)
	return New(queries, assistant, insights, store, logger)
}

func do(t *testing.T, s *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data, _ := resp.Data.(map[string]any)
	return data
}

func TestListings(t *testing.T) {
	s := newTestServer(t, writeFixture(t), nil)

	w := do(t, s, http.MethodGet, "/api/listings?min=5&max=30&category=SUV", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(requestIDHeader))

	data := decode(t, w)
	assert.Equal(t, true, data["degraded"])
	listings := data["listings"].([]any)
	require.Len(t, listings, 2)
	assert.Equal(t, "Model Y", listings[0].(map[string]any)["series"])
}

func TestListings_BadParam(t *testing.T) {
	s := newTestServer(t, writeFixture(t), nil)
	w := do(t, s, http.MethodGet, "/api/listings?min=abc", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListings_NoSourceAvailable(t *testing.T) {
	s := newTestServer(t, filepath.Join(t.TempDir(), "missing.csv"), nil)
	w := do(t, s, http.MethodGet, "/api/listings", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestRecommend(t *testing.T) {
	s := newTestServer(t, writeFixture(t), nil)
	w := do(t, s, http.MethodGet, "/api/recommend?min=5&max=20", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, decode(t, w)["tip"], "秦PLUS")
}

func TestAnalyze_LocalSummaryWithoutModel(t *testing.T) {
	s := newTestServer(t, writeFixture(t), nil)
	w := do(t, s, http.MethodGet, "/api/analyze?min=0&max=100", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, decode(t, w)["summary"], "销量冠军是 特斯拉 Model Y")
}

func TestAsk(t *testing.T) {
	s := newTestServer(t, writeFixture(t), nil)

	w := do(t, s, http.MethodPost, "/api/ask", `{"question":"哪款车卖得最好"}`)
	require.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w)
	assert.Equal(t, "哪款车卖得最好", data["question"])
	assert.NotEmpty(t, data["summary"])

	w = do(t, s, http.MethodPost, "/api/ask", `{"question":"  "}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestChart(t *testing.T) {
	s := newTestServer(t, writeFixture(t), nil)
	w := do(t, s, http.MethodGet, "/api/chart.xlsx?min=0&max=100", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "spreadsheetml")
	assert.True(t, strings.HasPrefix(w.Body.String(), "PK"), "xlsx is a zip archive")
}

func TestIndex(t *testing.T) {
	s := newTestServer(t, writeFixture(t), nil)

	w := do(t, s, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "开始分析")
	assert.NotContains(t, w.Body.String(), "Model Y")

	w = do(t, s, http.MethodGet, "/?run=1&min=5&max=30&category=%E5%85%A8%E9%83%A8", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "Model Y")
	assert.Contains(t, body, "本地文件")
	assert.Contains(t, body, "建议优先试驾")

	w = do(t, s, http.MethodGet, "/?q=SUV", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "实时检索结果")
}

func TestHealthz(t *testing.T) {
	w := do(t, newTestServer(t, writeFixture(t), pinger{}), http.MethodGet, "/healthz", "")
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = do(t, newTestServer(t, writeFixture(t), pinger{err: errors.New("refused")}), http.MethodGet, "/healthz", "")
	assert.Contains(t, w.Body.String(), "degraded")
}

func TestMetrics(t *testing.T) {
	s := newTestServer(t, writeFixture(t), nil)
	do(t, s, http.MethodGet, "/api/listings", "")

	w := do(t, s, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "car_sales_queries_total")
}

func TestRequestIDPropagated(t *testing.T) {
	s := newTestServer(t, writeFixture(t), nil)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(requestIDHeader))
}
