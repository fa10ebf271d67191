package dongchedi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"car-sales/config"
	"car-sales/utils"
)

const samplePage = `{"status":0,"data":{"list":[
	{"rank":1,"brand_name":"比亚迪","series_name":"秦PLUS","price_range":"7.98-12.98万","count":45678,
	 "sub_board_name":"","series_type_name":"轿车","upper_name":"紧凑型车"},
	{"rank":2,"brand_name":"小米","series_name":"SU7","price":"21.59万起","count":"20000"},
	{"rank":3,"brand_name":"理想","series_name":"L6","price_range":null,"price":"","count":null,"upper_name":"中大型SUV"}
]}}`

func testConfig(pages int) *config.Config {
	return &config.Config{PagesToScrape: pages, PageDelayMs: 0, RankType: "1", FetchMode: config.FetchHTTP}
}

func TestParsePage(t *testing.T) {
	at := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	got, err := ParsePage([]byte(samplePage), at)
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, "1", got[0].Rank)
	assert.Equal(t, "比亚迪", got[0].BrandName)
	assert.Equal(t, "7.98-12.98万", got[0].PriceText)
	assert.Equal(t, "45678", got[0].MonthlySales)
	assert.Equal(t, []string{"", "轿车", "紧凑型车"}, got[0].CategoryCandidates)
	assert.Equal(t, at, got[0].ScrapedAt)

	assert.Equal(t, "21.59万起", got[1].PriceText, "price is used when price_range is absent")
	assert.Equal(t, []string{"", "", ""}, got[1].CategoryCandidates)

	assert.Equal(t, unpricedText, got[2].PriceText)
	assert.Equal(t, "", got[2].MonthlySales)
}

func TestParsePage_Invalid(t *testing.T) {
	_, err := ParsePage([]byte("<html>blocked</html>"), time.Now())
	assert.Error(t, err)

	got, err := ParsePage([]byte(`{"data":{}}`), time.Now())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestHTTPFetcher_SendsParamsAndHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1", r.URL.Query().Get("type"))
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.True(t, r.URL.Query().Has("month"))
		assert.Equal(t, salesPageURL, r.Header.Get("Referer"))
		assert.Contains(t, r.Header.Get("User-Agent"), "Mozilla/5.0")
		_, _ = w.Write([]byte(samplePage))
	}))
	defer srv.Close()

	body, err := NewHTTPFetcher(srv.URL, "1").FetchPage(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, samplePage, string(body))
}

func TestHTTPFetcher_NonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := NewHTTPFetcher(srv.URL, "1").FetchPage(context.Background(), 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 403")
}

func TestScraper_SkipsFailedPages(t *testing.T) {
	var (
		mu    sync.Mutex
		pages []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page := r.URL.Query().Get("page")
		mu.Lock()
		pages = append(pages, page)
		mu.Unlock()

		switch page {
		case "1":
			w.WriteHeader(http.StatusBadGateway)
		case "2":
			_, _ = w.Write([]byte("not json"))
		default:
			_, _ = w.Write([]byte(samplePage))
		}
	}))
	defer srv.Close()

	s := New(testConfig(4), NewHTTPFetcher(srv.URL, "1"), utils.NewTestLogger(t))
	got, err := s.Scrape(context.Background())
	require.NoError(t, err)

	assert.Len(t, got, 6, "pages 0 and 3 succeed")
	assert.Equal(t, []string{"0", "1", "2", "3"}, pages, "one request per page, no retries")
}

type stubFetcher struct {
	calls []time.Time
	err   error
}

func (f *stubFetcher) FetchPage(ctx context.Context, page int) ([]byte, error) {
	f.calls = append(f.calls, time.Now())
	if f.err != nil {
		return nil, f.err
	}
	return []byte(samplePage), nil
}

func (f *stubFetcher) Close() error { return nil }

func TestScraper_PacesPages(t *testing.T) {
	cfg := testConfig(3)
	cfg.PageDelayMs = 40
	f := &stubFetcher{}

	_, err := New(cfg, f, utils.NewNopLogger()).Scrape(context.Background())
	require.NoError(t, err)
	require.Len(t, f.calls, 3)
	for i := 1; i < len(f.calls); i++ {
		assert.GreaterOrEqual(t, f.calls[i].Sub(f.calls[i-1]), 35*time.Millisecond)
	}
}

func TestScraper_AllPagesFail(t *testing.T) {
	f := &stubFetcher{err: errors.New("connection reset")}
	got, err := New(testConfig(2), f, utils.NewNopLogger()).Scrape(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Len(t, f.calls, 2)
}

func TestScraper_Cancelled(t *testing.T) {
	cfg := testConfig(3)
	cfg.PageDelayMs = 1000
	ctx, cancel := context.WithCancel(context.Background())
	f := &stubFetcher{}

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	got, err := New(cfg, f, utils.NewNopLogger()).Scrape(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Len(t, got, 3, "first page is kept")
}

func TestNewFetcher_HTTPDefault(t *testing.T) {
	f, err := NewFetcher(context.Background(), testConfig(1), utils.NewNopLogger())
	require.NoError(t, err)
	_, ok := f.(*HTTPFetcher)
	assert.True(t, ok)

	_, err = NewFetcher(context.Background(), &config.Config{FetchMode: "carrier-pigeon"}, utils.NewNopLogger())
	assert.Error(t, err)
}

func TestFindChromeBinary_EnvOverride(t *testing.T) {
	t.Setenv("CHROME_BIN", "/opt/custom/chrome")
	assert.Equal(t, "/opt/custom/chrome", findChromeBinary())
}

func TestPageURL(t *testing.T) {
	assert.Equal(t, fmt.Sprintf("%s?month=&page=0&type=1", "http://x/rank"), pageURL("http://x/rank", "1", 0))
}
