package dongchedi

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"car-sales/utils"
)

// BrowserFetcher loads the public sales page in headless Chrome once and then
// calls the rank API from inside it, so requests carry the page's cookies.
type BrowserFetcher struct {
	rankURL  string
	rankType string
	logger   *utils.Logger

	tabCtx      context.Context
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc
	ready       bool
}

// NewBrowserFetcher starts the browser; chromeBin may be empty to auto-detect.
func NewBrowserFetcher(ctx context.Context, rankURL, rankType, chromeBin string, logger *utils.Logger) (*BrowserFetcher, error) {
	if chromeBin == "" {
		chromeBin = findChromeBinary()
	}
	logger.Info("[dongchedi] Using browser binary: %s", chromeBin)

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.UserAgent(userAgent),
	)
	if chromeBin != "" {
		opts = append(opts, chromedp.ExecPath(chromeBin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)

	// Suppress chromedp log noise
	tabCtx, cancelTab := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...any) {}))

	return &BrowserFetcher{
		rankURL:     rankURL,
		rankType:    rankType,
		logger:      logger,
		tabCtx:      tabCtx,
		cancelTab:   cancelTab,
		cancelAlloc: cancelAlloc,
	}, nil
}

// FetchPage evaluates fetch() in the loaded page and returns the body text.
func (b *BrowserFetcher) FetchPage(ctx context.Context, page int) ([]byte, error) {
	runCtx, cancel := context.WithTimeout(b.tabCtx, 60*time.Second)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if !b.ready {
		if err := chromedp.Run(runCtx,
			chromedp.Navigate(salesPageURL),
			chromedp.WaitReady("body"),
		); err != nil {
			return nil, fmt.Errorf("chromedp navigate: %w", err)
		}
		b.ready = true
	}

	script := fmt.Sprintf(`fetch(%q, {credentials: "include"}).then(function(r) {
		if (!r.ok) { throw new Error("status " + r.status); }
		return r.text();
	})`, pageURL(b.rankURL, b.rankType, page))

	var body string
	err := chromedp.Run(runCtx, chromedp.Evaluate(script, &body,
		func(p *runtime.EvaluateParams) *runtime.EvaluateParams { return p.WithAwaitPromise(true) }))
	if err != nil {
		return nil, fmt.Errorf("chromedp fetch page %d: %w", page, err)
	}
	return []byte(body), nil
}

// Close shuts the browser down.
func (b *BrowserFetcher) Close() error {
	b.cancelTab()
	b.cancelAlloc()
	return nil
}

// findChromeBinary locates Chrome/Chromium binary.
func findChromeBinary() string {
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		return bin
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
		"/opt/google/chrome/google-chrome",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}
