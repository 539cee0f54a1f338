package lofty

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"os/exec"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
)

// stealthScript hides the most obvious automation markers.
const stealthScript = `
Object.defineProperty(navigator, 'webdriver', {get: () => undefined});
Object.defineProperty(navigator, 'languages', {get: () => ['en-US', 'en']});
Object.defineProperty(navigator, 'plugins', {get: () => [1, 2, 3, 4, 5]});
window.chrome = {runtime: {}};
`

// browserTimezone matches the market the site serves.
const browserTimezone = "America/Los_Angeles"

type viewport struct{ width, height int }

var viewports = []viewport{
	{1920, 1080},
	{1440, 900},
	{1536, 864},
	{1366, 768},
}

var userAgents = []string{
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/130.0.0.0 Safari/537.36",
}

// ChromeOptions configures a ChromeBrowser session.
type ChromeOptions struct {
	Headless    bool
	ChromeBin   string
	PageTimeout time.Duration
}

// ChromeBrowser is a Browser backed by its own headless Chrome process, so
// sessions never share cookies or storage.
type ChromeBrowser struct {
	ctx         context.Context
	cancel      context.CancelFunc
	cancelAlloc context.CancelFunc
	pageTimeout time.Duration
}

// NewChromeSessionFactory returns a SessionFactory launching ChromeBrowser sessions.
func NewChromeSessionFactory(opts ChromeOptions) SessionFactory {
	return func(ctx context.Context) (Browser, error) {
		return NewChromeBrowser(ctx, opts)
	}
}

// NewChromeBrowser starts a browser with a randomized viewport and user agent
// and installs the stealth script for every new document.
func NewChromeBrowser(ctx context.Context, opts ChromeOptions) (*ChromeBrowser, error) {
	vp := viewports[rand.Intn(len(viewports))]
	ua := userAgents[rand.Intn(len(userAgents))]

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("lang", "en-US"),
		chromedp.WindowSize(vp.width, vp.height),
		chromedp.UserAgent(ua),
	)
	chromeBin := opts.ChromeBin
	if chromeBin == "" {
		chromeBin = findChromeBinary()
	}
	if chromeBin != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(chromeBin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocOpts...)
	// Suppress chromedp log noise
	browserCtx, cancel := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))

	err := chromedp.Run(browserCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		if _, err := page.AddScriptToEvaluateOnNewDocument(stealthScript).Do(ctx); err != nil {
			return err
		}
		return emulation.SetTimezoneOverride(browserTimezone).Do(ctx)
	}))
	if err != nil {
		cancel()
		cancelAlloc()
		return nil, fmt.Errorf("chrome: start session: %w", err)
	}

	timeout := opts.PageTimeout
	if timeout <= 0 {
		timeout = 45 * time.Second
	}

	return &ChromeBrowser{
		ctx:         browserCtx,
		cancel:      cancel,
		cancelAlloc: cancelAlloc,
		pageTimeout: timeout,
	}, nil
}

// run executes actions bounded by timeout and by the caller's ctx.
func (b *ChromeBrowser) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithTimeout(b.ctx, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return chromedp.Run(runCtx, actions...)
}

func (b *ChromeBrowser) Navigate(ctx context.Context, url string) error {
	if err := b.run(ctx, b.pageTimeout, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("chrome: navigate %s: %w", url, err)
	}
	return nil
}

func (b *ChromeBrowser) WaitFor(ctx context.Context, selector string, timeout time.Duration) error {
	if err := b.run(ctx, timeout, chromedp.WaitReady(selector, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("chrome: wait for %q: %w", selector, err)
	}
	return nil
}

func (b *ChromeBrowser) Evaluate(ctx context.Context, script string, out any) error {
	err := b.run(ctx, b.pageTimeout, chromedp.Evaluate(script, out,
		func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
			return p.WithAwaitPromise(true)
		}))
	if err != nil {
		return fmt.Errorf("chrome: evaluate: %w", err)
	}
	return nil
}

// fetchResult is what the in-page fetch script hands back.
type fetchResult struct {
	Status int    `json:"status"`
	Body   string `json:"body"`
}

func (b *ChromeBrowser) FetchJSON(ctx context.Context, path string, headers map[string]string, out any) error {
	pathJSON, err := json.Marshal(path)
	if err != nil {
		return fmt.Errorf("chrome: encode path: %w", err)
	}
	headersJSON, err := json.Marshal(headers)
	if err != nil {
		return fmt.Errorf("chrome: encode headers: %w", err)
	}

	script := fmt.Sprintf(`(async () => {
		const resp = await fetch(%s, {headers: %s, credentials: 'include'});
		return {status: resp.status, body: resp.ok ? await resp.text() : ''};
	})()`, pathJSON, headersJSON)

	var res fetchResult
	if err := b.Evaluate(ctx, script, &res); err != nil {
		return err
	}
	if res.Status < 200 || res.Status > 299 {
		return fmt.Errorf("chrome: fetch %s: status %d", path, res.Status)
	}
	if err := json.Unmarshal([]byte(res.Body), out); err != nil {
		return fmt.Errorf("chrome: decode %s: %w", path, err)
	}
	return nil
}

func (b *ChromeBrowser) HTML(ctx context.Context) (string, error) {
	var html string
	if err := b.run(ctx, b.pageTimeout, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("chrome: read html: %w", err)
	}
	return html, nil
}

// Close shuts the tab and the browser process down.
func (b *ChromeBrowser) Close() error {
	b.cancel()
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
