package bookwidget

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// ResponseKind tags an intercepted response body with the endpoint that
// produced it.
type ResponseKind string

const (
	KindSettings ResponseKind = "settings"
	KindSessions ResponseKind = "sessions"
	KindPackages ResponseKind = "packages"
)

// Classifier maps a URL substring to a response kind.
type Classifier struct {
	UrlSubstring string
	Kind         ResponseKind
}

type InterceptOptions struct {
	TargetUrl   string
	Classifiers []Classifier
	// defaults to 30s
	NavTimeout time.Duration
	// extra wait after the page settles, to catch late async requests
	// the settle signal does not cover. A tunable heuristic, not a
	// correctness guarantee. defaults to 2.5s
	GraceWindow time.Duration
}

type InterceptResult struct {
	// taken from the first intercepted request's query parameters. the
	// identity embedded in response bodies is less reliable and ignored.
	SiteID   string
	Bodies   map[ResponseKind][][]byte
	PageHTML string
}

// accumulator collects classified responses as CDP events arrive.
// chromedp listeners run on their own goroutine, so unlike a
// single-threaded event loop everything here is behind a mutex.
type accumulator struct {
	classifiers []Classifier

	mu       sync.Mutex
	siteID   string
	bodies   map[ResponseKind][][]byte
	kinds    map[network.RequestID]ResponseKind
	inflight int
	// body reads running on their own goroutines after loading finished
	pendingReads int
}

func newAccumulator(classifiers []Classifier) *accumulator {
	return &accumulator{
		classifiers: classifiers,
		bodies:      map[ResponseKind][][]byte{},
		kinds:       map[network.RequestID]ResponseKind{},
	}
}

func (a *accumulator) classify(rawUrl string) (ResponseKind, bool) {
	for _, c := range a.classifiers {
		if strings.Contains(rawUrl, c.UrlSubstring) {
			return c.Kind, true
		}
	}
	return "", false
}

func siteIDFromUrl(rawUrl string) string {
	parsed, err := url.Parse(rawUrl)
	if err != nil {
		return ""
	}
	return parsed.Query().Get("siteID")
}

func (a *accumulator) observeRequest(id network.RequestID, rawUrl string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.inflight++
	if a.siteID == "" {
		a.siteID = siteIDFromUrl(rawUrl)
	}
}

func (a *accumulator) observeResponse(id network.RequestID, rawUrl string) {
	kind, ok := a.classify(rawUrl)
	if !ok {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.kinds[id] = kind
}

// finish marks a request as no longer in flight and reports the kind it
// was classified as, if any.
func (a *accumulator) finish(id network.RequestID) (ResponseKind, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.inflight > 0 {
		a.inflight--
	}
	kind, ok := a.kinds[id]
	return kind, ok
}

func (a *accumulator) beginBodyRead() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pendingReads++
}

func (a *accumulator) endBodyRead() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pendingReads--
}

func (a *accumulator) addBody(kind ResponseKind, body []byte) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.bodies[kind] = append(a.bodies[kind], body)
}

func (a *accumulator) idle() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.inflight == 0 && a.pendingReads == 0
}

// result snapshots the accumulated state. Body reads that outlast the
// drain window keep writing to the accumulator's own map, never to the
// returned one.
func (a *accumulator) result(pageHTML string) (InterceptResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.siteID == "" {
		return InterceptResult{}, ErrNoSiteIdentity
	}

	bodies := make(map[ResponseKind][][]byte, len(a.bodies))
	for kind, list := range a.bodies {
		bodies[kind] = append([][]byte(nil), list...)
	}
	return InterceptResult{
		SiteID:   a.siteID,
		Bodies:   bodies,
		PageHTML: pageHTML,
	}, nil
}

// Intercept drives an isolated headless browser to the target page and
// accumulates the vendor API responses the widget generates. The browser
// is released on every exit path. The CDP listener is attached before
// navigation begins; responses arriving before it attaches would be lost.
func Intercept(ctx context.Context, opts InterceptOptions) (InterceptResult, error) {
	ctx, span := tracer.Start(ctx, "Intercept")
	defer span.End()
	span.SetAttributes(attribute.String("target_url", opts.TargetUrl))

	if opts.NavTimeout <= 0 {
		opts.NavTimeout = time.Second * 30
	}
	if opts.GraceWindow <= 0 {
		opts.GraceWindow = time.Millisecond * 2500
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(
		ctx,
		chromedp.DefaultExecAllocatorOptions[:]...,
	)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	acc := newAccumulator(opts.Classifiers)

	chromedp.ListenTarget(browserCtx, func(ev any) {
		switch e := ev.(type) {
		case *network.EventRequestWillBeSent:
			acc.observeRequest(e.RequestID, e.Request.URL)
		case *network.EventResponseReceived:
			acc.observeResponse(e.RequestID, e.Response.URL)
		case *network.EventLoadingFailed:
			acc.finish(e.RequestID)
		case *network.EventLoadingFinished:
			kind, ok := acc.finish(e.RequestID)
			if !ok {
				return
			}
			// bodies are only readable once loading finished, and
			// fetching one from inside the listener would deadlock the
			// event stream.
			id := e.RequestID
			acc.beginBodyRead()
			go func() {
				defer acc.endBodyRead()
				c := chromedp.FromContext(browserCtx)
				body, err := network.GetResponseBody(id).
					Do(cdp.WithExecutor(browserCtx, c.Target))
				if err != nil {
					slog.WarnContext(ctx, "failed to read intercepted body", "kind", kind, "err", err)
					return
				}
				acc.addBody(kind, body)
			}()
		}
	})

	navCtx, cancelNav := context.WithTimeout(browserCtx, opts.NavTimeout)
	defer cancelNav()

	err := chromedp.Run(navCtx,
		network.Enable(),
		chromedp.Navigate(opts.TargetUrl),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "navigation failed")
		return InterceptResult{}, fmt.Errorf("navigate %s: %w", opts.TargetUrl, err)
	}

	// Navigate returns at the load event, which is a heuristic settle
	// signal. drain the in-flight counter, then hold the grace window
	// open for secondary requests (pagination etc.) that fire after it.
	waitForIdle(navCtx, acc)
	sleepCtx(ctx, opts.GraceWindow)

	// requests observed during the grace window spawn body reads of
	// their own, give those a bounded chance to land before snapshotting
	drainCtx, cancelDrain := context.WithTimeout(ctx, opts.GraceWindow)
	waitForIdle(drainCtx, acc)
	cancelDrain()

	var pageHTML string
	err = chromedp.Run(browserCtx, chromedp.OuterHTML("html", &pageHTML))
	if err != nil {
		slog.WarnContext(ctx, "failed to capture page html", "err", err)
	}

	res, err := acc.result(pageHTML)
	if err != nil {
		span.SetStatus(codes.Error, "no site identity observed")
		return InterceptResult{}, err
	}

	span.SetAttributes(attribute.Int("intercepted_kinds", len(res.Bodies)))
	return res, nil
}

func waitForIdle(ctx context.Context, acc *accumulator) {
	ticker := time.NewTicker(time.Millisecond * 100)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if acc.idle() {
				return
			}
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
