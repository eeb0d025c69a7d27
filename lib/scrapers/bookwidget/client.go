package bookwidget

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http/cookiejar"
	"strconv"
	"time"

	"schedsync-backend/lib/restyutil"
	"schedsync-backend/lib/timezone"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("scrapers/bookwidget")

// the vendor widget API. endpoints take a siteID query parameter and
// otherwise require no authentication once an identity is known.
const DefaultBaseUrl = "https://api.bookwidget.io/v2/wAPI/site"

const sessionsPageSize = 50

var instrumentOutput restyutil.InstrumentOutput

// SetRestyInstrumentOutput enables verbose HTTP message dumps for
// clients created after the call.
func SetRestyInstrumentOutput(out restyutil.InstrumentOutput) {
	instrumentOutput = out
}

type Client struct {
	Http *resty.Client
}

type ClientOptions struct {
	// defaults to DefaultBaseUrl
	BaseUrl string
}

func NewClient(opts ClientOptions) (*Client, error) {
	baseUrl := opts.BaseUrl
	if baseUrl == "" {
		baseUrl = DefaultBaseUrl
	}

	client := resty.New()
	client.SetBaseURL(baseUrl)
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	client.SetCookieJar(jar)
	// widget hosts sit behind cloudflare, same as their embedding pages
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)

	client.SetHeader("user-agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36")
	client.SetTimeout(time.Second * 30)

	restyutil.InstrumentClient(client, tracer, instrumentOutput)

	return &Client{Http: client}, nil
}

func (c *Client) FetchSettings(ctx context.Context, siteID string) (SiteSettings, error) {
	ctx, span := tracer.Start(ctx, "client:FetchSettings")
	defer span.End()

	res, err := c.Http.R().
		SetContext(ctx).
		SetQueryParam("siteID", siteID).
		Get("/settings")
	if err != nil {
		span.SetStatus(codes.Error, "failed to fetch settings")
		return SiteSettings{}, err
	}
	if !res.IsSuccess() {
		span.SetStatus(codes.Error, "non-2xx settings response")
		return SiteSettings{}, &UpstreamError{Endpoint: "settings", StatusCode: res.StatusCode()}
	}

	return DecodeSettings(res.Body())
}

func (c *Client) FetchPackages(ctx context.Context, siteID string) ([]PackageOffering, error) {
	ctx, span := tracer.Start(ctx, "client:FetchPackages")
	defer span.End()

	res, err := c.Http.R().
		SetContext(ctx).
		SetQueryParam("siteID", siteID).
		Get("/packages")
	if err != nil {
		span.SetStatus(codes.Error, "failed to fetch packages")
		return nil, err
	}
	if !res.IsSuccess() {
		span.SetStatus(codes.Error, "non-2xx packages response")
		return nil, &UpstreamError{Endpoint: "packages", StatusCode: res.StatusCode()}
	}

	return DecodePackages(res.Body())
}

// FetchSessions walks the vendor's paginated sessions endpoint in strict
// ascending page order. Pagination state may be tied to the dated window
// on the server side, so pages are never fetched concurrently. A page
// reporting success=false terminates the loop early and the pages already
// accumulated are returned without error.
func (c *Client) FetchSessions(ctx context.Context, siteID string, from, to time.Time) ([]SessionOccurrence, error) {
	ctx, span := tracer.Start(ctx, "client:FetchSessions")
	defer span.End()

	first, err := c.fetchSessionsPage(ctx, siteID, from, to, 1)
	if err != nil {
		span.SetStatus(codes.Error, "failed to fetch first sessions page")
		return nil, err
	}
	if !first.Success {
		slog.WarnContext(ctx, "vendor reported failure on first sessions page", "site_id", siteID)
		return nil, nil
	}

	out := first.Sessions
	for page := 2; page <= first.TotalPages; page++ {
		res, err := c.fetchSessionsPage(ctx, siteID, from, to, page)
		if err != nil {
			slog.WarnContext(
				ctx, "sessions pagination aborted, returning partial results",
				"page", page, "total_pages", first.TotalPages, "err", err,
			)
			return out, nil
		}
		if !res.Success {
			slog.WarnContext(
				ctx, "vendor reported failure mid-pagination, returning partial results",
				"page", page, "total_pages", first.TotalPages,
			)
			return out, nil
		}
		out = append(out, res.Sessions...)
	}

	return out, nil
}

func (c *Client) fetchSessionsPage(ctx context.Context, siteID string, from, to time.Time, page int) (SessionsPage, error) {
	res, err := c.Http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"siteID":    siteID,
			"startDate": timezone.Date(from),
			"endDate":   timezone.Date(to),
			"page":      strconv.Itoa(page),
			"pageSize":  strconv.Itoa(sessionsPageSize),
		}).
		Get("/sessions")
	if err != nil {
		return SessionsPage{}, err
	}
	if !res.IsSuccess() {
		return SessionsPage{}, &UpstreamError{Endpoint: "sessions", StatusCode: res.StatusCode()}
	}
	return DecodeSessionsPage(res.Body())
}

// FetchClassDetail fetches the description of a single session
// occurrence. Callers fall back to the template label on error rather
// than aborting the larger operation.
func (c *Client) FetchClassDetail(ctx context.Context, siteID, sessionID, date string) (string, error) {
	ctx, span := tracer.Start(ctx, "client:FetchClassDetail")
	defer span.End()

	res, err := c.Http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"siteID":    siteID,
			"sessionID": sessionID,
			"date":      date,
		}).
		Get("/session")
	if err != nil {
		span.SetStatus(codes.Error, "failed to fetch session detail")
		return "", err
	}
	if !res.IsSuccess() {
		span.SetStatus(codes.Error, "non-2xx session detail response")
		return "", &UpstreamError{Endpoint: "session", StatusCode: res.StatusCode()}
	}

	var detail sessionDetailResponse
	err = json.Unmarshal(res.Body(), &detail)
	if err != nil {
		span.SetStatus(codes.Error, "failed to decode session detail")
		return "", err
	}
	if !detail.Success {
		return "", &UpstreamError{Endpoint: "session", Message: detail.Message}
	}

	return detail.Session.Description, nil
}
