package bookwidget

import (
	"context"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// DiscoveryResult carries the site identity plus whatever snapshot data
// the widget happened to load during the single interception run, so the
// install flow can avoid a redundant round of direct fetches.
type DiscoveryResult struct {
	SiteID   string
	Settings *SiteSettings
	Sessions []SessionOccurrence
	Packages []PackageOffering
	PageHTML string
}

func DefaultClassifiers() []Classifier {
	return []Classifier{
		{UrlSubstring: "/wAPI/site/settings", Kind: KindSettings},
		{UrlSubstring: "/wAPI/site/sessions", Kind: KindSessions},
		{UrlSubstring: "/wAPI/site/packages", Kind: KindPackages},
	}
}

// Discover runs one interception session against the customer's widget
// page and decodes everything it captured. Runs once per installation;
// all later fetches go through the direct client with the returned
// site ID. A failure leaves no partial state behind.
func Discover(ctx context.Context, targetUrl string) (DiscoveryResult, error) {
	ctx, span := tracer.Start(ctx, "Discover")
	defer span.End()

	intercepted, err := Intercept(ctx, InterceptOptions{
		TargetUrl:   targetUrl,
		Classifiers: DefaultClassifiers(),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "interception failed")
		return DiscoveryResult{}, err
	}

	out := DiscoveryResult{
		SiteID:   intercepted.SiteID,
		PageHTML: intercepted.PageHTML,
	}

	for _, body := range intercepted.Bodies[KindSettings] {
		settings, err := DecodeSettings(body)
		if err != nil {
			slog.WarnContext(ctx, "skipping undecodable settings body", "err", err)
			continue
		}
		out.Settings = &settings
		break
	}

	for _, body := range intercepted.Bodies[KindSessions] {
		page, err := DecodeSessionsPage(body)
		if err != nil {
			slog.WarnContext(ctx, "skipping undecodable sessions body", "err", err)
			continue
		}
		if !page.Success {
			continue
		}
		out.Sessions = append(out.Sessions, page.Sessions...)
	}

	for _, body := range intercepted.Bodies[KindPackages] {
		packages, err := DecodePackages(body)
		if err != nil {
			slog.WarnContext(ctx, "skipping undecodable packages body", "err", err)
			continue
		}
		out.Packages = append(out.Packages, packages...)
	}

	span.SetAttributes(
		attribute.Int("sessions", len(out.Sessions)),
		attribute.Int("packages", len(out.Packages)),
		attribute.Bool("settings", out.Settings != nil),
	)
	return out, nil
}

// BusinessNameFromHTML pulls a display name out of the captured widget
// page when the settings endpoint was not observed. The widget embeds
// the studio name in og:site_name or the document title.
func BusinessNameFromHTML(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}

	name := strings.TrimSpace(doc.Find(`meta[property="og:site_name"]`).AttrOr("content", ""))
	if name != "" {
		return name
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}
