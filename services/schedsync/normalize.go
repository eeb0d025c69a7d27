package schedsync

import (
	"context"
	"fmt"
	"log/slog"

	"schedsync-backend/lib/scrapers/bookwidget"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("services/schedsync")

const fallbackBusinessName = "Scheduling Business"

// DetailFetcher is the slice of the bookwidget client the normalizer
// needs for description enrichment.
type DetailFetcher interface {
	FetchClassDetail(ctx context.Context, siteID, sessionID, date string) (string, error)
}

// NormalizeInput is the same for both call sites: the install-time
// discovery snapshot and the runtime direct fetch.
type NormalizeInput struct {
	SiteID    string
	SourceUrl string
	Settings  *bookwidget.SiteSettings
	Sessions  []bookwidget.SessionOccurrence
	Packages  []bookwidget.PackageOffering

	// optional description enrichment, skipped when nil
	Details DetailFetcher
	Cache   *bookwidget.DescriptionCache

	// optional DOM fallback for the business name
	PageHTML string
}

func Normalize(ctx context.Context, in NormalizeInput) ScrapedData {
	ctx, span := tracer.Start(ctx, "Normalize")
	defer span.End()
	span.SetAttributes(
		attribute.Int("sessions", len(in.Sessions)),
		attribute.Int("packages", len(in.Packages)),
	)

	return ScrapedData{
		Business: normalizeBusiness(in),
		Packages: normalizePackages(in),
		Classes:  normalizeClasses(ctx, in),
		Schedule: ScheduleFromSessions(in.Sessions),
	}
}

func normalizeBusiness(in NormalizeInput) BusinessDetails {
	out := BusinessDetails{
		Name:      fallbackBusinessName,
		SourceUrl: in.SourceUrl,
	}

	if in.Settings != nil {
		if in.Settings.SiteName != "" {
			out.Name = in.Settings.SiteName
		}
		out.Timezone = in.Settings.Timezone
		out.Currency = in.Settings.CurrencyCode
	} else if in.PageHTML != "" {
		if name := bookwidget.BusinessNameFromHTML(in.PageHTML); name != "" {
			out.Name = name
		}
	}

	// the vendor has no business-address endpoint, take the first
	// occurrence that carries one. arbitrary but deterministic.
	for _, occ := range in.Sessions {
		if occ.Address != "" {
			out.Address = occ.Address
			break
		}
	}

	return out
}

func currencySymbol(settings *bookwidget.SiteSettings) string {
	if settings == nil || settings.CurrencySymbol == "" {
		return "$"
	}
	return settings.CurrencySymbol
}

func formatPrice(symbol, amount, billingCycle string) string {
	if billingCycle != "" {
		return fmt.Sprintf("%s%s/%s", symbol, amount, billingCycle)
	}
	return fmt.Sprintf("%s%s", symbol, amount)
}

func normalizePackages(in NormalizeInput) []Package {
	symbol := currencySymbol(in.Settings)

	out := make([]Package, len(in.Packages))
	for i, offering := range in.Packages {
		kind := PackageTypeStandard
		if offering.IntroOffer {
			kind = PackageTypeIntroOffer
		}
		out[i] = Package{
			Name:        offering.Name,
			Description: offering.Description,
			Price:       formatPrice(symbol, offering.Price.Amount, offering.Price.BillingCycle),
			Type:        kind,
		}
	}
	return out
}

// classDedupKey groups occurrences into class types. occurrences
// without a template fall back to the session name.
func classDedupKey(occ bookwidget.SessionOccurrence) string {
	if occ.SessionTemplate != "" {
		return occ.SessionTemplate
	}
	return occ.Name
}

func normalizeClasses(ctx context.Context, in NormalizeInput) []Class {
	seen := map[string]bool{}
	var out []Class

	for _, occ := range in.Sessions {
		key := classDedupKey(occ)
		if seen[key] {
			continue
		}
		seen[key] = true

		out = append(out, Class{
			Name:            occ.Name,
			Description:     describeClass(ctx, in, key, occ),
			DurationMinutes: occ.DurationMinutes,
			Category:        occ.Category,
		})
	}

	return out
}

// describeClass enriches one class type with its description,
// best-effort. A fetch failure falls back to the template label and
// never aborts processing of the remaining classes.
func describeClass(ctx context.Context, in NormalizeInput, key string, occ bookwidget.SessionOccurrence) string {
	if in.Details == nil {
		return key
	}

	if in.Cache != nil {
		cached, err := in.Cache.Get(ctx, in.SiteID, key)
		if err == nil {
			return cached
		}
		if err != bookwidget.ErrDescriptionNotCached {
			slog.WarnContext(ctx, "description cache read failed", "template", key, "err", err)
		}
	}

	description, err := in.Details.FetchClassDetail(ctx, in.SiteID, occ.ID, occ.Date)
	if err != nil || description == "" {
		if err != nil {
			slog.WarnContext(ctx, "class detail fetch failed, using template label", "template", key, "err", err)
		}
		return key
	}

	if in.Cache != nil {
		err = in.Cache.Set(ctx, in.SiteID, key, description)
		if err != nil {
			slog.WarnContext(ctx, "description cache write failed", "template", key, "err", err)
		}
	}
	return description
}

// ScheduleFromSessions groups occurrences by calendar date, preserving
// vendor response order within each date bucket.
func ScheduleFromSessions(sessions []bookwidget.SessionOccurrence) Schedule {
	out := Schedule{}
	for _, occ := range sessions {
		out[occ.Date] = append(out[occ.Date], ScheduleEntry{
			Name:       occ.Name,
			StartTime:  occ.StartTime,
			EndTime:    occ.EndTime,
			Instructor: occ.Instructor,
			Status:     occ.Status,
			Location:   occ.Location,
			Capacity:   occ.Capacity,
			Remaining:  occ.Remaining,
		})
	}
	return out
}
