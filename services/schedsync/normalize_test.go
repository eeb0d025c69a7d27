package schedsync

import (
	"context"
	"fmt"
	"testing"
	"time"

	"schedsync-backend/lib/scrapers/bookwidget"
	"schedsync-backend/lib/testutil"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestNormalizeBusiness(t *testing.T) {
	_, cleanup := testutil.SetupService(t, testutil.ServiceParams{Name: "schedsync"})
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	data := Normalize(ctx, NormalizeInput{
		SiteID:    "site-1",
		SourceUrl: "https://example.com/book",
		Settings: &bookwidget.SiteSettings{
			SiteName:     "Riverside Yoga",
			Timezone:     "America/Chicago",
			CurrencyCode: "USD",
		},
		Sessions: []bookwidget.SessionOccurrence{
			{ID: "s1", Name: "Flow", Date: "2026-08-25"},
			{ID: "s2", Name: "Flow", Date: "2026-08-26", Address: "12 River St"},
			{ID: "s3", Name: "Flow", Date: "2026-08-27", Address: "99 Other Rd"},
		},
	})

	diff := cmp.Diff(BusinessDetails{
		Name:      "Riverside Yoga",
		Address:   "12 River St",
		SourceUrl: "https://example.com/book",
		Timezone:  "America/Chicago",
		Currency:  "USD",
	}, data.Business)
	require.Empty(t, diff)
}

func TestNormalizeBusinessFallbacks(t *testing.T) {
	_, cleanup := testutil.SetupService(t, testutil.ServiceParams{Name: "schedsync"})
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	{
		data := Normalize(ctx, NormalizeInput{
			PageHTML: `<html><head><meta property="og:site_name" content="Hidden Gym"><title>Booking</title></head></html>`,
		})
		require.Equal(t, "Hidden Gym", data.Business.Name)
	}
	{
		data := Normalize(ctx, NormalizeInput{
			PageHTML: `<html><head><title> Sunrise Pilates </title></head></html>`,
		})
		require.Equal(t, "Sunrise Pilates", data.Business.Name)
	}
	{
		data := Normalize(ctx, NormalizeInput{})
		require.Equal(t, "Scheduling Business", data.Business.Name)
	}
}

func TestNormalizePackages(t *testing.T) {
	_, cleanup := testutil.SetupService(t, testutil.ServiceParams{Name: "schedsync"})
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	data := Normalize(ctx, NormalizeInput{
		Packages: []bookwidget.PackageOffering{
			{
				Name:        "Unlimited",
				Description: "All classes",
				Price:       bookwidget.PackagePrice{Amount: "29.99", BillingCycle: "month"},
			},
			{
				Name:  "Drop In",
				Price: bookwidget.PackagePrice{Amount: "15"},
			},
			{
				Name:       "First Class Free",
				Price:      bookwidget.PackagePrice{Amount: "0"},
				IntroOffer: true,
			},
		},
	})

	diff := cmp.Diff([]Package{
		{Name: "Unlimited", Description: "All classes", Price: "$29.99/month", Type: PackageTypeStandard},
		{Name: "Drop In", Price: "$15", Type: PackageTypeStandard},
		{Name: "First Class Free", Price: "$0", Type: PackageTypeIntroOffer},
	}, data.Packages)
	require.Empty(t, diff)
}

func TestNormalizePackagesCurrencySymbol(t *testing.T) {
	_, cleanup := testutil.SetupService(t, testutil.ServiceParams{Name: "schedsync"})
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	data := Normalize(ctx, NormalizeInput{
		Settings: &bookwidget.SiteSettings{CurrencySymbol: "€"},
		Packages: []bookwidget.PackageOffering{
			{Name: "Monthly", Price: bookwidget.PackagePrice{Amount: "40", BillingCycle: "month"}},
		},
	})
	require.Equal(t, "€40/month", data.Packages[0].Price)
}

type fakeDetailFetcher struct {
	descriptions map[string]string
	calls        []string
}

func (f *fakeDetailFetcher) FetchClassDetail(ctx context.Context, siteID, sessionID, date string) (string, error) {
	f.calls = append(f.calls, sessionID)
	desc, ok := f.descriptions[sessionID]
	if !ok {
		return "", fmt.Errorf("no such session %q", sessionID)
	}
	return desc, nil
}

func TestNormalizeClasses(t *testing.T) {
	_, cleanup := testutil.SetupService(t, testutil.ServiceParams{Name: "schedsync"})
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	fetcher := &fakeDetailFetcher{
		descriptions: map[string]string{
			"s1": "A slow vinyasa flow.",
		},
	}

	data := Normalize(ctx, NormalizeInput{
		SiteID: "site-1",
		Sessions: []bookwidget.SessionOccurrence{
			{ID: "s1", Name: "Flow", Date: "2026-08-25", SessionTemplate: "flow", DurationMinutes: 60, Category: "yoga"},
			{ID: "s2", Name: "Flow", Date: "2026-08-26", SessionTemplate: "flow", DurationMinutes: 60, Category: "yoga"},
			{ID: "s3", Name: "Power Hour", Date: "2026-08-25", DurationMinutes: 45, Category: "strength"},
		},
		Details: fetcher,
	})

	diff := cmp.Diff([]Class{
		{Name: "Flow", Description: "A slow vinyasa flow.", DurationMinutes: 60, Category: "yoga"},
		// detail fetch fails, the dedup key stands in for the description
		{Name: "Power Hour", Description: "Power Hour", DurationMinutes: 45, Category: "strength"},
	}, data.Classes)
	require.Empty(t, diff)

	// one fetch per class type, not per occurrence
	require.Equal(t, []string{"s1", "s3"}, fetcher.calls)
}

func TestNormalizeClassesDedupIdempotent(t *testing.T) {
	_, cleanup := testutil.SetupService(t, testutil.ServiceParams{Name: "schedsync"})
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	sessions := []bookwidget.SessionOccurrence{
		{ID: "s1", Name: "Flow", Date: "2026-08-25", DurationMinutes: 60, Category: "yoga"},
		{ID: "s2", Name: "Flow", Date: "2026-08-26", DurationMinutes: 60, Category: "yoga"},
		{ID: "s3", Name: "Power Hour", Date: "2026-08-25", DurationMinutes: 45, Category: "strength"},
		{ID: "s4", Name: "Power Hour", Date: "2026-08-27", DurationMinutes: 45, Category: "strength"},
	}

	first := Normalize(ctx, NormalizeInput{Sessions: sessions}).Classes

	// feed the deduped set back through as one occurrence per class;
	// a second pass must leave it unchanged
	var again []bookwidget.SessionOccurrence
	for _, class := range first {
		again = append(again, bookwidget.SessionOccurrence{
			Name:            class.Name,
			DurationMinutes: class.DurationMinutes,
			Category:        class.Category,
		})
	}
	second := Normalize(ctx, NormalizeInput{Sessions: again}).Classes

	diff := cmp.Diff(first, second)
	require.Empty(t, diff)
	require.Len(t, second, 2)
}

func TestNormalizeClassesWithoutFetcher(t *testing.T) {
	_, cleanup := testutil.SetupService(t, testutil.ServiceParams{Name: "schedsync"})
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	data := Normalize(ctx, NormalizeInput{
		Sessions: []bookwidget.SessionOccurrence{
			{ID: "s1", Name: "Flow", SessionTemplate: "flow"},
		},
	})
	require.Equal(t, "flow", data.Classes[0].Description)
}

func TestScheduleFromSessions(t *testing.T) {
	sessions := []bookwidget.SessionOccurrence{
		{Name: "Flow", Date: "2026-08-25", StartTime: "09:00", EndTime: "10:00", Status: bookwidget.StatusOpen, Capacity: 20, Remaining: 5},
		{Name: "Power Hour", Date: "2026-08-25", StartTime: "18:00", EndTime: "19:00", Status: bookwidget.StatusFull},
		{Name: "Flow", Date: "2026-08-26", StartTime: "09:00", EndTime: "10:00", Status: bookwidget.StatusWaitlist},
	}

	schedule := ScheduleFromSessions(sessions)
	require.Len(t, schedule, 2)

	total := 0
	for _, entries := range schedule {
		total += len(entries)
	}
	require.Equal(t, len(sessions), total)

	diff := cmp.Diff([]ScheduleEntry{
		{Name: "Flow", StartTime: "09:00", EndTime: "10:00", Status: "open", Capacity: 20, Remaining: 5},
		{Name: "Power Hour", StartTime: "18:00", EndTime: "19:00", Status: "full"},
	}, schedule["2026-08-25"])
	require.Empty(t, diff)
}
