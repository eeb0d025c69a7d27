package schedsync

import (
	"context"
	"fmt"
	"sync"
	"time"

	"schedsync-backend/lib/recordstore"
	"schedsync-backend/lib/scrapers/bookwidget"
	"schedsync-backend/lib/timezone"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// SiteIDEnvKey is the env key the host platform persists the discovered
// site identity under between install and refresh hooks.
const SiteIDEnvKey = "SCHEDSYNC_SITE_ID"

// how far ahead runtime fetches look by default
const defaultScheduleWindow = 28 * 24 * time.Hour

var ErrMissingTargetUrl = fmt.Errorf("no widget page url configured")
var ErrMissingSiteIdentity = fmt.Errorf("no site identity configured, run discovery first")

type Status string

const (
	StatusUnconfigured Status = "unconfigured"
	StatusDiscovering  Status = "discovering"
	StatusDiscovered   Status = "discovered"
	StatusSynced       Status = "synced"
	StatusStale        Status = "stale"
)

type Installation struct {
	TargetUrl  string
	SiteID     string
	Status     Status
	LastSynced time.Time
}

type ServiceOptions struct {
	// the customer's widget page, its path encodes the location
	TargetUrl string
	// site identity from a previous discovery, empty until Install ran
	SiteID string
	Client *bookwidget.Client
	Store  recordstore.Store
	// optional description cache
	Cache *bookwidget.DescriptionCache
	// defaults to 28 days
	ScheduleWindow time.Duration
}

type Service struct {
	client *bookwidget.Client
	syncer Syncer
	cache  *bookwidget.DescriptionCache
	window time.Duration

	// serializes discovery/sync runs; the record store's match-then-
	// write pair is not atomic, so concurrent runs could duplicate
	// records.
	mu   sync.Mutex
	inst Installation
}

func NewService(opts ServiceOptions) *Service {
	window := opts.ScheduleWindow
	if window <= 0 {
		window = defaultScheduleWindow
	}

	status := StatusUnconfigured
	if opts.SiteID != "" {
		status = StatusDiscovered
	}

	return &Service{
		client: opts.Client,
		syncer: NewSyncer(opts.Store),
		cache:  opts.Cache,
		window: window,
		inst: Installation{
			TargetUrl: opts.TargetUrl,
			SiteID:    opts.SiteID,
			Status:    status,
		},
	}
}

func (s *Service) Installation() Installation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inst
}

// MarkStale flags the installation for the next refresh cycle.
func (s *Service) MarkStale() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inst.Status == StatusSynced {
		s.inst.Status = StatusStale
	}
}

// ToolResult is what the host platform's lifecycle hooks receive: a
// success flag and message rather than a raw error, plus env values to
// persist into the installation's configuration.
type ToolResult struct {
	Success bool
	Message string
	Env     map[string]string
}

// Install bootstraps the integration: one interception run discovers
// the site identity and an initial data snapshot, which is normalized
// and synced. On failure the installation is left unconfigured; there
// is no partial discovery state to resume from.
func (s *Service) Install(ctx context.Context) ToolResult {
	ctx, span := tracer.Start(ctx, "service:Install")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.inst.TargetUrl == "" {
		span.SetStatus(codes.Error, ErrMissingTargetUrl.Error())
		return ToolResult{Success: false, Message: ErrMissingTargetUrl.Error()}
	}

	s.inst.Status = StatusDiscovering

	discovered, err := bookwidget.Discover(ctx, s.inst.TargetUrl)
	if err != nil {
		s.inst.Status = StatusUnconfigured
		span.RecordError(err)
		span.SetStatus(codes.Error, "discovery failed")
		return ToolResult{Success: false, Message: fmt.Sprintf("discovery failed: %s", err)}
	}

	s.inst.SiteID = discovered.SiteID
	s.inst.Status = StatusDiscovered
	span.SetAttributes(attribute.String("site_id", discovered.SiteID))

	data := Normalize(ctx, NormalizeInput{
		SiteID:    discovered.SiteID,
		SourceUrl: s.inst.TargetUrl,
		Settings:  discovered.Settings,
		Sessions:  discovered.Sessions,
		Packages:  discovered.Packages,
		Details:   s.client,
		Cache:     s.cache,
		PageHTML:  discovered.PageHTML,
	})
	result := s.syncer.Sync(ctx, data, SyncEverything())

	s.inst.Status = StatusSynced
	s.inst.LastSynced = time.Now()

	return ToolResult{
		Success: true,
		Message: fmt.Sprintf(
			"discovered site %s: %d packages, %d classes synced",
			discovered.SiteID,
			result.PackagesCreated+result.PackagesUpdated,
			result.ClassesCreated+result.ClassesUpdated,
		),
		Env: map[string]string{SiteIDEnvKey: discovered.SiteID},
	}
}

// Refresh re-fetches vendor data over the direct client and reconciles
// it into the store. Requires a previously discovered site identity,
// which is never re-derived here.
func (s *Service) Refresh(ctx context.Context, opts SyncOptions) (SyncResult, error) {
	ctx, span := tracer.Start(ctx, "service:Refresh")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.inst.SiteID == "" {
		span.SetStatus(codes.Error, ErrMissingSiteIdentity.Error())
		return SyncResult{}, ErrMissingSiteIdentity
	}

	settings, sessions, packages, err := s.fetchAll(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch cycle failed")
		return SyncResult{}, err
	}

	data := Normalize(ctx, NormalizeInput{
		SiteID:    s.inst.SiteID,
		SourceUrl: s.inst.TargetUrl,
		Settings:  settings,
		Sessions:  sessions,
		Packages:  packages,
		Details:   s.client,
		Cache:     s.cache,
	})
	result := s.syncer.Sync(ctx, data, opts)

	s.inst.Status = StatusSynced
	s.inst.LastSynced = time.Now()
	return result, nil
}

func (s *Service) fetchAll(ctx context.Context) (*bookwidget.SiteSettings, []bookwidget.SessionOccurrence, []bookwidget.PackageOffering, error) {
	settings, err := s.client.FetchSettings(ctx, s.inst.SiteID)
	if err != nil {
		return nil, nil, nil, err
	}

	now := timezone.Now(timezone.Resolve(settings.Timezone))
	sessions, err := s.client.FetchSessions(ctx, s.inst.SiteID, now, now.Add(s.window))
	if err != nil {
		return nil, nil, nil, err
	}

	packages, err := s.client.FetchPackages(ctx, s.inst.SiteID)
	if err != nil {
		return nil, nil, nil, err
	}

	return &settings, sessions, packages, nil
}

// LiveSchedule is a read-only projection of the vendor's schedule over
// the given window. Nothing is persisted.
func (s *Service) LiveSchedule(ctx context.Context, from, to time.Time) (Schedule, error) {
	ctx, span := tracer.Start(ctx, "service:LiveSchedule")
	defer span.End()

	siteID := s.Installation().SiteID
	if siteID == "" {
		span.SetStatus(codes.Error, ErrMissingSiteIdentity.Error())
		return nil, ErrMissingSiteIdentity
	}

	sessions, err := s.client.FetchSessions(ctx, siteID, from, to)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch sessions")
		return nil, err
	}

	return ScheduleFromSessions(sessions), nil
}
