package schedsync

import (
	"context"
	"log/slog"
	"strconv"

	"schedsync-backend/lib/recordstore"

	"go.opentelemetry.io/otel/attribute"
)

const (
	EntityBusinessDetails = "business_details"
	EntityPackage         = "package"
	EntityClass           = "class"
)

type SyncOptions struct {
	BusinessDetails bool
	Packages        bool
	Classes         bool
}

func SyncEverything() SyncOptions {
	return SyncOptions{BusinessDetails: true, Packages: true, Classes: true}
}

// SyncResult counts only successfully written records. A caller that
// cares about partial failure compares created+updated against its
// input count.
type SyncResult struct {
	PackagesCreated        int
	PackagesUpdated        int
	ClassesCreated         int
	ClassesUpdated         int
	BusinessDetailsWritten bool
}

// Syncer reconciles canonical entities into the record store with
// create-or-update semantics. Packages and classes match on name;
// business details are a singleton. Records absent from the current
// vendor catalog are left in place, never deleted.
type Syncer struct {
	store recordstore.Store
}

func NewSyncer(store recordstore.Store) Syncer {
	return Syncer{store: store}
}

// Sync never aborts on a single item's failure; failures are logged and
// reflected only in the returned counts.
func (s Syncer) Sync(ctx context.Context, data ScrapedData, opts SyncOptions) SyncResult {
	ctx, span := tracer.Start(ctx, "Sync")
	defer span.End()
	span.SetAttributes(
		attribute.Bool("business_details", opts.BusinessDetails),
		attribute.Bool("packages", opts.Packages),
		attribute.Bool("classes", opts.Classes),
	)

	var out SyncResult

	if opts.BusinessDetails {
		out.BusinessDetailsWritten = s.syncBusinessDetails(ctx, data.Business)
	}

	if opts.Packages {
		for _, pkg := range data.Packages {
			created, err := s.upsertByName(ctx, EntityPackage, pkg.Name, packageFields(pkg))
			if err != nil {
				slog.WarnContext(ctx, "failed to sync package", "name", pkg.Name, "err", err)
				continue
			}
			if created {
				out.PackagesCreated++
			} else {
				out.PackagesUpdated++
			}
		}
	}

	if opts.Classes {
		for _, class := range data.Classes {
			created, err := s.upsertByName(ctx, EntityClass, class.Name, classFields(class))
			if err != nil {
				slog.WarnContext(ctx, "failed to sync class", "name", class.Name, "err", err)
				continue
			}
			if created {
				out.ClassesCreated++
			} else {
				out.ClassesUpdated++
			}
		}
	}

	return out
}

// business details are a singleton: at steady state exactly one record
// of the type exists.
func (s Syncer) syncBusinessDetails(ctx context.Context, details BusinessDetails) bool {
	existing, err := s.store.List(ctx, EntityBusinessDetails, recordstore.ListOptions{Limit: 1})
	if err != nil {
		slog.WarnContext(ctx, "failed to list business details", "err", err)
		return false
	}

	fields := businessFields(details)
	if len(existing) > 0 {
		_, err = s.store.Update(ctx, EntityBusinessDetails, existing[0].ID, fields)
	} else {
		_, err = s.store.Create(ctx, EntityBusinessDetails, fields)
	}
	if err != nil {
		slog.WarnContext(ctx, "failed to write business details", "err", err)
		return false
	}
	return true
}

// upsertByName is a list+create/update pair, not an atomic upsert. the
// store enforces no uniqueness on name, so concurrent syncs of the same
// installation could both create; the service serializes syncs per
// installation for this reason.
func (s Syncer) upsertByName(ctx context.Context, entityType, name string, fields map[string]string) (created bool, err error) {
	existing, err := s.store.List(ctx, entityType, recordstore.ListOptions{
		Filter: map[string]string{"name": name},
		Limit:  1,
	})
	if err != nil {
		return false, err
	}

	if len(existing) > 0 {
		_, err = s.store.Update(ctx, entityType, existing[0].ID, fields)
		return false, err
	}
	_, err = s.store.Create(ctx, entityType, fields)
	return true, err
}

func businessFields(b BusinessDetails) map[string]string {
	return map[string]string{
		"name":       b.Name,
		"address":    b.Address,
		"phone":      b.Phone,
		"email":      b.Email,
		"source_url": b.SourceUrl,
		"timezone":   b.Timezone,
		"currency":   b.Currency,
	}
}

func packageFields(p Package) map[string]string {
	return map[string]string{
		"name":        p.Name,
		"description": p.Description,
		"price":       p.Price,
		"type":        p.Type,
	}
}

func classFields(c Class) map[string]string {
	return map[string]string{
		"name":             c.Name,
		"description":      c.Description,
		"duration_minutes": strconv.Itoa(c.DurationMinutes),
		"category":         c.Category,
	}
}
