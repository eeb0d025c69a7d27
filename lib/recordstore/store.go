package recordstore

import "context"

// Record is one row of the host platform's generic CRUD store. Fields are
// opaque to the store, the sync engine decides what goes in them.
type Record struct {
	ID     string
	Type   string
	Fields map[string]string
}

type ListOptions struct {
	// equality filters on single fields, e.g. {"name": "Unlimited"}
	Filter map[string]string
	// 0 means no limit
	Limit int
	// 1-based, 0 is treated as page 1
	Page int
}

// Store is the record store boundary the sync engine reconciles against.
// The host CRM provides the production implementation; SqliteStore backs
// the daemon, the CLI and tests.
//
// List+Create/Update is not an atomic upsert. Callers must serialize
// writes per installation or duplicate records can be created.
type Store interface {
	List(ctx context.Context, entityType string, opts ListOptions) ([]Record, error)
	Create(ctx context.Context, entityType string, fields map[string]string) (Record, error)
	Update(ctx context.Context, entityType, id string, fields map[string]string) (Record, error)
}
