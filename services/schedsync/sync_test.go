package schedsync

import (
	"context"
	"fmt"
	"strconv"
	"testing"
	"time"

	"schedsync-backend/lib/recordstore"
	"schedsync-backend/lib/testutil"

	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	records []recordstore.Record
	nextID  int

	creates int
	updates int
	// entity types that fail every write
	failing map[string]bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{failing: map[string]bool{}}
}

func (s *fakeStore) List(ctx context.Context, entityType string, opts recordstore.ListOptions) ([]recordstore.Record, error) {
	var out []recordstore.Record
	for _, rec := range s.records {
		if rec.Type != entityType {
			continue
		}
		matches := true
		for k, want := range opts.Filter {
			if rec.Fields[k] != want {
				matches = false
				break
			}
		}
		if !matches {
			continue
		}
		out = append(out, rec)
		if opts.Limit > 0 && len(out) >= opts.Limit {
			break
		}
	}
	return out, nil
}

func (s *fakeStore) Create(ctx context.Context, entityType string, fields map[string]string) (recordstore.Record, error) {
	if s.failing[entityType] {
		return recordstore.Record{}, fmt.Errorf("induced %s failure", entityType)
	}
	s.creates++
	s.nextID++
	rec := recordstore.Record{
		ID:     strconv.Itoa(s.nextID),
		Type:   entityType,
		Fields: fields,
	}
	s.records = append(s.records, rec)
	return rec, nil
}

func (s *fakeStore) Update(ctx context.Context, entityType, id string, fields map[string]string) (recordstore.Record, error) {
	if s.failing[entityType] {
		return recordstore.Record{}, fmt.Errorf("induced %s failure", entityType)
	}
	for i, rec := range s.records {
		if rec.Type == entityType && rec.ID == id {
			s.updates++
			s.records[i].Fields = fields
			return s.records[i], nil
		}
	}
	return recordstore.Record{}, fmt.Errorf("no %s record with id %s", entityType, id)
}

func testData() ScrapedData {
	return ScrapedData{
		Business: BusinessDetails{Name: "Riverside Yoga", Timezone: "America/Chicago"},
		Packages: []Package{
			{Name: "Unlimited", Price: "$29.99/month", Type: PackageTypeStandard},
			{Name: "First Class Free", Price: "$0", Type: PackageTypeIntroOffer},
		},
		Classes: []Class{
			{Name: "Flow", Description: "A slow vinyasa flow.", DurationMinutes: 60},
			{Name: "Power Hour", DurationMinutes: 45},
		},
	}
}

func TestSyncIdempotent(t *testing.T) {
	_, cleanup := testutil.SetupService(t, testutil.ServiceParams{Name: "schedsync"})
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	store := newFakeStore()
	syncer := NewSyncer(store)

	first := syncer.Sync(ctx, testData(), SyncEverything())
	require.Equal(t, 2, first.PackagesCreated)
	require.Equal(t, 0, first.PackagesUpdated)
	require.Equal(t, 2, first.ClassesCreated)
	require.True(t, first.BusinessDetailsWritten)

	second := syncer.Sync(ctx, testData(), SyncEverything())
	require.Equal(t, 0, second.PackagesCreated)
	require.Equal(t, 2, second.PackagesUpdated)
	require.Equal(t, 0, second.ClassesCreated)
	require.Equal(t, 2, second.ClassesUpdated)
	require.True(t, second.BusinessDetailsWritten)

	// the second pass created nothing, including business details
	require.Equal(t, 5, store.creates)
}

func TestSyncPreservesStaleRecords(t *testing.T) {
	_, cleanup := testutil.SetupService(t, testutil.ServiceParams{Name: "schedsync"})
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	store := newFakeStore()
	syncer := NewSyncer(store)
	syncer.Sync(ctx, testData(), SyncEverything())

	smaller := testData()
	smaller.Packages = smaller.Packages[:1]
	result := syncer.Sync(ctx, smaller, SyncEverything())
	require.Equal(t, 1, result.PackagesUpdated)

	// the dropped package stays in the store
	records, err := store.List(ctx, EntityPackage, recordstore.ListOptions{})
	if err != nil {
		t.Fatal(err)
	}
	require.Len(t, records, 2)
}

func TestSyncOptions(t *testing.T) {
	_, cleanup := testutil.SetupService(t, testutil.ServiceParams{Name: "schedsync"})
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	store := newFakeStore()
	syncer := NewSyncer(store)

	result := syncer.Sync(ctx, testData(), SyncOptions{Classes: true})
	require.Equal(t, 0, result.PackagesCreated)
	require.Equal(t, 2, result.ClassesCreated)
	require.False(t, result.BusinessDetailsWritten)

	records, err := store.List(ctx, EntityPackage, recordstore.ListOptions{})
	if err != nil {
		t.Fatal(err)
	}
	require.Len(t, records, 0)
}

func TestSyncAbsorbsItemFailures(t *testing.T) {
	_, cleanup := testutil.SetupService(t, testutil.ServiceParams{Name: "schedsync"})
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	store := newFakeStore()
	store.failing[EntityPackage] = true
	syncer := NewSyncer(store)

	result := syncer.Sync(ctx, testData(), SyncEverything())
	require.Equal(t, 0, result.PackagesCreated)
	require.Equal(t, 0, result.PackagesUpdated)
	// failures elsewhere never block the other entity types
	require.Equal(t, 2, result.ClassesCreated)
	require.True(t, result.BusinessDetailsWritten)
}

func TestSyncBusinessDetailsSingleton(t *testing.T) {
	_, cleanup := testutil.SetupService(t, testutil.ServiceParams{Name: "schedsync"})
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	store := newFakeStore()
	syncer := NewSyncer(store)

	for i := 0; i < 3; i++ {
		data := testData()
		data.Business.Name = fmt.Sprintf("Name %d", i)
		result := syncer.Sync(ctx, data, SyncOptions{BusinessDetails: true})
		require.True(t, result.BusinessDetailsWritten)
	}

	records, err := store.List(ctx, EntityBusinessDetails, recordstore.ListOptions{})
	if err != nil {
		t.Fatal(err)
	}
	require.Len(t, records, 1)
	require.Equal(t, "Name 2", records[0].Fields["name"])
}
