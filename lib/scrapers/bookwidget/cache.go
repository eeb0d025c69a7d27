package bookwidget

import (
	"bytes"
	"context"
	"encoding/gob"
	"time"

	"github.com/dgraph-io/badger/v4"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var ErrDescriptionNotCached = badger.ErrKeyNotFound

// class descriptions change rarely, a week of staleness is fine
const descriptionLifetime = int64((time.Hour / time.Second) * 24 * 7)

type cachedDescription struct {
	Description string
	ExpiresAt   int64
}

// DescriptionCache stores class descriptions keyed by site and template
// so refresh cycles don't refetch one detail call per class every run.
type DescriptionCache struct {
	db *badger.DB
}

func NewDescriptionCache(db *badger.DB) DescriptionCache {
	return DescriptionCache{db: db}
}

func (c DescriptionCache) key(siteID, template string) []byte {
	return []byte(siteID + ":" + template)
}

func (c DescriptionCache) Get(ctx context.Context, siteID, template string) (string, error) {
	_, span := tracer.Start(ctx, "cache:Get")
	defer span.End()

	key := c.key(siteID, template)
	span.SetAttributes(attribute.String("cache_key", string(key)))

	tx := c.db.NewTransaction(false)
	defer tx.Discard()

	item, err := tx.Get(key)
	if err == badger.ErrKeyNotFound {
		return "", ErrDescriptionNotCached
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to read item from badger")
		return "", err
	}
	serialized, err := item.ValueCopy(nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to copy cached item")
		return "", err
	}

	var cached cachedDescription
	err = gob.NewDecoder(bytes.NewBuffer(serialized)).Decode(&cached)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to deserialize cached item")
		return "", err
	}

	if time.Now().Unix() >= cached.ExpiresAt {
		tx := c.db.NewTransaction(true)
		defer tx.Commit()

		err = tx.Delete(key)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to delete expired key")
		}
		span.SetStatus(codes.Ok, "CACHE EXPIRED")
		return "", ErrDescriptionNotCached
	}

	span.SetStatus(codes.Ok, "CACHE HIT")
	return cached.Description, nil
}

func (c DescriptionCache) Set(ctx context.Context, siteID, template, description string) error {
	_, span := tracer.Start(ctx, "cache:Set")
	defer span.End()

	serialized := bytes.NewBuffer(nil)
	err := gob.NewEncoder(serialized).Encode(cachedDescription{
		Description: description,
		ExpiresAt:   time.Now().Unix() + descriptionLifetime,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to serialize description")
		return err
	}

	tx := c.db.NewTransaction(true)
	defer tx.Commit()

	err = tx.Set(c.key(siteID, template), serialized.Bytes())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to set badger item")
		return err
	}

	return nil
}
