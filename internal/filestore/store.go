// Package filestore defines the read-only interface for object storage
// backends that host dataset payloads.
//
// Providers (MinIO, S3-compatible services) implement Store. Callers depend
// only on this package, never on a specific provider package.
//
// Usage:
//
//	cfg := filestore.DefaultConfig("localhost:9000", "minioadmin", "minioadmin")
//	store, err := minio.New(ctx, cfg)
//	if err != nil { ... }
//	defer store.Close()
//
//	obj, err := store.GetObject(ctx, "datasets", "diabetes/diabetes.json")
package filestore

import "context"

// Store is the interface all object storage providers implement.
// Scoped to reads: datasets are published out of band.
type Store interface {
	// Ping verifies the storage backend is reachable.
	Ping(ctx context.Context) error

	// Close releases any held resources.
	Close() error

	// GetObject opens a streaming handle to the object at key inside bucket.
	// The caller MUST call Object.Close() after reading.
	GetObject(ctx context.Context, bucket, key string) (Object, error)
}
