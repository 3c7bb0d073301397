// Package storage provides the document content store.
//
// Content is addressed by an opaque storage key and kept in a gocloud.dev/blob bucket, so
// the same code runs against a local directory (file://), memory (mem://) or any cloud
// bucket whose driver is linked in.
package storage

import (
	"context"
	"fmt"
	"io"

	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/memblob"
	"gocloud.dev/gcerrors"

	apperrors "github.com/allisson/docvault/internal/errors"
)

// Storage errors.
var (
	// ErrObjectNotFound indicates no object exists under the key.
	ErrObjectNotFound = apperrors.Wrap(apperrors.ErrNotFound, "blob not found")

	// ErrObjectTooLarge indicates an object exceeds the caller's read bound.
	ErrObjectTooLarge = apperrors.Wrap(apperrors.ErrInvalidInput, "blob exceeds size limit")
)

// BlobStore is a byte-addressable get/put/delete store.
type BlobStore interface {
	// Get reads the whole object. maxBytes <= 0 means unbounded.
	Get(ctx context.Context, key string, maxBytes int64) ([]byte, error)

	// Put writes data under key, replacing any existing object.
	Put(ctx context.Context, key string, data []byte, contentType string) error

	// Delete removes the object. Deleting a missing object is not an error.
	Delete(ctx context.Context, key string) error

	// Size returns the object size without reading it.
	Size(ctx context.Context, key string) (int64, error)

	Close() error
}

// BucketStore implements BlobStore over a gocloud.dev bucket.
type BucketStore struct {
	bucket *blob.Bucket
}

// OpenBucketStore opens the bucket at url (for example "file:///var/lib/docvault/blobs" or "mem://").
func OpenBucketStore(ctx context.Context, url string) (*BucketStore, error) {
	bucket, err := blob.OpenBucket(ctx, url)
	if err != nil {
		return nil, apperrors.Wrapf(apperrors.ErrConfiguration, "failed to open blob store %q: %v", url, err)
	}
	return NewBucketStore(bucket), nil
}

// NewBucketStore wraps an already opened bucket.
func NewBucketStore(bucket *blob.Bucket) *BucketStore {
	return &BucketStore{bucket: bucket}
}

func (s *BucketStore) Get(ctx context.Context, key string, maxBytes int64) ([]byte, error) {
	r, err := s.bucket.NewReader(ctx, key, nil)
	if err != nil {
		return nil, mapError(err, key)
	}
	defer func() {
		_ = r.Close()
	}()

	if maxBytes > 0 && r.Size() > maxBytes {
		return nil, fmt.Errorf("%w: %s is %d bytes, limit %d", ErrObjectTooLarge, key, r.Size(), maxBytes)
	}

	var src io.Reader = r
	if maxBytes > 0 {
		// Guards against the object growing between the size check and the read.
		src = io.LimitReader(r, maxBytes+1)
	}
	data, err := io.ReadAll(src)
	if err != nil {
		return nil, apperrors.Wrapf(err, "failed to read blob %s", key)
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrObjectTooLarge, key, maxBytes)
	}
	return data, nil
}

func (s *BucketStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	opts := &blob.WriterOptions{ContentType: contentType}
	if err := s.bucket.WriteAll(ctx, key, data, opts); err != nil {
		return apperrors.Wrapf(err, "failed to write blob %s", key)
	}
	return nil
}

func (s *BucketStore) Delete(ctx context.Context, key string) error {
	err := s.bucket.Delete(ctx, key)
	if err != nil && gcerrors.Code(err) != gcerrors.NotFound {
		return apperrors.Wrapf(err, "failed to delete blob %s", key)
	}
	return nil
}

func (s *BucketStore) Size(ctx context.Context, key string) (int64, error) {
	attrs, err := s.bucket.Attributes(ctx, key)
	if err != nil {
		return 0, mapError(err, key)
	}
	return attrs.Size, nil
}

func (s *BucketStore) Close() error {
	return s.bucket.Close()
}

func mapError(err error, key string) error {
	if gcerrors.Code(err) == gcerrors.NotFound {
		return fmt.Errorf("%w: %s", ErrObjectNotFound, key)
	}
	return apperrors.Wrapf(err, "failed to access blob %s", key)
}
