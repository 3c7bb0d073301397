package usecase

import (
	"bytes"
	"context"
	"crypto/rand"
	"io"
	"log/slog"
	"slices"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gocloud.dev/blob"
	"gocloud.dev/blob/memblob"

	auditMocks "github.com/allisson/docvault/internal/audit/usecase/mocks"
	cryptoDomain "github.com/allisson/docvault/internal/crypto/domain"
	cryptoService "github.com/allisson/docvault/internal/crypto/service"
	documentDomain "github.com/allisson/docvault/internal/documents/domain"
	scanDomain "github.com/allisson/docvault/internal/scan/domain"
	scanMocks "github.com/allisson/docvault/internal/scan/usecase/mocks"
	"github.com/allisson/docvault/internal/storage"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type passThroughTxManager struct{}

func (passThroughTxManager) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (passThroughTxManager) WithSnapshot(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// memoryDocumentRepository is an in-memory DocumentRepository with the same conditional
// update semantics as the SQL implementations.
type memoryDocumentRepository struct {
	mu   sync.Mutex
	docs map[uuid.UUID]documentDomain.Document
	// raceUpdate makes UpdateWrap on these ids lose to a concurrent writer.
	raceUpdate map[uuid.UUID]bool
	// raceSwap makes SwapToEnvelope on these ids lose to a concurrent writer.
	raceSwap map[uuid.UUID]bool
}

func newMemoryDocumentRepository() *memoryDocumentRepository {
	return &memoryDocumentRepository{
		docs:       make(map[uuid.UUID]documentDomain.Document),
		raceUpdate: make(map[uuid.UUID]bool),
		raceSwap:   make(map[uuid.UUID]bool),
	}
}

// doc returns a copy of the stored row; mutating it does not touch the repository.
func (r *memoryDocumentRepository) doc(id uuid.UUID) *documentDomain.Document {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := r.docs[id]
	return &stored
}

func (r *memoryDocumentRepository) Create(_ context.Context, doc *documentDomain.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs[doc.ID] = *doc
	return nil
}

func (r *memoryDocumentRepository) Get(_ context.Context, id uuid.UUID) (*documentDomain.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[id]
	if !ok {
		return nil, documentDomain.ErrDocumentNotFound
	}
	return &doc, nil
}

func (r *memoryDocumentRepository) sorted(match func(documentDomain.Document) bool) []*documentDomain.Document {
	var out []*documentDomain.Document
	for _, doc := range r.docs {
		if match(doc) {
			d := doc
			out = append(out, &d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return bytes.Compare(out[i].ID[:], out[j].ID[:]) < 0 })
	return out
}

func (r *memoryDocumentRepository) List(_ context.Context, offset, limit int) ([]*documentDomain.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := r.sorted(func(documentDomain.Document) bool { return true })
	if offset >= len(all) {
		return nil, nil
	}
	return all[offset:min(offset+limit, len(all))], nil
}

func (r *memoryDocumentRepository) ListByMasterKey(
	_ context.Context,
	masterKeyID string,
	afterID uuid.UUID,
	limit int,
) ([]*documentDomain.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	docs := r.sorted(func(d documentDomain.Document) bool {
		return d.IsEnvelope() && d.MasterKeyID() == masterKeyID && bytes.Compare(d.ID[:], afterID[:]) > 0
	})
	return docs[:min(limit, len(docs))], nil
}

func (r *memoryDocumentRepository) UpdateWrap(
	_ context.Context,
	id uuid.UUID,
	wrap *cryptoDomain.WrappedDataKey,
	expectedKeyID string,
	expectedEpoch int64,
	now time.Time,
) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[id]
	if r.raceUpdate[id] {
		doc.KeyEpoch++
		r.docs[id] = doc
	}
	if !ok || !doc.IsEnvelope() || doc.MasterKeyID() != expectedKeyID || doc.KeyEpoch != expectedEpoch {
		return false, nil
	}
	doc.Wrap = wrap
	doc.KeyEpoch++
	doc.UpdatedAt = now
	r.docs[id] = doc
	return true, nil
}

func (r *memoryDocumentRepository) ListLegacy(
	_ context.Context,
	afterID uuid.UUID,
	limit int,
) ([]*documentDomain.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	docs := r.sorted(func(d documentDomain.Document) bool {
		return !d.IsEnvelope() && bytes.Compare(d.ID[:], afterID[:]) > 0
	})
	return docs[:min(limit, len(docs))], nil
}

func (r *memoryDocumentRepository) SwapToEnvelope(
	_ context.Context,
	upgraded *documentDomain.Document,
	legacyStorageKey string,
	now time.Time,
) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[upgraded.ID]
	if !ok || doc.IsEnvelope() || doc.StorageKey != legacyStorageKey || r.raceSwap[upgraded.ID] {
		return false, nil
	}
	doc.StorageKey = upgraded.StorageKey
	doc.EncryptionVersion = documentDomain.EncryptionEnvelope
	doc.Algorithm = upgraded.Algorithm
	doc.Wrap = upgraded.Wrap
	doc.ContentIV = upgraded.ContentIV
	doc.SizeBytes = upgraded.SizeBytes
	doc.KeyEpoch++
	doc.UpdatedAt = now
	r.docs[doc.ID] = doc
	return true, nil
}

// fakeMasterKeys is a registry over in-memory keys.
type fakeMasterKeys struct {
	mu     sync.Mutex
	keys   map[string]*cryptoDomain.MasterKey
	active string
}

func newFakeMasterKeys(t *testing.T, active string, ids ...string) *fakeMasterKeys {
	t.Helper()
	f := &fakeMasterKeys{keys: make(map[string]*cryptoDomain.MasterKey), active: active}
	for _, id := range ids {
		key := make([]byte, cryptoDomain.KeySize)
		_, err := rand.Read(key)
		require.NoError(t, err)
		f.keys[id] = &cryptoDomain.MasterKey{ID: id, Key: key}
	}
	return f
}

func (f *fakeMasterKeys) get(id string) (*cryptoDomain.MasterKey, error) {
	key, ok := f.keys[id]
	if !ok {
		return nil, cryptoDomain.ErrMasterKeyNotFound
	}
	out := *key
	out.Active = id == f.active
	return &out, nil
}

func (f *fakeMasterKeys) GetActive(_ context.Context) (*cryptoDomain.MasterKey, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.active == "" {
		return nil, cryptoDomain.ErrNoActiveMasterKey
	}
	return f.get(f.active)
}

func (f *fakeMasterKeys) GetByID(_ context.Context, id string) (*cryptoDomain.MasterKey, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.get(id)
}

func (f *fakeMasterKeys) SetActive(_ context.Context, id, _ string) (*cryptoDomain.MasterKeyState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key, err := f.get(id)
	if err != nil {
		return nil, err
	}
	if key.Revoked {
		return nil, cryptoDomain.ErrMasterKeyRevoked
	}
	f.active = id
	return &cryptoDomain.MasterKeyState{ID: id, Active: true}, nil
}

func (f *fakeMasterKeys) Revoke(_ context.Context, id, reason string) (*cryptoDomain.MasterKeyState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key, ok := f.keys[id]
	if !ok {
		return nil, cryptoDomain.ErrMasterKeyNotFound
	}
	key.Revoked = true
	return &cryptoDomain.MasterKeyState{ID: id, Revoked: true, RevokedReason: reason}, nil
}

func (f *fakeMasterKeys) List(_ context.Context) ([]*cryptoDomain.MasterKeyState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var states []*cryptoDomain.MasterKeyState
	for id, key := range f.keys {
		states = append(states, &cryptoDomain.MasterKeyState{ID: id, Active: id == f.active, Revoked: key.Revoked})
	}
	return states, nil
}

func (f *fakeMasterKeys) Sync(context.Context) error {
	return nil
}

// fixture wires the document use cases over in-memory collaborators and the real engine.
type fixture struct {
	repo       *memoryDocumentRepository
	bucket     *blob.Bucket
	blobs      storage.BlobStore
	engine     cryptoService.EnvelopeService
	masterKeys *fakeMasterKeys
	scans      *scanMocks.MockScanUseCase
	audit      *auditMocks.MockAuditUseCase
	cfg        Config
	logger     *slog.Logger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	bucket := memblob.OpenBucket(nil)
	f := &fixture{
		repo:       newMemoryDocumentRepository(),
		bucket:     bucket,
		blobs:      storage.NewBucketStore(bucket),
		engine:     cryptoService.NewEnvelopeEngine(cryptoService.NewAEADManager()),
		masterKeys: newFakeMasterKeys(t, "k1", "k1", "k2", "k3"),
		scans:      &scanMocks.MockScanUseCase{},
		audit:      &auditMocks.MockAuditUseCase{},
		cfg: Config{
			Algorithm:          cryptoDomain.AESGCM,
			MaxUploadBytes:     1 << 20,
			RotationBatchSize:  100,
			MigrationBatchSize: 100,
			MigrationMaxBytes:  1 << 20,
		},
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	t.Cleanup(func() { _ = bucket.Close() })
	f.audit.Appended()
	return f
}

func (f *fixture) documents() *documentUseCase {
	uc := NewDocumentUseCase(
		passThroughTxManager{}, f.repo, f.blobs, f.engine, f.masterKeys, f.scans, f.audit, f.cfg, f.logger,
	).(*documentUseCase)
	uc.now = func() time.Time { return fixedNow }
	return uc
}

func (f *fixture) rotation() *rotationUseCase {
	uc := NewRotationUseCase(f.repo, f.engine, f.masterKeys, f.audit, f.cfg, f.logger).(*rotationUseCase)
	uc.now = func() time.Time { return fixedNow }
	return uc
}

func (f *fixture) migration() *migrationUseCase {
	uc := NewMigrationUseCase(f.repo, f.blobs, f.engine, f.masterKeys, f.audit, f.cfg, f.logger).(*migrationUseCase)
	uc.now = func() time.Time { return fixedNow }
	return uc
}

// expectEnqueue lets any Upload enqueue its scan job.
func (f *fixture) expectEnqueue() {
	f.scans.On("Enqueue", mock.Anything, mock.Anything, mock.Anything).
		Return(&scanDomain.Job{Status: scanDomain.StatusQueued}, nil)
}

// upload stores content through the real ingestion path.
func (f *fixture) upload(t *testing.T, content string) *documentDomain.Document {
	t.Helper()
	doc, err := f.documents().Upload(context.Background(), &documentDomain.UploadInput{
		Filename:    "file.txt",
		ContentType: "text/plain",
		Content:     []byte(content),
	})
	require.NoError(t, err)
	return doc
}

// legacy stores raw content as a version 0 document.
func (f *fixture) legacy(t *testing.T, content string) *documentDomain.Document {
	t.Helper()
	id := uuid.Must(uuid.NewV7())
	key := "legacy/" + id.String()
	require.NoError(t, f.blobs.Put(context.Background(), key, []byte(content), "text/plain"))
	doc := &documentDomain.Document{
		ID:          id,
		Filename:    "old.txt",
		ContentType: "text/plain",
		SizeBytes:   int64(len(content)),
		StorageKey:  key,
		ScanStatus:  scanDomain.StatusClean,
		CreatedAt:   fixedNow,
		UpdatedAt:   fixedNow,
	}
	require.NoError(t, f.repo.Create(context.Background(), doc))
	return doc
}

// blobKeys lists every object in the bucket.
func (f *fixture) blobKeys(t *testing.T) []string {
	t.Helper()
	var keys []string
	iter := f.bucket.List(nil)
	for {
		obj, err := iter.Next(context.Background())
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		keys = append(keys, obj.Key)
	}
	slices.Sort(keys)
	return keys
}
