package usecase

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	auditDomain "github.com/allisson/docvault/internal/audit/domain"
	cryptoDomain "github.com/allisson/docvault/internal/crypto/domain"
	documentDomain "github.com/allisson/docvault/internal/documents/domain"
	apperrors "github.com/allisson/docvault/internal/errors"
)

func TestRotationUseCase_RotateDocKeys(t *testing.T) {
	ctx := context.Background()

	t.Run("rotates every document once then nothing", func(t *testing.T) {
		f := newFixture(t)
		f.expectEnqueue()
		contents := []string{"alpha", "bravo", "charlie"}
		var docs []*documentDomain.Document
		for _, c := range contents {
			docs = append(docs, f.upload(t, c))
		}
		_, err := f.masterKeys.SetActive(ctx, "k2", "scheduled rotation")
		require.NoError(t, err)

		result, err := f.rotation().RotateDocKeys(ctx, documentDomain.RotateInput{FromKeyID: "k1", Limit: 10})
		require.NoError(t, err)
		assert.Equal(t, 3, result.Rotated)
		assert.Equal(t, 0, result.Failed)
		assert.Equal(t, 0, result.Conflicts)
		assert.Equal(t, "k2", result.ToKeyID)
		assert.Equal(t, docs[2].ID, result.LastID)

		again, err := f.rotation().RotateDocKeys(ctx, documentDomain.RotateInput{FromKeyID: "k1", Limit: 10})
		require.NoError(t, err)
		assert.Equal(t, 0, again.Selected())

		for i, doc := range docs {
			stored := f.repo.doc(doc.ID)
			assert.Equal(t, "k2", stored.MasterKeyID())
			assert.Equal(t, int64(1), stored.KeyEpoch)

			_, content, err := f.documents().ReadContent(ctx, doc.ID)
			require.NoError(t, err)
			assert.Equal(t, contents[i], string(content))
		}

		f.audit.AssertCalled(t, "Append", mock.Anything, mock.MatchedBy(func(in *auditDomain.AppendInput) bool {
			return in.StreamKey == auditDomain.StreamRotation && in.Payload["rotated"] == 3
		}))
	})

	t.Run("explicit target and revoked source", func(t *testing.T) {
		f := newFixture(t)
		f.expectEnqueue()
		doc := f.upload(t, "payload")
		_, err := f.masterKeys.Revoke(ctx, "k1", "compromised")
		require.NoError(t, err)

		result, err := f.rotation().RotateDocKeys(ctx, documentDomain.RotateInput{FromKeyID: "k1", ToKeyID: "k3", Limit: 5})
		require.NoError(t, err)
		assert.Equal(t, 1, result.Rotated)
		assert.Equal(t, "k3", f.repo.doc(doc.ID).MasterKeyID())
	})

	t.Run("lost races are conflicts", func(t *testing.T) {
		f := newFixture(t)
		f.expectEnqueue()
		first := f.upload(t, "one")
		f.upload(t, "two")
		f.repo.raceUpdate[first.ID] = true
		_, err := f.masterKeys.SetActive(ctx, "k2", "")
		require.NoError(t, err)

		result, err := f.rotation().RotateDocKeys(ctx, documentDomain.RotateInput{FromKeyID: "k1", Limit: 10})
		require.NoError(t, err)
		assert.Equal(t, 1, result.Rotated)
		assert.Equal(t, 1, result.Conflicts)
		assert.Equal(t, 0, result.Failed)
		assert.Equal(t, "k1", f.repo.doc(first.ID).MasterKeyID())
	})

	t.Run("a tampered wrap fails without aborting the batch", func(t *testing.T) {
		f := newFixture(t)
		f.expectEnqueue()
		bad := f.upload(t, "one")
		f.upload(t, "two")
		f.upload(t, "three")

		stored := f.repo.doc(bad.ID)
		tag := append([]byte(nil), stored.Wrap.Tag...)
		tag[0] ^= 0xff
		stored.Wrap = &cryptoDomain.WrappedDataKey{
			MasterKeyID: stored.Wrap.MasterKeyID,
			Wrapped:     stored.Wrap.Wrapped,
			IV:          stored.Wrap.IV,
			Tag:         tag,
		}
		require.NoError(t, f.repo.Create(ctx, stored))

		result, err := f.rotation().RotateDocKeys(ctx, documentDomain.RotateInput{FromKeyID: "k1", ToKeyID: "k2", Limit: 10})
		require.NoError(t, err)
		assert.Equal(t, 2, result.Rotated)
		assert.Equal(t, 1, result.Failed)
	})

	t.Run("resumes after the cursor", func(t *testing.T) {
		f := newFixture(t)
		f.expectEnqueue()
		f.upload(t, "one")
		f.upload(t, "two")
		f.upload(t, "three")

		first, err := f.rotation().RotateDocKeys(ctx, documentDomain.RotateInput{FromKeyID: "k1", ToKeyID: "k2", Limit: 2})
		require.NoError(t, err)
		assert.Equal(t, 2, first.Rotated)

		rest, err := f.rotation().RotateDocKeys(ctx, documentDomain.RotateInput{
			FromKeyID: "k1", ToKeyID: "k2", Limit: 2, AfterID: first.LastID,
		})
		require.NoError(t, err)
		assert.Equal(t, 1, rest.Rotated)
	})

	t.Run("rejects invalid requests", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.masterKeys.Revoke(ctx, "k3", "retired")
		require.NoError(t, err)

		tests := []struct {
			name  string
			input documentDomain.RotateInput
			want  error
		}{
			{"same key", documentDomain.RotateInput{FromKeyID: "k1", ToKeyID: "k1"}, documentDomain.ErrSameRotationKey},
			{"same as active", documentDomain.RotateInput{FromKeyID: "k1"}, documentDomain.ErrSameRotationKey},
			{"revoked target", documentDomain.RotateInput{FromKeyID: "k1", ToKeyID: "k3"}, cryptoDomain.ErrMasterKeyRevoked},
			{"unknown source", documentDomain.RotateInput{FromKeyID: "nope", ToKeyID: "k2"}, cryptoDomain.ErrMasterKeyNotFound},
			{"negative limit", documentDomain.RotateInput{FromKeyID: "k1", ToKeyID: "k2", Limit: -1}, documentDomain.ErrInvalidLimit},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := f.rotation().RotateDocKeys(ctx, tt.input)
				assert.ErrorIs(t, err, tt.want)
			})
		}
	})

	t.Run("revoked active key as implicit target", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.masterKeys.SetActive(ctx, "k2", "")
		require.NoError(t, err)
		_, err = f.masterKeys.Revoke(ctx, "k2", "compromised")
		require.NoError(t, err)

		_, err = f.rotation().RotateDocKeys(ctx, documentDomain.RotateInput{FromKeyID: "k1"})
		assert.ErrorIs(t, err, documentDomain.ErrActiveKeyRevoked)
		assert.ErrorIs(t, err, apperrors.ErrConfiguration)
	})

	t.Run("empty selection", func(t *testing.T) {
		f := newFixture(t)
		result, err := f.rotation().RotateDocKeys(ctx, documentDomain.RotateInput{FromKeyID: "k1", ToKeyID: "k2"})
		require.NoError(t, err)
		assert.Equal(t, 0, result.Selected())
		assert.Equal(t, uuid.Nil, result.LastID)
	})
}
