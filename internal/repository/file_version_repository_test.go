package repository

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"pdfhistory/internal/domain"
)

func TestFileVersionRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	repo := NewFileVersionRepository(newTestDB(t))

	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	root := domain.NewRootVersion("doc.pdf", "application/pdf", 1024, at)
	root.S3Key = "pdf_versions/" + root.ID + "/" + root.ID
	require.NoError(t, repo.Create(ctx, &root))

	child := domain.DeriveVersion(root, "doc.pdf", 900, "rotate", at.Add(time.Minute))
	child.S3Key = "pdf_versions/" + root.ID + "/" + child.ID
	require.NoError(t, repo.Create(ctx, &child))

	got, err := repo.GetByID(ctx, child.ID)
	require.NoError(t, err)
	require.Equal(t, child.ID, got.ID)
	require.Equal(t, root.ID, got.ParentFileID)
	require.Equal(t, root.ID, got.OriginalFileID)
	require.Equal(t, 1, got.VersionNumber)
	require.Equal(t, int64(900), got.Size)
	require.Equal(t, child.S3Key, got.S3Key)
	require.Equal(t, child.ToolChain, got.ToolChain)
	require.True(t, got.CreatedAt.Equal(child.CreatedAt))

	gotRoot, err := repo.GetByID(ctx, root.ID)
	require.NoError(t, err)
	require.Empty(t, gotRoot.ParentFileID)
	require.Empty(t, gotRoot.OriginalFileID)
	require.Empty(t, gotRoot.ThumbnailURL)
	require.Empty(t, gotRoot.ToolChain)
}

func TestFileVersionRepository_NotFound(t *testing.T) {
	ctx := context.Background()
	repo := NewFileVersionRepository(newTestDB(t))

	_, err := repo.GetByID(ctx, "nope")
	require.True(t, errors.Is(err, domain.ErrNotFound))

	require.True(t, errors.Is(repo.UpdateThumbnail(ctx, "nope", "data:x"), domain.ErrNotFound))
	require.True(t, errors.Is(repo.Delete(ctx, "nope"), domain.ErrNotFound))
}

func TestFileVersionRepository_ListAndListByOriginal(t *testing.T) {
	ctx := context.Background()
	repo := NewFileVersionRepository(newTestDB(t))

	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	root := domain.NewRootVersion("a.pdf", "application/pdf", 10, base)
	child := domain.DeriveVersion(root, "a.pdf", 11, "crop", base.Add(time.Second))
	other := domain.NewRootVersion("b.pdf", "application/pdf", 20, base.Add(2*time.Second))

	for _, rec := range []*domain.FileVersionRecord{&other, &child, &root} {
		rec.S3Key = "key-" + rec.ID
		require.NoError(t, repo.Create(ctx, rec))
	}

	all, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, root.ID, all[0].ID)
	require.Equal(t, child.ID, all[1].ID)
	require.Equal(t, other.ID, all[2].ID)

	family, err := repo.ListByOriginal(ctx, root.ID)
	require.NoError(t, err)
	require.Len(t, family, 2)
	require.Equal(t, root.ID, family[0].ID)
	require.Equal(t, child.ID, family[1].ID)
}

func TestFileVersionRepository_UpdateThumbnailAndDelete(t *testing.T) {
	ctx := context.Background()
	repo := NewFileVersionRepository(newTestDB(t))

	rec := domain.NewRootVersion("a.pdf", "application/pdf", 10, time.Now())
	rec.S3Key = "key"
	require.NoError(t, repo.Create(ctx, &rec))

	require.NoError(t, repo.UpdateThumbnail(ctx, rec.ID, "data:image/jpeg;base64,AAAA"))
	got, err := repo.GetByID(ctx, rec.ID)
	require.NoError(t, err)
	require.Equal(t, "data:image/jpeg;base64,AAAA", got.ThumbnailURL)

	require.NoError(t, repo.Delete(ctx, rec.ID))
	_, err = repo.GetByID(ctx, rec.ID)
	require.True(t, errors.Is(err, domain.ErrNotFound))
}
