package files

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/examvault/internal/common"
	"github.com/dmitrijs2005/examvault/internal/cryptox"
	"github.com/dmitrijs2005/examvault/internal/server/migrations"
	"github.com/dmitrijs2005/examvault/internal/server/models"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func kdfDefaults() cryptox.KDFParams {
	return cryptox.DefaultKDFParams()
}

func sampleRecord(id string, at time.Time) *models.FileRecord {
	return &models.FileRecord{
		ID:               id,
		OriginalFilename: id + ".pdf",
		Subject:          "Physics",
		ExamDate:         "2025-06-10",
		UploadTime:       at,
		FileSize:         10240,
		ContentType:      "application/pdf",
		Salt:             []byte("0123456789abcdef"),
		Nonce:            []byte("0123456789ab"),
		KDF:              kdfDefaults(),
		Cipher:           cryptox.CipherAES256GCM,
	}
}

func newSQLiteRepo(t *testing.T) Repository {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	t.Cleanup(func() { db.Close() })

	goose.SetBaseFS(migrations.Migrations)
	require.NoError(t, goose.SetDialect("sqlite3"))
	require.NoError(t, goose.UpContext(context.Background(), db, migrations.SQLiteDir))

	return NewSQLiteRepository(db)
}

func newBoltRepo(t *testing.T) Repository {
	t.Helper()
	repo, err := OpenBoltRepository(filepath.Join(t.TempDir(), "nested", "meta.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func newMemoryRepo(t *testing.T) Repository {
	return NewMemoryRepository()
}

func TestRepositories(t *testing.T) {
	backends := map[string]func(t *testing.T) Repository{
		"sqlite": newSQLiteRepo,
		"bolt":   newBoltRepo,
		"memory": newMemoryRepo,
	}

	for name, newRepo := range backends {
		t.Run(name, func(t *testing.T) {
			t.Run("lifecycle", func(t *testing.T) { testLifecycle(t, newRepo(t)) })
			t.Run("list order", func(t *testing.T) { testListOrder(t, newRepo(t)) })
			t.Run("duplicate id", func(t *testing.T) { testDuplicate(t, newRepo(t)) })
			t.Run("stale", func(t *testing.T) { testStale(t, newRepo(t)) })
			t.Run("claim stale", func(t *testing.T) { testClaimStale(t, newRepo(t)) })
			t.Run("concurrent mark deleting", func(t *testing.T) { testConcurrentMarkDeleting(t, newRepo(t)) })
		})
	}
}

func testLifecycle(t *testing.T, repo Repository) {
	ctx := context.Background()
	at := time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)
	rec := sampleRecord("f1", at)

	require.NoError(t, repo.Create(ctx, rec))

	_, err := repo.GetByID(ctx, "f1")
	assert.ErrorIs(t, err, common.ErrNotFound, "pending records are hidden")
	list, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	require.NoError(t, repo.MarkUploaded(ctx, "f1"))
	assert.ErrorIs(t, repo.MarkUploaded(ctx, "f1"), common.ErrNotFound)

	got, err := repo.GetByID(ctx, "f1")
	require.NoError(t, err)
	assert.Equal(t, "f1.pdf", got.OriginalFilename)
	assert.Equal(t, "Physics", got.Subject)
	assert.Equal(t, "2025-06-10", got.ExamDate)
	assert.True(t, got.UploadTime.Equal(at))
	assert.Equal(t, int64(10240), got.FileSize)
	assert.Equal(t, rec.Salt, got.Salt)
	assert.Equal(t, rec.Nonce, got.Nonce)
	assert.Equal(t, rec.KDF, got.KDF)
	assert.Equal(t, cryptox.CipherAES256GCM, got.Cipher)
	assert.Equal(t, models.StatusCompleted, got.Status)

	marked, err := repo.MarkDeleting(ctx, "f1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusDeleting, marked.Status)
	assert.Equal(t, rec.Salt, marked.Salt)

	_, err = repo.GetByID(ctx, "f1")
	assert.ErrorIs(t, err, common.ErrNotFound, "deleting records are hidden")
	_, err = repo.MarkDeleting(ctx, "f1")
	assert.ErrorIs(t, err, common.ErrNotFound)

	require.NoError(t, repo.Delete(ctx, "f1"))
	assert.ErrorIs(t, repo.Delete(ctx, "f1"), common.ErrNotFound)

	_, err = repo.MarkDeleting(ctx, "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func testListOrder(t *testing.T, repo Repository) {
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, repo.Create(ctx, sampleRecord(id, base.Add(time.Duration(i)*time.Hour))))
		require.NoError(t, repo.MarkUploaded(ctx, id))
	}
	require.NoError(t, repo.Create(ctx, sampleRecord("pending", base.Add(10*time.Hour))))

	list, err := repo.List(ctx)
	require.NoError(t, err)
	ids := make([]string, 0, len(list))
	for _, r := range list {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{"c", "b", "a"}, ids)
}

func testDuplicate(t *testing.T, repo Repository) {
	ctx := context.Background()
	now := time.Now().UTC()
	require.NoError(t, repo.Create(ctx, sampleRecord("dup", now)))
	assert.Error(t, repo.Create(ctx, sampleRecord("dup", now)))
}

func testStale(t *testing.T, repo Repository) {
	ctx := context.Background()
	old := time.Now().UTC().Add(-48 * time.Hour)
	fresh := time.Now().UTC()

	require.NoError(t, repo.Create(ctx, sampleRecord("old-pending", old)))

	require.NoError(t, repo.Create(ctx, sampleRecord("old-deleting", old.Add(time.Minute))))
	require.NoError(t, repo.MarkUploaded(ctx, "old-deleting"))
	_, err := repo.MarkDeleting(ctx, "old-deleting")
	require.NoError(t, err)

	require.NoError(t, repo.Create(ctx, sampleRecord("old-completed", old)))
	require.NoError(t, repo.MarkUploaded(ctx, "old-completed"))

	require.NoError(t, repo.Create(ctx, sampleRecord("fresh-pending", fresh)))

	stale, err := repo.ListStale(ctx, time.Now().UTC().Add(-24*time.Hour))
	require.NoError(t, err)
	require.Len(t, stale, 2)
	assert.Equal(t, "old-pending", stale[0].ID)
	assert.Equal(t, "old-deleting", stale[1].ID)
}

func testClaimStale(t *testing.T, repo Repository) {
	ctx := context.Background()
	old := time.Now().UTC().Add(-48 * time.Hour)

	require.NoError(t, repo.Create(ctx, sampleRecord("pending", old)))
	require.NoError(t, repo.Create(ctx, sampleRecord("deleting", old)))
	require.NoError(t, repo.MarkUploaded(ctx, "deleting"))
	_, err := repo.MarkDeleting(ctx, "deleting")
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, sampleRecord("published", old)))
	require.NoError(t, repo.MarkUploaded(ctx, "published"))

	require.NoError(t, repo.ClaimStale(ctx, "pending"))
	assert.ErrorIs(t, repo.MarkUploaded(ctx, "pending"), common.ErrNotFound, "claimed upload cannot be published")

	require.NoError(t, repo.ClaimStale(ctx, "deleting"))

	assert.ErrorIs(t, repo.ClaimStale(ctx, "published"), common.ErrNotFound)
	got, err := repo.GetByID(ctx, "published")
	require.NoError(t, err, "completed record must survive a claim attempt")
	assert.Equal(t, models.StatusCompleted, got.Status)

	assert.ErrorIs(t, repo.ClaimStale(ctx, "missing"), common.ErrNotFound)

	stale, err := repo.ListStale(ctx, time.Now().UTC())
	require.NoError(t, err)
	require.Len(t, stale, 2)
	for _, rec := range stale {
		assert.Equal(t, models.StatusDeleting, rec.Status)
	}
}

func testConcurrentMarkDeleting(t *testing.T, repo Repository) {
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, sampleRecord("race", time.Now().UTC())))
	require.NoError(t, repo.MarkUploaded(ctx, "race"))

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.MarkDeleting(ctx, "race")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	won := 0
	for err := range errs {
		if err == nil {
			won++
			continue
		}
		assert.ErrorIs(t, err, common.ErrNotFound, fmt.Sprintf("unexpected error %v", err))
	}
	assert.Equal(t, 1, won)
}

func TestRepositories_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for name, repo := range map[string]Repository{"bolt": newBoltRepo(t), "memory": newMemoryRepo(t)} {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, repo.Create(ctx, sampleRecord("x", time.Now())), context.Canceled)
			_, err := repo.List(ctx)
			assert.ErrorIs(t, err, context.Canceled)
		})
	}
}
