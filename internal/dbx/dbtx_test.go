package dbx

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

// openFilesDB returns an in-memory database with a cut-down files table.
func openFilesDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	_, err = db.Exec(`CREATE TABLE files (id TEXT PRIMARY KEY, status TEXT NOT NULL)`)
	require.NoError(t, err)
	return db
}

func countRows(t *testing.T, db *sql.DB) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM files`).Scan(&n))
	return n
}

func insertFile(ctx context.Context, tx DBTX, id string) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO files(id, status) VALUES (?, 'pending')`, id)
	return err
}

func TestWithTx(t *testing.T) {
	errFail := errors.New("publish failed")

	tests := []struct {
		name     string
		fn       func(ctx context.Context, tx DBTX) error
		wantErr  error
		wantRows int
	}{
		{
			name:     "commit",
			fn:       func(ctx context.Context, tx DBTX) error { return insertFile(ctx, tx, "f1") },
			wantRows: 1,
		},
		{
			name: "rollback on error",
			fn: func(ctx context.Context, tx DBTX) error {
				if err := insertFile(ctx, tx, "f1"); err != nil {
					return err
				}
				return errFail
			},
			wantErr: errFail,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := openFilesDB(t)
			err := WithTx(context.Background(), db, nil, tt.fn)
			require.ErrorIs(t, err, tt.wantErr)
			require.Equal(t, tt.wantRows, countRows(t, db))
		})
	}
}

func TestWithTx_DuplicateIDRollsBackWholeTx(t *testing.T) {
	db := openFilesDB(t)

	err := WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error {
		if err := insertFile(ctx, tx, "f1"); err != nil {
			return err
		}
		return insertFile(ctx, tx, "f1")
	})
	require.Error(t, err)
	require.Equal(t, 0, countRows(t, db))
}

func TestWithTx_RollbackOnPanic(t *testing.T) {
	db := openFilesDB(t)

	require.PanicsWithValue(t, "mid-upload crash", func() {
		_ = WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error {
			require.NoError(t, insertFile(ctx, tx, "f1"))
			panic("mid-upload crash")
		})
	})
	require.Equal(t, 0, countRows(t, db), "panic must roll back")
}

func TestWithTx_BeginError(t *testing.T) {
	db := openFilesDB(t)
	require.NoError(t, db.Close())

	called := false
	err := WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error {
		called = true
		return nil
	})
	require.Error(t, err)
	require.False(t, called)
}

func TestInTx_BeginsWhenGivenDB(t *testing.T) {
	db := openFilesDB(t)

	err := InTx(context.Background(), db, func(ctx context.Context, tx DBTX) error {
		if _, ok := tx.(*sql.Tx); !ok {
			t.Fatalf("expected *sql.Tx, got %T", tx)
		}
		_, err := tx.ExecContext(ctx, `INSERT INTO files(id, status) VALUES ('a', 'pending')`)
		if err != nil {
			return err
		}
		return errors.New("undo")
	})
	require.Error(t, err)
	require.Equal(t, 0, countRows(t, db), "InTx must roll back its own transaction")
}

func TestInTx_ReusesOuterTx(t *testing.T) {
	db := openFilesDB(t)

	err := WithTx(context.Background(), db, nil, func(ctx context.Context, outer DBTX) error {
		return InTx(ctx, outer, func(ctx context.Context, inner DBTX) error {
			if inner != outer {
				t.Fatalf("expected the outer transaction to be reused")
			}
			_, err := inner.ExecContext(ctx, `INSERT INTO files(id, status) VALUES ('b', 'pending')`)
			return err
		})
	})
	require.NoError(t, err)
	require.Equal(t, 1, countRows(t, db))
}
