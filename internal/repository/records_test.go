package repository

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openBackends(t *testing.T) map[string]func(t *testing.T) RecordStore {
	return map[string]func(t *testing.T) RecordStore{
		BackendMemory: func(t *testing.T) RecordStore { return NewMemoryRecordStore() },
		BackendSQLite: func(t *testing.T) RecordStore {
			s, err := NewSQLiteRecordStore(filepath.Join(t.TempDir(), "records.db"))
			require.NoError(t, err)
			t.Cleanup(func() { _ = s.Close() })
			return s
		},
		BackendRedis: func(t *testing.T) RecordStore {
			mr := miniredis.RunT(t)
			s, err := NewRedisRecordStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "test:record:")
			require.NoError(t, err)
			t.Cleanup(func() { _ = s.Close() })
			return s
		},
	}
}

func TestRecordStore_Contract(t *testing.T) {
	for name, open := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			t.Run("missing record", func(t *testing.T) {
				s := open(t)
				_, err := s.GetRecord(ctx, RecordCart)
				assert.ErrorIs(t, err, ErrRecordNotFound)
			})

			t.Run("put replaces", func(t *testing.T) {
				s := open(t)
				require.NoError(t, s.PutRecord(ctx, RecordCart, []byte(`{"items":[],"version":1}`)))
				require.NoError(t, s.PutRecord(ctx, RecordCart, []byte(`{"items":[],"version":2}`)))

				got, err := s.GetRecord(ctx, RecordCart)
				require.NoError(t, err)
				assert.JSONEq(t, `{"items":[],"version":2}`, string(got))
			})

			t.Run("records are independent", func(t *testing.T) {
				s := open(t)
				require.NoError(t, s.PutRecord(ctx, RecordCart, []byte("cart")))
				require.NoError(t, s.PutRecord(ctx, RecordUpdateState, []byte("update")))

				require.NoError(t, s.DeleteRecord(ctx, RecordCart))
				_, err := s.GetRecord(ctx, RecordCart)
				assert.ErrorIs(t, err, ErrRecordNotFound)

				got, err := s.GetRecord(ctx, RecordUpdateState)
				require.NoError(t, err)
				assert.Equal(t, "update", string(got))
			})

			t.Run("delete missing is fine", func(t *testing.T) {
				s := open(t)
				assert.NoError(t, s.DeleteRecord(ctx, "nothing"))
			})

			t.Run("empty name rejected", func(t *testing.T) {
				s := open(t)
				assert.ErrorIs(t, s.PutRecord(ctx, "", []byte("x")), ErrEmptyName)
			})

			t.Run("ping", func(t *testing.T) {
				assert.NoError(t, open(t).Ping(ctx))
			})
		})
	}
}

func TestSQLiteRecordStore_SharedFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "shared.db")

	first, err := NewSQLiteRecordStore(path)
	require.NoError(t, err)
	require.NoError(t, first.PutRecord(ctx, RecordCart, []byte("snapshot")))
	require.NoError(t, first.Close())

	second, err := NewSQLiteRecordStore(path)
	require.NoError(t, err)
	defer second.Close()

	got, err := second.GetRecord(ctx, RecordCart)
	require.NoError(t, err)
	assert.Equal(t, "snapshot", string(got))
	assert.Equal(t, BackendSQLite, second.Dialect())
}

func TestMemoryRecordStore_Copies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryRecordStore()
	data := []byte("abc")
	require.NoError(t, s.PutRecord(ctx, "r", data))
	data[0] = 'z'

	got, err := s.GetRecord(ctx, "r")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))
}

func TestDialects_Placeholders(t *testing.T) {
	assert.Contains(t, postgresDialect.upsertQuery, "$3")
	assert.Contains(t, postgresDialect.upsertQuery, "ON CONFLICT (name)")
	assert.Contains(t, mysqlDialect.upsertQuery, "ON DUPLICATE KEY UPDATE")
	assert.NotContains(t, mysqlDialect.selectQuery, "$1")
	assert.Equal(t, 3, strings.Count(sqliteDialect.upsertQuery, "?"))
}

func TestMySQLDSN(t *testing.T) {
	dsn := MySQLDSN("db.local", 3306, "shop", "secret", "offline")
	assert.True(t, strings.HasPrefix(dsn, "shop:secret@tcp(db.local:3306)/offline"))
	assert.Contains(t, dsn, "parseTime=true")
}
