package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T, secret string) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "users.db"), secret)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStoreRoundTrip(t *testing.T) {
	s := openTestStore(t, "a-sufficiently-long-secret")
	ctx := context.Background()

	creds := Credentials{ChatID: 42, Username: "21L31A0501", Password: "hunter2", Keyword: "att"}
	require.NoError(t, s.Save(ctx, creds))

	got, err := s.ByChat(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, creds, got)
}

func TestStoreUpsert(t *testing.T) {
	s := openTestStore(t, "a-sufficiently-long-secret")
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, Credentials{ChatID: 7, Username: "old", Password: "old-pw", Keyword: "k1"}))
	require.NoError(t, s.Save(ctx, Credentials{ChatID: 7, Username: "new", Password: "new-pw", Keyword: "k2"}))

	got, err := s.ByChat(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, "new", got.Username)
	assert.Equal(t, "new-pw", got.Password)
	assert.Equal(t, "k2", got.Keyword)
}

func TestStoreNotFound(t *testing.T) {
	s := openTestStore(t, "a-sufficiently-long-secret")

	_, err := s.ByChat(context.Background(), 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStoreByKeyword(t *testing.T) {
	s := openTestStore(t, "a-sufficiently-long-secret")
	ctx := context.Background()
	require.NoError(t, s.Save(ctx, Credentials{ChatID: 9, Username: "u9", Password: "p9", Keyword: "att"}))

	t.Run("matches case-insensitively", func(t *testing.T) {
		got, err := s.ByKeyword(ctx, 9, "ATT")
		require.NoError(t, err)
		assert.Equal(t, "u9", got.Username)
	})

	t.Run("wrong keyword is not found", func(t *testing.T) {
		_, err := s.ByKeyword(ctx, 9, "other")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("unknown chat is not found", func(t *testing.T) {
		_, err := s.ByKeyword(ctx, 404, "att")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestStoreDelete(t *testing.T) {
	s := openTestStore(t, "a-sufficiently-long-secret")
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, Credentials{ChatID: 1, Username: "u", Password: "p"}))
	require.NoError(t, s.Delete(ctx, 1))
	_, err := s.ByChat(ctx, 1)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.NoError(t, s.Delete(ctx, 1), "deleting twice is fine")
}

func TestStorePasswordSealedAtRest(t *testing.T) {
	s := openTestStore(t, "a-sufficiently-long-secret")
	ctx := context.Background()
	require.NoError(t, s.Save(ctx, Credentials{ChatID: 3, Username: "u", Password: "plain-text-pw"}))

	var raw []byte
	row := s.db.QueryRowContext(ctx, `SELECT password FROM users WHERE chat_id = 3`)
	require.NoError(t, row.Scan(&raw))
	assert.NotContains(t, string(raw), "plain-text-pw")
}

func TestStoreWrongSecret(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "users.db")
	ctx := context.Background()

	s1, err := Open(path, "the-original-seal-secret")
	require.NoError(t, err)
	require.NoError(t, s1.Save(ctx, Credentials{ChatID: 5, Username: "u", Password: "pw"}))
	require.NoError(t, s1.Close())

	s2, err := Open(path, "a-different-seal-secret!")
	require.NoError(t, err)
	defer s2.Close()

	_, err = s2.ByChat(ctx, 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unseal")
}

func TestStorePing(t *testing.T) {
	s := openTestStore(t, "a-sufficiently-long-secret")
	assert.NoError(t, s.Ping(context.Background()))
}
