package settings

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/danmuck/oscctl/internal/testutil/testlog"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runProviderContract checks the behavior every Provider shares.
func runProviderContract(t *testing.T, p Provider) {
	t.Helper()
	ctx := context.Background()

	got, err := p.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, Default(), got, "an empty store yields defaults")

	require.NoError(t, p.Save(ctx, Settings{Host: " 10.0.0.5 ", Port: "7000 "}))
	got, err = p.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, Settings{Host: "10.0.0.5", Port: "7000"}, got)

	require.NoError(t, p.Save(ctx, Settings{Host: "arena.local", Port: "not-a-port"}))
	got, err = p.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "not-a-port", got.Port, "raw input is stored as entered")
}

func TestParsePort(t *testing.T) {
	testlog.Start(t)
	cases := map[string]uint16{"7000": 7000, " 1 ": 1, "65535": 65535}
	for raw, want := range cases {
		got, err := ParsePort(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got)
	}
	for _, raw := range []string{"", "0", "65536", "-1", "70a0"} {
		_, err := ParsePort(raw)
		assert.True(t, errors.Is(err, ErrInvalidPort), "raw=%q err=%v", raw, err)
	}
}

func TestSettingsTarget(t *testing.T) {
	testlog.Start(t)
	host, port, err := Settings{Host: " 10.0.0.5", Port: "7000"}.Target()
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.5", host)
	assert.Equal(t, uint16(7000), port)

	_, _, err = Settings{Host: "  ", Port: "7000"}.Target()
	assert.ErrorIs(t, err, ErrBlankHost)
	_, _, err = Settings{Host: "h", Port: "x"}.Target()
	assert.ErrorIs(t, err, ErrInvalidPort)
}

func TestMemoryStoreContract(t *testing.T) {
	testlog.Start(t)
	runProviderContract(t, NewMemoryStore())
}

func TestFileStoreContract(t *testing.T) {
	testlog.Start(t)
	path := filepath.Join(t.TempDir(), "nested", "settings.toml")
	store := NewFileStore(path)
	runProviderContract(t, store)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "arena.local")
}

func TestFileStoreRejectsMalformedFile(t *testing.T) {
	testlog.Start(t)
	path := filepath.Join(t.TempDir(), "settings.toml")
	require.NoError(t, os.WriteFile(path, []byte("host = [unterminated"), 0o644))
	_, err := NewFileStore(path).Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "settings parse failed")
}

func TestFileStorePartialFileKeepsDefaults(t *testing.T) {
	testlog.Start(t)
	path := filepath.Join(t.TempDir(), "settings.toml")
	require.NoError(t, os.WriteFile(path, []byte("host = \"10.1.1.1\"\n"), 0o644))
	got, err := NewFileStore(path).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Settings{Host: "10.1.1.1", Port: DefaultPort}, got)
}

func TestRedisStoreContract(t *testing.T) {
	testlog.Start(t)
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	store := NewRedisStoreFromClient(client, WithRedisKey("test:settings"))
	defer store.Close()

	require.NoError(t, store.Ping(context.Background()))
	runProviderContract(t, store)
	assert.Equal(t, "arena.local", mr.HGet("test:settings", "host"))
}

func TestRedisStoreUnavailable(t *testing.T) {
	testlog.Start(t)
	mr, err := miniredis.Run()
	require.NoError(t, err)
	store := NewRedisStore(mr.Addr())
	defer store.Close()
	mr.Close()

	_, err = store.Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "settings redis load failed")
}
