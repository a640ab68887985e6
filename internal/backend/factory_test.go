package backend

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moneymanager/internal/api"
	"moneymanager/internal/config"
	"moneymanager/internal/ledger/memory"
)

func TestFromAppConfig(t *testing.T) {
	_, err := FromAppConfig(nil)
	assert.Error(t, err)

	_, err = FromAppConfig(&config.Config{DataBackend: "sqlite"})
	assert.ErrorContains(t, err, "invalid backend type")

	cfg, err := FromAppConfig(&config.Config{
		DataBackend: "remote", APIBaseURL: "http://x", APITimeout: time.Second, Timezone: "UTC",
	})
	require.NoError(t, err)
	assert.Equal(t, RemoteBackend, cfg.Type)
	assert.Equal(t, time.UTC, cfg.Location)
}

func TestCreateBackend(t *testing.T) {
	f := NewFactory(nil)
	ctx := context.Background()

	res, err := f.CreateBackend(ctx, Config{Type: RemoteBackend, BaseURL: "http://localhost:5000/api", Timeout: time.Second})
	require.NoError(t, err)
	assert.IsType(t, &api.Client{}, res.Backend)

	_, err = f.CreateBackend(ctx, Config{Type: RemoteBackend, BaseURL: "ftp://nope"})
	assert.Error(t, err)

	res, err = f.CreateBackend(ctx, Config{Type: MemoryBackend, DataDirectory: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &memory.Store{}, res.Backend)

	_, err = f.CreateBackend(ctx, Config{Type: "sheets"})
	assert.ErrorContains(t, err, "unsupported backend type")
}
