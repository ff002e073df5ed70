package app

import (
	"path/filepath"
	"testing"

	"backoffice/internal/config"
	"backoffice/internal/dispatch"
	"backoffice/internal/repository"
	"backoffice/internal/service"
	"backoffice/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		level   string
		enabled zapcore.Level
		wantErr bool
	}{
		{level: "debug", enabled: zapcore.DebugLevel},
		{level: "warn", enabled: zapcore.WarnLevel},
		{level: "loud", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			logger, err := NewLogger(tt.level)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, logger.Core().Enabled(tt.enabled))
			assert.False(t, logger.Core().Enabled(tt.enabled-1))
		})
	}
}

func TestOpenStore(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name   string
		driver string
	}{
		{"memory", config.DriverMemory},
		{"json", config.DriverJSON},
		{"sqlite", config.DriverSQLite},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{
				StorageDriver: tt.driver,
				DataFile:      filepath.Join(dir, "data", "bot.json"),
				SQLitePath:    filepath.Join(dir, "data", "bot.db"),
			}
			store, closeStore, err := OpenStore(cfg, testutil.NewTestLogger())
			require.NoError(t, err)
			defer closeStore()

			require.NoError(t, store.Put(repository.TableSettings, "k", []byte(`"v"`)))
			data, ok, err := store.Get(repository.TableSettings, "k")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.JSONEq(t, `"v"`, string(data))
		})
	}

	t.Run("unknown driver", func(t *testing.T) {
		_, _, err := OpenStore(&config.Config{StorageDriver: "redis"}, testutil.NewTestLogger())
		assert.Error(t, err)
	})
}

func TestScheduleCleanup_InvalidSchedule(t *testing.T) {
	logger := testutil.NewTestLogger()
	q := dispatch.NewQueue(1, logger)
	defer q.Close()
	cleanup := service.NewCleanupService(testutil.NewTestStore(), nil, 30, logger)

	_, err := ScheduleCleanup("every tuesday", cleanup, q, logger)
	assert.Error(t, err)
}
