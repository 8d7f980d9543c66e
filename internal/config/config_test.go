// SPDX-License-Identifier: Apache-2.0

package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lsqs/lsqs/internal/queue"
	"github.com/lsqs/lsqs/internal/store"
	"github.com/lsqs/lsqs/internal/waitregistry"
)

const sampleYAML = `
server:
  port: 9111
queues:
  - name: orders-dlq
  - name: orders
    redrive_policy:
      dead_letter_target_queue: orders-dlq
      max_receive_count: 2
`

func writeTempConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lsqs.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadConfigAppliesDefaults(t *testing.T) {
	path := writeTempConfig(t, sampleYAML)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, 9111, cfg.Server.Port)
	require.Equal(t, "./lsqs.db", cfg.Server.DBPath)
	require.Equal(t, queue.DefaultVisibilityTimeoutS, cfg.Queues[1].VisibilityTimeout)
}

func TestBootstrapQueuesCreatesInOrder(t *testing.T) {
	path := writeTempConfig(t, sampleYAML)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "lsqs-test.db")
	db, err := store.Open(ctx, dbPath)
	require.NoError(t, err)
	defer db.Close()
	st := store.New(db, zap.NewNop().Sugar())
	svc := queue.New(st, waitregistry.New(), zap.NewNop().Sugar())

	require.NoError(t, BootstrapQueues(ctx, svc, cfg))

	info, err := svc.GetQueueAttributes(ctx, "orders")
	require.NoError(t, err)
	require.Contains(t, info.RedrivePolicyJSON, "orders-dlq")
}
