package shared

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		require := require.New(t)
		cfg, err := LoadConfig("")
		require.Nil(err)
		require.Equal(DefaultConfig(), cfg)
	})

	t.Run("overlay", func(t *testing.T) {
		require := require.New(t)
		path := filepath.Join(t.TempDir(), "node.yaml")
		doc := []byte(`
node:
  role: peer
  tick: 20ms
transport:
  group: 239.1.2.3:5000
  loopback: true
sync:
  max_round_trip: 500ms
  rtt_smoothing: 0.25
  workers: 2
`)
		require.Nil(os.WriteFile(path, doc, 0600))
		cfg, err := LoadConfig(path)
		require.Nil(err)
		require.Equal("peer", cfg.Node.Role)
		require.Equal(20*time.Millisecond, cfg.Node.Tick)
		require.Equal(DefaultServerAddr, cfg.Node.Server)
		require.Equal("239.1.2.3:5000", cfg.Transport.Group)
		require.True(cfg.Transport.Loopback)
		require.Equal(500*time.Millisecond, cfg.Sync.MaxRoundTrip)
		require.Equal(0.25, cfg.Sync.RTTSmoothing)
		require.Equal(2, cfg.Sync.Workers)
		require.Equal(DefaultConfig().Sync.WorkBacklog, cfg.Sync.WorkBacklog)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
		require.True(t, os.IsNotExist(err))
	})
}
