package main

import (
	"context"
	"datagram-sync/example/shared"
	"datagram-sync/netsync"
	"datagram-sync/transport"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// Ticks between Full snapshots sent by the owner of the crate
const snapshotInterval = 40

type flags struct {
	config      string
	role        string
	server      string
	group       string
	tick        time.Duration
	metricsAddr string
	logLevel    string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logrus.Fatal(err)
	}
}

func newRootCmd() *cobra.Command {
	var f flags
	cmd := &cobra.Command{
		Use:           "node",
		Short:         "Replicate a demo crate over UDP as server, client or peer",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, f)
			if err != nil {
				return err
			}
			return run(cfg)
		},
	}
	cmd.Flags().StringVarP(&f.config, "config", "c", "", "YAML config file")
	cmd.Flags().StringVarP(&f.role, "role", "r", "server", "server, client or peer")
	cmd.Flags().StringVar(&f.server, "server", shared.DefaultServerAddr, "server address")
	cmd.Flags().StringVar(&f.group, "group", "", "multicast group")
	cmd.Flags().DurationVar(&f.tick, "tick", 50*time.Millisecond, "tick interval")
	cmd.Flags().StringVar(&f.metricsAddr, "metrics-addr", shared.DefaultMetricsAddr, "address serving /metrics, empty to disable")
	cmd.Flags().StringVar(&f.logLevel, "log-level", "info", "log level")
	return cmd
}

// Flags given explicitly win over the config file.
func loadConfig(cmd *cobra.Command, f flags) (shared.Config, error) {
	cfg, err := shared.LoadConfig(f.config)
	if err != nil {
		return cfg, err
	}
	changed := cmd.Flags().Changed
	if changed("role") {
		cfg.Node.Role = f.role
	}
	if changed("server") {
		cfg.Node.Server = f.server
	}
	if changed("group") {
		cfg.Transport.Group = f.group
	}
	if changed("tick") {
		cfg.Node.Tick = f.tick
	}
	if changed("metrics-addr") {
		cfg.Node.MetricsAddr = f.metricsAddr
	}
	if changed("log-level") {
		cfg.Node.LogLevel = f.logLevel
	}
	return cfg, nil
}

func run(cfg shared.Config) error {
	log, err := shared.NewLogger(cfg.Node.LogLevel)
	if err != nil {
		return err
	}
	role, ok := netsync.ParseRole(cfg.Node.Role)
	if !ok {
		return fmt.Errorf("unknown role %q", cfg.Node.Role)
	}

	cfg.Transport.Logger = log
	conn, err := dial(role, cfg)
	if err != nil {
		return err
	}
	defer conn.Close()
	log.Infof("Running as %s on %s, sending to %s", role, conn.LocalAddr(), conn.RemoteAddr())

	reg := prometheus.NewRegistry()
	registry := netsync.NewMapRegistry()
	crate := shared.NewCrate("crate", 100)
	registry.Register(shared.CrateID, crate)

	syncCfg := cfg.Sync
	syncCfg.Registry = registry
	syncCfg.Metrics = netsync.NewMetrics(netsync.MetricsConfig{Registry: reg})
	syncCfg.Logger = log
	m := netsync.NewManager(role, syncCfg)
	defer m.Close()
	m.Attach(conn)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	wg := &sync.WaitGroup{}
	var srv *http.Server
	if cfg.Node.MetricsAddr != "" {
		srv = &http.Server{
			Addr:    cfg.Node.MetricsAddr,
			Handler: newRouter(reg, m, crate, log),
		}
		wg.Add(1)
		go serveRoutine(wg, srv, log)
	}
	wg.Add(1)
	go tickRoutine(ctx, wg, cfg.Node.Tick, m, crate, log)

	// Handle signals
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	log.Infof("Received signal %+v", <-ch)

	// Cleanup
	cancel()
	if srv != nil {
		srv.Close()
	}
	wg.Wait()
	return nil
}

func dial(role netsync.Role, cfg shared.Config) (*transport.Conn, error) {
	switch role {
	case netsync.RoleServer:
		return transport.Server(cfg.Node.Server, cfg.Transport)
	case netsync.RoleClient:
		return transport.Client(cfg.Node.Server, cfg.Transport)
	default:
		return transport.Peer(cfg.Transport)
	}
}

func newRouter(reg *prometheus.Registry, m *netsync.Manager, crate *shared.Crate, log logrus.FieldLogger) http.Handler {
	r := chi.NewRouter()
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	r.Get("/debug/rtt", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]interface{}{
			"smoothed_ms": m.RTT().Milliseconds(),
			"min_ms":      m.RTT().Min().Milliseconds(),
			"outstanding": m.RTT().Outstanding(),
			"remote":      m.Window().Snapshot(),
		}, log)
	})
	r.Get("/debug/crate", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]interface{}{
			"state":        crate.State(),
			"last_message": crate.LastMessage(),
		}, log)
	})
	return r
}

func writeJSON(w http.ResponseWriter, v interface{}, log logrus.FieldLogger) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Errorf("Encode error: %+v", err)
	}
}

func serveRoutine(wg *sync.WaitGroup, srv *http.Server, log logrus.FieldLogger) {
	defer wg.Done()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Errorf("Serve error: %+v", err)
	}
}

func tickRoutine(ctx context.Context, wg *sync.WaitGroup, interval time.Duration, m *netsync.Manager, crate *shared.Crate, log logrus.FieldLogger) {
	defer wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for n := 0; ; n++ {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if err := broadcast(m, crate, n); err != nil {
			log.Warnf("Broadcast error: %+v", err)
		}
		if err := m.Tick(ctx); err != nil {
			log.Warnf("Tick error: %+v", err)
		}
	}
}

// The server and peers own the crate, clients only chat.
func broadcast(m *netsync.Manager, crate *shared.Crate, n int) error {
	if m.Role() == netsync.RoleClient {
		if n%snapshotInterval != 0 {
			return nil
		}
		return m.BroadcastData(shared.CrateID, "chat", fmt.Sprintf("hello from tick %d", n), false)
	}
	if n%snapshotInterval == 0 {
		return m.BroadcastFull(shared.CrateID, crate, true)
	}
	return m.BroadcastTransform(shared.CrateID, crate.Move(0.1, 0.05), false)
}
