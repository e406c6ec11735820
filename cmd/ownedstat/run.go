package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/pavanmanishd/owned"
	"github.com/pavanmanishd/owned/promstats"
)

func newRunCmd() *cobra.Command {
	cfg := defaultConfig()
	var configPath string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Build, move and close arrays, then print allocator counters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			final, err := loadConfig(configPath, cfg, cmd.Flags())
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, final, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
	cfg.bindFlags(cmd.Flags())
	cmd.Flags().StringVar(&configPath, "config", "", "YAML config file")
	return cmd
}

// report is what run prints.
type report struct {
	Allocator string              `json:"allocator"`
	Arrays    int                 `json:"arrays"`
	Elements  int                 `json:"elements"`
	Checksum  uint64              `json:"checksum"`
	Stats     owned.AllocStats    `json:"stats"`
	Arena     *owned.ArenaMetrics `json:"arena,omitempty"`
}

func run(ctx context.Context, cfg runConfig, stdout, stderr io.Writer) error {
	level, err := parseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	backing, arena, cleanup := newAllocator(cfg.Allocator)
	defer cleanup()
	tracked := owned.Track(cfg.Allocator, backing)

	collector := promstats.NewCollector("ownedstat", tracked)
	if arena != nil {
		collector.AddArena(promstats.ArenaSource{Name: cfg.Allocator, Metrics: arena.Metrics})
	}

	rep := report{Allocator: cfg.Allocator, Arrays: cfg.Arrays, Elements: cfg.Elements}
	for i := range cfg.Arrays {
		sum, err := exercise(cfg, uint64(i), owned.WithAllocator(tracked), owned.WithLogger(logger))
		if err != nil {
			return fmt.Errorf("array %d: %w", i, err)
		}
		rep.Checksum += sum
	}
	rep.Stats = tracked.Stats()
	if arena != nil {
		m := arena.Metrics()
		rep.Arena = &m
	}
	logger.Info("run complete", "allocator", cfg.Allocator, "arrays", cfg.Arrays, "live_blocks", rep.Stats.LiveBlocks)

	if err := printReport(stdout, cfg.Format, rep); err != nil {
		return err
	}
	if cfg.Listen == "" {
		return nil
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(collector)
	return serveMetrics(ctx, cfg.Listen, reg, logger)
}

// exercise builds one array, fills it, moves it through two owners and
// closes it. It returns the sum of the elements seen by the last owner.
func exercise(cfg runConfig, seed uint64, opts ...owned.Option) (uint64, error) {
	build := owned.New[uint64]
	if cfg.Zeroed {
		build = owned.Zeroed[uint64]
	}
	first, err := build(cfg.Elements, opts...)
	if err != nil {
		return 0, err
	}
	defer first.Close()
	for i := range first.Data() {
		first.Data()[i] = seed + uint64(i)
	}

	second := first.Move()
	defer second.Close()
	var last owned.Array[uint64]
	last.MoveFrom(second)

	var sum uint64
	for v := range last.Values() {
		sum += v
	}
	return sum, last.Close()
}

// newAllocator maps a name to an allocator. arena is non-nil for the arena
// allocator so its metrics can be reported.
func newAllocator(name string) (alloc owned.Allocator, arena *owned.SafeArena, cleanup func()) {
	switch name {
	case "arena":
		a := owned.NewSafeArena(0)
		return a, a, a.Release
	case "pool":
		p := owned.NewPool(owned.Heap, 0)
		return p, nil, func() { _ = p.Drain() }
	case "mmap":
		return owned.NewMmap(false), nil, func() {}
	case "locked":
		l := owned.NewLocked()
		return l, nil, l.Purge
	default:
		return owned.Heap, nil, func() {}
	}
}

func printReport(w io.Writer, format string, rep report) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	}
	s := rep.Stats
	fmt.Fprintf(w, "allocator:    %s\n", rep.Allocator)
	fmt.Fprintf(w, "arrays:       %d x %d elements\n", rep.Arrays, rep.Elements)
	fmt.Fprintf(w, "checksum:     %d\n", rep.Checksum)
	fmt.Fprintf(w, "allocations:  %d\n", s.Allocations)
	fmt.Fprintf(w, "frees:        %d\n", s.Frees)
	fmt.Fprintf(w, "failures:     %d\n", s.Failures)
	fmt.Fprintf(w, "live blocks:  %d\n", s.LiveBlocks)
	fmt.Fprintf(w, "total bytes:  %d\n", s.TotalBytes)
	if rep.Arena != nil {
		fmt.Fprintf(w, "arena chunks: %d (%.1f%% used)\n", rep.Arena.NumChunks, rep.Arena.Utilization*100)
	}
	return nil
}

func serveMetrics(ctx context.Context, addr string, reg *prometheus.Registry, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	logger.Info("serving metrics", "addr", addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
