package pipeline

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/gorozooo/my-stock-portfolio-sub001/internal/behavior"
	"github.com/gorozooo/my-stock-portfolio-sub001/internal/contracts"
	"github.com/gorozooo/my-stock-portfolio-sub001/internal/dataset"
	"github.com/gorozooo/my-stock-portfolio-sub001/internal/features"
	"github.com/gorozooo/my-stock-portfolio-sub001/internal/mlenc"
	"github.com/gorozooo/my-stock-portfolio-sub001/pkg/config"
)

// Builder runs the dataset-build stages end to end:
// normalize → extract (+encode) → store. One logical unit of work per
// invocation, single writer against the output artifacts.
type Builder struct {
	cfg *config.Config
	log zerolog.Logger
}

// NewBuilder creates a builder.
func NewBuilder(cfg *config.Config, log zerolog.Logger) *Builder {
	return &Builder{
		cfg: cfg,
		log: log.With().Str("component", "pipeline.builder").Logger(),
	}
}

// Options are the per-run overrides from the command line. Zero values
// defer to config.
type Options struct {
	Days           int
	MinQty         float64
	IncludeLive    bool
	UserID         string
	OutDir         string
	ForceRowFormat bool
	DryRun         bool
	RunDate        time.Time
}

// Run executes one dataset build and returns the machine-readable
// summary. Only setup errors (missing source directory, unwritable
// output) return a non-nil error; data-quality issues end up in counters.
func (b *Builder) Run(ctx context.Context, opt Options) (*contracts.BuildSummary, error) {
	runDate := opt.RunDate
	if runDate.IsZero() {
		runDate = time.Now()
	}
	days := opt.Days
	if days == 0 {
		days = b.cfg.Data.LookbackDays
	}
	minQty := opt.MinQty
	if minQty == 0 {
		minQty = b.cfg.Data.MinQty
	}
	dataDir := opt.OutDir
	if dataDir == "" {
		dataDir = b.cfg.Data.Dir
	}

	summary := &contracts.BuildSummary{
		RunID:   runDate.Format("20060102_150405"),
		RunDate: runDate.Format("2006-01-02"),
		DryRun:  opt.DryRun,
	}

	// stage 1: normalize + dedup
	normalizer := behavior.NewNormalizer(b.cfg.Data.Variant, b.log)
	records, counters, err := normalizer.Normalize(ctx, b.cfg.Data.EventsDir, behavior.Filter{
		RunDate: runDate,
		Days:    days,
		UserID:  opt.UserID,
	})
	if err != nil {
		return nil, fmt.Errorf("normalize: %w", err)
	}
	summary.Normalize = counters

	if !opt.DryRun {
		writer := behavior.NewWriter(dataDir, b.log)
		datedPath, latestPath, err := writer.Write(records, runDate)
		if err != nil {
			return nil, fmt.Errorf("write behavior stream: %w", err)
		}
		summary.BehaviorPath = datedPath
		summary.BehaviorLatestPath = latestPath
	}

	// stage 2: extract rows, encoding categoricals through the registry.
	// Dry runs must not mutate the persisted maps, so they use a
	// throwaway in-memory allocator.
	var registry features.IDRegistry
	if opt.DryRun {
		registry = newMemoryRegistry()
	} else {
		reg, err := mlenc.Open(dataDir, b.log)
		if err != nil {
			return nil, fmt.Errorf("open encoding registry: %w", err)
		}
		if err := reg.Lock(); err != nil {
			return nil, fmt.Errorf("registry single-writer lock: %w", err)
		}
		defer reg.Unlock()
		registry = reg
	}

	extractor := features.NewExtractor(registry, b.log)
	rows, extCounters, err := extractor.Extract(records, features.Options{
		RunID:       summary.RunID,
		MinQty:      minQty,
		IncludeLive: opt.IncludeLive || b.cfg.Data.IncludeLive,
	})
	if err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}
	summary.RowsExtracted = extCounters.Extracted
	summary.SkippedNoLabel = extCounters.SkippedNoLabel
	summary.SkippedNoPL = extCounters.SkippedNoPL
	summary.SkippedMode = extCounters.SkippedMode
	summary.SkippedMinQty = extCounters.SkippedMinQty

	// stage 3: partition + latest snapshot
	if !opt.DryRun {
		writer := dataset.SelectWriter(opt.ForceRowFormat)
		store := dataset.NewStore(dataDir, writer, b.log)
		partitions, latest, err := store.Write(rows, runDate)
		if err != nil {
			return nil, fmt.Errorf("write dataset: %w", err)
		}
		summary.PartitionPaths = partitions
		summary.DatasetPath = latest
		summary.Format = writer.Ext()
	}

	b.log.Info().
		Str("run_id", summary.RunID).
		Int("kept", summary.Normalize.Kept).
		Int("rows", summary.RowsExtracted).
		Bool("dry_run", opt.DryRun).
		Msg("dataset build completed")

	return summary, nil
}

// memoryRegistry mirrors the persisted registry's allocation rule
// without touching disk. Ids are only stable within one process; dry
// runs use it for counting, nothing else.
type memoryRegistry struct {
	mu   sync.Mutex
	maps map[string]map[string]int
}

func newMemoryRegistry() *memoryRegistry {
	return &memoryRegistry{maps: make(map[string]map[string]int)}
}

func (m *memoryRegistry) GetID(field, raw string) (int, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		value = mlenc.Unknown
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	fm, ok := m.maps[field]
	if !ok {
		fm = make(map[string]int)
		m.maps[field] = fm
	}
	if id, ok := fm[value]; ok {
		return id, nil
	}
	id := len(fm) + 1
	fm[value] = id
	return id, nil
}
