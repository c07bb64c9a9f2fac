// Command pipeline is the composition root (spec §6 CLI): it takes no
// flags, resolves its config files relative to the working directory,
// walks the configured date range for already-decoded asset-day binary
// files, replays each asset-day through internal/runtime's
// AssetDayPipeline on a bounded worker pool, and serves the resulting
// feature store over internal/gateway until every asset-day completes.
//
// Exit codes: 0 success; 1 configuration error or fatal worker error,
// per spec §6.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/typhfeng/stk-sub000/internal/codec"
	"github.com/typhfeng/stk-sub000/internal/config"
	"github.com/typhfeng/stk-sub000/internal/featurestore"
	"github.com/typhfeng/stk-sub000/internal/features"
	"github.com/typhfeng/stk-sub000/internal/gateway"
	"github.com/typhfeng/stk-sub000/internal/logging"
	"github.com/typhfeng/stk-sub000/internal/runtime"
	perr "github.com/typhfeng/stk-sub000/pkg/errors"
)

const (
	configPath    = "config.json"
	stockInfoPath = "stockinfo.json"
	gatewayAddr   = "127.0.0.1:8080"
	workerCount   = 4
	queueCapacity = 64
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config error:", err)
		return 1
	}
	stockInfo, err := config.LoadStockInfo(stockInfoPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config error:", err)
		return 1
	}

	channels, err := logging.Open(cfg.Dir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config error:", err)
		return 1
	}
	defer channels.Close()

	logger := channels.For(logging.Analysis)
	logger.Info("pipeline starting", zap.String("dir", cfg.Dir), zap.Int("assets", stockInfo.Len()))

	store := featurestore.New([3]int{features.Len(), len(features.BarMeta()), len(features.BarMeta())})
	registry := prometheus.NewRegistry()
	metrics := runtime.NewMetrics(registry)

	srv := gateway.NewServer(gatewayAddr, store, channels.For(logging.Encoding), false)
	srv.Start()
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Stop(ctx); err != nil {
			logger.Warn("gateway shutdown error", zap.Error(err))
		}
	}()

	tasks, err := discoverAssetDays(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config error:", err)
		return 1
	}
	logger.Info("discovered asset-days", zap.Int("count", len(tasks)))

	queue := runtime.NewQueue(queueCapacity)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		defer queue.Close()
		for _, t := range tasks {
			if err := queue.Push(ctx, t); err != nil {
				return
			}
		}
	}()

	pool, err := runtime.NewWorkerPool(workerCount, logger, metrics)
	if err != nil {
		fmt.Fprintln(os.Stderr, "fatal error:", err)
		return 1
	}
	defer pool.Release()

	shutdown := &runtime.ShutdownFlag{}
	sup := &runtime.Supervisor{
		Queue:    queue,
		Pool:     pool,
		Shutdown: shutdown,
		Metrics:  metrics,
		Logger:   logger,
		Workers:  workerCount,
	}

	processor := newAssetDayProcessor(store, metrics, logger)
	if err := sup.Run(ctx, processor.process); err != nil {
		logger.Error("fatal worker error", zap.Error(err))
		fmt.Fprintln(os.Stderr, "fatal error:", err)
		return 1
	}

	logger.Info("pipeline finished")
	return 0
}

// discoverAssetDays walks the output layout spec §6 describes —
// <dir>/YYYY/MM/DD/<ASSET_CODE>/ — for every month in the config's
// [start_month, end_month] range, emitting one AssetDayTask per
// asset-code directory found. Archives are assumed already expanded on
// disk; this module has no 7z/rar extraction dependency in scope (see
// DESIGN.md).
func discoverAssetDays(cfg *config.Config) ([]runtime.AssetDayTask, error) {
	start, end := cfg.Months()
	var tasks []runtime.AssetDayTask

	for month := start; !month.After(end); month = month.AddDate(0, 1, 0) {
		monthDir := filepath.Join(cfg.Dir, fmt.Sprintf("%04d", month.Year()), fmt.Sprintf("%02d", month.Month()))
		dayEntries, err := os.ReadDir(monthDir)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, perr.Wrap(perr.ArchiveMissing, err, "read month dir "+monthDir)
		}
		for _, dayEntry := range dayEntries {
			if !dayEntry.IsDir() {
				continue
			}
			dayDir := filepath.Join(monthDir, dayEntry.Name())
			date, err := parseDateDir(month, dayEntry.Name())
			if err != nil {
				continue
			}
			assetEntries, err := os.ReadDir(dayDir)
			if err != nil {
				continue
			}
			for _, assetEntry := range assetEntries {
				if !assetEntry.IsDir() {
					continue
				}
				tasks = append(tasks, runtime.NewAssetDayTask(assetEntry.Name(), date, filepath.Join(dayDir, assetEntry.Name())))
			}
		}
	}

	sort.Slice(tasks, func(i, j int) bool {
		if tasks[i].Date != tasks[j].Date {
			return tasks[i].Date < tasks[j].Date
		}
		return tasks[i].AssetCode < tasks[j].AssetCode
	})
	return tasks, nil
}

func parseDateDir(month time.Time, day string) (int32, error) {
	t, err := time.Parse("20060102", month.Format("200601")+day)
	if err != nil {
		return 0, err
	}
	return int32(t.Year()*10000 + int(t.Month())*100 + t.Day()), nil
}

// assetDayProcessor closes over the shared feature store and metrics
// so every worker goroutine replays into the same store, per spec §5's
// "one shared feature store, many asset-day workers" resource model.
type assetDayProcessor struct {
	store   *featurestore.Store
	metrics *runtime.Metrics
	logger  *zap.Logger
}

func newAssetDayProcessor(store *featurestore.Store, metrics *runtime.Metrics, logger *zap.Logger) *assetDayProcessor {
	return &assetDayProcessor{store: store, metrics: metrics, logger: logger}
}

// process decodes an asset-day's order and snapshot binary files,
// replays them in strict time order through one AssetDayPipeline, and
// closes the day. A missing snapshot file is AssetMissingSnapshot
// (spec §7); like any error returned here, it is fatal to the whole run:
// the supervisor stops every worker and run exits with code 1.
func (p *assetDayProcessor) process(ctx context.Context, task runtime.AssetDayTask) error {
	entries, err := os.ReadDir(task.FolderDir)
	if err != nil {
		return perr.Wrap(perr.ArchiveMissing, err, "read asset-day dir "+task.FolderDir)
	}

	var orderFiles, snapshotFiles []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		kind, _, err := codec.ParseFilename(e.Name())
		if err != nil {
			continue
		}
		full := filepath.Join(task.FolderDir, e.Name())
		if kind == codec.OrderEvents {
			orderFiles = append(orderFiles, full)
		} else {
			snapshotFiles = append(snapshotFiles, full)
		}
	}
	if len(snapshotFiles) == 0 {
		return perr.New(perr.AssetMissingSnapshot, "no snapshot files for "+task.FolderDir).
			WithDetail("asset", task.AssetCode).WithDetail("date", task.Date)
	}

	events, err := decodeEvents(orderFiles, snapshotFiles, nil)
	if err != nil {
		return err
	}

	day := runtime.NewAssetDayPipeline(task.AssetCode, task.Date, p.store, p.metrics)
	for _, ev := range events {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := ev.apply(day); err != nil {
			return err
		}
	}
	day.CloseDay()

	p.logger.Info("asset-day complete",
		zap.String("asset", task.AssetCode),
		zap.Int32("date", task.Date),
		zap.String("task_id", task.ID.String()),
	)
	return nil
}
