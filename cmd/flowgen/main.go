package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/uhyunpark/flowgen/params"
	"github.com/uhyunpark/flowgen/pkg/client"
	"github.com/uhyunpark/flowgen/pkg/report"
	"github.com/uhyunpark/flowgen/pkg/sim"
	"github.com/uhyunpark/flowgen/pkg/util"
)

func main() {
	cfg, err := params.Load(os.Args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		return
	}
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := util.NewLoggerWithFile(cfg.Log.File)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	for _, w := range cfg.Warnings() {
		sugar.Warnw("config_warning", "detail", w)
	}

	// ---- Archive (optional) ----
	var archive *report.Archive
	if cfg.Report.ArchiveDir != "" {
		archive, err = report.OpenArchive(cfg.Report.ArchiveDir)
		if err != nil {
			sugar.Fatalw("archive_open_failed", "dir", cfg.Report.ArchiveDir, "err", err)
		}
		defer archive.Close()
	}

	switch {
	case cfg.ListRuns:
		listRuns(sugar, archive)
		return
	case cfg.Replay != "":
		replay(sugar, archive, cfg)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	api := client.NewAPI(client.New(cfg.Target.BaseURL, cfg.Target.Timeout, sugar), cfg.Endpoints)

	// ---- Sample sinks ----
	runID := report.NewRunID()
	var sinks []report.Sink
	if archive != nil {
		meta := report.RunMeta{
			ID:         runID,
			Symbol:     cfg.Run.Symbol,
			QuoteAsset: cfg.Run.QuoteAsset,
			Trend:      cfg.Price.Trend,
			Seed:       cfg.Run.Seed,
			Orders:     cfg.Run.Orders,
			StartedAt:  time.Now().UTC(),
		}
		if err := archive.BeginRun(meta); err != nil {
			sugar.Fatalw("archive_begin_failed", "run_id", runID, "err", err)
		}
		sinks = append(sinks, archive)
	}

	var hub *report.Hub
	if cfg.Report.WSAddr != "" {
		hub = report.NewHub(sugar)
		go hub.Run(ctx)
		sinks = append(sinks, hub)
	}
	rec := report.NewRecorder(api, runID, sugar, sinks...)

	if hub != nil {
		feed := report.NewFeedServer(hub, rec, archive, sugar)
		go func() {
			if err := feed.Start(cfg.Report.WSAddr); err != nil {
				sugar.Errorw("feed_server_failed", "addr", cfg.Report.WSAddr, "err", err)
			}
		}()
		defer feed.Shutdown(context.Background())
	}

	sugar.Infow("run_starting",
		"run_id", runID,
		"target", cfg.Target.BaseURL,
		"users", cfg.Run.Users,
		"orders", cfg.Run.Orders,
		"symbol", cfg.Run.Symbol,
		"base", cfg.Price.Base,
		"spread", cfg.Price.Spread,
		"trend", cfg.Price.Trend,
	)

	res, err := sim.NewLoadTest(api, cfg.LoadTest(), rec, sugar).Run(ctx)
	if err != nil {
		sugar.Fatalw("run_failed", "run_id", runID, "err", err)
	}

	report.Presenter{
		Out:        os.Stdout,
		ChartPath:  cfg.Report.ChartPath,
		Symbol:     cfg.Run.Symbol,
		QuoteAsset: cfg.Run.QuoteAsset,
		Logger:     sugar,
	}.Finish(rec.Samples())

	sugar.Infow("run_complete",
		"run_id", runID,
		"participants", res.Participants,
		"sellers", res.Sellers,
		"ladder_placed", res.Seed.Placed,
		"accepted", res.Flow.Accepted,
		"rejected", res.Flow.Rejected,
		"interrupted", res.Flow.Interrupted,
		"users", res.Users,
	)
}

func listRuns(sugar *zap.SugaredLogger, archive *report.Archive) {
	if archive == nil {
		sugar.Fatalw("list_runs_requires_archive", "hint", "set --archive or REPORT_ARCHIVE_DIR")
	}
	runs, err := archive.Runs()
	if err != nil {
		sugar.Fatalw("list_runs_failed", "err", err)
	}
	if len(runs) == 0 {
		fmt.Println("No archived runs.")
		return
	}
	fmt.Println(report.RunsTable(runs))
}

func replay(sugar *zap.SugaredLogger, archive *report.Archive, cfg params.Config) {
	if archive == nil {
		sugar.Fatalw("replay_requires_archive", "hint", "set --archive or REPORT_ARCHIVE_DIR")
	}
	meta, samples, err := archive.Load(cfg.Replay)
	if err != nil {
		sugar.Fatalw("replay_failed", "run_id", cfg.Replay, "err", err)
	}
	sugar.Infow("replaying_run", "run_id", meta.ID, "trend", meta.Trend, "samples", len(samples))

	report.Presenter{
		Out:        os.Stdout,
		ChartPath:  cfg.Report.ChartPath,
		Symbol:     meta.Symbol,
		QuoteAsset: meta.QuoteAsset,
		Logger:     sugar,
	}.Finish(samples)
}
