package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/uhyunpark/flowgen/params"
	"github.com/uhyunpark/flowgen/pkg/client"
	"github.com/uhyunpark/flowgen/pkg/sim"
	"github.com/uhyunpark/flowgen/pkg/util"
)

func main() {
	cfg, err := params.LoadDemo(os.Args[1:])
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	api := client.NewAPI(client.New(cfg.Target.BaseURL, cfg.Target.Timeout, sugar), cfg.Endpoints)
	sugar.Infow("demo_starting", "target", cfg.Target.BaseURL, "symbol", cfg.Run.Symbol, "policy", cfg.Funding.Policy)

	if err := sim.NewDemo(api, cfg.Demo(), os.Stdout, sugar).Run(ctx); err != nil {
		sugar.Fatalw("demo_failed", "err", err)
	}
}
