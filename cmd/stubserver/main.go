package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/uhyunpark/flowgen/pkg/stub"
	"github.com/uhyunpark/flowgen/pkg/util"
)

func main() {
	_ = godotenv.Load()

	defaultAddr := os.Getenv("STUB_ADDR")
	if defaultAddr == "" {
		defaultAddr = ":8080"
	}
	addr := pflag.String("addr", defaultAddr, "listen address")
	logFile := pflag.String("log-file", os.Getenv("LOG_FILE"), "also log JSON to this file")
	pflag.Parse()

	logger, err := util.NewLoggerWithFile(*logFile)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	srv := stub.NewServer(stub.NewBook(), sugar)
	if err := srv.Start(*addr); err != nil {
		sugar.Fatalw("stub_server_failed", "addr", *addr, "err", err)
	}
}
