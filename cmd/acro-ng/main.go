package main

import (
	"context"
	"flag"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"acro-ng/internal/clock"
	"acro-ng/internal/config"
	"acro-ng/internal/web"
)

func main() {
	var configPath string
	var replayPath string
	var replaySpeed float64
	var summaryPath string
	flag.StringVar(&configPath, "config", "./dev.yaml", "Path to YAML config")
	flag.StringVar(&replayPath, "replay", "", "Replay a recorded command log to the outputs instead of flying")
	flag.Float64Var(&replaySpeed, "replay-speed", 1, "Replay speed multiplier")
	flag.StringVar(&summaryPath, "summarize", "", "Print a summary of a recorded command log and exit")
	flag.Parse()

	if summaryPath != "" {
		if err := printLogSummary(os.Stdout, summaryPath); err != nil {
			log.Fatalf("summarize failed: %v", err)
		}
		return
	}

	logBuf := web.NewLogBuffer(2000)
	log.SetOutput(io.MultiWriter(os.Stderr, logBuf))

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	status := web.NewStatus()
	cmds := web.NewCommandBroadcaster()

	go func() {
		if err := web.Serve(ctx, cfg.Web.Listen, status, logBuf, cmds); err != nil && ctx.Err() == nil {
			log.Printf("web server stopped: %v", err)
		}
	}()
	log.Printf("acro-ng starting web=%s", cfg.Web.Listen)

	if replayPath != "" {
		if err := runReplay(ctx, cfg, replayPath, replaySpeed, status, cmds); err != nil && ctx.Err() == nil {
			log.Fatalf("replay failed: %v", err)
		}
		log.Printf("acro-ng replay done")
		return
	}

	rt, err := newRuntime(cfg, clock.Monotonic{}, status, cmds)
	if err != nil {
		log.Fatalf("runtime init failed: %v", err)
	}
	defer rt.Close()

	if err := rt.Run(ctx); err != nil && ctx.Err() == nil {
		log.Printf("runtime stopped: %v", err)
	}
	log.Printf("acro-ng stopping")
}
