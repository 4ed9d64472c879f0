package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"reactorcore/pkg/api"
	"reactorcore/pkg/config"
	"reactorcore/pkg/core"
	"reactorcore/pkg/network"
	"syscall"
)

func main() {
	configPath := flag.String("config", "", "Path to reactor.yaml (defaults to configs/reactor.yaml or reactor.yaml)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("[Config] Failed to load %q: %v", *configPath, err)
	}
	log.Printf("[Config] Data dir=%s, checkpoint every %d steps, init region radius %d",
		cfg.Storage.Path, cfg.Storage.CheckpointEvery, cfg.Reactor.InitRadius)

	reactor, err := core.NewReactor(cfg)
	if err != nil {
		log.Fatalf("[Reactor] Startup failed: %v", err)
	}

	go func() {
		if err := network.NewTCPServer(reactor).Start(cfg.Server.TCPAddr); err != nil {
			log.Printf("[TCP] Server stopped: %v", err)
		}
	}()

	go func() {
		if err := api.NewServer(reactor).Start(cfg.Server.Addr); err != nil {
			log.Printf("[API] Server stopped: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Println("[Reactor] Shutting down, writing final checkpoint...")
	reactor.Close()
}
