package main

import (
	"flag"
	"log"
	"os"

	"ShrimpCast/internal/di"
	"ShrimpCast/pkg/config"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "config file path")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	log.Printf("shrimpcast %s env=%s port=%d", config.Version, cfg.Environment, cfg.Server.Port)
	log.Printf("models: survival=%s abw=%s cache=%t history=%t kafka=%t",
		cfg.Models.Survival.Kind, cfg.Models.ABW.Kind,
		cfg.Cache.Enabled, cfg.History.Enabled, cfg.Kafka.Enabled)

	app, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}

	// Run application (blocks until signal)
	if err := app.Run(); err != nil {
		log.Printf("app error: %v", err)
		os.Exit(1)
	}
}
