package main

import (
	"flag"
	"log"

	"AnchorFolio/internal/di"
	"AnchorFolio/pkg/config"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	flag.Parse()

	if err := run(*configPath); err != nil {
		log.Fatalf("anchorfolio: %v", err)
	}
}

func run(configPath string) error {
	cfg, err := config.LoadWithEnv(configPath)
	if err != nil {
		return err
	}
	log.Printf("env=%s anchor=%s symbols=%d", cfg.Environment, cfg.Portfolio.Anchor, len(cfg.Portfolio.Symbols))

	app, err := di.InitializeApp(cfg)
	if err != nil {
		return err
	}
	return app.Run()
}
