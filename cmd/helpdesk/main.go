package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Leopold1975/helpdesk/internal/helpdesk/app"
	"github.com/Leopold1975/helpdesk/internal/pkg/config"
)

const defaultConfigPath = "configs/config.yaml"

func main() {
	configPath := os.Getenv("HELPDESK_CONFIG")
	if configPath == "" {
		configPath = defaultConfigPath
	}

	flag.StringVar(&configPath, "config", configPath, "path to configuration file, also HELPDESK_CONFIG")
	flag.Parse()

	cfg, err := config.New(configPath)
	if err != nil {
		log.Fatalf("config %s: %v", configPath, err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer cancel()

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Println(err)

		return
	}

	a.Run(ctx)
}
