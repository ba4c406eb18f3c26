package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Leopold1975/helpdesk/internal/helpdesk/admin"
	"github.com/Leopold1975/helpdesk/internal/helpdesk/app"
	"github.com/Leopold1975/helpdesk/internal/pkg/config"
)

func main() {
	var configPath string

	flag.StringVar(&configPath, "config", "", "path to configuration file")
	flag.Parse()

	cfg, err := config.New(configPath)
	if err != nil {
		log.Fatal(err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatal(err)
	}

	if cfg.Storage.Backend == config.BackendMemory {
		a.Logger().Warnf("memory backend: changes are lost when the command exits")
	}

	cmd := admin.New(a.Auth, a.Articles, os.Stdout)

	runErr := cmd.Run(ctx, flag.Args())

	ctxS, cancelS := context.WithTimeout(context.Background(), time.Second*5) //nolint:gomnd
	defer cancelS()

	if err := a.Close(ctxS); err != nil { //nolint:contextcheck
		log.Println(err)
	}

	if runErr != nil {
		fmt.Fprint(os.Stderr, cmd.Usage())
		log.Fatal(runErr) //nolint:gocritic
	}
}
