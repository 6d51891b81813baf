package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/bobhq/bobsync/pkg/auth"
	"github.com/bobhq/bobsync/pkg/bob"
	"github.com/bobhq/bobsync/pkg/config"
	"github.com/bobhq/bobsync/pkg/reminders"
	"github.com/bobhq/bobsync/pkg/sync"
)

func main() {
	owner := flag.String("owner", "", "Account id to sync (overrides config)")
	list := flag.String("list", "", "Reminder list to sync with (overrides config)")
	setList := flag.String("set-list", "", "Set the default reminder list name and exit")
	doAuth := flag.Bool("auth", false, "Re-authenticate with Google Tasks")
	dryRun := flag.Bool("dry-run", false, "Log what would change without writing")
	verbose := flag.Bool("v", false, "Enable debug logging")
	flag.Parse()

	logger := log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true})
	if *verbose {
		logger.SetLevel(log.DebugLevel)
	}

	if *setList != "" {
		cfg, err := config.Load()
		if err != nil {
			logger.Fatal("loading config", "err", err)
		}
		cfg.List = *setList
		if err := config.Save(cfg); err != nil {
			logger.Fatal("saving config", "err", err)
		}
		fmt.Printf("Default reminder list set to: %s\n", *setList)
		return
	}

	ctx := context.Background()

	if *doAuth {
		dir, err := auth.ConfigDir()
		if err != nil {
			logger.Fatal("locating config directory", "err", err)
		}
		tokenFile := filepath.Join(dir, auth.TokenFile)
		if _, err := os.Stat(tokenFile); err == nil {
			logger.Info("removing existing token", "path", tokenFile)
			if err := os.Remove(tokenFile); err != nil {
				logger.Fatal("could not delete token file, please delete it manually", "path", tokenFile, "err", err)
			}
		}
		if _, err := auth.GetTasksService(ctx); err != nil {
			logger.Fatal("authentication failed", "err", err)
		}
		logger.Info("authentication successful", "token", tokenFile)
		return
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("loading config", "err", err)
	}
	if *owner != "" {
		cfg.Owner = *owner
	}
	if *list != "" {
		cfg.List = *list
	}
	if cfg.Owner == "" {
		logger.Fatal("no owner configured; pass -owner or set it in the config file")
	}

	store, err := bob.Connect(ctx, cfg.MongoURI, cfg.Database)
	if err != nil {
		logger.Fatal("connecting to document store", "err", err)
	}
	defer store.Close(ctx)

	srv, err := auth.GetTasksService(ctx)
	if err != nil {
		logger.Fatal("connecting to reminder store", "err", err)
	}

	engine := sync.New(store, reminders.NewGoogleTasks(srv, cfg.List), logger, sync.Options{
		Owner:      cfg.Owner,
		List:       cfg.List,
		ExtraLists: cfg.ExtraLists,
		DryRun:     *dryRun,
	})
	engine.Run(ctx)
}
