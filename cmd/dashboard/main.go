package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/AloofBuddha/quantamental-dashboard/cmd/dashboard/internal/view"
	"github.com/AloofBuddha/quantamental-dashboard/pkg/config"
	"github.com/AloofBuddha/quantamental-dashboard/pkg/feed"
	"github.com/AloofBuddha/quantamental-dashboard/pkg/viewprefs"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	logger, err := config.NewLogger(cfg.Logger)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	prefsPath := cfg.Client.PrefsDir
	if !filepath.IsAbs(prefsPath) {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		prefsPath = filepath.Join(home, prefsPath)
	}
	prefsStore, err := viewprefs.Open(prefsPath)
	if err != nil {
		logger.Fatal("Failed to open prefs store", zap.String("path", prefsPath), zap.Error(err))
	}

	prefs, found, err := prefsStore.Get(cfg.Client.View)
	if err != nil {
		logger.Warn("Failed to load view prefs", zap.Error(err))
	}
	if !found {
		logger.Info("No Saved Prefs, Using Defaults", zap.String("view", cfg.Client.View))
	}

	store := feed.NewStore(feed.RealClock{})
	sched := feed.NewScheduler(store)
	mgr := feed.NewManager(logger, feed.GorillaDialer{}, feed.RealClock{}, store, sched, feed.Options{
		URL:           cfg.Client.URL,
		ReconnectBase: cfg.Client.ReconnectBase,
		ReconnectCap:  cfg.Client.ReconnectCap,
	})
	mgr.Connect()

	// Logs go to stderr, the grid owns stdout
	table := view.NewTable(os.Stdout, prefs)

	ticker := time.NewTicker(cfg.Client.RefreshInterval)
	defer ticker.Stop()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	logger.Info("Dashboard Started",
		zap.String("url", cfg.Client.URL),
		zap.String("view", cfg.Client.View),
		zap.Duration("refresh", cfg.Client.RefreshInterval))

	for {
		select {
		case <-ticker.C:
			sched.OnFrame()
			fmt.Print("\033[H\033[2J") // cursor home, clear screen
			if err := table.Render(store.Stocks(), store.LastUpdated(), mgr.State(), time.Now()); err != nil {
				logger.Error("Render Error", zap.Error(err))
			}
		case <-stop:
			logger.Info("Shutdown signal received")
			mgr.Disconnect()
			if err := prefsStore.Put(cfg.Client.View, table.Prefs()); err != nil {
				logger.Error("Failed to save view prefs", zap.Error(err))
			}
			prefsStore.Close()
			logger.Info("Shutdown Complete")
			return
		}
	}
}
