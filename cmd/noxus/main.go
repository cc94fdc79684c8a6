package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/noxuslabs/noxus/internal/api"
	"github.com/noxuslabs/noxus/internal/common"
	"github.com/noxuslabs/noxus/internal/llm"
	"github.com/noxuslabs/noxus/internal/store"
)

func main() {
	logger := common.Logger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := godotenv.Load(); err != nil {
		logger.Warn("noxus: .env file not loaded", "error", err)
	} else {
		logger.Info("noxus: environment loaded from .env")
	}

	addr := flag.String("addr", ":8082", "listen address")
	dbPath := flag.String("db", defaultDBPath(), "path to the SQLite catalog database")
	windowDefault := api.DefaultConfig().WindowDays
	if env := strings.TrimSpace(os.Getenv("NOXUS_WINDOW_DAYS")); env != "" {
		if parsed, err := strconv.Atoi(env); err == nil && parsed > 0 {
			windowDefault = parsed
		}
	}
	windowDays := flag.Int("window-days", windowDefault, "trailing window in days supplied to the insight pipeline")
	flag.Parse()

	logger.Info("noxus: startup initiated", "addr", *addr, "db", *dbPath)

	catalog, err := store.Open(*dbPath)
	if err != nil {
		logger.Error("noxus: catalog initialization failed", "error", err)
		fmt.Println("catalog error:", err)
		os.Exit(1)
	}
	defer catalog.Close()

	provider := llm.NewProvider()
	logger.Info("noxus: llm provider ready", "provider", provider.Name())

	cfg := api.DefaultConfig()
	if *windowDays > 0 {
		cfg.WindowDays = *windowDays
	}

	server, err := api.NewServer(ctx, catalog, provider, &cfg)
	if err != nil {
		logger.Error("noxus: server construction failed", "error", err)
		fmt.Println("server error:", err)
		os.Exit(1)
	}

	logger.Info("noxus: server listening", "addr", *addr, "health", "/healthz")
	fmt.Printf("Serving on %s\n", *addr)
	reachable := *addr
	if strings.HasPrefix(reachable, ":") {
		reachable = "localhost" + reachable
	}
	logger.Info("noxus: verify reachability", "suggestion", fmt.Sprintf("curl http://%s/healthz", reachable))
	if err := http.ListenAndServe(*addr, server); err != nil {
		logger.Error("noxus: server stopped", "error", err)
		fmt.Println("server stopped:", err)
	}
}

func defaultDBPath() string {
	return filepath.Join("data", "noxus.db")
}
