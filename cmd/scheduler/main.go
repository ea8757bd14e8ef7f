package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/delloop-lab/accreditor-sub000/internal/config"
	"github.com/delloop-lab/accreditor-sub000/internal/middleware"
	"github.com/robfig/cron/v3"
)

const processPath = "/api/internal/process-scheduled-emails"

type processResult struct {
	Processed int `json:"processed"`
	Sent      int `json:"sent"`
	Failed    int `json:"failed"`
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	if cfg.SchedulerToken == "" {
		log.Fatal("SCHEDULER_TOKEN is required")
	}

	client := &http.Client{Timeout: 2 * time.Minute}
	endpoint := strings.TrimRight(cfg.SchedulerAPIURL, "/") + processPath

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	if _, err := c.AddFunc(cfg.SchedulerSpec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		result, err := trigger(ctx, client, endpoint, cfg.SchedulerToken)
		if err != nil {
			slog.Error("scheduled email run failed", "error", err)
			return
		}
		if result.Processed > 0 {
			slog.Info("scheduled emails processed", "processed", result.Processed, "sent", result.Sent, "failed", result.Failed)
		}
	}); err != nil {
		log.Fatalf("Invalid SCHEDULER_SPEC %q: %v", cfg.SchedulerSpec, err)
	}

	c.Start()
	slog.Info("scheduler started", "schedule", cfg.SchedulerSpec, "endpoint", endpoint)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	<-c.Stop().Done()
	slog.Info("scheduler stopped")
}

func trigger(ctx context.Context, client *http.Client, endpoint, token string) (processResult, error) {
	var result processResult

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return result, err
	}
	req.Header.Set(middleware.SchedulerTokenHeader, token)

	resp, err := client.Do(req)
	if err != nil {
		return result, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return result, fmt.Errorf("process endpoint returned %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return result, fmt.Errorf("decode process response: %w", err)
	}
	return result, nil
}
