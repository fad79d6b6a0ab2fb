// Command chat runs the scheduling assistant as an interactive terminal
// conversation.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/wolfman30/clinic-ai-scheduler/internal/app/bootstrap"
	"github.com/wolfman30/clinic-ai-scheduler/internal/config"
	"github.com/wolfman30/clinic-ai-scheduler/internal/dialog"
	"github.com/wolfman30/clinic-ai-scheduler/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger := logging.NewText(cfg.LogLevel, os.Stderr)

	ctx := context.Background()
	app, err := bootstrap.Build(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to build application", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	state := dialog.NewState(uuid.NewString())
	for _, line := range app.Engine.Start(ctx, state) {
		fmt.Println("assistant:", line)
	}

	scanner := bufio.NewScanner(os.Stdin)
	for !state.Phase.Terminal() {
		fmt.Print("you: ")
		if !scanner.Scan() {
			break
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		replies, err := app.Engine.Turn(ctx, state, text)
		if err != nil {
			logger.Error("turn failed", "error", err)
			continue
		}
		for _, line := range replies {
			fmt.Println("assistant:", line)
		}
	}

	if err := scanner.Err(); err != nil {
		logger.Error("stdin read failed", "error", err)
		os.Exit(1)
	}
}
