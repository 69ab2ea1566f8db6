package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/Marina1234-cmd/HopeHand-sub000/internal/infra/app"
	"github.com/Marina1234-cmd/HopeHand-sub000/internal/infra/config"
)

func main() {
	envFile := flag.String("env-file", ".env", "optional dotenv file loaded before reading HOPEHAND_* variables")
	flag.Parse()

	if err := run(*envFile); err != nil {
		log.Printf("hopehand-guard: %v", err)
		os.Exit(1)
	}
}

func run(envFile string) error {
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", envFile, err)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}
	return application.Run(ctx)
}
