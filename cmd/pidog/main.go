// PiDog - voice and keyboard conversation front-end for the PiDog robot.
// Listens (or reads a line), asks the language model, speaks the answer
// and performs the actions it picks.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	flag "github.com/spf13/pflag"

	"github.com/teslashibe/go-pidog/internal/app"
	"github.com/teslashibe/go-pidog/internal/config"
	"github.com/teslashibe/go-pidog/internal/log"
)

func main() {
	cfg, debug, envFile := parseFlags()

	level := "info"
	if debug {
		level = "debug"
	}
	log.Init(level)

	if err := config.LoadDotEnv(envFile); err != nil {
		log.Warn("env file not loaded", "error", err)
	}
	cfg.ApplyEnv()

	if err := run(cfg); err != nil {
		log.Error("pidog exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config) error {
	a, err := app.New(cfg)
	if err != nil {
		return fmt.Errorf("configuration: %w", err)
	}
	defer a.Shutdown()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := a.Init(ctx); err != nil {
		return fmt.Errorf("init: %w", err)
	}
	return a.Run(ctx)
}

// parseFlags parses command line flags. Environment overrides are applied
// after the env file is loaded.
func parseFlags() (config.Config, bool, string) {
	cfg := config.Default()

	keyboard := flag.BoolP("keyboard", "k", false, "Type input instead of speaking")
	noImage := flag.Bool("no-img", false, "Do not attach camera frames (disables camera and dashboard)")
	debug := flag.BoolP("debug", "d", false, "Enable debug logging")
	envFile := flag.String("env", ".env", "Env file with API keys and overrides")
	webPort := flag.String("web-port", cfg.WebPort, "Dashboard port")
	flag.Parse()

	if *keyboard {
		cfg.InputMode = config.InputKeyboard
	}
	cfg.WithImage = !*noImage
	cfg.WebPort = *webPort
	cfg.Debug = *debug
	return cfg, *debug, *envFile
}
