package main

import (
	"flag"
	"io"
	"os"
	"path/filepath"
	"strings"

	"stagecraft/internal/config"
	"stagecraft/internal/editor"
	"stagecraft/internal/logging"
	"stagecraft/internal/render"

	rl "github.com/gen2brain/raylib-go/raylib"
)

func main() {
	configDir := flag.String("config", ".", "directory containing stagecraft.json")
	logFile := flag.String("log", "", "also write logs to this file")
	flag.Parse()

	// Run from the executable's directory for deployed builds. "go run"
	// builds into a temp go-build directory, so skip it there.
	if execPath, err := os.Executable(); err == nil && *configDir == "." {
		execDir := filepath.Dir(execPath)
		if !strings.Contains(execDir, "go-build") {
			os.Chdir(execDir)
		}
	}

	cfg, err := config.Load(*configDir)
	if err != nil {
		logging.New("info", os.Stderr).Fatal().Err(err).Msg("Loading configuration")
	}

	var files []io.Writer
	if *logFile != "" {
		f, err := os.OpenFile(*logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			logging.New(cfg.LogLevel, os.Stderr).Fatal().Err(err).Str("path", *logFile).Msg("Opening log file")
		}
		defer f.Close()
		files = append(files, f)
	}
	log := logging.New(cfg.LogLevel, os.Stderr, files...)

	rl.SetTraceLogLevel(rl.LogWarning)

	ed, err := editor.New(cfg, render.NewRaylibBackend(), log)
	if err != nil {
		log.Fatal().Err(err).Msg("Creating editor")
	}
	if err := ed.Run(); err != nil {
		log.Fatal().Err(err).Msg("Editor stopped")
	}
}
