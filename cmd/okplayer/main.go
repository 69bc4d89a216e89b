// Package main provides the okplayer entry point.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kingpin/v2"
	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"

	"github.com/ok97465/okplayer/internal/app/player"
	"github.com/ok97465/okplayer/internal/domain/loop"
	"github.com/ok97465/okplayer/internal/infra/audio"
	"github.com/ok97465/okplayer/internal/infra/config"
	"github.com/ok97465/okplayer/internal/infra/logger"
	"github.com/ok97465/okplayer/internal/infra/store"
)

var (
	app        = kingpin.New("okplayer", "A/B-loop audio player for repeated listening")
	configPath = app.Flag("config", "Path to config file").Default("okplayer.yaml").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: stderr)").String()

	playCmd  = app.Command("play", "Play an audio file (default)").Default()
	playFile = playCmd.Arg("file", "Audio file to play (defaults to the last played track)").String()

	recentCmd = app.Command("recent", "List recently played files and exit")
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	loggerConfig := logger.Config{Output: "stderr", Level: "info"}
	if *verbose {
		loggerConfig.Level = "debug"
	}
	if *logfile != "" {
		loggerConfig.Output = *logfile
		loggerConfig.File = *logfile
	}
	if err := logger.Init(loggerConfig); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		zlog.Fatal().Msgf("Failed to load config: %v", err)
	}

	// Re-init with the config file's log settings; flags still win.
	mergedConfig := logger.Config{Output: cfg.Log.Output, Level: cfg.Log.Level, File: cfg.Log.File}
	if *verbose {
		mergedConfig.Level = "debug"
	}
	if *logfile != "" {
		mergedConfig.Output = *logfile
		mergedConfig.File = *logfile
	}
	if err := logger.Init(mergedConfig); err != nil {
		zlog.Fatal().Msgf("Failed to initialize logger: %v", err)
	}

	st, err := store.Open(cfg.Storage.SettingsPath, cfg.Storage.HistoryPath)
	if err != nil {
		zlog.Fatal().Msgf("Failed to open session store: %v", err)
	}

	if command == recentCmd.FullCommand() {
		printRecent(st)
		return
	}

	if err := run(cfg, st); err != nil {
		zlog.Error().Msgf("Player error: %v", err)
		os.Exit(1)
	}
}

// printRecent prints the most-recently-used file list.
func printRecent(st *store.Store) {
	recent := st.RecentFiles()
	if len(recent) == 0 {
		fmt.Println("no recently played files")
		return
	}
	for i, path := range recent {
		fmt.Printf("%2d  %s\n", i+1, path)
	}
}

// run executes the interactive player loop. Using a separate function
// ensures defer statements run even when returning with an error.
func run(cfg *config.Config, st *store.Store) error {
	policy, err := loop.ParsePolicy(cfg.Loop.Policy)
	if err != nil {
		return err
	}

	path := *playFile
	if path == "" {
		path = st.LastPlayed()
	}
	if path == "" {
		return errors.New("no file given and no last played track to resume")
	}

	engine := audio.NewEngine(cfg.PollInterval())
	ctrl := player.NewController(engine, st, player.Config{
		LoopPolicy:       policy,
		CaptureLatencyMS: cfg.Loop.CaptureLatencyMS,
		InitialVolume:    cfg.Player.Volume,
	})

	initTerminal()
	defer cleanupTerminal()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		ctrl.Close()
		cleanupTerminal()
		os.Exit(0)
	}()

	renderDone := make(chan struct{})
	go func() {
		defer close(renderDone)
		render(ctrl.Events())
	}()

	ctrl.Load(path)
	if _, ok := ctrl.CurrentTrack(); !ok {
		ctrl.Close()
		<-renderDone
		return errors.Newf("could not play %s", path)
	}

	keyLoop(ctrl, cfg)

	ctrl.Close()
	<-renderDone
	fmt.Println()
	return nil
}

// keyLoop reads single keys until quit.
func keyLoop(ctrl *player.Controller, cfg *config.Config) {
	buf := make([]byte, 1)
	for {
		n, err := os.Stdin.Read(buf)
		if err != nil {
			return
		}
		if n == 0 {
			continue
		}

		switch buf[0] {
		case 'q':
			return
		case ' ':
			_ = ctrl.PlayPause()
		case 'h':
			_ = ctrl.Navigate(-cfg.Player.SeekStepMS)
		case 'l':
			_ = ctrl.Navigate(cfg.Player.SeekStepMS)
		case 'j':
			_ = ctrl.Navigate(-cfg.Player.LongSeekStepMS)
		case 'k':
			_ = ctrl.Navigate(cfg.Player.LongSeekStepMS)
		case '-':
			ctrl.ChangeVolume(-cfg.Player.VolumeStep)
		case '=', '+':
			ctrl.ChangeVolume(cfg.Player.VolumeStep)
		case 'i':
			_ = ctrl.ToggleLoop()
		case '[':
			_ = ctrl.AdjustLoop(-cfg.Player.LoopNudgeMS)
		case ']':
			_ = ctrl.AdjustLoop(cfg.Player.LoopNudgeMS)
		case 'e':
			if _, err := ctrl.ExportLoopClip(); err != nil {
				zlog.Debug().Msgf("export skipped: %v", err)
			}
		}
	}
}
