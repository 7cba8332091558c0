package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"

	"vox/audio"
	"vox/clipboard"
	"vox/hotkey"
	"vox/hud"
	"vox/log"
	"vox/session"
	"vox/shutdown"
	"vox/transcriber"
	"vox/trim"
)

var version = "dev"

const defaultRealtimeEndpoint = "wss://api.deepgram.com/v1/listen"

type config struct {
	provider  string
	endpoint  string
	model     string
	prompt    string
	language  string
	shortcut  string
	autoPaste bool
	autoStop  bool
	vadTrim   bool
	silenceDB float64
	silence   time.Duration
	maxDur    time.Duration
	testWAV   string
}

func main() {
	var cfg config
	flag.StringVar(&cfg.provider, "provider", "openai", "Transcription provider: openai or realtime")
	flag.StringVar(&cfg.endpoint, "endpoint", defaultRealtimeEndpoint, "Websocket endpoint for the realtime provider")
	flag.StringVar(&cfg.model, "model", "", "Model override (default: provider default)")
	flag.StringVar(&cfg.prompt, "prompt", "", "Context prompt passed to the transcription model")
	flag.StringVar(&cfg.language, "lang", "en", "Language code for transcription (e.g., en, es, fr). Empty = auto-detect")
	flag.StringVar(&cfg.shortcut, "shortcut", "ctrl+shift+space", "Push-to-talk shortcut")
	flag.BoolVar(&cfg.autoPaste, "autopaste", true, "Auto-paste to focused window after transcription")
	flag.BoolVar(&cfg.autoStop, "autostop", true, "Stop recording automatically after sustained silence")
	flag.BoolVar(&cfg.vadTrim, "trim", true, "Trim leading/trailing silence before upload")
	flag.Float64Var(&cfg.silenceDB, "silence-threshold", session.DefaultDetectorConfig.SilenceThresholdDB, "Silence threshold in dBFS")
	flag.DurationVar(&cfg.silence, "silence-duration", session.DefaultDetectorConfig.SilenceDuration, "Silence duration before auto-stop")
	flag.DurationVar(&cfg.maxDur, "maxduration", session.DefaultConfig.MaxDuration, "Maximum recording duration")
	flag.StringVar(&cfg.testWAV, "test", "", "Headless test mode: replay the given WAV instead of the microphone")
	logPathFlag := flag.String("logpath", "", "log directory path (default: OS-specific location, use ./ for current dir)")
	versionFlag := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *versionFlag {
		fmt.Printf("vox %s\n", version)
		os.Exit(0)
	}

	logPath, err := log.ResolveDir(*logPathFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to resolve log directory: %v\n", err)
		os.Exit(1)
	}
	log.SetDir(logPath)
	if err := log.EnsureDir(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not create log directory: %v\n", err)
	}

	crashPath := filepath.Join(log.Dir(), "crash_log.txt")
	crashFile, err := os.OpenFile(crashPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err == nil {
		fmt.Fprintf(crashFile, "\n=== Session %s [pid=%d] ===\n", time.Now().Format("2006-01-02 15:04:05"), os.Getpid())
		debug.SetCrashOutput(crashFile, debug.CrashOptions{})
	}

	pipeline, providerName, err := buildPipeline(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	sessCfg := session.DefaultConfig
	sessCfg.AutoStop = cfg.autoStop
	sessCfg.AutoPaste = cfg.autoPaste
	sessCfg.MaxDuration = cfg.maxDur
	sessCfg.Detector.SilenceThresholdDB = cfg.silenceDB
	sessCfg.Detector.SilenceDuration = cfg.silence

	if cfg.testWAV != "" {
		runTestMode(cfg.testWAV, pipeline, providerName, cfg.language, sessCfg)
		return
	}

	if err := log.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not init logging: %v\n", err)
	}
	defer log.Close()
	log.SessionStart(providerName, cfg.language)

	sc, err := hotkey.ParseShortcut(cfg.shortcut)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	actx, err := audio.NewContext()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing audio: %v\n", err)
		os.Exit(1)
	}
	defer actx.Close()

	capture, err := actx.NewCapture(nil, audio.CaptureConfig{
		SampleRate: audio.SampleRate, Channels: audio.Channels,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening capture device: %v\n", err)
		os.Exit(1)
	}
	defer capture.Close()
	rec := audio.NewRecorder(capture, audio.SampleRate)

	keys := hotkey.NewManager(hotkey.New)
	if err := keys.Bind(sc); err != nil {
		fmt.Fprintf(os.Stderr, "Error binding %s: %v\n", sc, err)
		os.Exit(1)
	}
	defer keys.Close()

	terminal := hud.NewTerminal()
	presenter := &countingPresenter{Presenter: terminal}
	ctrl := session.NewController(keys, rec, pipeline, presenter, clipboard.System{}, sessCfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go ctrl.Run(ctx)

	sig := make(chan os.Signal, 1)
	shutdown.Notify(sig)
	go func() {
		<-sig
		cancel()
		terminal.Quit()
	}()

	fmt.Printf("vox %s: hold %s to talk (mic: %s)\n", version, sc, rec.DeviceName())
	if err := terminal.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	cancel()
	log.SessionEnd(presenter.Count())
}

func buildPipeline(cfg config) (*transcriber.Pipeline, string, error) {
	var remote transcriber.Remote
	var apiKey string

	switch cfg.provider {
	case "openai":
		apiKey = os.Getenv("OPENAI_API_KEY")
		if apiKey == "" {
			return nil, "", fmt.Errorf("OPENAI_API_KEY is not set")
		}
		remote = transcriber.NewOpenAI()
	case "realtime":
		apiKey = os.Getenv("DEEPGRAM_API_KEY")
		if apiKey == "" {
			return nil, "", fmt.Errorf("DEEPGRAM_API_KEY is not set")
		}
		remote = transcriber.NewRealtime(cfg.endpoint)
	default:
		return nil, "", fmt.Errorf("unknown provider %q (use openai or realtime)", cfg.provider)
	}

	opts := transcriber.Options{
		Model:         cfg.model,
		Prompt:        cfg.prompt,
		Language:      cfg.language,
		EnableVADTrim: cfg.vadTrim,
	}
	retry := transcriber.RetryConfig{InitialDelay: 400 * time.Millisecond, MaxAttempts: 3}
	return transcriber.NewPipeline(remote, trim.New(), retry, opts, apiKey), remote.Name(), nil
}
