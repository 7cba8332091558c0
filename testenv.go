package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"vox/audio"
	"vox/clipboard"
	"vox/hotkey"
	"vox/hud"
	"vox/log"
	"vox/session"
	"vox/transcriber"
)

// runTestMode drives the controller headlessly from stdin commands,
// replaying a WAV file in place of the microphone. Used by the
// integration tests.
func runTestMode(wavPath string, pipeline *transcriber.Pipeline, providerName, language string, sessCfg session.Config) {
	if err := log.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not init logging: %v\n", err)
	}
	defer log.Close()
	log.SessionStart(providerName, language)

	capture, err := audio.NewPlaybackCapture(wavPath, true)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading WAV: %v\n", err)
		os.Exit(1)
	}
	rec := audio.NewRecorder(capture, audio.SampleRate)

	keys := hotkey.NewFake()
	presenter := &countingPresenter{Presenter: &hud.FakePresenter{}}
	ctrl := session.NewController(keys, rec, pipeline, presenter, clipboard.System{}, sessCfg)

	// Session completion signal for WAIT: every return to idle.
	idle := make(chan struct{}, 1)
	ctrl.Observe(func(p session.Phase) {
		if p == session.PhaseIdle {
			select {
			case idle <- struct{}{}:
			default:
			}
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go ctrl.Run(ctx)

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		cmd := strings.TrimSpace(scanner.Text())
		switch cmd {
		case "KEYDOWN":
			keys.SimKeydown()
		case "KEYUP":
			keys.SimKeyup()
		case "WAIT":
			<-idle
		case "WAIT_AUDIO_DONE":
			<-capture.AudioDone()
		case "QUIT":
			log.SessionEnd(presenter.Count())
			return
		default:
			if strings.HasPrefix(cmd, "SLEEP ") {
				if ms, err := strconv.Atoi(cmd[6:]); err == nil {
					time.Sleep(time.Duration(ms) * time.Millisecond)
				}
			}
		}
	}
	log.SessionEnd(presenter.Count())
}
