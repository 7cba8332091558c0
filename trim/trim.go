// Package trim removes leading and trailing silence from recorded WAV
// artifacts before upload.
package trim

import (
	"fmt"
	"os"
	"strings"

	webrtcvad "github.com/maxhawkins/go-webrtcvad"

	"vox/audio"
)

const (
	vadMode  = 3 // most aggressive filtering
	frameMs  = 20
	debounce = 3 // consecutive speech frames to confirm onset
	// Frames of context kept on each side of the detected speech so
	// word onsets are not clipped.
	padFrames = 5
)

// ProcessingError wraps a failure in the trim stage. Callers treat it
// as terminal for the artifact, not retryable.
type ProcessingError struct {
	Stage string
	Err   error
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("trim %s: %v", e.Stage, e.Err)
}

func (e *ProcessingError) Unwrap() error { return e.Err }

// Trimmer classifies fixed-size frames with WebRTC VAD and cuts the
// artifact down to the span that contains speech. Safe for repeated use
// from a single goroutine.
type Trimmer struct{}

func New() *Trimmer { return &Trimmer{} }

// Trim returns the path to submit. When no speech is found, or the
// speech already spans the whole file, the original path is returned
// unchanged and no new file is created.
func (t *Trimmer) Trim(path string) (string, error) {
	pcm, sampleRate, err := audio.ReadWAV(path)
	if err != nil {
		return "", &ProcessingError{Stage: "read", Err: err}
	}

	frameBytes := int(sampleRate) * frameMs / 1000 * 2
	if frameBytes == 0 || len(pcm) < frameBytes {
		return path, nil
	}

	vad, err := webrtcvad.New()
	if err != nil {
		return "", &ProcessingError{Stage: "init", Err: err}
	}
	if err := vad.SetMode(vadMode); err != nil {
		return "", &ProcessingError{Stage: "init", Err: err}
	}

	nframes := len(pcm) / frameBytes
	speech := make([]bool, nframes)
	for i := 0; i < nframes; i++ {
		frame := pcm[i*frameBytes : (i+1)*frameBytes]
		active, err := vad.Process(int(sampleRate), frame)
		if err != nil {
			continue
		}
		speech[i] = active
	}

	start, end, ok := speechBounds(speech, debounce, padFrames)
	if !ok {
		return path, nil
	}
	if start == 0 && end == nframes-1 {
		return path, nil
	}

	out := trimmedPath(path)
	w, err := audio.NewWAVWriter(out, sampleRate)
	if err != nil {
		return "", &ProcessingError{Stage: "write", Err: err}
	}
	if err := w.Write(pcm[start*frameBytes : (end+1)*frameBytes]); err != nil {
		w.Close()
		os.Remove(out)
		return "", &ProcessingError{Stage: "write", Err: err}
	}
	if err := w.Close(); err != nil {
		os.Remove(out)
		return "", &ProcessingError{Stage: "write", Err: err}
	}
	return out, nil
}

// speechBounds finds the padded frame span containing confirmed speech.
// Onset needs debounce consecutive speech frames; a lone click never
// counts. Returns ok=false when the artifact has no confirmed speech.
func speechBounds(speech []bool, debounce, pad int) (start, end int, ok bool) {
	first, last := -1, -1
	run := 0
	for i, s := range speech {
		if !s {
			run = 0
			continue
		}
		run++
		if run >= debounce {
			if first == -1 {
				first = i - debounce + 1
			}
			last = i
		}
	}
	if first == -1 {
		return 0, 0, false
	}
	start = first - pad
	if start < 0 {
		start = 0
	}
	end = last + pad
	if end > len(speech)-1 {
		end = len(speech) - 1
	}
	return start, end, true
}

func trimmedPath(path string) string {
	if strings.HasSuffix(path, ".wav") {
		return strings.TrimSuffix(path, ".wav") + "-trim.wav"
	}
	return path + "-trim"
}
