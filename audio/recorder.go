package audio

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

type MeterFunc func(MeterSample)

// Recorder owns one capture device and writes each recording to a fresh
// temp WAV artifact. Meter samples are computed per callback frame and
// handed to the caller, which is responsible for marshaling them off the
// audio producer context.
type Recorder struct {
	capture    CaptureDevice
	sampleRate uint32
	dir        string

	mu     sync.Mutex
	active bool
	writer *WAVWriter
	path   string
	frames uint64
}

func NewRecorder(capture CaptureDevice, sampleRate uint32) *Recorder {
	return &Recorder{capture: capture, sampleRate: sampleRate, dir: os.TempDir()}
}

// RequestPermission probes the capture device. On platforms with a mic
// permission prompt the first Start triggers it; a denied or broken
// device fails here instead of mid-session.
func (r *Recorder) RequestPermission() bool {
	r.mu.Lock()
	if r.active {
		r.mu.Unlock()
		return true
	}
	r.mu.Unlock()
	if err := r.capture.Start(); err != nil {
		return false
	}
	r.capture.Stop()
	return true
}

func (r *Recorder) Start(onSample MeterFunc) error {
	r.mu.Lock()
	if r.active {
		r.mu.Unlock()
		return fmt.Errorf("recorder already active")
	}
	path := filepath.Join(r.dir, fmt.Sprintf("vox-%d.wav", time.Now().UnixNano()))
	w, err := NewWAVWriter(path, r.sampleRate)
	if err != nil {
		r.mu.Unlock()
		return err
	}
	r.active = true
	r.writer = w
	r.path = path
	r.frames = 0
	r.mu.Unlock()

	r.capture.SetCallback(func(data []byte, frameCount uint32) {
		r.mu.Lock()
		if !r.active {
			r.mu.Unlock()
			return
		}
		r.writer.Write(data)
		r.frames += uint64(frameCount)
		r.mu.Unlock()

		if onSample != nil && len(data) > 1 {
			onSample(Meter(data, r.sampleRate))
		}
	})

	if err := r.capture.Start(); err != nil {
		r.capture.ClearCallback()
		r.mu.Lock()
		r.active = false
		r.writer = nil
		r.mu.Unlock()
		w.Close()
		os.Remove(path)
		return err
	}
	return nil
}

// Stop finishes the recording and returns the artifact path and the
// recorded duration derived from captured frames. Ownership of the
// artifact passes to the caller.
func (r *Recorder) Stop() (string, time.Duration, error) {
	r.capture.Stop()
	r.capture.ClearCallback()

	r.mu.Lock()
	w := r.writer
	path := r.path
	frames := r.frames
	r.active = false
	r.writer = nil
	r.path = ""
	r.mu.Unlock()

	if w == nil {
		return "", 0, fmt.Errorf("recorder not started")
	}
	if err := w.Close(); err != nil {
		os.Remove(path)
		return "", 0, err
	}
	dur := time.Duration(frames) * time.Second / time.Duration(r.sampleRate)
	return path, dur, nil
}

func (r *Recorder) DeviceName() string {
	return r.capture.DeviceName()
}
