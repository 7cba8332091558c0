package audio

import (
	"sync"
	"time"
)

const playbackFrameMs = 20

// PlaybackCapture replays a WAV artifact as if it were a live
// microphone, then keeps feeding silence until stopped so the auto-stop
// detector sees a realistic tail. Used by the headless test mode.
type PlaybackCapture struct {
	pcm        []byte
	sampleRate uint32
	realtime   bool

	mu      sync.Mutex
	cb      DataCallback
	started bool
	stop    chan struct{}
	done    chan struct{}
}

func NewPlaybackCapture(path string, realtime bool) (*PlaybackCapture, error) {
	pcm, sampleRate, err := ReadWAV(path)
	if err != nil {
		return nil, err
	}
	return &PlaybackCapture{
		pcm:        pcm,
		sampleRate: sampleRate,
		realtime:   realtime,
		done:       make(chan struct{}),
	}, nil
}

func (p *PlaybackCapture) Start() error {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return nil
	}
	p.started = true
	p.stop = make(chan struct{})
	p.done = make(chan struct{})
	stop, done := p.stop, p.done
	p.mu.Unlock()

	go p.play(stop, done)
	return nil
}

func (p *PlaybackCapture) play(stop, done chan struct{}) {
	frameBytes := int(p.sampleRate) * playbackFrameMs / 1000 * 2
	frameCount := uint32(frameBytes / 2)
	interval := playbackFrameMs * time.Millisecond

	silence := make([]byte, frameBytes)
	remaining := p.pcm
	fileDone := false

	for {
		select {
		case <-stop:
			return
		default:
		}

		var frame []byte
		if len(remaining) >= frameBytes {
			frame = remaining[:frameBytes]
			remaining = remaining[frameBytes:]
		} else if !fileDone {
			fileDone = true
			close(done)
			frame = silence
		} else {
			frame = silence
		}

		p.mu.Lock()
		cb := p.cb
		p.mu.Unlock()
		if cb != nil {
			cb(frame, frameCount)
		}

		// File frames are burst in non-realtime mode; the silence tail
		// is always paced so it cannot flood the meter.
		if p.realtime || fileDone {
			select {
			case <-stop:
				return
			case <-time.After(interval):
			}
		}
	}
}

func (p *PlaybackCapture) Stop() {
	p.mu.Lock()
	if p.started {
		p.started = false
		close(p.stop)
	}
	p.mu.Unlock()
}

func (p *PlaybackCapture) Close() { p.Stop() }

func (p *PlaybackCapture) SetCallback(cb DataCallback) {
	p.mu.Lock()
	p.cb = cb
	p.mu.Unlock()
}

func (p *PlaybackCapture) ClearCallback() {
	p.mu.Lock()
	p.cb = nil
	p.mu.Unlock()
}

func (p *PlaybackCapture) DeviceName() string { return "playback" }

// AudioDone is closed once the file content of the current playback has
// been fully delivered. Only the silence tail follows.
func (p *PlaybackCapture) AudioDone() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done
}
