package transcriber

import (
	"context"
	"os"
	"time"

	"vox/log"
)

const maxUploadBytes = 25 << 20

// Pipeline runs one transcription: artifact validation, optional silence
// trimming, then the remote call under the retry policy. The source
// artifact is deleted on every exit path, success or failure.
type Pipeline struct {
	remote  Remote
	trimmer Trimmer
	retry   RetryConfig
	opts    Options
	apiKey  string
}

func NewPipeline(remote Remote, trimmer Trimmer, retry RetryConfig, opts Options, apiKey string) *Pipeline {
	if retry.MaxAttempts < 1 {
		retry.MaxAttempts = 1
	}
	return &Pipeline{remote: remote, trimmer: trimmer, retry: retry, opts: opts, apiKey: apiKey}
}

func (p *Pipeline) KeepWarm() {
	p.remote.KeepWarm()
}

// Transcribe converts the recorded artifact at path into text.
// recordedSeconds is informational (logged alongside the result).
func (p *Pipeline) Transcribe(ctx context.Context, path string, recordedSeconds float64, onDelta DeltaFunc) (string, error) {
	defer os.Remove(path)

	info, err := os.Stat(path)
	if err != nil || info.Size() == 0 {
		return "", &ExecError{Kind: ErrFileNotReady}
	}
	if info.Size() > maxUploadBytes {
		return "", &ExecError{Kind: ErrFileTooLarge}
	}

	submit := path
	if p.opts.EnableVADTrim && p.trimmer != nil {
		trimmed, err := p.trimmer.Trim(path)
		if err != nil {
			return "", err
		}
		if trimmed != path {
			defer os.Remove(trimmed)
			submit = trimmed
		}
	}

	delay := p.retry.InitialDelay
	for attempt := 1; ; attempt++ {
		text, err := p.remote.Transcribe(ctx, submit, p.opts, p.apiKey, onDelta)
		if err == nil {
			log.Transcribed(p.remote.Name(), recordedSeconds, attempt)
			return text, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if attempt >= p.retry.MaxAttempts || !ShouldRetry(err) {
			return "", err
		}
		log.Warnf("transcribe attempt %d failed, retrying in %s: %v", attempt, delay, err)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return "", ctx.Err()
		case <-timer.C:
		}
		delay = NextDelay(delay)
	}
}
