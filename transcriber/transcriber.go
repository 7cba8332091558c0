package transcriber

import "context"

// Options are immutable per transcribe call.
type Options struct {
	Model         string
	Prompt        string
	Language      string
	EnableVADTrim bool
}

// DeltaFunc receives incremental transcript text, in order, each
// fragment at most once.
type DeltaFunc func(text string)

// Remote is the transcription service collaborator. Implementations must
// honor ctx cancellation: once ctx is done, no further deltas may be
// delivered.
type Remote interface {
	Name() string
	Transcribe(ctx context.Context, path string, opts Options, apiKey string, onDelta DeltaFunc) (string, error)
	// KeepWarm pre-establishes the transport connection. Non-blocking hint,
	// failures are ignored.
	KeepWarm()
}

// Trimmer removes leading/trailing silence from an audio artifact and
// returns the path to submit, which may be the original.
type Trimmer interface {
	Trim(path string) (string, error)
}
