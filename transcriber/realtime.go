package transcriber

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"nhooyr.io/websocket"

	"vox/audio"
)

const realtimeChunkMs = 200

// Realtime transcribes over a websocket: PCM pushed in chunks, server
// events decoded through the stream parser. Used with endpoints that
// speak delta/done/error push-messages.
type Realtime struct {
	endpoint string
}

func NewRealtime(endpoint string) *Realtime {
	return &Realtime{endpoint: endpoint}
}

func (r *Realtime) Name() string { return "realtime" }

func (r *Realtime) KeepWarm() {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		conn, _, err := websocket.Dial(ctx, r.endpoint, nil)
		if err == nil {
			conn.Close(websocket.StatusNormalClosure, "")
		}
	}()
}

func (r *Realtime) Transcribe(ctx context.Context, path string, opts Options, apiKey string, onDelta DeltaFunc) (string, error) {
	pcm, sampleRate, err := audio.ReadWAV(path)
	if err != nil {
		return "", &ExecError{Kind: ErrFileNotReady}
	}

	endpoint, err := url.Parse(r.endpoint)
	if err != nil {
		return "", &ExecError{Kind: ErrNetwork, Reason: err.Error()}
	}
	q := endpoint.Query()
	model := opts.Model
	if model == "" {
		model = defaultModel
	}
	q.Set("model", model)
	q.Set("encoding", "linear16")
	q.Set("sample_rate", fmt.Sprintf("%d", sampleRate))
	if opts.Language != "" {
		q.Set("language", opts.Language)
	}
	endpoint.RawQuery = q.Encode()

	headers := http.Header{}
	headers.Set("Authorization", "Bearer "+apiKey)

	conn, _, err := websocket.Dial(ctx, endpoint.String(), &websocket.DialOptions{HTTPHeader: headers})
	if err != nil {
		return "", classifyTransport(err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	chunkBytes := int(sampleRate) * 2 * realtimeChunkMs / 1000
	for len(pcm) > 0 {
		n := chunkBytes
		if n > len(pcm) {
			n = len(pcm)
		}
		if err := conn.Write(ctx, websocket.MessageBinary, pcm[:n]); err != nil {
			return "", classifyTransport(err)
		}
		pcm = pcm[n:]
	}
	if err := conn.Write(ctx, websocket.MessageText, []byte(`{"type":"finalize"}`)); err != nil {
		return "", classifyTransport(err)
	}

	var accumulated strings.Builder
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			return "", classifyTransport(err)
		}
		switch ev := ParseStreamEvent(data); ev.Kind {
		case EventDelta:
			accumulated.WriteString(ev.Text)
			if onDelta != nil {
				onDelta(ev.Text)
			}
		case EventDone:
			text := ev.Text
			if text == "" {
				text = accumulated.String()
			}
			return strings.TrimSpace(text), nil
		case EventError:
			return "", &ExecError{Kind: ErrServer, Reason: ev.Text}
		}
	}
}
