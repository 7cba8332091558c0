package transcriber

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const defaultModel = "gpt-4o-transcribe"

// OpenAI transcribes over HTTPS multipart with a streamed SSE response.
type OpenAI struct {
	apiURL string
	client *http.Client
}

func NewOpenAI() *OpenAI {
	return &OpenAI{
		apiURL: "https://api.openai.com/v1/audio/transcriptions",
		client: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        4,
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
				ForceAttemptHTTP2:   true,
			},
		},
	}
}

func (o *OpenAI) Name() string { return "openai" }

func (o *OpenAI) KeepWarm() {
	go func() {
		req, err := http.NewRequest(http.MethodHead, o.apiURL, nil)
		if err != nil {
			return
		}
		resp, err := o.client.Do(req)
		if err == nil {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}
	}()
}

func (o *OpenAI) Transcribe(ctx context.Context, path string, opts Options, apiKey string, onDelta DeltaFunc) (string, error) {
	audioData, err := os.ReadFile(path)
	if err != nil {
		return "", &ExecError{Kind: ErrFileNotReady}
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return "", &ExecError{Kind: ErrNetwork, Reason: err.Error()}
	}
	if _, err := part.Write(audioData); err != nil {
		return "", &ExecError{Kind: ErrNetwork, Reason: err.Error()}
	}

	model := opts.Model
	if model == "" {
		model = defaultModel
	}
	writer.WriteField("model", model)
	writer.WriteField("stream", "true")
	if opts.Language != "" {
		writer.WriteField("language", opts.Language)
	}
	if opts.Prompt != "" {
		writer.WriteField("prompt", opts.Prompt)
	}
	writer.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.apiURL, &body)
	if err != nil {
		return "", &ExecError{Kind: ErrNetwork, Reason: err.Error()}
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Accept", "text/event-stream")

	resp, err := o.client.Do(req)
	if err != nil {
		return "", classifyTransport(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", serverError(resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	return readEventStream(resp.Body, resp.StatusCode, onDelta)
}

// readEventStream consumes SSE "data:" lines until a done or error event.
// Deltas are accumulated as a fallback in case the transport drops the
// final event after delivering all text.
func readEventStream(r io.Reader, status int, onDelta DeltaFunc) (string, error) {
	var accumulated strings.Builder
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "" || data == "[DONE]" {
			continue
		}
		switch ev := ParseStreamEvent([]byte(data)); ev.Kind {
		case EventDelta:
			accumulated.WriteString(ev.Text)
			if onDelta != nil {
				onDelta(ev.Text)
			}
		case EventDone:
			return strings.TrimSpace(ev.Text), nil
		case EventError:
			return "", serverError(status, ev.Text)
		}
	}
	if err := scanner.Err(); err != nil {
		return "", classifyTransport(err)
	}
	return strings.TrimSpace(accumulated.String()), nil
}
