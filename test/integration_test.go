//go:build integration

package test_test

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"vox/audio"
	"vox/clipboard"
)

var testBinary string

func TestMain(m *testing.M) {
	testBinary = os.Getenv("VOX_TEST_BIN")
	if testBinary == "" {
		fmt.Fprintln(os.Stderr, "VOX_TEST_BIN not set; build the binary and point VOX_TEST_BIN at it")
		os.Exit(1)
	}

	silencePath := filepath.Join("data", "silence.wav")
	if err := generateSilenceWAV(silencePath, 16000, 2.0); err != nil {
		fmt.Fprintf(os.Stderr, "failed to generate silence.wav: %v\n", err)
		os.Exit(1)
	}
	defer os.Remove(silencePath)

	os.Exit(m.Run())
}

func generateSilenceWAV(path string, sampleRate uint32, durationS float64) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	w, err := audio.NewWAVWriter(path, sampleRate)
	if err != nil {
		return err
	}
	samples := int(float64(sampleRate) * durationS)
	if err := w.Write(make([]byte, samples*2)); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

func cmds(parts ...string) string {
	return strings.Join(parts, "\n") + "\n"
}

func runVox(t *testing.T, stdin string, args ...string) (logDir string) {
	t.Helper()
	logDir = t.TempDir()
	cmdArgs := append([]string{"-logpath", logDir, "-autopaste=false"}, args...)

	cmd := exec.Command(testBinary, cmdArgs...)
	cmd.Stdin = strings.NewReader(stdin)
	cmd.Env = os.Environ()

	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("vox exited with error: %v\noutput: %s", err, out)
	}
	return logDir
}

func readLog(t *testing.T, logDir, filename string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(logDir, filename))
	if err != nil {
		if os.IsNotExist(err) {
			return ""
		}
		t.Fatalf("failed to read %s: %v", filename, err)
	}
	return string(data)
}

func requireTranscription(t *testing.T, logDir string) string {
	t.Helper()
	text := readLog(t, logDir, "transcribe_log.txt")
	if strings.TrimSpace(text) == "" {
		t.Fatal("transcribe_log.txt is empty, expected transcribed words")
	}
	return text
}

func requireOpenAIKey(t *testing.T) {
	t.Helper()
	if os.Getenv("OPENAI_API_KEY") == "" {
		t.Skip("OPENAI_API_KEY not set")
	}
}

func requireDeepgramKey(t *testing.T) {
	t.Helper()
	if os.Getenv("DEEPGRAM_API_KEY") == "" {
		t.Skip("DEEPGRAM_API_KEY not set")
	}
}

func TestBatchWords(t *testing.T) {
	requireOpenAIKey(t)
	logDir := runVox(t, cmds("KEYDOWN", "WAIT_AUDIO_DONE", "KEYUP", "WAIT", "QUIT"),
		"-test", "data/short.wav")
	requireTranscription(t, logDir)
}

func TestBatchTwoSessions(t *testing.T) {
	requireOpenAIKey(t)
	logDir := runVox(t, cmds(
		"KEYDOWN", "WAIT_AUDIO_DONE", "KEYUP", "WAIT",
		"KEYDOWN", "WAIT_AUDIO_DONE", "KEYUP", "WAIT",
		"QUIT"),
		"-test", "data/short.wav")
	diag := readLog(t, logDir, "diagnostics_log.txt")
	if strings.Count(diag, "transcription") < 2 {
		t.Error("expected 2 transcription entries in diagnostics")
	}
}

func TestBatchNoVoice(t *testing.T) {
	requireOpenAIKey(t)
	_ = runVox(t, cmds("KEYDOWN", "SLEEP 1500", "KEYUP", "WAIT", "QUIT"),
		"-test", "data/silence.wav")
}

func TestEarlyKeyupDiscarded(t *testing.T) {
	requireOpenAIKey(t)
	// Release before the minimum duration: the recording is dropped
	// without ever reaching the provider.
	logDir := runVox(t, cmds("KEYDOWN", "SLEEP 100", "KEYUP", "WAIT", "QUIT"),
		"-test", "data/short.wav")
	if text := readLog(t, logDir, "transcribe_log.txt"); strings.TrimSpace(text) != "" {
		t.Errorf("sub-minimum recording should be discarded, got %q", text)
	}
}

func TestAutoSilenceStop(t *testing.T) {
	requireOpenAIKey(t)
	// No KEYUP: the silence tail after the file must stop the session.
	logDir := runVox(t, cmds("KEYDOWN", "WAIT_AUDIO_DONE", "WAIT", "QUIT"),
		"-test", "data/short.wav")
	requireTranscription(t, logDir)
}

func TestRealtimeWords(t *testing.T) {
	requireDeepgramKey(t)
	logDir := runVox(t, cmds("KEYDOWN", "WAIT_AUDIO_DONE", "KEYUP", "WAIT", "QUIT"),
		"-test", "data/short.wav", "-provider", "realtime")
	requireTranscription(t, logDir)
}

func TestClipboardCopied(t *testing.T) {
	requireOpenAIKey(t)

	sentinel := fmt.Sprintf("vox-test-sentinel-%d", time.Now().UnixNano())
	if err := clipboard.Copy(sentinel); err != nil {
		t.Skip("clipboard not available")
	}

	logDir := runVox(t, cmds("KEYDOWN", "WAIT_AUDIO_DONE", "KEYUP", "WAIT", "QUIT"),
		"-test", "data/short.wav")
	requireTranscription(t, logDir)

	clip, err := clipboard.Read()
	if err != nil {
		t.Skip("clipboard not available")
	}
	if strings.TrimSpace(clip) == sentinel {
		t.Error("clipboard still holds the sentinel, transcript was not copied")
	}
}
