package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
)

const WAVHeaderSize = 44

// WAVWriter appends s16le mono PCM to a file, patching the RIFF sizes
// on Close.
type WAVWriter struct {
	f          *os.File
	sampleRate uint32
	dataBytes  uint32
}

func NewWAVWriter(path string, sampleRate uint32) (*WAVWriter, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		return nil, err
	}
	w := &WAVWriter{f: f, sampleRate: sampleRate}
	if _, err := f.Write(wavHeader(sampleRate, 0)); err != nil {
		f.Close()
		os.Remove(path)
		return nil, err
	}
	return w, nil
}

func (w *WAVWriter) Write(pcm []byte) error {
	n, err := w.f.Write(pcm)
	w.dataBytes += uint32(n)
	return err
}

func (w *WAVWriter) Close() error {
	if _, err := w.f.WriteAt(wavHeader(w.sampleRate, w.dataBytes), 0); err != nil {
		w.f.Close()
		return err
	}
	return w.f.Close()
}

func wavHeader(sampleRate, dataSize uint32) []byte {
	buf := make([]byte, WAVHeaderSize)
	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], WAVHeaderSize-8+dataSize)
	copy(buf[8:12], "WAVE")
	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16)
	binary.LittleEndian.PutUint16(buf[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(buf[22:24], Channels)
	binary.LittleEndian.PutUint32(buf[24:28], sampleRate)
	binary.LittleEndian.PutUint32(buf[28:32], sampleRate*Channels*2)
	binary.LittleEndian.PutUint16(buf[32:34], Channels*2) // block align
	binary.LittleEndian.PutUint16(buf[34:36], 16)         // bits per sample
	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], dataSize)
	return buf
}

// ReadWAV loads the PCM payload and sample rate of a WAV artifact
// produced by WAVWriter (fixed 44-byte header).
func ReadWAV(path string) (pcm []byte, sampleRate uint32, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, err
	}
	if len(data) < WAVHeaderSize || !bytes.Equal(data[0:4], []byte("RIFF")) || !bytes.Equal(data[8:12], []byte("WAVE")) {
		return nil, 0, fmt.Errorf("not a WAV file: %s", path)
	}
	return data[WAVHeaderSize:], binary.LittleEndian.Uint32(data[24:28]), nil
}
