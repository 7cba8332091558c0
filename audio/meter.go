package audio

import (
	"encoding/binary"
	"math"
	"time"
)

// MeterFloorDB is reported for an all-zero frame and clamps the low end
// of the decibel scale.
const MeterFloorDB = -90.0

// MeterSample is one loudness reading, produced per capture frame and
// consumed (never retained) by the silence detector.
type MeterSample struct {
	RMS      float64
	DB       float64 // instantaneous dBFS
	FrameDur time.Duration
}

// Meter computes the loudness of a block of s16le PCM.
func Meter(pcm []byte, sampleRate uint32) MeterSample {
	frames := len(pcm) / 2
	if frames == 0 || sampleRate == 0 {
		return MeterSample{DB: MeterFloorDB}
	}

	var sumSquares float64
	for i := 0; i+1 < len(pcm); i += 2 {
		sample := int16(binary.LittleEndian.Uint16(pcm[i:]))
		normalized := float64(sample) / 32768.0
		sumSquares += normalized * normalized
	}
	rms := math.Sqrt(sumSquares / float64(frames))

	db := MeterFloorDB
	if rms > 0 {
		db = 20 * math.Log10(rms)
		if db < MeterFloorDB {
			db = MeterFloorDB
		}
	}

	return MeterSample{
		RMS:      rms,
		DB:       db,
		FrameDur: time.Duration(frames) * time.Second / time.Duration(sampleRate),
	}
}
