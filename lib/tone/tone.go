// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package tone synthesizes and plays the operator feedback tones.
//
// There are no audio assets: [Synthesize] renders a [Tone] into a
// 16-bit mono PCM WAV in memory, and a [Player] delivers it. The
// confirmation tone is a higher, longer sine; the rejection tone a
// lower, shorter square wave, which reads as harsher.
//
// Playback failures are never user-visible. Callers log them at debug
// level and carry on.
package tone

import (
	"bytes"
	"encoding/binary"
	"math"
	"time"
)

// Waveform is the oscillator shape.
type Waveform int

const (
	Sine Waveform = iota
	Square
)

// Tone describes a single beep.
type Tone struct {
	Name      string
	Frequency float64
	Duration  time.Duration
	Waveform  Waveform
	// Volume is the peak amplitude in (0, 1].
	Volume float64
}

var (
	// Confirm is played for a VALID result.
	Confirm = Tone{Name: "confirm", Frequency: 880, Duration: 180 * time.Millisecond, Waveform: Sine, Volume: 0.6}

	// Reject is played for INVALID and ERROR results.
	Reject = Tone{Name: "reject", Frequency: 200, Duration: 120 * time.Millisecond, Waveform: Square, Volume: 0.35}
)

// DefaultSampleRate is used when a non-positive rate is requested.
const DefaultSampleRate = 22050

// fade is the linear attack and release applied to each edge so the
// speaker does not click.
const fade = 5 * time.Millisecond

// Synthesize renders t as a complete WAV file.
func Synthesize(t Tone, sampleRate int) []byte {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	volume := t.Volume
	if volume <= 0 || volume > 1 {
		volume = 1
	}

	count := int(t.Duration.Seconds() * float64(sampleRate))
	fadeSamples := int(fade.Seconds() * float64(sampleRate))
	if fadeSamples*2 > count {
		fadeSamples = count / 2
	}

	samples := make([]int16, count)
	for i := range samples {
		phase := 2 * math.Pi * t.Frequency * float64(i) / float64(sampleRate)
		value := math.Sin(phase)
		if t.Waveform == Square {
			if value >= 0 {
				value = 1
			} else {
				value = -1
			}
		}

		envelope := 1.0
		switch {
		case i < fadeSamples:
			envelope = float64(i) / float64(fadeSamples)
		case i >= count-fadeSamples:
			envelope = float64(count-1-i) / float64(fadeSamples)
		}
		samples[i] = int16(value * envelope * volume * math.MaxInt16)
	}
	return encodeWAV(samples, sampleRate)
}

// encodeWAV writes a canonical 44-byte RIFF header followed by the
// little-endian samples.
func encodeWAV(samples []int16, sampleRate int) []byte {
	const (
		channels      = 1
		bitsPerSample = 16
	)
	dataSize := uint32(len(samples) * bitsPerSample / 8)
	blockAlign := uint16(channels * bitsPerSample / 8)

	var buffer bytes.Buffer
	buffer.Grow(44 + int(dataSize))
	buffer.WriteString("RIFF")
	binary.Write(&buffer, binary.LittleEndian, 36+dataSize)
	buffer.WriteString("WAVE")
	buffer.WriteString("fmt ")
	binary.Write(&buffer, binary.LittleEndian, uint32(16))
	binary.Write(&buffer, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&buffer, binary.LittleEndian, uint16(channels))
	binary.Write(&buffer, binary.LittleEndian, uint32(sampleRate))
	binary.Write(&buffer, binary.LittleEndian, uint32(sampleRate)*uint32(blockAlign))
	binary.Write(&buffer, binary.LittleEndian, blockAlign)
	binary.Write(&buffer, binary.LittleEndian, uint16(bitsPerSample))
	buffer.WriteString("data")
	binary.Write(&buffer, binary.LittleEndian, dataSize)
	binary.Write(&buffer, binary.LittleEndian, samples)
	return buffer.Bytes()
}
