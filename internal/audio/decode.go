package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/hajimehoshi/go-mp3"
)

// Output format of the audio device: signed 16-bit little-endian stereo.
const (
	ChannelCount   = 2
	BytesPerSample = 2
	frameSize      = ChannelCount * BytesPerSample
)

// DefaultSampleRate matches the 24kHz speech the TTS endpoint returns.
const DefaultSampleRate = 24000

// Format identifies an encoded audio payload.
type Format int

const (
	FormatUnknown Format = iota
	FormatWAV
	FormatMP3
)

// String returns the format name.
func (f Format) String() string {
	switch f {
	case FormatWAV:
		return "wav"
	case FormatMP3:
		return "mp3"
	default:
		return "unknown"
	}
}

// Sniff guesses the format from the leading bytes.
func Sniff(data []byte) Format {
	switch {
	case len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WAVE":
		return FormatWAV
	case len(data) >= 3 && string(data[0:3]) == "ID3":
		return FormatMP3
	case len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0:
		return FormatMP3
	default:
		return FormatUnknown
	}
}

// DecodePCM converts a WAV or MP3 payload into 16-bit stereo PCM at the
// given sample rate.
func DecodePCM(data []byte, sampleRate int) ([]byte, error) {
	switch Sniff(data) {
	case FormatWAV:
		w, err := parseWAV(data)
		if err != nil {
			return nil, err
		}
		if w.bits != 16 {
			return nil, fmt.Errorf("audio: unsupported wav bit depth %d", w.bits)
		}
		pcm := w.pcm
		switch w.channels {
		case 1:
			pcm = monoToStereo(pcm)
		case 2:
		default:
			return nil, fmt.Errorf("audio: unsupported wav channel count %d", w.channels)
		}
		return resample(pcm, w.sampleRate, sampleRate), nil

	case FormatMP3:
		dec, err := mp3.NewDecoder(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("audio: mp3 decoder: %w", err)
		}
		pcm, err := io.ReadAll(dec)
		if err != nil {
			return nil, fmt.Errorf("audio: mp3 decode: %w", err)
		}
		return resample(pcm, dec.SampleRate(), sampleRate), nil

	default:
		return nil, errors.New("audio: unrecognised audio format")
	}
}

type wavInfo struct {
	channels   int
	sampleRate int
	bits       int
	pcm        []byte
}

// parseWAV walks the RIFF chunks for "fmt " and "data".
func parseWAV(wav []byte) (wavInfo, error) {
	var info wavInfo
	if len(wav) < 44 {
		return info, errors.New("audio: wav data too short")
	}

	haveFmt := false
	pos := 12
	for pos+8 <= len(wav) {
		chunkID := string(wav[pos : pos+4])
		chunkSize := int(binary.LittleEndian.Uint32(wav[pos+4 : pos+8]))
		start := pos + 8

		switch chunkID {
		case "fmt ":
			if chunkSize < 16 || start+16 > len(wav) {
				return info, errors.New("audio: truncated wav fmt chunk")
			}
			info.channels = int(binary.LittleEndian.Uint16(wav[start+2:]))
			info.sampleRate = int(binary.LittleEndian.Uint32(wav[start+4:]))
			info.bits = int(binary.LittleEndian.Uint16(wav[start+14:]))
			haveFmt = true
		case "data":
			if !haveFmt {
				return info, errors.New("audio: wav data chunk before fmt chunk")
			}
			end := start + chunkSize
			if end > len(wav) {
				end = len(wav)
			}
			info.pcm = wav[start:end]
			return info, nil
		}

		pos = start + chunkSize
		// Chunks are word-aligned.
		if chunkSize%2 != 0 {
			pos++
		}
	}

	return info, errors.New("audio: data chunk not found in wav")
}

func monoToStereo(pcm []byte) []byte {
	n := len(pcm) / BytesPerSample
	out := make([]byte, n*frameSize)
	for i := 0; i < n; i++ {
		s := pcm[i*2 : i*2+2]
		copy(out[i*4:], s)
		copy(out[i*4+2:], s)
	}
	return out
}

// resample converts stereo frames between rates by nearest-frame picking.
// Good enough for speech; identical rates are returned untouched.
func resample(pcm []byte, from, to int) []byte {
	if from == to || from <= 0 || to <= 0 {
		return pcm
	}
	inFrames := len(pcm) / frameSize
	outFrames := int(int64(inFrames) * int64(to) / int64(from))
	out := make([]byte, outFrames*frameSize)
	for i := 0; i < outFrames; i++ {
		src := int(int64(i) * int64(from) / int64(to))
		copy(out[i*frameSize:(i+1)*frameSize], pcm[src*frameSize:(src+1)*frameSize])
	}
	return out
}
