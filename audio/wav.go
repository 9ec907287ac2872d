// Package audio has the few container helpers the adapters share.
package audio

import (
	"bytes"
	"encoding/binary"
)

// PCM16 describes 16-bit little endian PCM.
type PCM16 struct {
	SampleRate int
	Channels   int
}

// WAVSampleRate walks the RIFF chunks of b until it finds "fmt " and
// returns its sample rate.
func WAVSampleRate(b []byte) (int, bool) {
	if len(b) < 12 || !bytes.Equal(b[0:4], []byte("RIFF")) || !bytes.Equal(b[8:12], []byte("WAVE")) {
		return 0, false
	}
	for off := 12; off+8 <= len(b); {
		id := b[off : off+4]
		size := int(binary.LittleEndian.Uint32(b[off+4 : off+8]))
		body := off + 8
		if bytes.Equal(id, []byte("fmt ")) {
			if size < 16 || body+16 > len(b) {
				return 0, false
			}
			return int(binary.LittleEndian.Uint32(b[body+4 : body+8])), true
		}
		// chunks are word aligned
		off = body + size + size%2
	}
	return 0, false
}

// WAV wraps raw PCM samples in a 44-byte RIFF header.
func (f PCM16) WAV(pcm []byte) []byte {
	channels := f.Channels
	if channels <= 0 {
		channels = 1
	}
	const bitsPerSample = 16
	blockAlign := channels * bitsPerSample / 8

	out := make([]byte, 44, 44+len(pcm))
	copy(out[0:4], "RIFF")
	binary.LittleEndian.PutUint32(out[4:8], uint32(36+len(pcm)))
	copy(out[8:12], "WAVE")
	copy(out[12:16], "fmt ")
	binary.LittleEndian.PutUint32(out[16:20], 16)
	binary.LittleEndian.PutUint16(out[20:22], 1)
	binary.LittleEndian.PutUint16(out[22:24], uint16(channels))
	binary.LittleEndian.PutUint32(out[24:28], uint32(f.SampleRate))
	binary.LittleEndian.PutUint32(out[28:32], uint32(f.SampleRate*blockAlign))
	binary.LittleEndian.PutUint16(out[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(out[34:36], bitsPerSample)
	copy(out[36:40], "data")
	binary.LittleEndian.PutUint32(out[40:44], uint32(len(pcm)))
	return append(out, pcm...)
}
