package looper

import "encoding/binary"

// RenderBlocks drives a session without an audio device: input fills
// the next dry block (it may leave dst untouched for silence), pressed
// supplies the footswitch level for the block, and the concatenated
// output is returned. Useful for tests and for bouncing a performance
// to a file.
func RenderBlocks(s *Session, blocks int, input func(block int, dst []float32), pressed func(block int) bool) []float32 {
	size := s.Config().BlockSize
	in := make([]float32, size)
	out := make([]float32, size)
	rendered := make([]float32, 0, blocks*size)
	for b := 0; b < blocks; b++ {
		for i := range in {
			in[i] = 0
		}
		if input != nil {
			input(b, in)
		}
		down := pressed != nil && pressed(b)
		s.ProcessBlock(in, out, down)
		rendered = append(rendered, out...)
	}
	return rendered
}

// EncodeWAVInt16LE encodes samples as a PCM16 little-endian WAV file.
func EncodeWAVInt16LE(samples []float32, sampleRate int, channels int) []byte {
	dataSize := len(samples) * 2
	byteRate := sampleRate * channels * 2
	blockAlign := channels * 2
	chunkSize := 36 + dataSize
	out := make([]byte, 44+dataSize)
	copy(out[0:], []byte("RIFF"))
	binary.LittleEndian.PutUint32(out[4:], uint32(chunkSize))
	copy(out[8:], []byte("WAVE"))
	copy(out[12:], []byte("fmt "))
	binary.LittleEndian.PutUint32(out[16:], 16)
	binary.LittleEndian.PutUint16(out[20:], 1)
	binary.LittleEndian.PutUint16(out[22:], uint16(channels))
	binary.LittleEndian.PutUint32(out[24:], uint32(sampleRate))
	binary.LittleEndian.PutUint32(out[28:], uint32(byteRate))
	binary.LittleEndian.PutUint16(out[32:], uint16(blockAlign))
	binary.LittleEndian.PutUint16(out[34:], 16)
	copy(out[36:], []byte("data"))
	binary.LittleEndian.PutUint32(out[40:], uint32(dataSize))
	for i, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		binary.LittleEndian.PutUint16(out[44+i*2:], uint16(int16(s*32767)))
	}
	return out
}
