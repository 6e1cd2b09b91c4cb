package audio

import (
	"encoding/binary"
	"fmt"
	"io"
)

// DecodeWAV reads a RIFF/WAVE stream with 8- or 16-bit PCM samples and
// returns a mono clip. Multi-channel input is downmixed by averaging.
func DecodeWAV(r io.Reader) (*Clip, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, fmt.Errorf("не RIFF/WAVE поток")
	}

	var (
		channels   int
		sampleRate int
		bits       int
		payload    []byte
	)

	pos := 12
	for pos+8 <= len(data) {
		id := string(data[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(data[pos+4 : pos+8]))
		pos += 8
		if pos+size > len(data) {
			size = len(data) - pos
		}
		chunk := data[pos : pos+size]

		switch id {
		case "fmt ":
			if size < 16 {
				return nil, fmt.Errorf("усечённый fmt-чанк")
			}
			audioFormat := binary.LittleEndian.Uint16(chunk[0:2])
			if audioFormat != 1 {
				return nil, fmt.Errorf("поддерживается только PCM, формат %d", audioFormat)
			}
			channels = int(binary.LittleEndian.Uint16(chunk[2:4]))
			sampleRate = int(binary.LittleEndian.Uint32(chunk[4:8]))
			bits = int(binary.LittleEndian.Uint16(chunk[14:16]))
		case "data":
			payload = chunk
		}

		// Chunks are word-aligned.
		pos += size + size%2
	}

	if sampleRate == 0 || channels == 0 {
		return nil, fmt.Errorf("fmt-чанк не найден")
	}
	if payload == nil {
		return nil, fmt.Errorf("data-чанк не найден")
	}
	if bits != 8 && bits != 16 {
		return nil, fmt.Errorf("поддерживаются 8/16 бит, получено %d", bits)
	}

	bytesPerSample := bits / 8
	frameSize := bytesPerSample * channels
	frames := len(payload) / frameSize

	out := make([]int16, frames)
	for f := 0; f < frames; f++ {
		var sum int
		for ch := 0; ch < channels; ch++ {
			off := f*frameSize + ch*bytesPerSample
			var s int
			if bits == 16 {
				s = int(int16(binary.LittleEndian.Uint16(payload[off : off+2])))
			} else {
				s = (int(payload[off]) - 128) << 8
			}
			sum += s
		}
		out[f] = int16(sum / channels)
	}

	return &Clip{Data: out, SampleRate: sampleRate}, nil
}

// EncodeWAV writes a clip as a 16-bit mono PCM WAVE stream.
func EncodeWAV(w io.Writer, c *Clip) error {
	dataLen := len(c.Data) * 2

	var header [44]byte
	copy(header[0:4], "RIFF")
	binary.LittleEndian.PutUint32(header[4:8], uint32(36+dataLen))
	copy(header[8:12], "WAVE")
	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], 16)
	binary.LittleEndian.PutUint16(header[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(header[22:24], 1) // mono
	binary.LittleEndian.PutUint32(header[24:28], uint32(c.SampleRate))
	binary.LittleEndian.PutUint32(header[28:32], uint32(c.SampleRate*2))
	binary.LittleEndian.PutUint16(header[32:34], 2)
	binary.LittleEndian.PutUint16(header[34:36], 16)
	copy(header[36:40], "data")
	binary.LittleEndian.PutUint32(header[40:44], uint32(dataLen))

	if _, err := w.Write(header[:]); err != nil {
		return err
	}

	buf := make([]byte, dataLen)
	for i, s := range c.Data {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(s))
	}
	_, err := w.Write(buf)
	return err
}
