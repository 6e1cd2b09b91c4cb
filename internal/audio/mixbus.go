package audio

// MixBus is the single audio sink for one export run. Narration clips are
// scheduled at millisecond offsets, mixed with saturating addition, and the
// accumulated track is rendered once when the capture session finalizes.
// The bus is owned exclusively by the in-flight timeline driver.
type MixBus struct {
	rate    int
	samples []int32
}

func NewMixBus() *MixBus {
	return &MixBus{rate: BusSampleRate}
}

func (b *MixBus) SampleRate() int {
	return b.rate
}

func (b *MixBus) Empty() bool {
	return len(b.samples) == 0
}

func (b *MixBus) DurationMs() int {
	return (len(b.samples)*1000 + b.rate - 1) / b.rate
}

// ScheduleAt mixes a clip into the bus starting at offsetMs. Clips at a
// different sample rate are resampled linearly. A nil or empty clip is a
// no-op.
func (b *MixBus) ScheduleAt(c *Clip, offsetMs int) {
	if c == nil || len(c.Data) == 0 || c.SampleRate <= 0 {
		return
	}

	start := offsetMs * b.rate / 1000
	outLen := len(c.Data) * b.rate / c.SampleRate
	if outLen == 0 {
		outLen = 1
	}

	if need := start + outLen; need > len(b.samples) {
		grown := make([]int32, need)
		copy(grown, b.samples)
		b.samples = grown
	}

	step := float64(c.SampleRate) / float64(b.rate)
	for i := 0; i < outLen; i++ {
		pos := float64(i) * step
		j := int(pos)
		if j >= len(c.Data) {
			j = len(c.Data) - 1
		}
		s := float64(c.Data[j])
		if frac := pos - float64(j); frac > 0 && j+1 < len(c.Data) {
			s = s*(1-frac) + float64(c.Data[j+1])*frac
		}
		b.samples[start+i] += int32(s)
	}
}

// Render clamps the accumulated track to 16-bit PCM.
func (b *MixBus) Render() *Clip {
	out := make([]int16, len(b.samples))
	for i, s := range b.samples {
		switch {
		case s > 32767:
			out[i] = 32767
		case s < -32768:
			out[i] = -32768
		default:
			out[i] = int16(s)
		}
	}
	return &Clip{Data: out, SampleRate: b.rate}
}

// PadTo extends the track with silence up to totalMs so the audio stream
// covers the full video duration.
func (b *MixBus) PadTo(totalMs int) {
	need := totalMs * b.rate / 1000
	if need > len(b.samples) {
		grown := make([]int32, need)
		copy(grown, b.samples)
		b.samples = grown
	}
}
