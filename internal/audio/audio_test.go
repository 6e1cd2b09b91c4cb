package audio

import (
	"bytes"
	"testing"
)

func TestScheduleDuration(t *testing.T) {
	s := NewScheduler()

	tests := []struct {
		name string
		clip *Clip
		want int
	}{
		{"nil clip falls back", nil, DefaultFallbackMs},
		{"empty clip falls back", &Clip{SampleRate: 44100}, DefaultFallbackMs},
		{"two seconds plus pad", &Clip{Data: make([]int16, 2*44100), SampleRate: 44100}, 2000 + DefaultPadMs},
		{"half second plus pad", &Clip{Data: make([]int16, 22050), SampleRate: 44100}, 500 + DefaultPadMs},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.ScheduleDuration(tt.clip); got != tt.want {
				t.Errorf("ScheduleDuration = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestMixBusScheduleAt(t *testing.T) {
	bus := NewMixBus()
	if !bus.Empty() {
		t.Fatal("new bus should be empty")
	}

	clip := &Clip{Data: make([]int16, BusSampleRate), SampleRate: BusSampleRate} // 1s
	bus.ScheduleAt(clip, 500)

	if bus.Empty() {
		t.Fatal("bus should have content after scheduling")
	}
	if got := bus.DurationMs(); got != 1500 {
		t.Errorf("bus duration = %dms, want 1500ms", got)
	}
}

func TestMixBusResamples(t *testing.T) {
	bus := NewMixBus()
	clip := &Clip{Data: make([]int16, 22050), SampleRate: 22050} // 1s at half rate
	bus.ScheduleAt(clip, 0)

	if got := bus.DurationMs(); got != 1000 {
		t.Errorf("resampled duration = %dms, want 1000ms", got)
	}
}

func TestMixBusSaturates(t *testing.T) {
	bus := NewMixBus()
	loud := &Clip{Data: []int16{30000, -30000}, SampleRate: BusSampleRate}
	bus.ScheduleAt(loud, 0)
	bus.ScheduleAt(loud, 0)

	track := bus.Render()
	if track.Data[0] != 32767 {
		t.Errorf("positive overflow not clamped: %d", track.Data[0])
	}
	if track.Data[1] != -32768 {
		t.Errorf("negative overflow not clamped: %d", track.Data[1])
	}
}

func TestMixBusPadTo(t *testing.T) {
	bus := NewMixBus()
	bus.ScheduleAt(&Clip{Data: make([]int16, 4410), SampleRate: BusSampleRate}, 0)
	bus.PadTo(2000)

	if got := bus.DurationMs(); got != 2000 {
		t.Errorf("padded duration = %dms, want 2000ms", got)
	}
}

func TestDecodeWAV(t *testing.T) {
	src := &Clip{Data: []int16{0, 1000, -1000, 32767, -32768}, SampleRate: 8000}

	var buf bytes.Buffer
	if err := EncodeWAV(&buf, src); err != nil {
		t.Fatalf("EncodeWAV: %v", err)
	}

	got, err := DecodeWAV(&buf)
	if err != nil {
		t.Fatalf("DecodeWAV: %v", err)
	}
	if got.SampleRate != 8000 {
		t.Errorf("sample rate = %d, want 8000", got.SampleRate)
	}
	if len(got.Data) != len(src.Data) {
		t.Fatalf("sample count = %d, want %d", len(got.Data), len(src.Data))
	}
	for i := range src.Data {
		if got.Data[i] != src.Data[i] {
			t.Errorf("sample %d = %d, want %d", i, got.Data[i], src.Data[i])
		}
	}
}

func TestDecodeWAVRejectsGarbage(t *testing.T) {
	if _, err := DecodeWAV(bytes.NewReader([]byte("definitely not audio"))); err == nil {
		t.Error("expected error for non-WAV input")
	}
}

func TestClipDurationMsRoundsUp(t *testing.T) {
	c := &Clip{Data: make([]int16, 44101), SampleRate: 44100}
	if got := c.DurationMs(); got != 1001 {
		t.Errorf("DurationMs = %d, want 1001", got)
	}
}
