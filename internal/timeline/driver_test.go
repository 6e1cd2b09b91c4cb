package timeline

import (
	"context"
	"image"
	"testing"

	"github.com/ivlev/story2video/internal/audio"
	"github.com/ivlev/story2video/internal/capture"
	"github.com/ivlev/story2video/internal/story"
)

const testFPS = 30

type fakeSink struct {
	bus     *audio.MixBus
	frames  int
	stopped bool
	onFrame func(n int)
}

func newFakeSink() *fakeSink {
	return &fakeSink{bus: audio.NewMixBus()}
}

func (s *fakeSink) WriteFrame(*image.RGBA) error {
	s.frames++
	if s.onFrame != nil {
		s.onFrame(s.frames)
	}
	return nil
}

func (s *fakeSink) Bus() *audio.MixBus { return s.bus }

func (s *fakeSink) Stop(ctx context.Context) (*capture.Blob, error) {
	s.stopped = true
	return &capture.Blob{Data: []byte{1}, MimeType: "video/mp4", Ext: ".mp4"}, nil
}

type fakeRenderer struct{}

func (fakeRenderer) RenderTitle(title, subtitle, shareURL string) *image.RGBA {
	return image.NewRGBA(image.Rect(0, 0, 2, 2))
}

func (fakeRenderer) RenderPage(p *story.Page) *image.RGBA {
	return image.NewRGBA(image.Rect(0, 0, 2, 2))
}

func newDriver(sink Sink) *Driver {
	return &Driver{
		FPS:         testFPS,
		TitleFrames: 90,
		Sched:       audio.NewScheduler(),
		Renderer:    fakeRenderer{},
		Sink:        sink,
	}
}

func secClip(seconds int) *audio.Clip {
	return &audio.Clip{Data: make([]int16, seconds*audio.BusSampleRate), SampleRate: audio.BusSampleRate}
}

func TestFrameCount(t *testing.T) {
	tests := []struct {
		durMs, fps, want int
	}{
		{3000, 30, 90},
		{2800, 30, 84},
		{1000, 30, 30},
		{1001, 30, 31}, // partial frame rounds up
		{33, 30, 1},
		{34, 30, 2},
	}
	for _, tt := range tests {
		if got := FrameCount(tt.durMs, tt.fps); got != tt.want {
			t.Errorf("FrameCount(%d, %d) = %d, want %d", tt.durMs, tt.fps, got, tt.want)
		}
	}
}

func TestSegmentLengthMatchesNarration(t *testing.T) {
	// Narrated page: frames = ceil((D*1000 + pad) / (1000/fps)),
	// independent of illustration presence.
	for _, withArt := range []bool{false, true} {
		sink := newFakeSink()
		d := newDriver(sink)

		p := &story.Page{Index: 0, Caption: "c", Narration: secClip(2)}
		if withArt {
			p.Illustration = image.NewRGBA(image.Rect(0, 0, 4, 4))
		}
		st := &story.Story{Title: "t", Pages: []*story.Page{p}}

		if _, err := d.Run(context.Background(), st); err != nil {
			t.Fatalf("Run: %v", err)
		}

		want := 90 + FrameCount(2000+audio.DefaultPadMs, testFPS)
		if sink.frames != want {
			t.Errorf("withArt=%v: frames = %d, want %d", withArt, sink.frames, want)
		}
	}
}

func TestSilentPageUsesFallbackFloor(t *testing.T) {
	sink := newFakeSink()
	d := newDriver(sink)

	st := &story.Story{Title: "t", Pages: []*story.Page{{Index: 0, Caption: "тихо"}}}
	if _, err := d.Run(context.Background(), st); err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := 90 + FrameCount(audio.DefaultFallbackMs, testFPS)
	if sink.frames != want {
		t.Errorf("frames = %d, want %d", sink.frames, want)
	}
}

func TestMixedStoryWithBarePage(t *testing.T) {
	// Page 2 of 3 has no illustration and no narration: export still
	// succeeds and its segment equals the fallback floor.
	sink := newFakeSink()
	d := newDriver(sink)

	st := &story.Story{Title: "t", Pages: []*story.Page{
		{Index: 0, Caption: "a", Narration: secClip(1), Illustration: image.NewRGBA(image.Rect(0, 0, 4, 4))},
		{Index: 1, Caption: "b"},
		{Index: 2, Caption: "c", Narration: secClip(3)},
	}}

	blob, err := d.Run(context.Background(), st)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if blob == nil {
		t.Fatal("no blob produced")
	}

	want := 90 +
		FrameCount(1000+audio.DefaultPadMs, testFPS) +
		FrameCount(audio.DefaultFallbackMs, testFPS) +
		FrameCount(3000+audio.DefaultPadMs, testFPS)
	if sink.frames != want {
		t.Errorf("total frames = %d, want %d", sink.frames, want)
	}
	if d.Truncated() {
		t.Error("run should not be truncated")
	}
}

func TestNarrationScheduledAtSegmentOffset(t *testing.T) {
	sink := newFakeSink()
	d := newDriver(sink)

	// Page 1 is silent (fallback floor), page 2 carries a one-second clip.
	st := &story.Story{Title: "t", Pages: []*story.Page{
		{Index: 0, Caption: "a"},
		{Index: 1, Caption: "b", Narration: secClip(1)},
	}}

	if _, err := d.Run(context.Background(), st); err != nil {
		t.Fatalf("Run: %v", err)
	}

	// Bus content begins at (90 title + 90 fallback frames) / 30fps = 6s
	// and lasts 1s, so the rendered track is 7s long.
	if got := sink.bus.DurationMs(); got != 7000 {
		t.Errorf("bus duration = %dms, want 7000ms", got)
	}
}

func TestCancellationProducesFinalizedOutput(t *testing.T) {
	sink := newFakeSink()
	ctx, cancel := context.WithCancel(context.Background())

	// Cancel mid page 2 of 5: after the title (90), the full page 1
	// (fallback 90) and 10 frames of page 2.
	sink.onFrame = func(n int) {
		if n == 90+90+10 {
			cancel()
		}
	}

	d := newDriver(sink)
	var pages []*story.Page
	for i := 0; i < 5; i++ {
		pages = append(pages, &story.Page{Index: i, Caption: "x"})
	}
	st := &story.Story{Title: "t", Pages: pages}

	blob, err := d.Run(ctx, st)
	if err != nil {
		t.Fatalf("Run after cancel: %v", err)
	}
	if blob == nil || len(blob.Data) == 0 {
		t.Fatal("cancellation must still produce a finalized blob")
	}
	if !sink.stopped {
		t.Error("sink was not finalized")
	}
	if !d.Truncated() {
		t.Error("run should report truncation")
	}
	if sink.frames != 90+90+10 {
		t.Errorf("frames = %d, want exactly 190 (title + page 1 + partial page 2)", sink.frames)
	}
	if d.State() != StateDone {
		t.Errorf("state = %d, want done", d.State())
	}
}

func TestRunIsDeterministic(t *testing.T) {
	run := func() int {
		sink := newFakeSink()
		d := newDriver(sink)
		st := &story.Story{Title: "t", Pages: []*story.Page{
			{Index: 0, Caption: "a", Narration: secClip(2)},
			{Index: 1, Caption: "b"},
		}}
		if _, err := d.Run(context.Background(), st); err != nil {
			t.Fatalf("Run: %v", err)
		}
		return sink.frames
	}

	if a, b := run(), run(); a != b {
		t.Errorf("two identical runs emitted %d and %d frames", a, b)
	}
}

func TestDriverIsSingleUse(t *testing.T) {
	sink := newFakeSink()
	d := newDriver(sink)
	st := &story.Story{Title: "t", Pages: []*story.Page{{Index: 0, Caption: "a"}}}

	if _, err := d.Run(context.Background(), st); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	if _, err := d.Run(context.Background(), st); err == nil {
		t.Error("second Run on the same driver should fail")
	}
}

func TestProgressReported(t *testing.T) {
	sink := newFakeSink()
	d := newDriver(sink)

	var calls []int
	d.Progress = func(status string, current, total int) {
		if total != 2 {
			t.Errorf("total = %d, want 2", total)
		}
		calls = append(calls, current)
	}

	st := &story.Story{Title: "t", Pages: []*story.Page{
		{Index: 0, Caption: "a"},
		{Index: 1, Caption: "b"},
	}}
	if _, err := d.Run(context.Background(), st); err != nil {
		t.Fatalf("Run: %v", err)
	}

	// Title card + one call per page.
	if len(calls) != 3 || calls[0] != 0 || calls[1] != 0 || calls[2] != 1 {
		t.Errorf("progress calls = %v", calls)
	}
}
