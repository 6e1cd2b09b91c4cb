package compositor

import (
	"bytes"
	"image"
	"testing"

	"github.com/ivlev/story2video/internal/format"
	"github.com/ivlev/story2video/internal/story"
)

func newTestCompositor(t *testing.T) *Compositor {
	t.Helper()
	c, err := New(format.Landscape.Geometry())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func snapshot(frame *image.RGBA) []byte {
	out := make([]byte, len(frame.Pix))
	copy(out, frame.Pix)
	return out
}

func TestRenderPageCaptionOnly(t *testing.T) {
	c := newTestCompositor(t)
	frame := c.RenderPage(&story.Page{Caption: "Жил-был тигр."})

	// No illustration: the card region keeps the plain background.
	geo := format.Landscape.Geometry()
	got := frame.RGBAAt(geo.Width/2, geo.CardY+geo.CardSize/2)
	if got != backgroundColor {
		t.Errorf("card region = %v, want background %v", got, backgroundColor)
	}
}

func TestRenderPageWithIllustration(t *testing.T) {
	c := newTestCompositor(t)
	geo := format.Landscape.Geometry()

	ill := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for i := range ill.Pix {
		ill.Pix[i] = 200
	}

	frame := c.RenderPage(&story.Page{Caption: "подпись", Illustration: ill})

	// The card center now shows the illustration, not the background.
	if got := frame.RGBAAt(geo.Width/2, geo.CardY+geo.CardSize/2); got == backgroundColor {
		t.Error("card region still shows background with illustration present")
	}
	// The backdrop outside the card is no longer the flat background either.
	if got := frame.RGBAAt(10, 10); got == backgroundColor {
		t.Error("backdrop corner still shows flat background")
	}
}

func TestRenderPageRepaintsFully(t *testing.T) {
	c := newTestCompositor(t)

	ill := image.NewRGBA(image.Rect(0, 0, 32, 32))
	for i := range ill.Pix {
		ill.Pix[i] = 255
	}
	c.RenderPage(&story.Page{Caption: "первая", Illustration: ill})

	// A later caption-only page must not keep any trace of the previous
	// illustration: each call repaints the whole surface.
	plain := snapshot(c.RenderPage(&story.Page{Caption: "вторая"}))
	again := snapshot(c.RenderPage(&story.Page{Caption: "вторая"}))

	if !bytes.Equal(plain, again) {
		t.Error("identical pages produced different frames")
	}
}

func TestRenderTitle(t *testing.T) {
	c := newTestCompositor(t)
	geo := format.Landscape.Geometry()

	frame := c.RenderTitle("Тигр и хурма", "иллюстрированная история", "")

	// Panel border pixel.
	if got := frame.RGBAAt(geo.Width/10+1, geo.Height/2); got != borderColor && got != cardFillColor {
		t.Errorf("panel edge = %v, want border or fill", got)
	}
	// Outside the panel stays background.
	if got := frame.RGBAAt(2, 2); got != backgroundColor {
		t.Errorf("corner = %v, want background", got)
	}
}

func TestRenderTitleWithQR(t *testing.T) {
	c := newTestCompositor(t)

	plain := snapshot(c.RenderTitle("Сказка", "", ""))
	withQR := snapshot(c.RenderTitle("Сказка", "", "https://example.com/s/1"))

	if bytes.Equal(plain, withQR) {
		t.Error("share URL should add a QR code to the title card")
	}
}

func TestCaptionDrawnWithOutline(t *testing.T) {
	c := newTestCompositor(t)
	geo := format.Landscape.Geometry()
	frame := c.RenderPage(&story.Page{Caption: "W"})

	foundFill := false
	foundEdge := false
	for y := geo.CaptionBaseline - 40; y < geo.CaptionBaseline+12; y++ {
		for x := 0; x < geo.Width; x++ {
			switch frame.RGBAAt(x, y) {
			case textFillColor:
				foundFill = true
			case textEdgeColor:
				foundEdge = true
			}
		}
	}
	if !foundFill {
		t.Error("caption fill pixels not found")
	}
	if !foundEdge {
		t.Error("caption outline pixels not found")
	}
}
