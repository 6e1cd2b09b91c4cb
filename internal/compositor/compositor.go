// Package compositor paints export frames: page frames (backdrop,
// illustration card, caption) and the one-off title card. Every render call
// fully repaints the raster, so a frame is a pure function of the page and
// the format geometry even though the underlying buffer is reused.
package compositor

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/skip2/go-qrcode"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	"github.com/ivlev/story2video/internal/format"
	"github.com/ivlev/story2video/internal/layout"
	"github.com/ivlev/story2video/internal/story"
)

var (
	backgroundColor = color.RGBA{R: 24, G: 26, B: 33, A: 255}
	cardFillColor   = color.RGBA{R: 36, G: 39, B: 48, A: 255}
	borderColor     = color.RGBA{R: 245, G: 243, B: 238, A: 255}
	shadowColor     = color.RGBA{A: 110}
	veilColor       = color.RGBA{A: 120}
	textFillColor   = color.RGBA{R: 250, G: 250, B: 250, A: 255}
	textEdgeColor   = color.RGBA{R: 10, G: 10, B: 14, A: 255}
)

const (
	cardPad      = 10
	shadowOffset = 8
	blurRadius   = 10
	qrSize       = 96
)

type Compositor struct {
	geo     format.Geometry
	caption font.Face
	title   font.Face
	frame   *image.RGBA
}

func New(geo format.Geometry) (*Compositor, error) {
	cf, err := captionFace(geo.CaptionSize)
	if err != nil {
		return nil, err
	}
	tf, err := titleFace(geo.TitleSize)
	if err != nil {
		return nil, err
	}
	return &Compositor{
		geo:     geo,
		caption: cf,
		title:   tf,
		frame:   image.NewRGBA(image.Rect(0, 0, geo.Width, geo.Height)),
	}, nil
}

// Frame returns the shared raster. Valid until the next render call.
func (c *Compositor) Frame() *image.RGBA {
	return c.frame
}

// RenderPage paints one page frame. A page without an illustration gets
// background and caption only; no placeholder is drawn.
func (c *Compositor) RenderPage(p *story.Page) *image.RGBA {
	c.clear()
	if p.Illustration != nil {
		c.paintBackdrop(p.Illustration)
		c.paintCard(p.Illustration)
	}
	c.paintCaption(p.Caption)
	return c.frame
}

// RenderTitle paints the title card: bordered panel, story title, subtitle
// line and, when a share URL is set, a QR code in the panel corner.
func (c *Compositor) RenderTitle(title, subtitle, shareURL string) *image.RGBA {
	c.clear()

	panel := image.Rect(c.geo.Width/10, c.geo.Height/6, c.geo.Width*9/10, c.geo.Height*5/6)
	fillRect(c.frame, panel, borderColor)
	fillRect(c.frame, panel.Inset(4), cardFillColor)

	lines := layout.Wrap(title, fixed.I(c.geo.TitleMaxWidth), layout.FaceMeasurer(c.title))
	baseline := c.geo.Height/2 - (len(lines)-1)*c.geo.TitleLineGap/2
	for i, line := range lines {
		c.drawOutlinedString(c.title, line, baseline+i*c.geo.TitleLineGap)
	}

	if subtitle != "" {
		c.drawOutlinedString(c.caption, subtitle, panel.Max.Y-54)
	}

	if shareURL != "" {
		if q, err := qrcode.New(shareURL, qrcode.Medium); err == nil {
			qr := q.Image(qrSize)
			pos := image.Pt(panel.Max.X-qrSize-24, panel.Max.Y-qrSize-24)
			draw.Draw(c.frame, image.Rectangle{Min: pos, Max: pos.Add(image.Pt(qrSize, qrSize))},
				qr, qr.Bounds().Min, draw.Over)
		}
	}

	return c.frame
}

func (c *Compositor) clear() {
	fillRect(c.frame, c.frame.Bounds(), backgroundColor)
}

// paintBackdrop scales the illustration to cover the whole frame, blurs it
// and dims it so the caption stays legible over busy art.
func (c *Compositor) paintBackdrop(img image.Image) {
	w, h := c.geo.Width, c.geo.Height
	cover := image.NewRGBA(image.Rect(0, 0, w, h))

	sb := img.Bounds()
	scale := math.Max(float64(w)/float64(sb.Dx()), float64(h)/float64(sb.Dy()))
	dw := int(math.Ceil(float64(sb.Dx()) * scale))
	dh := int(math.Ceil(float64(sb.Dy()) * scale))
	dr := image.Rect((w-dw)/2, (h-dh)/2, (w-dw)/2+dw, (h-dh)/2+dh)

	xdraw.ApproxBiLinear.Scale(cover, dr, img, sb, xdraw.Src, nil)

	blurred := boxBlur(cover, blurRadius)
	draw.Draw(c.frame, c.frame.Bounds(), blurred, image.Point{}, draw.Src)
	draw.Draw(c.frame, c.frame.Bounds(), image.NewUniform(veilColor), image.Point{}, draw.Over)
}

// paintCard draws the unblurred illustration centered in a drop-shadowed,
// bordered card at the format's card box.
func (c *Compositor) paintCard(img image.Image) {
	side := c.geo.CardSize
	card := image.Rect((c.geo.Width-side)/2, c.geo.CardY, (c.geo.Width+side)/2, c.geo.CardY+side)

	fillRect(c.frame, card.Add(image.Pt(shadowOffset, shadowOffset)), shadowColor)
	fillRect(c.frame, card, borderColor)

	inner := card.Inset(cardPad)
	sb := img.Bounds()
	scale := math.Min(float64(inner.Dx())/float64(sb.Dx()), float64(inner.Dy())/float64(sb.Dy()))
	dw := int(float64(sb.Dx()) * scale)
	dh := int(float64(sb.Dy()) * scale)
	dr := image.Rect(0, 0, dw, dh).Add(image.Pt(
		inner.Min.X+(inner.Dx()-dw)/2,
		inner.Min.Y+(inner.Dy()-dh)/2,
	))

	fillRect(c.frame, inner, cardFillColor)
	xdraw.CatmullRom.Scale(c.frame, dr, img, sb, xdraw.Src, nil)
}

// paintCaption wraps the caption and stacks the lines downward from the
// format's baseline, each drawn with an outline pass then a fill pass.
func (c *Compositor) paintCaption(text string) {
	if text == "" {
		return
	}
	lines := layout.Wrap(text, fixed.I(c.geo.CaptionMaxWidth), layout.FaceMeasurer(c.caption))
	for i, line := range lines {
		c.drawOutlinedString(c.caption, line, c.geo.CaptionBaseline+i*c.geo.CaptionLineGap)
	}
}

func (c *Compositor) drawOutlinedString(face font.Face, s string, baseline int) {
	if s == "" {
		return
	}
	width := font.MeasureString(face, s).Ceil()
	x := (c.geo.Width - width) / 2

	offsets := [8][2]int{
		{-2, 0}, {2, 0}, {0, -2}, {0, 2},
		{-2, -2}, {2, -2}, {-2, 2}, {2, 2},
	}
	for _, off := range offsets {
		c.drawString(face, s, x+off[0], baseline+off[1], textEdgeColor)
	}
	c.drawString(face, s, x, baseline, textFillColor)
}

func (c *Compositor) drawString(face font.Face, s string, x, baseline int, col color.Color) {
	d := font.Drawer{
		Dst:  c.frame,
		Src:  image.NewUniform(col),
		Face: face,
		Dot:  fixed.P(x, baseline),
	}
	d.DrawString(s)
}

func fillRect(dst *image.RGBA, r image.Rectangle, col color.Color) {
	draw.Draw(dst, r, image.NewUniform(col), image.Point{}, draw.Over)
}
