// Package format defines the two export formats and the layout geometry
// derived from each of them. Geometry is fixed for the whole export run.
package format

import "fmt"

type Format int

const (
	Landscape Format = iota
	Portrait
)

// Parse maps CLI presets to a Format.
func Parse(s string) (Format, error) {
	switch s {
	case "", "16:9", "landscape":
		return Landscape, nil
	case "9:16", "portrait":
		return Portrait, nil
	}
	return Landscape, fmt.Errorf("неизвестный пресет формата: %q (доступны 16:9, 9:16)", s)
}

func (f Format) String() string {
	if f == Portrait {
		return "portrait"
	}
	return "landscape"
}

// Geometry is the raster size plus every format-dependent placement the
// frame compositor needs: illustration card box, caption line width and
// baseline, title box.
type Geometry struct {
	Width  int
	Height int

	// Illustration card (the unblurred copy), centered horizontally.
	CardSize int
	CardY    int

	// Caption block.
	CaptionMaxWidth int
	CaptionBaseline int
	CaptionSize     float64
	CaptionLineGap  int

	// Title card.
	TitleMaxWidth int
	TitleSize     float64
	TitleLineGap  int
}

func (f Format) Geometry() Geometry {
	switch f {
	case Portrait:
		return Geometry{
			Width:           720,
			Height:          1280,
			CardSize:        560,
			CardY:           180,
			CaptionMaxWidth: 600,
			CaptionBaseline: 880,
			CaptionSize:     34,
			CaptionLineGap:  46,
			TitleMaxWidth:   560,
			TitleSize:       52,
			TitleLineGap:    66,
		}
	default:
		return Geometry{
			Width:           1280,
			Height:          720,
			CardSize:        420,
			CardY:           60,
			CaptionMaxWidth: 1080,
			CaptionBaseline: 560,
			CaptionSize:     32,
			CaptionLineGap:  44,
			TitleMaxWidth:   960,
			TitleSize:       56,
			TitleLineGap:    72,
		}
	}
}
