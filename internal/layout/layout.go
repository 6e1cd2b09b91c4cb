// Package layout breaks caption text into lines that fit a maximum pixel
// width. Wrapping is greedy and character-granular rather than word-granular
// so that scripts without inter-word spacing (Korean, Japanese, Chinese)
// wrap without any language detection.
package layout

import (
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

// MeasureFunc reports the advance width of a string in the target raster's
// units.
type MeasureFunc func(s string) fixed.Int26_6

// FaceMeasurer adapts a font.Face into a MeasureFunc.
func FaceMeasurer(face font.Face) MeasureFunc {
	return func(s string) fixed.Int26_6 {
		return font.MeasureString(face, s)
	}
}

// Wrap splits text into lines whose measured width does not exceed maxWidth.
// Runes are accumulated one at a time; the rune that overflows the current
// line starts the next one. A single rune wider than maxWidth is kept on its
// own line: it is never dropped and never split further. An explicit '\n'
// forces a break. The result is deterministic for identical inputs.
func Wrap(text string, maxWidth fixed.Int26_6, measure MeasureFunc) []string {
	var lines []string
	var line []rune

	for _, r := range text {
		if r == '\n' {
			lines = append(lines, string(line))
			line = line[:0]
			continue
		}
		if len(line) > 0 && measure(string(line)+string(r)) > maxWidth {
			lines = append(lines, string(line))
			line = line[:0]
		}
		line = append(line, r)
	}

	if len(line) > 0 || len(lines) == 0 {
		lines = append(lines, string(line))
	}
	return lines
}
