package compositor

import "image"

// boxBlur runs a separable box blur with a sliding window sum over each
// channel. Two passes (horizontal then vertical) approximate the soft
// backdrop look without a convolution kernel per pixel.
func boxBlur(src *image.RGBA, radius int) *image.RGBA {
	if radius < 1 {
		return src
	}
	horizontal := blurPass(src, radius, true)
	return blurPass(horizontal, radius, false)
}

func blurPass(src *image.RGBA, radius int, horizontal bool) *image.RGBA {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	dst := image.NewRGBA(bounds)

	outer, inner := h, w
	if !horizontal {
		outer, inner = w, h
	}

	window := 2*radius + 1

	for o := 0; o < outer; o++ {
		var sumR, sumG, sumB, sumA int

		at := func(i int) int {
			if i < 0 {
				i = 0
			}
			if i >= inner {
				i = inner - 1
			}
			if horizontal {
				return src.PixOffset(bounds.Min.X+i, bounds.Min.Y+o)
			}
			return src.PixOffset(bounds.Min.X+o, bounds.Min.Y+i)
		}

		for i := -radius; i <= radius; i++ {
			off := at(i)
			sumR += int(src.Pix[off])
			sumG += int(src.Pix[off+1])
			sumB += int(src.Pix[off+2])
			sumA += int(src.Pix[off+3])
		}

		for i := 0; i < inner; i++ {
			var dstOff int
			if horizontal {
				dstOff = dst.PixOffset(bounds.Min.X+i, bounds.Min.Y+o)
			} else {
				dstOff = dst.PixOffset(bounds.Min.X+o, bounds.Min.Y+i)
			}
			dst.Pix[dstOff] = uint8(sumR / window)
			dst.Pix[dstOff+1] = uint8(sumG / window)
			dst.Pix[dstOff+2] = uint8(sumB / window)
			dst.Pix[dstOff+3] = uint8(sumA / window)

			oldOff := at(i - radius)
			newOff := at(i + radius + 1)
			sumR += int(src.Pix[newOff]) - int(src.Pix[oldOff])
			sumG += int(src.Pix[newOff+1]) - int(src.Pix[oldOff+1])
			sumB += int(src.Pix[newOff+2]) - int(src.Pix[oldOff+2])
			sumA += int(src.Pix[newOff+3]) - int(src.Pix[oldOff+3])
		}
	}

	return dst
}
