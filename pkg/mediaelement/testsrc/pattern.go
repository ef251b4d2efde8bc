package testsrc

import (
	"image"
	"image/color"
)

const barWidth = 16

// DrawPattern renders frame idx: a static gradient with a white bar that
// moves right by barWidth/2 pixels per frame.
func DrawPattern(width, height int, idx int64) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	barX := int((idx * barWidth / 2) % int64(max(width, 1)))
	blue := uint8(idx % 256)
	for y := 0; y < height; y++ {
		g := uint8(y * 255 / max(height-1, 1))
		row := img.Pix[y*img.Stride:]
		for x := 0; x < width; x++ {
			c := color.NRGBA{
				R: uint8(x * 255 / max(width-1, 1)),
				G: g,
				B: blue,
				A: 0xff,
			}
			if x >= barX && x < barX+barWidth {
				c = color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
			}
			row[x*4+0], row[x*4+1], row[x*4+2], row[x*4+3] = c.R, c.G, c.B, c.A
		}
	}
	return img
}
