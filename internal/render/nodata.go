package render

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/png"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// NoDataMessage is drawn on charts whose selection matched no rows
const NoDataMessage = "No data for this selection"

// Placeholder renders a blank chart-sized PNG with a title and a centred message
func (r *Renderer) Placeholder(title, message string) ([]byte, error) {
	img := blank(r.Width, r.Height)

	face := basicfont.Face7x13
	ink := image.NewUniform(color.RGBA{R: 0x33, G: 0x33, B: 0x33, A: 255})
	muted := image.NewUniform(color.RGBA{R: 0x88, G: 0x88, B: 0x88, A: 255})

	dr := &font.Drawer{Dst: img, Src: ink, Face: face}
	if title != "" {
		tw := dr.MeasureString(title).Ceil()
		dr.Dot = fixed.P((r.Width-tw)/2, 24)
		dr.DrawString(title)
	}

	dr.Src = muted
	mw := dr.MeasureString(message).Ceil()
	dr.Dot = fixed.P((r.Width-mw)/2, r.Height/2)
	dr.DrawString(message)

	// frame where the canvas would be
	frame := color.RGBA{R: 0xe5, G: 0xe5, B: 0xe5, A: 255}
	for x := 20; x < r.Width-20; x++ {
		img.SetRGBA(x, 40, frame)
		img.SetRGBA(x, r.Height-20, frame)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func blank(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	return img
}
