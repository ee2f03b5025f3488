package main

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	svg "github.com/ajstarks/svgo"
	"github.com/llgcode/draw2d/draw2dimg"
	"github.com/llgcode/draw2d/draw2dkit"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

var imageCache = make(map[string]*image.RGBA)

//---------------- Drawing Functions ----------------

// drawText draws a string onto an *image.RGBA at (x,y) using the given
// face and color. posY is the top of the text box, not the baseline.
func drawText(img *image.RGBA, text string, posX, posY int, face font.Face, clr color.Color, center bool) (finishX int) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(clr),
		Face: face,
	}

	metrics := face.Metrics()
	x := posX
	if center {
		x = posX - d.MeasureString(text).Round()/2
	}
	y := posY + metrics.Ascent.Round()

	d.Dot = fixed.P(x, y)
	d.DrawString(text)

	return x + d.MeasureString(text).Round()
}

// measureText returns the pixel width of text in the given face.
func measureText(text string, face font.Face) int {
	d := &font.Drawer{Face: face}
	return d.MeasureString(text).Round()
}

func clearFrame(frame *image.RGBA, clr color.RGBA) {
	pix := frame.Pix
	for i := 0; i < len(pix); i += 4 {
		pix[i] = clr.R
		pix[i+1] = clr.G
		pix[i+2] = clr.B
		pix[i+3] = 255
	}
}

func drawRect(img *image.RGBA, x0, y0, width, height int, c color.Color) {
	r, g, b, a := c.RGBA()
	col := color.RGBA{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8), A: uint8(a >> 8)}

	bounds := img.Bounds()
	for x := x0; x < x0+width; x++ {
		for y := y0; y < y0+height; y++ {
			if (image.Point{X: x, Y: y}).In(bounds) {
				img.SetRGBA(x, y, col)
			}
		}
	}
}

// fillCircle paints an anti-aliased filled disc. The caller owns the
// graphic context so a whole cell field shares one rasterizer.
func fillCircle(gc *draw2dimg.GraphicContext, cx, cy, radius float64, clr color.Color) {
	gc.SetFillColor(clr)
	draw2dkit.Circle(gc, cx, cy, radius)
	gc.Fill()
}

// hsvToRGB converts hue [0,360), saturation and value [0,1] to RGBA.
func hsvToRGB(h, s, v float64) color.RGBA {
	h = math.Mod(math.Mod(h, 360)+360, 360)
	c := v * s
	x := c * (1 - math.Abs(math.Mod(h/60, 2)-1))
	m := v - c

	var r, g, b float64
	switch {
	case h < 60:
		r, g, b = c, x, 0
	case h < 120:
		r, g, b = x, c, 0
	case h < 180:
		r, g, b = 0, c, x
	case h < 240:
		r, g, b = 0, x, c
	case h < 300:
		r, g, b = x, 0, c
	default:
		r, g, b = c, 0, x
	}
	return color.RGBA{
		R: uint8((r + m) * 255),
		G: uint8((g + m) * 255),
		B: uint8((b + m) * 255),
		A: 255,
	}
}

// scaleColor multiplies the channels by alpha/255, used for the automaton
// fade so cells appear and vanish smoothly instead of flickering.
func scaleColor(c color.RGBA, alpha uint8) color.RGBA {
	return color.RGBA{
		R: uint8(uint16(c.R) * uint16(alpha) / 255),
		G: uint8(uint16(c.G) * uint16(alpha) / 255),
		B: uint8(uint16(c.B) * uint16(alpha) / 255),
		A: 255,
	}
}

// rotate180 flips the frame for the LandscapeFlipped orientation.
func rotate180(src *image.RGBA) *image.RGBA {
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			dst.SetRGBA(b.Dx()-1-x, b.Dy()-1-y, src.RGBAAt(b.Min.X+x, b.Min.Y+y))
		}
	}
	return dst
}

// copyImageToImageAt alpha-composites img into frame at (x0,y0).
func copyImageToImageAt(frame *image.RGBA, img *image.RGBA, x0, y0 int) error {
	if frame == nil || img == nil {
		return fmt.Errorf("nil image provided")
	}
	if x0 < 0 || y0 < 0 {
		return fmt.Errorf("x, y is negative: %d,%d", x0, y0)
	}

	targetWidth := img.Bounds().Dx()
	targetHeight := img.Bounds().Dy()

	for y := 0; y < targetHeight; y++ {
		for x := 0; x < targetWidth; x++ {
			sample := img.RGBAAt(x, y)
			if sample.A == 0 {
				continue
			}
			if sample.A == 255 {
				frame.SetRGBA(x0+x, y0+y, sample)
				continue
			}
			dst := frame.RGBAAt(x0+x, y0+y)
			a := uint16(sample.A)
			invA := uint16(255 - sample.A)
			frame.SetRGBA(x0+x, y0+y, color.RGBA{
				R: uint8((uint16(sample.R)*a + uint16(dst.R)*invA) / 255),
				G: uint8((uint16(sample.G)*a + uint16(dst.G)*invA) / 255),
				B: uint8((uint16(sample.B)*a + uint16(dst.B)*invA) / 255),
				A: uint8(uint16(sample.A) + (uint16(dst.A)*invA)/255),
			})
		}
	}
	return nil
}

// loadImage decodes a PNG or rasterizes an SVG into an RGBA, cached by
// path so repeated frames don't redecode.
func loadImage(filePath string) (*image.RGBA, int, int, error) {
	if cachedImg, ok := imageCache[filePath]; ok {
		bounds := cachedImg.Bounds()
		return cachedImg, bounds.Dx(), bounds.Dy(), nil
	}

	f, err := os.Open(filePath)
	if err != nil {
		return nil, 0, 0, err
	}
	defer f.Close()

	switch ext := strings.ToLower(filepath.Ext(filePath)); ext {
	case ".png":
		img, err := png.Decode(f)
		if err != nil {
			return nil, 0, 0, err
		}
		bounds := img.Bounds()
		rgba := image.NewRGBA(bounds)
		draw.Draw(rgba, bounds, img, bounds.Min, draw.Src)
		imageCache[filePath] = rgba
		return rgba, bounds.Dx(), bounds.Dy(), nil
	case ".svg":
		rgba, err := rasterizeSVG(f, 0, 0)
		if err != nil {
			return nil, 0, 0, err
		}
		imageCache[filePath] = rgba
		return rgba, rgba.Bounds().Dx(), rgba.Bounds().Dy(), nil
	default:
		return nil, 0, 0, fmt.Errorf("unsupported image format: %s", ext)
	}
}

// rasterizeSVG renders an SVG stream at the requested size (0 = intrinsic
// viewbox size) onto a transparent canvas.
func rasterizeSVG(r io.Reader, targetWidth, targetHeight int) (*image.RGBA, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	icon, err := oksvg.ReadIconStream(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	// A single zero dimension scales with the viewbox aspect ratio; both
	// zero means intrinsic size.
	switch {
	case targetWidth == 0 && targetHeight == 0:
		targetWidth = int(icon.ViewBox.W)
		targetHeight = int(icon.ViewBox.H)
	case targetHeight == 0:
		targetHeight = int(float64(targetWidth) * icon.ViewBox.H / icon.ViewBox.W)
	case targetWidth == 0:
		targetWidth = int(float64(targetHeight) * icon.ViewBox.W / icon.ViewBox.H)
	}

	rgba := image.NewRGBA(image.Rect(0, 0, targetWidth, targetHeight))
	draw.Draw(rgba, rgba.Bounds(), image.NewUniform(color.RGBA{0, 0, 0, 0}), image.Point{}, draw.Src)

	icon.SetTarget(0, 0, float64(targetWidth), float64(targetHeight))
	scanner := rasterx.NewScannerGV(targetWidth, targetHeight, rgba, rgba.Bounds())
	dasher := rasterx.NewDasher(targetWidth, targetHeight, scanner)
	icon.Draw(dasher, 1.0)
	return rgba, nil
}

// drawChargeBolt overlays the charging badge next to the battery text. The
// bolt SVG is generated once into /tmp and rasterized through the normal
// image path, same as the other generated icons.
func drawChargeBolt(frame *image.RGBA, x0, y0 int, clr color.RGBA) {
	fn := fmt.Sprintf("/tmp/glowsign-bolt-%02x%02x%02x.svg", clr.R, clr.G, clr.B)

	if _, err := os.Stat(fn); err != nil {
		var buf bytes.Buffer
		canvas := svg.New(&buf)
		canvas.Start(8, 12)
		fill := fmt.Sprintf("fill:#%02X%02X%02X", clr.R, clr.G, clr.B)
		canvas.Polygon(
			[]int{5, 1, 4, 3, 7, 4},
			[]int{0, 7, 7, 12, 5, 5},
			fill)
		canvas.End()

		if werr := os.WriteFile(fn, buf.Bytes(), 0644); werr != nil {
			return
		}
	}

	img, _, _, err := loadImage(fn)
	if err != nil {
		return
	}
	copyImageToImageAt(frame, img, x0, y0)
}
