package escpos

import (
	"fmt"
	"image"

	"github.com/skip2/go-qrcode"
)

// qrCode generates a QR code and prints it as a raster bitmap
func (w *writer) qrCode(data string, size, maxDots int) error {
	qr, err := qrcode.New(data, qrcode.Medium)
	if err != nil {
		return fmt.Errorf("failed to generate QR code: %w", err)
	}
	qr.DisableBorder = false
	w.raster(qr.Image(size), maxDots)
	return nil
}

// raster prints an image with GS v 0. Images wider than maxDots are scaled
// down by sampling.
func (w *writer) raster(img image.Image, maxDots int) {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	scale := 1.0
	if width > maxDots {
		scale = float64(width) / float64(maxDots)
		width = maxDots
		height = int(float64(height) / scale)
	}

	// 8 pixels per byte
	widthBytes := (width + 7) / 8

	w.feed(1)
	// GS v 0 m xL xH yL yH d1...dk
	w.buf.Write([]byte{
		GS, 'v', '0', 0,
		byte(widthBytes % 256), byte(widthBytes / 256),
		byte(height % 256), byte(height / 256),
	})

	for y := 0; y < height; y++ {
		for x := 0; x < width; x += 8 {
			var b byte
			for bit := 0; bit < 8; bit++ {
				px := x + bit
				if px >= width {
					break
				}
				srcX := bounds.Min.X + int(float64(px)*scale)
				srcY := bounds.Min.Y + int(float64(y)*scale)
				if isDark(img, srcX, srcY) {
					b |= 1 << uint(7-bit)
				}
			}
			w.buf.WriteByte(b)
		}
	}
	w.feed(1)
}

// isDark reports whether a pixel should be burned. Transparent pixels count
// as white.
func isDark(img image.Image, x, y int) bool {
	r, g, b, a := img.At(x, y).RGBA()
	if a == 0 {
		return false
	}
	// RGBA is alpha-premultiplied, so blending against white adds the
	// missing coverage back to each channel
	blend := func(c uint32) float64 {
		return float64(c+(0xffff-a)) / 0xffff * 255
	}
	// Standard luminance
	gray := 0.299*blend(r) + 0.587*blend(g) + 0.114*blend(b)
	return gray < 128
}
