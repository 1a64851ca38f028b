// internal/eph/simulator/sample.go
package simulator

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"time"
)

// SampleImage renders a small JPEG and its thumbnail for slot n.
func SampleImage(n int, created time.Time) Image {
	return Image{
		Data:      render(n, 320, 240),
		Thumbnail: render(n, 80, 60),
		Created:   created,
	}
}

// SampleImages returns count pictures taken an hour apart, ending at last.
func SampleImages(count int, last time.Time) []Image {
	images := make([]Image, count)
	for i := range images {
		images[i] = SampleImage(i+1, last.Add(-time.Duration(count-1-i)*time.Hour))
	}
	return images
}

func render(n, w, h int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{
				R: uint8(x * 255 / w),
				G: uint8(y * 255 / h),
				B: uint8(n * 37),
				A: 0xff,
			})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 75}); err != nil {
		return nil
	}
	return buf.Bytes()
}
