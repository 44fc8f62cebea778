package camera

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/jpeg"
	_ "image/png"
)

// EmptyDataURL is what a zero-size canvas serializes to.
const EmptyDataURL = "data:,"

const jpegDataURLPrefix = "data:image/jpeg;base64,"

// EncodeDataURL rasterizes a frame to a JPEG data URL at the given quality.
// Missing or undecodable frames produce EmptyDataURL.
func EncodeDataURL(frame Frame, ok bool, quality int) string {
	if !ok || len(frame.Data) == 0 {
		return EmptyDataURL
	}

	img, _, err := image.Decode(bytes.NewReader(frame.Data))
	if err != nil {
		return EmptyDataURL
	}
	bounds := img.Bounds()
	if bounds.Dx() == 0 || bounds.Dy() == 0 {
		return EmptyDataURL
	}

	if quality < 1 || quality > 100 {
		quality = jpeg.DefaultQuality
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return EmptyDataURL
	}
	return jpegDataURLPrefix + base64.StdEncoding.EncodeToString(buf.Bytes())
}
