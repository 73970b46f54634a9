package inference

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"net/http"
	"os"
)

// EncodeJPEG encodes img as a JPEG attachment.
func EncodeJPEG(img image.Image) (Image, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85}); err != nil {
		return Image{}, err
	}
	return Image{MIMEType: "image/jpeg", Data: buf.Bytes()}, nil
}

// LoadImage reads an image file as an attachment. The MIME type is
// sniffed from the content.
func LoadImage(path string) (Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Image{}, fmt.Errorf("read image: %w", err)
	}
	if len(data) == 0 {
		return Image{}, fmt.Errorf("read image: %s is empty", path)
	}
	mime := http.DetectContentType(data)
	if !bytes.HasPrefix([]byte(mime), []byte("image/")) {
		return Image{}, fmt.Errorf("read image: %s is %s, not an image", path, mime)
	}
	return Image{MIMEType: mime, Data: data}, nil
}
