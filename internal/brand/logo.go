package brand

import (
	"bytes"
	"fmt"
	"image/jpeg"
	"image/png"
	"log/slog"
	"net/http"
	"os"
)

// ContentID is the content-ID the report's HTML uses to reference the logo.
const ContentID = "pds_logo"

// Logo is an image ready to embed inline in an email.
type Logo struct {
	Data        []byte
	ContentType string
	Filename    string
}

// LoadLogo reads the brand image at path. A missing, unreadable or
// undecodable file yields nil: the report goes out without a logo.
func LoadLogo(path string) *Logo {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		slog.Debug("brand: logo unavailable", "path", path, "err", err)
		return nil
	}

	contentType := http.DetectContentType(data)
	clean, err := StripMetadata(data, contentType)
	if err != nil {
		slog.Warn("brand: logo ignored", "path", path, "err", err)
		return nil
	}

	filename := ContentID + ".png"
	if contentType == "image/jpeg" {
		filename = ContentID + ".jpg"
	}
	return &Logo{Data: clean, ContentType: contentType, Filename: filename}
}

// StripMetadata re-encodes images to remove EXIF, text chunks and other
// metadata. Only PNG and JPEG are accepted.
func StripMetadata(data []byte, contentType string) ([]byte, error) {
	switch contentType {
	case "image/jpeg":
		return stripJPEG(data)
	case "image/png":
		return stripPNG(data)
	default:
		return nil, fmt.Errorf("unsupported image type %q", contentType)
	}
}

func stripJPEG(data []byte) ([]byte, error) {
	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding jpeg: %w", err)
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 92}); err != nil {
		return nil, fmt.Errorf("encoding jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

func stripPNG(data []byte) ([]byte, error) {
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding png: %w", err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding png: %w", err)
	}
	return buf.Bytes(), nil
}
