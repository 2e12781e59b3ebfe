package images

import (
	"bytes"
	"crypto/md5"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
	"github.com/medigen/catalyst/internal/models"
)

// PreviewWidth is the width of the thumbnails shown next to each upload
const PreviewWidth = 150

var ErrUnsupportedFormat = errors.New("unsupported image format")

var allowedTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
}

var allowedExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
}

// CheckFormat verifies the filename extension and the sniffed content type.
// It returns the MIME type detected from the data.
func CheckFormat(filename string, data []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedExtensions[ext] {
		return "", fmt.Errorf("%w: extension %q", ErrUnsupportedFormat, ext)
	}

	detected := mimetype.Detect(data).String()
	if !allowedTypes[detected] {
		return "", fmt.Errorf("%w: content is %s", ErrUnsupportedFormat, detected)
	}
	return detected, nil
}

// Decode checks the format of img and decodes its pixel data
func Decode(img models.Image) (image.Image, string, error) {
	mimeType, err := CheckFormat(img.Filename, img.Data)
	if err != nil {
		return nil, "", err
	}

	decoded, err := imaging.Decode(bytes.NewReader(img.Data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image: %w", err)
	}
	return decoded, mimeType, nil
}

// Fingerprint returns the MD5 digest of the decoded pixels. Re-encoding the
// same picture with different metadata yields the same fingerprint.
func Fingerprint(img image.Image) string {
	nrgba := imaging.Clone(img)
	bounds := nrgba.Bounds()

	h := md5.New()
	var dims [8]byte
	binary.BigEndian.PutUint32(dims[0:4], uint32(bounds.Dx()))
	binary.BigEndian.PutUint32(dims[4:8], uint32(bounds.Dy()))
	h.Write(dims[:])
	h.Write(nrgba.Pix)

	return hex.EncodeToString(h.Sum(nil))
}

// Preview renders a PNG thumbnail no wider than PreviewWidth
func Preview(img image.Image) ([]byte, error) {
	thumb := img
	if img.Bounds().Dx() > PreviewWidth {
		thumb = imaging.Resize(img, PreviewWidth, 0, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode preview: %w", err)
	}
	return buf.Bytes(), nil
}

// Deduplicate keeps the first image for every distinct fingerprint, in the
// order the batch was given. Duplicates are dropped without notice; images
// that fail to decode are reported and skipped.
func Deduplicate(batch []models.Image) ([]models.Image, []models.ItemError) {
	seen := make(map[string]bool, len(batch))
	unique := make([]models.Image, 0, len(batch))
	var itemErrors []models.ItemError

	for _, img := range batch {
		decoded, mimeType, err := Decode(img)
		if err != nil {
			slog.Warn("Skipping image", "image", img.Filename, "err", err)
			itemErrors = append(itemErrors, models.ItemError{Filename: img.Filename, Err: err.Error()})
			continue
		}

		fp := Fingerprint(decoded)
		if seen[fp] {
			slog.Debug("Dropping duplicate image", "image", img.Filename, "fingerprint", fp)
			continue
		}
		seen[fp] = true

		img.MIMEType = mimeType
		img.Fingerprint = fp
		img.Width = decoded.Bounds().Dx()
		img.Height = decoded.Bounds().Dy()

		preview, err := Preview(decoded)
		if err != nil {
			slog.Warn("Failed to build preview", "image", img.Filename, "err", err)
		} else {
			img.Preview = preview
		}

		unique = append(unique, img)
	}

	return unique, itemErrors
}
