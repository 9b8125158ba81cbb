package media

import (
	"bytes"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"
)

const jpegQuality = 85

// Normalizer downsizes consumer photos to a bounded longest edge and
// re-encodes them as JPEG so uploads stay small. Payloads that do not
// decode as images pass through untouched.
type Normalizer struct {
	maxEdge int
}

func NewNormalizer(maxEdge int) *Normalizer {
	return &Normalizer{maxEdge: maxEdge}
}

// Normalize returns the payload to upload and the content type to upload
// it with.
func (n *Normalizer) Normalize(data []byte, contentType string) ([]byte, string) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		zap.S().Named("media").Debugw("payload is not a decodable image, uploading verbatim", "error", err)
		return data, contentType
	}

	bounds := img.Bounds()
	if bounds.Dx() <= n.maxEdge && bounds.Dy() <= n.maxEdge {
		// Small enough already, keep the original bytes and format
		return data, contentType
	}

	resized := imaging.Fit(img, n.maxEdge, n.maxEdge, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		zap.S().Named("media").Warnw("failed to re-encode image, uploading verbatim", "error", err)
		return data, contentType
	}
	return buf.Bytes(), "image/jpeg"
}
