package uploader

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/closetmatch/closet-sync/internal/queue"
)

// RemotePathFor returns the deterministic object key for a job. Retries
// of the same job always target the same key, which together with upsert
// uploads makes re-running an attempt safe.
func RemotePathFor(ownerID string, kind queue.Kind, id uuid.UUID, ext string) string {
	return fmt.Sprintf("%s/%s/%s%s", ownerID, kind, id, strings.ToLower(ext))
}

// ContentTypeFor maps a file extension to the content type sent with the
// upload. Unknown extensions fall back to an opaque byte stream.
func ContentTypeFor(ext string) string {
	switch strings.ToLower(ext) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	case ".heic":
		return "image/heic"
	default:
		return "application/octet-stream"
	}
}
