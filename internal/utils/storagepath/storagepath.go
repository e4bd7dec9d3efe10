// Package storagepath builds object keys and converts between stored public
// URLs and bucket-relative object paths.
package storagepath

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const DefaultBucket = "podcasts"

const publicMarker = "storage/v1/object/public/"

// Layout describes where a bucket's objects are publicly reachable.
type Layout struct {
	// PublicBase is the URL objects are served under, without a trailing slash,
	// e.g. https://xyz.supabase.co/storage/v1/object/public/podcasts.
	PublicBase string
	Bucket     string
}

// SupabaseLayout returns the layout of a Supabase Storage public bucket.
func SupabaseLayout(projectURL, bucket string) Layout {
	return Layout{
		PublicBase: strings.TrimRight(projectURL, "/") + "/" + publicMarker + bucket,
		Bucket:     bucket,
	}
}

// PublicURL returns the public URL of path.
func (l Layout) PublicURL(path string) string {
	return l.PublicBase + "/" + strings.TrimLeft(path, "/")
}

// ObjectPath reduces a stored URL to its path inside the bucket. Values that
// are not recognised public URLs are returned unchanged.
func (l Layout) ObjectPath(stored string) string {
	marker := publicMarker + l.Bucket + "/"
	if i := strings.Index(stored, marker); i >= 0 {
		return stripQuery(stored[i+len(marker):])
	}
	if l.PublicBase != "" && strings.HasPrefix(stored, l.PublicBase+"/") {
		return stripQuery(strings.TrimPrefix(stored, l.PublicBase+"/"))
	}
	return stored
}

func stripQuery(p string) string {
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		return p[:i]
	}
	return p
}

// CoverPath returns <user>/covers/<millis>-<random>.png.
func CoverPath(userID uuid.UUID, now time.Time) string {
	return fmt.Sprintf("%s/covers/%d-%s.png", userID, now.UnixMilli(), randomSuffix())
}

// AudioPath returns <user>/<millis>-podcast-audio.mp3.
func AudioPath(userID uuid.UUID, now time.Time) string {
	return fmt.Sprintf("%s/%d-podcast-audio.mp3", userID, now.UnixMilli())
}

func randomSuffix() string {
	b := make([]byte, 5)
	if _, err := rand.Read(b); err != nil {
		return uuid.NewString()[:10]
	}
	return hex.EncodeToString(b)
}
