// Package media decides which note resources are images worth saving.
package media

import (
	"strings"

	"notefetch/pkg/notestore"
)

// Accepted image media types and the extension used when a resource
// declares no file name
var imageTypes = map[string]string{
	"image/gif":  ".gif",
	"image/jpeg": ".jpg",
	"image/png":  ".png",
}

// IsImageType reports whether mime is one of the accepted image types.
// Comparison is case-insensitive on the exact literal; "image/jpg",
// wildcards and surrounding whitespace are not accepted.
func IsImageType(mime string) bool {
	if mime == "" {
		return false
	}
	_, ok := imageTypes[strings.ToLower(mime)]
	return ok
}

// Accepts reports whether the resource should be fetched and saved
func Accepts(r notestore.Resource) bool {
	return IsImageType(r.Mime)
}

// Extension returns the file extension for an accepted type, or "" otherwise
func Extension(mime string) string {
	return imageTypes[strings.ToLower(mime)]
}
