package constants

import "strings"

// Source formats accepted by the image normalizer.
const (
	TIFF  = "TIFF"
	IMAGE = "IMAGE"
)

// AllowedExtensions holds the default allowed file extensions for invoice ingestion.
var AllowedExtensions = map[string]struct{}{
	"tiff": {},
	"tif":  {},
	"jpg":  {},
	"jpeg": {},
	"png":  {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// MapExtToFormat maps a (normalized or raw) extension to a source format.
// Returns "" for unsupported extensions.
func MapExtToFormat(ext string) string {
	switch NormalizeExt(ext) {
	case "tiff", "tif":
		return TIFF
	case "jpg", "jpeg", "png":
		return IMAGE
	default:
		return ""
	}
}
