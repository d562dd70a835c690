package services

import (
	"path"
	"strings"
	"unicode"
	"unicode/utf8"
)

// imageExtensions maps the whitelisted provider MIME types to object-store extensions
var imageExtensions = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/webp": "webp",
	"image/gif":  "gif",
	"image/heic": "heic",
	"image/heif": "heif",
}

// ImageMimeTypes returns the MIME types the sync job enumerates, in a stable order
func ImageMimeTypes() []string {
	return []string{"image/jpeg", "image/png", "image/webp", "image/gif", "image/heic", "image/heif"}
}

// Slugify lowercases name and joins its alphanumeric runs with single hyphens:
// "Kitchen Remodeling" -> "kitchen-remodeling".
func Slugify(name string) string {
	var b strings.Builder
	pendingHyphen := false
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
			continue
		}
		pendingHyphen = true
	}
	return b.String()
}

// TitleFromFilename derives a display title: "before_after_01.jpg" -> "Before After 01"
func TitleFromFilename(filename string) string {
	base := strings.TrimSuffix(filename, path.Ext(filename))
	words := strings.FieldsFunc(base, func(r rune) bool {
		return r == '_' || r == '-' || r == '.' || unicode.IsSpace(r)
	})
	for i, w := range words {
		first, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(first)) + w[size:]
	}
	return strings.Join(words, " ")
}

// ExtensionForMimeType returns the object-store extension for a MIME type,
// falling back to the filename's own extension and then to "jpg".
func ExtensionForMimeType(mimeType, filename string) string {
	if ext, ok := imageExtensions[strings.ToLower(mimeType)]; ok {
		return ext
	}
	if ext := strings.TrimPrefix(strings.ToLower(path.Ext(filename)), "."); ext != "" {
		return ext
	}
	return "jpg"
}

// ObjectPath is where a file is stored: {slug}/{driveFileID}.{ext}
func ObjectPath(categorySlug, driveFileID, mimeType, filename string) string {
	return categorySlug + "/" + driveFileID + "." + ExtensionForMimeType(mimeType, filename)
}
