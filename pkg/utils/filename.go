package utils

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var allowedExtensions = map[string]struct{}{
	"jpg":  {},
	"jpeg": {},
	"png":  {},
	"gif":  {},
}

// AllowedFile reports whether filename carries one of the accepted image
// extensions. The extension is everything after the first dot, so
// "a.b.png" is judged by "b.png" and rejected.
func AllowedFile(filename string) bool {
	_, ext, found := strings.Cut(filename, ".")
	if !found {
		return false
	}
	_, ok := allowedExtensions[strings.ToLower(ext)]
	return ok
}

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// SecureFilename reduces a client supplied name to a flat ASCII file name
// that is safe to join onto the upload directory. The result may be empty.
func SecureFilename(name string) string {
	name = norm.NFKD.String(name)

	var b strings.Builder
	for _, r := range name {
		if r < 0x80 {
			b.WriteRune(r)
		}
	}
	name = b.String()

	name = strings.NewReplacer("/", " ", `\`, " ").Replace(name)
	name = strings.Join(strings.Fields(name), "_")
	name = unsafeFilenameChars.ReplaceAllString(name, "")

	return strings.Trim(name, "._")
}
