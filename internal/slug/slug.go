// Package slug turns preset names into file-name-safe slugs for exports.
package slug

import (
	"regexp"
	"strings"
	"unicode"
)

// MaxLength caps a slug so download names stay readable.
const MaxLength = 80

var (
	// separators matches any run of whitespace, hyphens or underscores.
	separators = regexp.MustCompile(`[\s_-]+`)
	// unsafe matches anything left that isn't a lowercase letter, digit or hyphen.
	unsafe = regexp.MustCompile(`[^a-z0-9-]`)
)

// folds maps common accented Latin letters to their ASCII base so
// "Galle Fort Café" becomes "galle-fort-cafe" rather than "galle-fort-caf".
var folds = map[rune]string{
	'à': "a", 'á': "a", 'â': "a", 'ã': "a", 'ä': "a", 'å': "a", 'æ': "ae",
	'ç': "c", 'è': "e", 'é': "e", 'ê': "e", 'ë': "e",
	'ì': "i", 'í': "i", 'î': "i", 'ï': "i", 'ñ': "n",
	'ò': "o", 'ó': "o", 'ô': "o", 'õ': "o", 'ö': "o", 'ø': "o",
	'ù': "u", 'ú': "u", 'û': "u", 'ü': "u", 'ý': "y", 'ÿ': "y", 'ß': "ss",
}

// Generate creates a lowercase, hyphen-separated slug from s.
// Example: "Kandy & Ella, 2026!" → "kandy-ella-2026"
func Generate(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if f, ok := folds[r]; ok {
			b.WriteString(f)
			continue
		}
		if unicode.IsPunct(r) && r != '-' && r != '_' {
			continue
		}
		b.WriteRune(r)
	}

	result := separators.ReplaceAllString(b.String(), "-")
	result = unsafe.ReplaceAllString(result, "")
	result = separators.ReplaceAllString(result, "-")
	result = strings.Trim(result, "-")

	if len(result) > MaxLength {
		result = strings.TrimRight(result[:MaxLength], "-")
	}
	return result
}

// Filename builds a download file name from name and ext, using fallback
// when name has no usable characters.
func Filename(name, fallback, ext string) string {
	base := Generate(name)
	if base == "" {
		base = fallback
	}
	return base + ext
}
