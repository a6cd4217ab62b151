// Package normalize provides utilities for normalizing and sanitizing catalog data.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// iso639_2to1 maps common ISO 639-2 (3-letter) codes to ISO 639-1 (2-letter) codes.
// Book metadata sources are wildly inconsistent about which form they send.
//
//nolint:gochecknoglobals // Static lookup table for language normalization
var iso639_2to1 = map[string]string{
	"eng": "en", "spa": "es", "fra": "fr", "deu": "de", "ita": "it",
	"por": "pt", "nld": "nl", "rus": "ru", "jpn": "ja", "zho": "zh",
	"kor": "ko", "ara": "ar", "pol": "pl", "swe": "sv", "nor": "no",
	"dan": "da", "fin": "fi", "tur": "tr", "ces": "cs", "ukr": "uk",
	// Bibliographic variants
	"ger": "de", "fre": "fr", "dut": "nl", "chi": "zh", "cze": "cs",
}

// languageNameToCode maps common language names to ISO 639-1 codes.
//
//nolint:gochecknoglobals // Static lookup table for language normalization
var languageNameToCode = map[string]string{
	"english": "en", "spanish": "es", "french": "fr", "german": "de",
	"italian": "it", "portuguese": "pt", "dutch": "nl", "russian": "ru",
	"japanese": "ja", "chinese": "zh", "korean": "ko", "arabic": "ar",
	"polish": "pl", "swedish": "sv", "norwegian": "no", "danish": "da",
	"finnish": "fi", "turkish": "tr", "czech": "cs", "ukrainian": "uk",
}

// LanguageCode normalizes a language string to an ISO 639-1 code.
// Accepts 2-letter codes (passthrough), 3-letter codes, and English names.
// Unrecognized input is returned lowercased and trimmed as-is.
func LanguageCode(lang string) string {
	l := strings.ToLower(strings.TrimSpace(lang))
	if l == "" {
		return ""
	}
	if len(l) == 2 {
		return l
	}
	if code, ok := iso639_2to1[l]; ok {
		return code
	}
	if code, ok := languageNameToCode[l]; ok {
		return code
	}
	return l
}

// stripMarks removes combining marks after NFD decomposition, turning
// "Brontë" into "Bronte". Used by Slug so accented tag names round-trip
// to stable ASCII slugs.
//
//nolint:gochecknoglobals // Reusable transformer chain
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Slug converts a display name into its canonical slug form:
// lowercase, diacritics stripped, runs of non-alphanumerics collapsed
// to single hyphens. "Science Fiction" → "science-fiction".
func Slug(name string) string {
	folded, _, err := transform.String(stripMarks, name)
	if err != nil {
		// Transform only fails on invalid UTF-8; fall back to the raw input.
		folded = name
	}

	var b strings.Builder
	b.Grow(len(folded))
	lastHyphen := true // suppress leading hyphen
	for _, r := range strings.ToLower(folded) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}

	return strings.TrimSuffix(b.String(), "-")
}

// ISBN strips hyphens and spaces from an ISBN and uppercases any check digit.
func ISBN(isbn string) string {
	var b strings.Builder
	b.Grow(len(isbn))
	for _, r := range isbn {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == 'x' || r == 'X':
			b.WriteByte('X')
		}
	}
	return b.String()
}
