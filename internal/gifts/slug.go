package gifts

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	imageSize       = 512
	linkNameMaxRune = 20
)

var (
	// The whole possessive goes, not only the apostrophe: "Lunar's Snake"
	// slugs to LunarSnake and "Durov's Cap" to DurovCap, never DurovsCap.
	possessive   = regexp.MustCompile(`['’]s\b`)
	nonWord      = regexp.MustCompile(`[^A-Za-z0-9_]+`)
	nonAlnum     = regexp.MustCompile(`[^a-z0-9]+`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// NormalizeIdentifier turns a free-text collection name into the slug used
// for marketplace queries and links. Possessive "'s" is dropped along with
// apostrophes, whitespace and every non-word character.
func NormalizeIdentifier(raw string) string {
	s := possessive.ReplaceAllString(raw, "")
	return nonWord.ReplaceAllString(s, "")
}

// ImageURL derives the preview image of an item name.
func ImageURL(base, name string) string {
	formatted := nonAlnum.ReplaceAllString(strings.ToLower(name), "_")
	formatted = strings.Trim(formatted, "_")
	return fmt.Sprintf("%s/%s.png?size=%d", strings.TrimRight(base, "/"), formatted, imageSize)
}

// ExternalLink builds the decorative Telegram link of an item. The suffix
// keeps links unique per render; they are not stable.
func ExternalLink(base, collection, item string, suffix int) string {
	name := whitespaceRe.ReplaceAllString(item, "")
	if utf8.RuneCountInString(name) > linkNameMaxRune {
		name = string([]rune(name)[:linkNameMaxRune])
	}
	return fmt.Sprintf("%s/%s-%s-%d", strings.TrimRight(base, "/"), NormalizeIdentifier(collection), name, suffix)
}
