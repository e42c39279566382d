package styles

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/gosimple/slug"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// titleWord upper-cases the first letter of p. Casers are stateful and are
// never shared.
func titleWord(p string) string {
	return cases.Title(language.Und).String(p)
}

// PropertyName converts a CSS property to the style object key:
// background-color becomes backgroundColor, -webkit-line-clamp becomes
// WebkitLineClamp. Custom properties are kept verbatim.
func PropertyName(prop string) string {
	prop = strings.TrimSpace(prop)
	if strings.HasPrefix(prop, "--") {
		return prop
	}
	parts := strings.Split(strings.ToLower(prop), "-")
	var sb strings.Builder
	for i, p := range parts {
		if p == "" {
			continue
		}
		if i == 0 {
			sb.WriteString(p)
			continue
		}
		sb.WriteString(titleWord(p))
	}
	return sb.String()
}

var keyWords = strings.NewReplacer(
	"!==", " not ",
	"!=", " not ",
	"===", " ",
	"==", " ",
	"&&", " and ",
	"!", " not ",
)

// camelWords splits camelCase identifiers so the slug keeps word
// boundaries: isActive becomes "is Active".
func camelWords(s string) string {
	var sb strings.Builder
	prev := rune(0)
	for _, r := range s {
		if unicode.IsUpper(r) && unicode.IsLower(prev) {
			sb.WriteByte(' ')
		}
		sb.WriteRune(r)
		prev = r
	}
	return sb.String()
}

// camel turns free text into a camelCase identifier.
func camel(text string) string {
	s := slug.Make(camelWords(text))
	var sb strings.Builder
	for i, p := range strings.Split(s, "-") {
		if p == "" {
			continue
		}
		if i == 0 {
			sb.WriteString(p)
			continue
		}
		sb.WriteString(titleWord(p))
	}
	name := sb.String()
	if name == "" {
		return "style"
	}
	if r := rune(name[0]); unicode.IsDigit(r) {
		name = "v" + name
	}
	return name
}

// KeyName derives a bucket name from a condition key:
// size === "large" is sizeLarge, !size is notSize.
func KeyName(key string) string {
	return camel(keyWords.Replace(key))
}

// names hands out unique identifiers.
type names map[string]bool

func (n names) unique(base string) string {
	name := base
	for i := 2; n[name]; i++ {
		name = base + strconv.Itoa(i)
	}
	n[name] = true
	return name
}
