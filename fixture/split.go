package fixture

import (
	"fmt"
	"strings"
)

type segment struct {
	text   string
	interp bool
}

// split cuts text around ${...} interpolations. Braces inside string and
// template literals of an interpolation do not count.
func split(text string) ([]segment, error) {
	var segs []segment
	for {
		start := strings.Index(text, "${")
		if start < 0 {
			break
		}
		end, err := closing(text, start+2)
		if err != nil {
			return nil, err
		}
		if start > 0 {
			segs = append(segs, segment{text: text[:start]})
		}
		src := strings.TrimSpace(text[start+2 : end])
		if src == "" {
			return nil, fmt.Errorf("empty interpolation in %q", text)
		}
		segs = append(segs, segment{text: src, interp: true})
		text = text[end+1:]
	}
	if text != "" || len(segs) == 0 {
		segs = append(segs, segment{text: text})
	}
	return segs, nil
}

// closing returns the index of the brace closing an interpolation whose
// body starts at i.
func closing(s string, i int) (int, error) {
	depth := 1
	for ; i < len(s); i++ {
		switch c := s[i]; c {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, nil
			}
		case '"', '\'':
			j := i + 1
			for j < len(s) && s[j] != c {
				if s[j] == '\\' {
					j++
				}
				j++
			}
			i = j
		case '`':
			j := i + 1
			for j < len(s) && s[j] != '`' {
				switch {
				case s[j] == '\\':
					j += 2
					continue
				case strings.HasPrefix(s[j:], "${"):
					k, err := closing(s, j+2)
					if err != nil {
						return 0, err
					}
					j = k + 1
					continue
				}
				j++
			}
			i = j
		}
	}
	return 0, fmt.Errorf("unterminated interpolation in %q", s)
}
