package wikipedia

import "strings"

// StripMarkup removes MediaWiki wikitext formatting from content: template
// and table markup ({{...}}, {|...|}), wikilinks ([[target|label]] becomes
// label, or target when there is no label), and section-heading "==".
func StripMarkup(content string) string {
	stripped := filterBetween(content, '{', '{', '}', '}')
	stripped = filterBetween(stripped, '{', '|', '|', '}')
	stripped = filterSquareBrackets(stripped)
	return strings.ReplaceAll(stripped, "==", "")
}

// filterBetween removes every balanced region opened by the two-character
// sequence start1,start2 and closed by end1,end2, tracking nesting depth so
// "{{outer {{inner}} }}" is removed as one region rather than leaving the
// inner markers behind.
func filterBetween(content string, start1, start2, end1, end2 rune) string {
	const (
		stOutside = iota
		stStarting
		stInside
		stEnding
	)

	var result strings.Builder
	state := stOutside
	depth := 0

	for _, c := range content {
		switch state {
		case stOutside:
			if c == start1 {
				state, depth = stStarting, 0
			} else {
				result.WriteRune(c)
			}
		case stStarting:
			if c == start2 {
				state, depth = stInside, depth+1
			} else {
				if depth <= 1 {
					state = stOutside
				} else {
					state = stInside
				}
				result.WriteRune(start1)
				result.WriteRune(c)
			}
		case stInside:
			switch {
			case c == end1:
				state = stEnding
			case c == start1:
				state = stStarting
			}
		case stEnding:
			if c == end2 {
				if depth <= 1 {
					state = stOutside
				} else {
					state, depth = stInside, depth-1
				}
			}
		}
	}
	return result.String()
}

// filterSquareBrackets rewrites [[target|label]] wikilinks to just label
// (or target, for links with no "|label" part), handling links nested
// inside a "|label" segment such as [[a|something [[nested]]]].
func filterSquareBrackets(content string) string {
	const (
		stOutside = iota
		stStarting
		stInside
		stEnding
	)

	var result strings.Builder
	state := stOutside
	depth := 0
	var buffer []string

	for _, c := range content {
		switch state {
		case stOutside:
			if c == '[' {
				state, depth = stStarting, 0
			} else {
				result.WriteRune(c)
			}
		case stStarting:
			switch {
			case c == '[':
				if depth+1 >= len(buffer) {
					buffer = append(buffer, "")
				} else {
					buffer[depth+1] = ""
				}
				state, depth = stInside, depth+1
			case depth <= 1:
				state = stOutside
				result.WriteRune('[')
				result.WriteRune(c)
			default:
				state = stInside
				buffer[depth-1] += "[" + string(c)
			}
		case stInside:
			switch c {
			case ']':
				state = stEnding
			case '|':
				buffer[depth-1] = ""
			case '[':
				state = stStarting
			default:
				buffer[depth-1] += string(c)
			}
		case stEnding:
			if c == ']' {
				if depth <= 1 {
					result.WriteString(buffer[depth-1])
					state = stOutside
				} else {
					carried := buffer[depth-1]
					buffer[depth-2] += carried
					state, depth = stInside, depth-1
				}
			}
		}
	}
	return result.String()
}
