package wikipedia

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterBetween(t *testing.T) {
	cases := []struct{ input, expected string }{
		{"here {{is a thing}} opens", "here  opens"},
		{"here {{is a thing {{with nesting stuff}}}} opens", "here  opens"},
	}
	for _, c := range cases {
		assert.Equal(t, c.expected, filterBetween(c.input, '{', '{', '}', '}'))
	}
}

func TestFilterSquareBrackets(t *testing.T) {
	cases := []struct{ input, expected string }{
		{"some text [[an article name|article]] foo bar", "some text article foo bar"},
		{"some text [[an article name]] foo bar", "some text an article name foo bar"},
		{"some text [[an article name|something [[nested]]]] foo bar", "some text something nested foo bar"},
		{"some text [[an article name|something [[with sub bits|nested]]]] foo bar", "some text something nested foo bar"},
	}
	for _, c := range cases {
		assert.Equal(t, c.expected, filterSquareBrackets(c.input))
	}
}

func TestStripMarkupRemovesHeadingMarkers(t *testing.T) {
	assert.Equal(t, "History", StripMarkup("==History=="))
}
