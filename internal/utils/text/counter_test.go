package text_test

import (
	"testing"

	"github.com/emilyselwood/ceridwen/internal/utils/text"
)

func TestTruncateRunes(t *testing.T) {
	require := func(cond bool, msg string) {
		if !cond {
			t.Error(msg)
		}
	}

	require(text.TruncateRunes("hello", 10) == "hello", "short string should be returned unchanged")
	require(text.TruncateRunes("hello", 3) == "hel", "should cut at the byte boundary for ASCII")
	require(text.TruncateRunes("こんにちは", 3) == "こんに", "should cut by rune, not byte, for multi-byte text")
	require(text.TruncateRunes("", 5) == "", "empty input stays empty")
	require(text.TruncateRunes("hello", 0) == "", "zero length truncates to empty")
	require(text.TruncateRunes("🚀✨🤖💡", 2) == "🚀✨", "should cut by rune even for multi-byte emoji")
}

func TestTruncateRunesExactLength(t *testing.T) {
	if got := text.TruncateRunes("hello", 5); got != "hello" {
		t.Errorf("TruncateRunes at exact length = %q, want %q", got, "hello")
	}
}
