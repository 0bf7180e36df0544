package robots

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
)

const slateRobotsTxt = `User-agent: feedjira
Disallow: /

User-agent: magpie-crawler
Disallow: /

User-agent: *
Disallow: /bullpen/
`

func TestParseBasic(t *testing.T) {
	file, err := Parse([]byte(slateRobotsTxt))
	require.NoError(t, err)

	r, found := file.check("feedjira", "/any-page")
	require.True(t, found)
	require.Equal(t, ruleDeny, r.kind)

	r, found = file.check("magpie-crawler", "/any-page")
	require.True(t, found)
	require.Equal(t, ruleDeny, r.kind)

	_, found = file.check("some-other-bot", "/fine")
	require.False(t, found)

	r, found = file.check("some-other-bot", "/bullpen/post-1")
	require.True(t, found)
	require.Equal(t, ruleDeny, r.kind)
}

func TestParseLastRuleWins(t *testing.T) {
	input := `User-agent: *
Disallow: /private/
Allow: /private/public-section/
`
	file, err := Parse([]byte(input))
	require.NoError(t, err)

	r, found := file.check("*", "/private/public-section/page")
	require.True(t, found)
	require.Equal(t, ruleAllow, r.kind)
}

type fakeFetcher struct {
	body      []byte
	err       error
	wasCalled string
}

func (f *fakeFetcher) Get(targetURL string) ([]byte, error) {
	f.wasCalled = targetURL
	return f.body, f.err
}

type notFoundErr struct{}

func (notFoundErr) Error() string { return "not found" }
func (notFoundErr) NotFound() bool { return true }

func TestCheckMissingRobotsTxtAllowsEverything(t *testing.T) {
	fetcher := &fakeFetcher{err: notFoundErr{}}
	target, err := url.Parse("https://example.com/page")
	require.NoError(t, err)

	allowed, err := Check(fetcher, "ceridwen-crawler", target)
	require.NoError(t, err)
	require.True(t, allowed)
	require.Equal(t, "https://example.com/robots.txt", fetcher.wasCalled)
}

func TestCheckDeniedByWildcard(t *testing.T) {
	fetcher := &fakeFetcher{body: []byte(slateRobotsTxt)}
	target, err := url.Parse("https://slate.com/bullpen/draft")
	require.NoError(t, err)

	allowed, err := Check(fetcher, "ceridwen-crawler", target)
	require.NoError(t, err)
	require.False(t, allowed)
}

func TestCheckMissingHost(t *testing.T) {
	target := &url.URL{Path: "/page"}
	_, err := Check(&fakeFetcher{}, "ceridwen-crawler", target)
	require.ErrorIs(t, err, ErrMissingHost)
}
