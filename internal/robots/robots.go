// Package robots fetches and interprets robots.txt to decide whether a
// crawler is allowed to fetch a given URL.
package robots

import (
	"bufio"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrMissingHost is returned when a URL has no host component, so there is
// no robots.txt location to derive.
var ErrMissingHost = errors.New("robots: url has no host")

// ruleKind distinguishes an Allow rule from a Disallow rule.
type ruleKind int

const (
	ruleAllow ruleKind = iota
	ruleDeny
)

type rule struct {
	kind   ruleKind
	prefix string
}

// File is a parsed robots.txt: rules grouped by the user-agent names they
// were declared under.
type File struct {
	entries map[string][]rule
}

// Fetcher is the narrow HTTP dependency Check needs. A 404 (an error whose
// NotFound method reports true) is treated as "no robots.txt", meaning
// everything is allowed.
type Fetcher interface {
	Get(targetURL string) ([]byte, error)
}

// pageNotFounder lets Check recognise the 404 error built by
// fetch.NewPageNotFoundError without importing internal/fetch.
type pageNotFounder interface {
	NotFound() bool
}

// Check fetches and parses the robots.txt for target's host and reports
// whether userAgent is allowed to fetch target. A missing robots.txt (404)
// allows everything.
func Check(client Fetcher, userAgent string, target *url.URL) (bool, error) {
	robotsURL, err := robotsLocation(target)
	if err != nil {
		return false, err
	}

	body, err := client.Get(robotsURL.String())
	if err != nil {
		var nf pageNotFounder
		if errors.As(err, &nf) && nf.NotFound() {
			return true, nil
		}
		return false, fmt.Errorf("robots: fetch %s: %w", robotsURL, err)
	}

	file, err := Parse(body)
	if err != nil {
		return false, fmt.Errorf("robots: parse %s: %w", robotsURL, err)
	}

	matched, found := file.check(userAgent, target.Path)
	if !found {
		return true, nil
	}
	return matched.kind == ruleAllow, nil
}

func robotsLocation(target *url.URL) (*url.URL, error) {
	if target.Host == "" {
		return nil, fmt.Errorf("%w: %s", ErrMissingHost, target)
	}
	return &url.URL{Scheme: target.Scheme, Host: target.Host, Path: "/robots.txt"}, nil
}

// Parse runs the line-oriented robots.txt state machine: alternating blocks
// of "User-agent:" lines and "Allow:"/"Disallow:" lines, where a rules block
// applies to every user-agent named immediately above it. Within a group,
// later-declared rules take precedence over earlier ones, so each group's
// rule list is reversed before being stored.
func Parse(body []byte) (*File, error) {
	const (
		stateUserAgents = iota
		stateRules
	)

	file := &File{entries: make(map[string][]rule)}
	state := stateUserAgents
	var userAgents []string
	var rules []rule

	flush := func() {
		for _, ua := range userAgents {
			file.entries[ua] = append(file.entries[ua], rules...)
		}
		userAgents = nil
		rules = nil
		state = stateUserAgents
	}

	scanner := bufio.NewScanner(strings.NewReader(string(body)))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		lower := strings.ToLower(line)
		switch {
		case len(line) > 12 && lower[:12] == "user-agent: ":
			if state == stateRules {
				flush()
			}
			userAgents = append(userAgents, line[12:])
		case len(line) > 10 && lower[:10] == "disallow: ":
			state = stateRules
			rules = append(rules, rule{kind: ruleDeny, prefix: line[10:]})
		case len(line) > 7 && lower[:7] == "allow: ":
			state = stateRules
			rules = append(rules, rule{kind: ruleAllow, prefix: line[7:]})
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("robots: scan body: %w", err)
	}
	flush()

	for ua, rs := range file.entries {
		reversed := make([]rule, len(rs))
		for i, r := range rs {
			reversed[len(rs)-1-i] = r
		}
		file.entries[ua] = reversed
	}

	return file, nil
}

// check returns the first rule (in last-declared-wins order) whose prefix
// matches path, searching rules for userAgent and falling back to "*".
func (f *File) check(userAgent, path string) (rule, bool) {
	rules, ok := f.entries[userAgent]
	if !ok {
		rules, ok = f.entries["*"]
		if !ok {
			return rule{}, false
		}
	}
	for _, r := range rules {
		if strings.HasPrefix(path, r.prefix) {
			return r, true
		}
	}
	return rule{}, false
}
