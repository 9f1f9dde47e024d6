package twitterclient

import (
	"regexp"
	"strings"
)

// tweetIDRegexp matches the numeric status id inside a tweet URL, e.g.
// https://twitter.com/alice/status/1456789012345678901.
var tweetIDRegexp = regexp.MustCompile(`(?i)status/(\d+)`)

// ExtractTweetID extracts the tweet id from a tweet URL. The second return
// value reports whether an id was found.
func ExtractTweetID(url string) (string, bool) {
	m := tweetIDRegexp.FindStringSubmatch(url)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// accountStrategy extracts an account id (without its suffix) from tweet
// text. Strategies correspond to the tweet formats the faucet has asked
// claimants to post over time; they are tried in order and the first match
// wins.
type accountStrategy struct {
	name    string
	extract func(text, suffix string) (string, bool)
}

// accountStrategies is the ordered list of historical tweet formats. The
// bracketed form is the oldest and most precise, so it goes first; the plain
// suffix match is the most permissive fallback.
var accountStrategies = []accountStrategy{
	{name: "bracketed", extract: extractBracketed},
	{name: "colon-trimmed", extract: extractColonTrimmed},
	{name: "plain", extract: extractPlain},
}

// extractBracketed matches the "[alice.testnet]" style used by the first
// tweet template.
func extractBracketed(text, suffix string) (string, bool) {
	re := regexp.MustCompile(`(?i)\[\s*([^\[\]\s]+)` + regexp.QuoteMeta(suffix))
	m := re.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// extractColonTrimmed matches a bare account while stopping at colons, so
// "account: alice.testnet" does not swallow the label.
func extractColonTrimmed(text, suffix string) (string, bool) {
	re := regexp.MustCompile(`(?i)([^\s:\[\]]+)` + regexp.QuoteMeta(suffix))
	m := re.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// extractPlain matches any account-shaped token before the suffix.
func extractPlain(text, suffix string) (string, bool) {
	re := regexp.MustCompile(`(?i)([a-z0-9._-]+)` + regexp.QuoteMeta(suffix))
	m := re.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// ExtractAccount extracts the claimed account from tweet text. suffix is the
// top level account of the active network, including the leading dot. The
// returned account includes the suffix and is lower cased.
func ExtractAccount(text, suffix string) (string, bool) {
	for _, strategy := range accountStrategies {
		if name, ok := strategy.extract(text, suffix); ok {
			log.Debugf("Account extracted with %v strategy", strategy.name)
			return strings.ToLower(name + suffix), true
		}
	}
	return "", false
}
