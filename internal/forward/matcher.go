package forward

import (
	"regexp"
	"strings"

	"github.com/beaconlabs/beacon/internal/store"
)

// nonWord collapses every run of non-word characters to one space before
// token matching. Word characters are [0-9A-Za-z_].
var nonWord = regexp.MustCompile(`\W+`)

// matchKeyword returns the first keyword of the rule that matches the message
// content, honoring the rule's match type. Matching is case-insensitive;
// whitespace inside a keyword is significant.
func matchKeyword(content string, rule store.ActiveForwarder) (string, bool) {
	lowered := strings.ToLower(content)
	var messageTokens []string

	for _, keyword := range rule.Keywords {
		if keyword == "" {
			continue
		}
		switch rule.MatchType {
		case store.MatchExact:
			if messageTokens == nil {
				messageTokens = tokenize(lowered)
			}
			if containsTokenRun(messageTokens, tokenize(strings.ToLower(keyword))) {
				return keyword, true
			}
		default:
			if strings.Contains(lowered, strings.ToLower(keyword)) {
				return keyword, true
			}
		}
	}
	return "", false
}

// tokenize normalizes non-word characters to spaces and splits into tokens.
func tokenize(s string) []string {
	return strings.Fields(nonWord.ReplaceAllString(s, " "))
}

// containsTokenRun reports whether want appears as a contiguous run inside
// have.
func containsTokenRun(have, want []string) bool {
	if len(want) == 0 || len(want) > len(have) {
		return false
	}
	for start := 0; start+len(want) <= len(have); start++ {
		matched := true
		for i, token := range want {
			if have[start+i] != token {
				matched = false
				break
			}
		}
		if matched {
			return true
		}
	}
	return false
}
