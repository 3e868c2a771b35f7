// Package htmlsanitize cleans user-entered text before it is stored.
//
// Contact notes are shown back to other committee members, so they are
// reduced to plain text on the way in.
package htmlsanitize

import (
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	strictOnce sync.Once
	strict     *bluemonday.Policy

	ugcOnce sync.Once
	ugc     *bluemonday.Policy
)

func strictPolicy() *bluemonday.Policy {
	strictOnce.Do(func() {
		strict = bluemonday.StrictPolicy()
	})
	return strict
}

func ugcPolicy() *bluemonday.Policy {
	ugcOnce.Do(func() {
		ugc = bluemonday.UGCPolicy()
		ugc.RequireNoFollowOnLinks(true)
	})
	return ugc
}

// Sanitize keeps safe formatting markup and removes scripts, handlers and
// unsafe URLs.
func Sanitize(s string) string {
	if s == "" {
		return ""
	}
	return ugcPolicy().Sanitize(s)
}

// Plain strips every tag and trims surrounding whitespace. Entities that
// bluemonday escapes (&, <, >, quotes) are restored so the stored value is
// the text the user typed.
func Plain(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	out := strictPolicy().Sanitize(s)
	out = unescaper.Replace(out)
	return strings.TrimSpace(out)
}

var unescaper = strings.NewReplacer(
	"&amp;", "&",
	"&lt;", "<",
	"&gt;", ">",
	"&#34;", `"`,
	"&#39;", "'",
	"&quot;", `"`,
)
