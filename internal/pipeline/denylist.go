package pipeline

import (
	"net/url"
	"strings"
)

// irrelevantDomains hosts that never carry a patient-support organization's
// own site: social networks, retail, blog platforms, and the search engines
// themselves. Matching URLs are rejected before any LLM call.
var irrelevantDomains = []string{
	"google.com",
	"youtube.com",
	"facebook.com",
	"twitter.com",
	"x.com",
	"instagram.com",
	"linkedin.com",
	"amazon.com",
	"wikipedia.org",
	"yahoo.co.jp",
	"amazon.co.jp",
	"rakuten.co.jp",
	"mercari.com",
	"note.com",
	"ameblo.jp",
	"livedoor.jp",
	"fc2.com",
}

// Denylisted reports whether the URL's host belongs to a known irrelevant
// domain. Unparseable URLs are treated as denylisted.
func Denylisted(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return true
	}
	host := strings.ToLower(u.Host)
	for _, domain := range irrelevantDomains {
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return true
		}
	}
	return false
}
