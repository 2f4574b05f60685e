package widget

import "github.com/microcosm-cc/bluemonday"

// Sanitizer filters trusted markup before it reaches the page. Every piece of
// assistant, video and notification markup passes through exactly one
// Sanitize call.
type Sanitizer interface {
	Sanitize(markup string) string
}

// Trusted passes markup through unchanged. It is the default: the backend is
// trusted and its markup is injected as-is.
type Trusted struct{}

func (Trusted) Sanitize(markup string) string { return markup }

// PolicySanitizer strips markup that a user-generated-content policy would
// reject, keeping the link targets and video iframes the pane produces.
type PolicySanitizer struct {
	policy *bluemonday.Policy
}

// NewPolicySanitizer builds a sanitizer on bluemonday's UGC policy.
func NewPolicySanitizer() *PolicySanitizer {
	p := bluemonday.UGCPolicy()
	p.AllowAttrs("target").Matching(bluemonday.SpaceSeparatedTokens).OnElements("a")
	p.AllowAttrs("src").OnElements("iframe")
	p.AllowAttrs("width", "height").Matching(bluemonday.Integer).OnElements("iframe")
	p.AllowAttrs("frameborder").Matching(bluemonday.Integer).OnElements("iframe")
	p.AllowAttrs("allowfullscreen").OnElements("iframe")
	p.AllowAttrs("class").Matching(bluemonday.SpaceSeparatedTokens).OnElements("div")
	return &PolicySanitizer{policy: p}
}

func (s *PolicySanitizer) Sanitize(markup string) string {
	return s.policy.Sanitize(markup)
}
