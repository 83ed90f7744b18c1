// Package redirect decides whether a YouTube page is off-limits while focus
// mode is on.
package redirect

import (
	"net/url"
	"strings"
)

// Home is where blocked pages are sent.
const Home = "/"

// Decision is the outcome for one path.
type Decision struct {
	Path       string `json:"path"`
	Blocked    bool   `json:"blocked"`
	RedirectTo string `json:"redirectTo,omitempty"`
}

// Policy holds the normalized blocked path prefixes.
type Policy struct {
	blocked []string
}

// NewPolicy builds a policy from path prefixes such as "/shorts".
func NewPolicy(blocked []string) *Policy {
	p := &Policy{}
	for _, b := range blocked {
		if n := normalize(b); n != "" && n != Home {
			p.blocked = append(p.blocked, n)
		}
	}
	return p
}

// Blocked returns the normalized prefixes.
func (p *Policy) Blocked() []string {
	return append([]string(nil), p.blocked...)
}

// Check decides for target, which may be a bare path or a full URL. Nothing
// is blocked while focus is off.
func (p *Policy) Check(target string, focusEnabled bool) Decision {
	path := normalize(target)
	d := Decision{Path: path}
	if !focusEnabled {
		return d
	}
	for _, prefix := range p.blocked {
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			d.Blocked = true
			d.RedirectTo = Home
			return d
		}
	}
	return d
}

func normalize(target string) string {
	target = strings.TrimSpace(target)
	if target == "" {
		return ""
	}
	if u, err := url.Parse(target); err == nil && (u.Scheme != "" || u.Host != "") {
		target = u.Path
	} else if i := strings.IndexAny(target, "?#"); i >= 0 {
		target = target[:i]
	}
	target = strings.ToLower(target)
	if !strings.HasPrefix(target, "/") {
		target = "/" + target
	}
	if len(target) > 1 {
		target = strings.TrimRight(target, "/")
		if target == "" {
			target = Home
		}
	}
	return target
}
