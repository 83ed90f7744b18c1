package redirect

import "testing"

func TestCheck(t *testing.T) {
	p := NewPolicy([]string{"/feed/trending", "/gaming", "shorts/", "/"})

	tests := []struct {
		target  string
		enabled bool
		blocked bool
	}{
		{"/feed/trending", true, true},
		{"/FEED/Trending/", true, true},
		{"/shorts/abc123", true, true},
		{"https://www.youtube.com/gaming?app=desktop", true, true},
		{"/gamingnews", true, false},
		{"/watch?v=xyz", true, false},
		{"/", true, false},
		{"/shorts/abc123", false, false},
	}
	for _, tt := range tests {
		d := p.Check(tt.target, tt.enabled)
		if d.Blocked != tt.blocked {
			t.Fatalf("Check(%q, %v).Blocked = %v, want %v", tt.target, tt.enabled, d.Blocked, tt.blocked)
		}
		if d.Blocked && d.RedirectTo != Home {
			t.Fatalf("Check(%q) redirect = %q", tt.target, d.RedirectTo)
		}
		if !d.Blocked && d.RedirectTo != "" {
			t.Fatalf("Check(%q) unexpected redirect %q", tt.target, d.RedirectTo)
		}
	}
}

func TestNewPolicySkipsRoot(t *testing.T) {
	p := NewPolicy([]string{"/", "", "/shorts"})
	if got := p.Blocked(); len(got) != 1 || got[0] != "/shorts" {
		t.Fatalf("Blocked = %v", got)
	}
}
