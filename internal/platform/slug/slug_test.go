package slug

import (
	"strings"
	"testing"
)

func TestMakeAndValid(t *testing.T) {
	t.Parallel()
	long := strings.Repeat("a", MaxLen+10)
	cases := []struct {
		in    string
		slug  string
		valid bool
	}{
		{in: "website", slug: "website", valid: true},
		{in: "live-2", slug: "live-2", valid: true},
		{in: "Live Stream!", slug: "live-stream", valid: false},
		{in: "--video--", slug: "video", valid: false},
		{in: "a__b", slug: "a-b", valid: false},
		{in: "  ", slug: "session", valid: false},
		{in: "", slug: "session", valid: false},
		{in: "café", slug: "caf", valid: false},
		{in: long, slug: long[:MaxLen], valid: false},
		{in: long[:MaxLen], slug: long[:MaxLen], valid: true},
	}
	for _, tc := range cases {
		if got := Make(tc.in); got != tc.slug {
			t.Fatalf("Make(%q) = %q, want %q", tc.in, got, tc.slug)
		}
		if got := Valid(tc.in); got != tc.valid {
			t.Fatalf("Valid(%q) = %v, want %v", tc.in, got, tc.valid)
		}
	}
}
