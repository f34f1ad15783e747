package rediscache

import (
	"path"
	"testing"
)

func TestMatchPrefixEscapesGlobCharacters(t *testing.T) {
	cases := map[string]string{
		"trends:user-1:":  "trends:user-1:*",
		"trends:*:":       `trends:\*:*`,
		"trends:a?[b]:":   `trends:a\?\[b\]:*`,
		`trends:back\sl:`: `trends:back\\sl:*`,
	}
	for prefix, want := range cases {
		if got := MatchPrefix(prefix); got != want {
			t.Fatalf("MatchPrefix(%q) = %q, want %q", prefix, got, want)
		}
	}
}

func TestMatchPrefixDoesNotReachOtherOwners(t *testing.T) {
	pattern := MatchPrefix("trends:*:")
	for key, want := range map[string]bool{
		"trends:*:mood:30":     true,
		"trends:alice:mood:30": false,
		"trends:bob:sleep:7":   false,
	} {
		got, err := path.Match(pattern, key)
		if err != nil {
			t.Fatalf("path.Match(%q): %v", pattern, err)
		}
		if got != want {
			t.Fatalf("pattern %q vs %q: got %v, want %v", pattern, key, got, want)
		}
	}
}
