package revision_test

import (
	"testing"

	rev "github.com/sinclairtarget/idman/internal/git/revision"
)

func TestIsFullHash(t *testing.T) {
	tests := map[string]bool{
		"9e9ea7662b1001d860471a4cece5e2f1de8062fb":  true,
		"^9e9ea7662b1001d860471a4cece5e2f1de8062fb": true,
		"9e9ea76":                                   false,
		"# 9e9ea7662b1001d860471a4cece5e2f1de8062f": false,
		"9E9EA7662B1001D860471A4CECE5E2F1DE8062FB":  false,
		"":                                          false,
	}

	for s, expected := range tests {
		if got := rev.IsFullHash(s); got != expected {
			t.Errorf("IsFullHash(%q) = %v, expected %v", s, got, expected)
		}
	}
}

func TestIsHash(t *testing.T) {
	if !rev.IsHash("9e9ea76") {
		t.Error("expected abbreviated hash to be accepted")
	}

	if rev.IsHash("abc") {
		t.Error("expected three-character string to be rejected")
	}

	if rev.IsHash("zzzzzzz") {
		t.Error("expected non-hex string to be rejected")
	}
}
