package version

import (
	"strings"
	"testing"
)

func TestFullIncludesVersionAndCommit(t *testing.T) {
	full := Full()
	if !strings.Contains(full, Version) || !strings.Contains(full, Commit) {
		t.Fatalf("unexpected version string: %s", full)
	}
	if !strings.HasPrefix(UserAgent(), "nuget-dl/") {
		t.Fatalf("unexpected user agent: %s", UserAgent())
	}
}
