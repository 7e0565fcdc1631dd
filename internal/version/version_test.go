package version

import "testing"

func TestStringLocalBuild(t *testing.T) {
	if got := String(); got != "(local)" {
		t.Errorf("String() = %q, want %q for a build without ldflags", got, "(local)")
	}
}

func TestStringStripsPrefixAndAppendsCommit(t *testing.T) {
	defer func() { version, gitCommit = "", "" }()

	version, gitCommit = "v1.4.0", "abc123"
	if got := String(); got != "1.4.0 (abc123)" {
		t.Errorf("String() = %q", got)
	}

	gitCommit = ""
	if got := String(); got != "1.4.0" {
		t.Errorf("String() = %q", got)
	}
}
