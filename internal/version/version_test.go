package version

import "testing"

func TestString(t *testing.T) {
	origVersion, origSHA, origTime := Version, GitSHA, BuildTime
	defer func() { Version, GitSHA, BuildTime = origVersion, origSHA, origTime }()

	Version, GitSHA, BuildTime = "1.2.0", "abc1234", "2026-10-19"
	want := "ttc-replay 1.2.0 (abc1234, built 2026-10-19)"
	if got := String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
