package buildinfo

import "testing"

func TestRelease(t *testing.T) {
	defer func(v, c string) { Version, Commit = v, c }(Version, Commit)

	tests := []struct {
		version, commit, want string
	}{
		{"v1.2.0", "0123456789abcdef", "v1.2.0"},
		{"", "0123456789abcdef", "0123456"},
		{"", "abc", "abc"},
		{"", "", "dev"},
	}
	for _, tt := range tests {
		Version, Commit = tt.version, tt.commit
		if got := Release(); got != tt.want {
			t.Errorf("Release() with %q/%q = %q, want %q", tt.version, tt.commit, got, tt.want)
		}
	}
}
