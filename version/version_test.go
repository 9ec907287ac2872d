package version

import "testing"

func TestGet_LdflagsWin(t *testing.T) {
	orig := [3]string{Version, GitCommit, BuildTime}
	defer func() { Version, GitCommit, BuildTime = orig[0], orig[1], orig[2] }()

	Version, GitCommit, BuildTime = "1.4.0", "abcdef0123456", "2026-01-02T03:04:05Z"
	info := Get()
	if info.Version != "1.4.0" || info.GitCommit != "abcdef0" || info.BuildTime != "2026-01-02T03:04:05Z" {
		t.Errorf("unexpected info %+v", info)
	}
}

func TestInfo_String(t *testing.T) {
	tests := []struct {
		info Info
		want string
	}{
		{Info{Version: "dev"}, "dev"},
		{Info{Version: "1.0.0", GitCommit: "abc1234"}, "1.0.0 (abc1234)"},
		{Info{Version: "1.0.0", GitCommit: "abc1234", Dirty: true, BuildTime: "2026-01-02"}, "1.0.0 (abc1234-dirty, built 2026-01-02)"},
	}
	for _, tc := range tests {
		if got := tc.info.String(); got != tc.want {
			t.Errorf("String() = %q, want %q", got, tc.want)
		}
	}
}
