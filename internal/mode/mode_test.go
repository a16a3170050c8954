package mode

import "testing"

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"remote", Remote, false},
		{"offline", Offline, false},
		{"offline-cpu", OfflineCPU, false},
		{"offline_cpu", OfflineCPU, false},
		{"cpu", OfflineCPU, false},
		{" Remote ", Remote, false},
		{"native", "", true},
		{"", "", true},
	}

	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			t.Parallel()
			got, err := Parse(tc.in)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("Parse(%q) expected error, got %q", tc.in, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse(%q) error = %v", tc.in, err)
			}
			if got != tc.want {
				t.Errorf("Parse(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestLocal(t *testing.T) {
	t.Parallel()

	if Remote.Local() {
		t.Error("remote should not be local")
	}
	if !Offline.Local() {
		t.Error("offline should be local")
	}
	if !OfflineCPU.Local() {
		t.Error("offline-cpu should be local")
	}
}

func TestSlug(t *testing.T) {
	t.Parallel()

	if got := Remote.Slug("claude-sonnet-4-5"); got != "remote" {
		t.Errorf("remote slug = %q, want remote (model never embedded)", got)
	}
	if got := Offline.Slug("gpt-oss:20b"); got != "offline-gpt-oss-20b" {
		t.Errorf("offline slug = %q", got)
	}
	if got := OfflineCPU.Slug(""); got != "offline-cpu" {
		t.Errorf("offline-cpu slug with empty model = %q", got)
	}
}
