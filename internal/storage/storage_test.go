package storage

import "testing"

func TestLikePattern(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Coffee", "%coffee%"},
		{"100% juice", `%100\% juice%`},
		{"snake_case", `%snake\_case%`},
		{`back\slash`, `%back\\slash%`},
		{"", "%%"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := LikePattern(tt.in); got != tt.want {
				t.Errorf("LikePattern(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
