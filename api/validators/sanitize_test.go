package validators

import "testing"

func TestSanitizeString(t *testing.T) {
	tests := []struct {
		input  string
		maxLen int
		want   string
	}{
		{"  brake   pad\tfront ", 0, "brake pad front"},
		{"Müller", 2, "Mü"},
		{"BP-1042", 128, "BP-1042"},
		{"   ", 10, ""},
	}
	for _, tt := range tests {
		if got := SanitizeString(tt.input, tt.maxLen); got != tt.want {
			t.Fatalf("SanitizeString(%q, %d) = %q, want %q", tt.input, tt.maxLen, got, tt.want)
		}
	}
}
