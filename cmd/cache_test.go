package cmd

import "testing"

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		name     string
		bytes    int64
		expected string
	}{
		{name: "bytes", bytes: 512, expected: "512 B"},
		{name: "kilobytes", bytes: 2048, expected: "2.0 KB"},
		{name: "megabytes", bytes: 5 * 1024 * 1024, expected: "5.0 MB"},
		{name: "fractional", bytes: 1536, expected: "1.5 KB"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatBytes(tt.bytes); got != tt.expected {
				t.Errorf("formatBytes(%d) = %q, want %q", tt.bytes, got, tt.expected)
			}
		})
	}
}

func TestParseJobNumber(t *testing.T) {
	tests := []struct {
		input   string
		want    int
		wantErr bool
	}{
		{input: "123", want: 123},
		{input: "0", wantErr: true},
		{input: "-5", wantErr: true},
		{input: "abc", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseJobNumber(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseJobNumber(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("parseJobNumber(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}
