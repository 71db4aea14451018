package pagination

import "testing"

func TestClampPageSize(t *testing.T) {
	cfg := PageSizeConfig{Default: 10, Max: 50}
	tests := []struct {
		name  string
		value int
		want  int
	}{
		{name: "zero uses default", value: 0, want: 10},
		{name: "negative uses default", value: -3, want: 10},
		{name: "within range", value: 25, want: 25},
		{name: "above max", value: 80, want: 50},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := ClampPageSize(tc.value, cfg); got != tc.want {
				t.Fatalf("ClampPageSize(%d) = %d, want %d", tc.value, got, tc.want)
			}
		})
	}
}

func TestClampPageSizeFallsBackToOne(t *testing.T) {
	if got := ClampPageSize(0, PageSizeConfig{}); got != 1 {
		t.Fatalf("ClampPageSize = %d, want 1", got)
	}
}

func TestParsePageSize(t *testing.T) {
	cfg := PageSizeConfig{Default: 10, Max: 50}
	tests := []struct {
		raw     string
		want    int
		wantErr bool
	}{
		{raw: "", want: 10},
		{raw: " 5 ", want: 5},
		{raw: "500", want: 50},
		{raw: "abc", wantErr: true},
		{raw: "-1", wantErr: true},
	}
	for _, tc := range tests {
		got, err := ParsePageSize(tc.raw, cfg)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("ParsePageSize(%q): expected error", tc.raw)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParsePageSize(%q): %v", tc.raw, err)
		}
		if got != tc.want {
			t.Fatalf("ParsePageSize(%q) = %d, want %d", tc.raw, got, tc.want)
		}
	}
}
