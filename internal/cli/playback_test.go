package cli

import "testing"

func TestParsePosition(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{in: "90", want: 90},
		{in: "0", want: 0},
		{in: "2:05", want: 125},
		{in: "10:00", want: 600},
		{in: "-5", wantErr: true},
		{in: "1:75", wantErr: true},
		{in: "abc", wantErr: true},
		{in: "1:2:3", wantErr: true},
	}
	for _, tc := range cases {
		got, err := parsePosition(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("parsePosition(%q): expected error, got %d", tc.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("parsePosition(%q): %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("parsePosition(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestFormatSeconds(t *testing.T) {
	t.Parallel()

	if got := formatSeconds(125); got != "2:05" {
		t.Errorf("formatSeconds(125) = %q", got)
	}
	if got := formatSeconds(0); got != "0:00" {
		t.Errorf("formatSeconds(0) = %q", got)
	}
	if got := formatSeconds(3600); got != "60:00" {
		t.Errorf("formatSeconds(3600) = %q", got)
	}
}

func TestParseOnOff(t *testing.T) {
	t.Parallel()

	if v, err := parseOnOff("ON"); err != nil || !v {
		t.Errorf("parseOnOff(ON) = %v, %v", v, err)
	}
	if v, err := parseOnOff("off"); err != nil || v {
		t.Errorf("parseOnOff(off) = %v, %v", v, err)
	}
	if _, err := parseOnOff("maybe"); err == nil {
		t.Errorf("expected error for maybe")
	}
}
