package util

import "testing"

func TestNormalizePhone(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"5511999999999", "5511999999999"},
		{"+55 (11) 99999-9999", "5511999999999"},
		{"  55.11.9999.9999  ", "551199999999"},
		{"12345", ""},                // too short
		{"12345678901234567890", ""}, // too long
		{"not a phone", ""},
		{"", ""},
	}
	for _, tc := range cases {
		if got := NormalizePhone(tc.in); got != tc.want {
			t.Fatalf("NormalizePhone(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
