package semver

import "testing"

func TestCompare(t *testing.T) {
	cases := []struct {
		v1, op, v2 string
		want       bool
	}{
		{"1.2.3", "=", "1.2.3", true},
		{"1.2.3", "!=", "1.2.3", false},
		{"1.2.3", ">", "1.2.3", false},
		{"1.2.3", ">=", "1.2.3", true},
		{"1.2.3", "<", "1.2.4", true},
		{"1.2.3", "ge", "1.2.4", false},
		{"1.2.3", ">", "1.2.2", true},
		{"1.2", "=", "1.2.0", true},
		{"1.2", "<", "1.2.1", true},
		{"1.2", ">", "1.2.0", false},
		{"v1.10.0", "gt", "1.9.9", true},
		{"0.3.1", "le", "0.3", false},
	}
	for _, tc := range cases {
		got, err := Compare(tc.v1, tc.op, tc.v2)
		if err != nil {
			t.Fatalf("%s %s %s: %v", tc.v1, tc.op, tc.v2, err)
		}
		if got != tc.want {
			t.Errorf("%s %s %s = %v, want %v", tc.v1, tc.op, tc.v2, got, tc.want)
		}
	}
}

func TestCompareErrors(t *testing.T) {
	if _, err := Compare("1.2.3", "~", "1.2.3"); err == nil {
		t.Fatal("expected invalid operator error")
	}
	if _, err := Compare("abc", "=", "1.2.3"); err == nil {
		t.Fatal("expected invalid version error")
	}
}

func TestMajorMinor(t *testing.T) {
	if got := MajorMinor("0.3.7"); got != "v0.3" {
		t.Fatalf("got %q", got)
	}
	if got := MajorMinor("garbage"); got != "v0.0" {
		t.Fatalf("got %q", got)
	}
}
