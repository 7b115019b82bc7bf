package util

import "testing"

func TestNormalizePartNumber(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{name: "leading zeros", input: "00123", want: "123"},
		{name: "dash removal", input: "12-3", want: "123"},
		// dash removal leaves a non-digit string, so zeros survive
		{name: "dash and zeros", input: "00045-A", want: "00045A"},
		{name: "dash and zeros all digits", input: "00-123", want: "123"},
		{name: "decimal stays", input: "123.100", want: "123.100"},
		{name: "dotted code stays", input: "089.800.988", want: "089.800.988"},
		{name: "surrounding space", input: "  A100 ", want: "A100"},
		{name: "all zeros", input: "0000", want: "0"},
		{name: "empty", input: "", want: ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := NormalizePartNumber(tc.input); got != tc.want {
				t.Fatalf("got %q want %q", got, tc.want)
			}
		})
	}
}

func TestNormalizePartNumberIdempotent(t *testing.T) {
	inputs := []string{"00123", "12-3", "00045-A", "123.100", "089.800.988", "ABC-0-1"}
	for _, in := range inputs {
		once := NormalizePartNumber(in)
		twice := NormalizePartNumber(once)
		if once != twice {
			t.Fatalf("not idempotent for %q: %q != %q", in, once, twice)
		}
	}
}

func TestParseStrictBool(t *testing.T) {
	if v, ok := ParseStrictBool("TRUE"); !ok || !v {
		t.Fatal("TRUE should parse true")
	}
	if v, ok := ParseStrictBool("false"); !ok || v {
		t.Fatal("false should parse false")
	}
	if _, ok := ParseStrictBool("False positive"); ok {
		t.Fatal("junk should not parse")
	}
	if _, ok := ParseStrictBool(""); ok {
		t.Fatal("empty should not parse")
	}
}
