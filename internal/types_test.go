package internal

import "testing"

func TestAutoResponseSubject(t *testing.T) {
	drop := []string{
		"Automatic reply: C100 submission",
		"Out of Office - back Monday",
		"Undeliverable: contract pricing",
		"Read: C200 price file",
	}
	for _, s := range drop {
		if !AutoResponseSubject(s) {
			t.Errorf("%q should be dropped", s)
		}
	}

	keep := []string{
		"C100 contract submission",
		"RE: pricing update",
		"automatic door pricing", // keyword inside, not a reply prefix
	}
	for _, s := range keep {
		if AutoResponseSubject(s) {
			t.Errorf("%q should be kept", s)
		}
	}
}
