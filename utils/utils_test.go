package utils

import "testing"

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Spring Open":            "spring-open",
		"  City Slam 2026  ":     "city-slam-2026",
		"Köln Masters":           "k-ln-masters",
		"UPPER---case":           "upper-case",
		"trailing punctuation!!": "trailing-punctuation",
	}
	for in, want := range cases {
		if got := Slugify(in); got != want {
			t.Errorf("Slugify(%q) = %q, want %q", in, got, want)
		}
	}
}
