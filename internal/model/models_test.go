package model

import (
	"reflect"
	"testing"
)

func TestAuthorsRoundTrip(t *testing.T) {
	cases := [][]string{
		nil,
		{"Roald Dahl"},
		{"Roald Dahl", "Quentin Blake"},
		{"Smith, Jr.", "Doe, Sr."},
	}
	for _, authors := range cases {
		got := SplitAuthors(JoinAuthors(authors))
		if !reflect.DeepEqual(got, authors) {
			t.Errorf("Round trip of %v gave %v", authors, got)
		}
	}
}

func TestSplitAuthorsLegacyCommaColumn(t *testing.T) {
	got := SplitAuthors("Roald Dahl, Quentin Blake")
	want := []string{"Roald Dahl", "Quentin Blake"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Legacy column split gave %v", got)
	}

	if SplitAuthors("") != nil {
		t.Error("Empty column should split to nil")
	}
}
