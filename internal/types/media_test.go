package types

import (
	"encoding/json"
	"testing"
)

func sampleWords() []Word {
	return []Word{
		{Word: "hello", Index: 0, StartTime: 0.0, EndTime: 0.4},
		{Word: "world", Index: 1, StartTime: 0.4, EndTime: 0.8},
		{Word: "again", Index: 2, StartTime: 0.8, EndTime: 1.2},
	}
}

func TestParseWordListRawArray(t *testing.T) {
	raw, err := json.Marshal(sampleWords())
	if err != nil {
		t.Fatal(err)
	}
	words, err := ParseWordList(raw)
	if err != nil {
		t.Fatalf("parse raw array: %v", err)
	}
	if len(words) != 3 || words[1].Word != "world" {
		t.Fatalf("got %+v", words)
	}
}

func TestParseWordListQuotedLegacyForm(t *testing.T) {
	inner, err := json.Marshal(sampleWords())
	if err != nil {
		t.Fatal(err)
	}
	// Legacy rows store the array marshalled again as a JSON string.
	outer, err := json.Marshal(string(inner))
	if err != nil {
		t.Fatal(err)
	}
	words, err := ParseWordList(outer)
	if err != nil {
		t.Fatalf("parse quoted form: %v", err)
	}
	if len(words) != 3 || words[2].Word != "again" {
		t.Fatalf("got %+v", words)
	}
}

func TestParseWordListEmpty(t *testing.T) {
	for _, raw := range []string{"", "null"} {
		words, err := ParseWordList([]byte(raw))
		if err != nil {
			t.Fatalf("parse %q: %v", raw, err)
		}
		if words != nil {
			t.Fatalf("parse %q: want nil, got %v", raw, words)
		}
	}
}

func TestKeptWordsDeleteUndelete(t *testing.T) {
	words := make([]Word, 10)
	for i := range words {
		words[i] = Word{Word: "w", Index: i}
	}
	logs := []EditLog{
		{Type: LogTypeDelete, StartIndex: 2, EndIndex: 6},
		{Type: LogTypeUndelete, StartIndex: 4, EndIndex: 4},
		{Type: LogTypeMessage, Message: "note"},
	}
	kept := KeptWords(words, logs)
	got := make([]int, len(kept))
	for i, w := range kept {
		got[i] = w.Index
	}
	want := []int{0, 1, 4, 7, 8, 9}
	if len(got) != len(want) {
		t.Fatalf("kept %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("kept %v, want %v", got, want)
		}
	}
}

func TestKeptWordsSkipsTombstones(t *testing.T) {
	words := []Word{
		{Word: "a", Index: 0},
		{Word: "b", Index: -1}, // editor tombstone
		{Word: "c", Index: 2},
	}
	kept := KeptWords(words, nil)
	if len(kept) != 2 || kept[0].Index != 0 || kept[1].Index != 2 {
		t.Fatalf("got %+v", kept)
	}
}
