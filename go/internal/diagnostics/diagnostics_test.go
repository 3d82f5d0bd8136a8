package diagnostics

import (
	"fmt"
	"strings"
	"testing"
)

func TestLogKeepsMostRecent(t *testing.T) {
	l := NewLog(3)
	for i := 0; i < 5; i++ {
		l.Record(Entry{Kind: KindAPI, URL: fmt.Sprintf("/req/%d", i), Status: 500})
	}

	got := l.Recent()
	if len(got) != 3 {
		t.Fatalf("len = %d; want 3", len(got))
	}
	for i, want := range []string{"/req/2", "/req/3", "/req/4"} {
		if got[i].URL != want {
			t.Errorf("entry %d = %s; want %s", i, got[i].URL, want)
		}
		if got[i].Timestamp.IsZero() {
			t.Errorf("entry %d has no timestamp", i)
		}
	}
}

func TestLogPartialAndCopy(t *testing.T) {
	l := NewLog(0)
	if l.Cap() != DefaultCapacity {
		t.Fatalf("cap = %d; want %d", l.Cap(), DefaultCapacity)
	}
	l.Record(Entry{Kind: KindChannel, ZoneID: "7", Text: strings.Repeat("x", 500)})

	got := l.Recent()
	if len(got) != 1 || l.Len() != 1 {
		t.Fatalf("len = %d/%d; want 1", len(got), l.Len())
	}
	if len(got[0].Text) != 200 {
		t.Errorf("text not truncated: %d", len(got[0].Text))
	}

	got[0].ZoneID = "mutated"
	if l.Recent()[0].ZoneID != "7" {
		t.Error("Recent must return a copy")
	}
}

func TestInitReplacesDefault(t *testing.T) {
	first := Init(5)
	if Default() != first {
		t.Fatal("Default should return the initialized log")
	}
	second := Init(5)
	if Default() != second || first == second {
		t.Error("Init should replace the process log")
	}
}
