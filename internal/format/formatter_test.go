package format

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"rageddy/pkg/store"
)

func TestFormatBytes(t *testing.T) {
	cases := []struct {
		in   int64
		want string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{1048576, "1.0 MB"},
		{5 * 1024 * 1024 * 1024, "5.0 GB"},
	}

	for _, c := range cases {
		if got := FormatBytes(c.in); got != c.want {
			t.Errorf("FormatBytes(%d) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestSearchResultsText(t *testing.T) {
	var buf bytes.Buffer
	f := New(&buf, "text")

	results := []store.SearchResult{
		{Title: "Gopher Habits", Path: "gopher.md", Score: 0.91, Snippet: "tunnels everywhere"},
	}
	if err := f.SearchResults(results); err != nil {
		t.Fatal(err)
	}

	out := buf.String()
	if !strings.Contains(out, "Gopher Habits") {
		t.Errorf("missing title: %s", out)
	}
	if !strings.Contains(out, "tunnels everywhere") {
		t.Errorf("missing snippet: %s", out)
	}
}

func TestSearchResultsJSON(t *testing.T) {
	var buf bytes.Buffer
	f := New(&buf, "json")

	results := []store.SearchResult{{Title: "T", Path: "p.md", Score: 0.5}}
	if err := f.SearchResults(results); err != nil {
		t.Fatal(err)
	}

	var decoded []store.SearchResult
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if len(decoded) != 1 || decoded[0].Title != "T" {
		t.Errorf("unexpected decoded output: %+v", decoded)
	}
}

func TestSearchResultsEmpty(t *testing.T) {
	var buf bytes.Buffer
	f := New(&buf, "text")

	if err := f.SearchResults(nil); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "No results.") {
		t.Errorf("unexpected output: %s", buf.String())
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 40); got != "short" {
		t.Errorf("unexpected: %q", got)
	}
	long := strings.Repeat("x", 50)
	got := truncate(long, 40)
	if len(got) != 40 || !strings.HasSuffix(got, "...") {
		t.Errorf("unexpected: %q", got)
	}
}
