package opml

import (
	"bytes"
	"strings"
	"testing"
)

func TestParse_FlattensGroups(t *testing.T) {
	doc := `<?xml version="1.0" encoding="UTF-8"?>
<opml version="2.0">
  <head><title>Subscriptions</title></head>
  <body>
    <outline text="Planet Money" type="rss" xmlUrl="http://example.org/money.xml"/>
    <outline text="Tech">
      <outline text="Darknet Diaries" title="Darknet Diaries" type="rss" xmlUrl="http://example.org/darknet.xml"/>
    </outline>
    <outline text="No URL here"/>
  </body>
</opml>`

	feeds, err := Parse(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("Failed to parse opml: %v", err)
	}
	if len(feeds) != 2 {
		t.Fatalf("Expected 2 feeds, got %d", len(feeds))
	}
	if feeds[0].Title != "Planet Money" || feeds[0].URL != "http://example.org/money.xml" {
		t.Errorf("Unexpected first feed: %+v", feeds[0])
	}
	if feeds[1].Title != "Darknet Diaries" || feeds[1].URL != "http://example.org/darknet.xml" {
		t.Errorf("Unexpected second feed: %+v", feeds[1])
	}
}

func TestParse_Invalid(t *testing.T) {
	if _, err := Parse(strings.NewReader("not xml at all")); err == nil {
		t.Fatal("Expected parse error for invalid document")
	}
}

func TestExportRoundTrip(t *testing.T) {
	feeds := []Feed{
		{Title: "Planet Money", URL: "http://example.org/money.xml"},
		{Title: "Darknet Diaries", URL: "http://example.org/darknet.xml"},
	}

	var buf bytes.Buffer
	if err := Export(&buf, feeds); err != nil {
		t.Fatalf("Failed to export opml: %v", err)
	}
	if !strings.HasPrefix(buf.String(), "<?xml") {
		t.Error("Expected XML declaration at start of export")
	}

	parsed, err := Parse(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("Failed to re-parse exported opml: %v", err)
	}
	if len(parsed) != len(feeds) {
		t.Fatalf("Expected %d feeds, got %d", len(feeds), len(parsed))
	}
	for i := range feeds {
		if parsed[i] != feeds[i] {
			t.Errorf("Feed %d: expected %+v, got %+v", i, feeds[i], parsed[i])
		}
	}
}
