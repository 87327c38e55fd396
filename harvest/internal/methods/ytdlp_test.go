package methods

import (
	"testing"
)

func TestParseYtDlpDump_Playlist(t *testing.T) {
	// WHAT: A -J playlist document yields one entry per playlist item,
	// preferring webpage_url over url.
	// WHY: Flat entries carry "url", resolved entries "webpage_url"; both
	// shapes occur in the wild depending on the extractor.
	out := []byte(`{
		"title": "Uploads",
		"entries": [
			{"webpage_url": "https://www.youtube.com/watch?v=abc", "title": "First", "upload_date": "20250110"},
			{"url": "https://www.youtube.com/watch?v=def", "title": "Second"},
			{"title": "no link, skipped"}
		]
	}`)

	entries, err := parseYtDlpDump(out)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].URL != "https://www.youtube.com/watch?v=abc" || entries[0].Date != "20250110" {
		t.Errorf("entry 0 = %+v", entries[0])
	}
	if entries[1].Title != "Second" {
		t.Errorf("entry 1 = %+v", entries[1])
	}
}

func TestParseYtDlpDump_SingleVideo(t *testing.T) {
	// WHAT: A single-video document (no entries array) degrades to one entry.
	// WHY: Pointing yt-dlp at a direct video URL returns a bare video object.
	out := []byte(`{"webpage_url": "https://www.youtube.com/watch?v=solo", "title": "Solo", "upload_date": "20250201"}`)

	entries, err := parseYtDlpDump(out)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(entries) != 1 || entries[0].URL != "https://www.youtube.com/watch?v=solo" {
		t.Fatalf("entries = %+v", entries)
	}
}

func TestParseYtDlpDump_Garbage(t *testing.T) {
	// WHAT: Non-JSON output is a parse error.
	// WHY: The caller classifies this as malformed output and moves on.
	if _, err := parseYtDlpDump([]byte("WARNING: not json at all")); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestParseYtDlpLines_SkipsBadLines(t *testing.T) {
	// WHAT: Line-delimited parsing keeps good lines and drops bad ones.
	// WHY: yt-dlp interleaves warnings with JSON on some extractors; one
	// mangled line must not discard the listing.
	out := []byte(`{"url": "https://t.example/video/1", "title": "one"}
garbage line
{"url": "https://t.example/video/2", "title": "two", "upload_date": "20250301"}
`)

	entries := parseYtDlpLines(out)
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[1].Date != "20250301" {
		t.Errorf("entry 1 date = %q", entries[1].Date)
	}
}

func TestParseYtDlpColumns_HandlesNA(t *testing.T) {
	// WHAT: Tab-separated output with NA placeholders parses into entries
	// with empty title/date.
	// WHY: yt-dlp prints the literal "NA" for fields the extractor lacks.
	out := []byte("https://t.example/video/1\tFirst\t20250110\n" +
		"https://t.example/video/2\tNA\tNA\n" +
		"NA\tno url\tNA\n")

	entries := parseYtDlpColumns(out)
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[1].Title != "" || entries[1].Date != "" {
		t.Errorf("NA fields should be empty: %+v", entries[1])
	}
}

func TestEffectiveLimit_CapAndTruncation(t *testing.T) {
	// WHAT: The method cap lowers the caller's limit and reports that it did;
	// an uncapped method passes the limit through.
	// WHY: The cap flag feeds the Truncated metadata when the harvest fills
	// the lowered limit.
	capped := ytdlpBase{cfg: YtDlpConfig{Cap: 100}}
	if limit, trunc := capped.effectiveLimit(500); limit != 100 || !trunc {
		t.Errorf("capped: limit=%d trunc=%v, want 100 true", limit, trunc)
	}
	if limit, trunc := capped.effectiveLimit(50); limit != 50 || trunc {
		t.Errorf("under cap: limit=%d trunc=%v, want 50 false", limit, trunc)
	}

	uncapped := ytdlpBase{}
	if limit, trunc := uncapped.effectiveLimit(500); limit != 500 || trunc {
		t.Errorf("uncapped: limit=%d trunc=%v, want 500 false", limit, trunc)
	}
}

func TestLooksBlocked(t *testing.T) {
	// WHAT: Access-denial markers in tool output are detected
	// case-insensitively; neutral errors are not.
	// WHY: Blocked and malformed-output drive different ranking outcomes.
	blocked := []string{
		"ERROR: [youtube] HTTP Error 403: Forbidden",
		"ERROR: Sign in to confirm you're not a bot",
		"429 Too Many Requests",
		"This account is private",
	}
	for _, s := range blocked {
		if !looksBlocked(s) {
			t.Errorf("looksBlocked(%q) = false, want true", s)
		}
	}
	if looksBlocked("ERROR: Unsupported URL") {
		t.Error("neutral error misclassified as blocked")
	}
}
