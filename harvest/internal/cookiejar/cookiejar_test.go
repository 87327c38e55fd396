package cookiejar

import (
	"os"
	"path/filepath"
	"testing"
)

const goodLine = ".youtube.com\tTRUE\t/\tTRUE\t1999999999\tSID\tabc123\n"

func writeCookieFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestResolve_PriorityOrder(t *testing.T) {
	// WHAT: master.txt wins over the platform file, which wins over cookies.txt.
	// WHY: The lookup order is a contract; operators rely on master.txt
	// overriding per-platform files.
	dir := t.TempDir()
	master := writeCookieFile(t, dir, "master_cookies.txt", goodLine)
	writeCookieFile(t, dir, "youtube_cookies.txt", goodLine)
	writeCookieFile(t, dir, "cookies.txt", goodLine)

	r := NewResolver(dir, nil)
	if got := r.Resolve("youtube"); got != master {
		t.Errorf("Resolve = %q, want master %q", got, master)
	}
}

func TestResolve_FallsThroughEmptyFiles(t *testing.T) {
	// WHAT: A file with only comments and malformed lines is skipped.
	// WHY: An empty master.txt must not shadow a valid platform file.
	dir := t.TempDir()
	writeCookieFile(t, dir, "master_cookies.txt", "# Netscape HTTP Cookie File\nnot\ttabs\tenough\n")
	platform := writeCookieFile(t, dir, "tiktok_cookies.txt", goodLine)

	r := NewResolver(dir, nil)
	if got := r.Resolve("tiktok"); got != platform {
		t.Errorf("Resolve = %q, want platform file %q", got, platform)
	}
}

func TestResolve_NothingUsable(t *testing.T) {
	// WHAT: Resolve returns "" when no usable file exists.
	// WHY: Anonymous extraction is a normal state, not an error.
	r := NewResolver(t.TempDir(), nil)
	if got := r.Resolve("instagram"); got != "" {
		t.Errorf("Resolve = %q, want empty", got)
	}
}

func TestParseFile_SkipsMalformedLines(t *testing.T) {
	// WHAT: Malformed lines are skipped, well-formed ones kept.
	// WHY: Browser exports often carry stray lines; one bad line must not
	// discard the whole credential file.
	dir := t.TempDir()
	path := writeCookieFile(t, dir, "mixed.txt",
		"# comment\n"+
			goodLine+
			"short\tline\n"+
			".tiktok.com\tTRUE\t/\tTRUE\t1999999999\tsessionid\txyz\n")

	cookies, err := ParseFile(path, nil)
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if len(cookies) != 2 {
		t.Fatalf("got %d cookies, want 2", len(cookies))
	}
	if cookies[0].Name != "SID" || cookies[1].Name != "sessionid" {
		t.Errorf("unexpected cookies: %+v", cookies)
	}
}

func TestHeaderFor_DomainMatching(t *testing.T) {
	// WHAT: Leading-dot domains match subdomains; exact domains match exactly.
	// WHY: Sending cookies to the wrong host either leaks credentials or
	// gets the request rejected.
	cookies := []Cookie{
		{Domain: ".youtube.com", Name: "SID", Value: "a"},
		{Domain: "studio.youtube.com", Name: "STUDIO", Value: "b"},
		{Domain: ".tiktok.com", Name: "tt", Value: "c"},
	}

	if got := HeaderFor(cookies, "www.youtube.com"); got != "SID=a" {
		t.Errorf("www.youtube.com header = %q, want SID=a", got)
	}
	if got := HeaderFor(cookies, "studio.youtube.com"); got != "SID=a; STUDIO=b" {
		t.Errorf("studio header = %q", got)
	}
	if got := HeaderFor(cookies, "example.com"); got != "" {
		t.Errorf("unrelated host header = %q, want empty", got)
	}
}
