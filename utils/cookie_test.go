package utils

import (
	"os"
	"path/filepath"
	"testing"
)

const netscapeFixture = `# Netscape HTTP Cookie File
# This is a generated file! Do not edit.

.kemono.su	TRUE	/	TRUE	1893456000	session	abc123
kemono.su	FALSE	/	FALSE	0	theme	dark
.coomer.su	TRUE	/	TRUE	1893456000	session	other
`

func writeCookieFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cookies.txt")
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestParseNetscapeCookieFile(t *testing.T) {
	path := writeCookieFile(t, netscapeFixture)
	cookies, err := ParseNetscapeCookieFile(path, "kemono.su")
	if err != nil {
		t.Fatal(err)
	}
	if len(cookies) != 2 {
		t.Fatalf("got %d cookies, expected 2 (the coomer row is filtered out)", len(cookies))
	}
	if cookies[0].Name != "session" || cookies[0].Value != "abc123" {
		t.Errorf("first cookie = %+v", cookies[0])
	}
	if !cookies[0].Secure {
		t.Error("first cookie should be secure")
	}
	if cookies[0].Expires.IsZero() {
		t.Error("first cookie should carry its expiry")
	}
	if cookies[1].Name != "theme" || !cookies[1].Expires.IsZero() {
		t.Errorf("second cookie = %+v", cookies[1])
	}
}

func TestParseNetscapeCookieFileSubdomainMatch(t *testing.T) {
	path := writeCookieFile(t, ".kemono.su\tTRUE\t/\tTRUE\t0\tsession\tabc\n")
	cookies, err := ParseNetscapeCookieFile(path, "c1.kemono.su")
	if err != nil {
		t.Fatal(err)
	}
	if len(cookies) != 1 {
		t.Fatalf("dot-prefixed domain should match subdomains, got %d cookies", len(cookies))
	}
}

func TestParseNetscapeCookieFileBadRow(t *testing.T) {
	path := writeCookieFile(t, "kemono.su\tonly\tfour\tfields\n")
	if _, err := ParseNetscapeCookieFile(path, "kemono.su"); err == nil {
		t.Error("expected an error for a malformed row")
	}
}

func TestParseNetscapeCookieFileMissing(t *testing.T) {
	if _, err := ParseNetscapeCookieFile(filepath.Join(t.TempDir(), "nope.txt"), "kemono.su"); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestParseRawCookieString(t *testing.T) {
	cookies := ParseRawCookieString("session=abc123; theme=dark;; malformed", "kemono.su")
	if len(cookies) != 2 {
		t.Fatalf("got %d cookies, expected 2", len(cookies))
	}
	if cookies[0].Name != "session" || cookies[0].Value != "abc123" {
		t.Errorf("first cookie = %+v", cookies[0])
	}
	if cookies[1].Domain != "kemono.su" || cookies[1].Path != "/" {
		t.Errorf("second cookie = %+v", cookies[1])
	}
}

func TestResolveCookiesUserFileWins(t *testing.T) {
	path := writeCookieFile(t, netscapeFixture)
	cookies, err := ResolveCookies(path, "ignored=raw", "kemono.su")
	if err != nil {
		t.Fatal(err)
	}
	if len(cookies) != 2 {
		t.Fatalf("got %d cookies", len(cookies))
	}
}

func TestResolveCookiesRawFallback(t *testing.T) {
	cookies, err := ResolveCookies("", "session=abc", "nosuchdomain.example")
	if err != nil {
		t.Fatal(err)
	}
	if len(cookies) != 1 || cookies[0].Name != "session" {
		t.Errorf("cookies = %+v", cookies)
	}
}
