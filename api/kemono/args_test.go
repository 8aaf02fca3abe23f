package kemono

import "testing"

func TestParseSourceUrl(t *testing.T) {
	tests := []struct {
		url     string
		site    string
		service string
		userId  string
		postId  string
	}{
		{"https://kemono.su/patreon/user/123456", "kemono", "patreon", "123456", ""},
		{"https://kemono.su/patreon/user/123456/", "kemono", "patreon", "123456", ""},
		{"https://kemono.cr/fanbox/user/98765/post/111", "kemono", "fanbox", "98765", "111"},
		{"https://coomer.party/onlyfans/user/some-name", "coomer", "onlyfans", "some-name", ""},
		{"http://kemono.party/gumroad/user/abc.def", "kemono", "gumroad", "abc.def", ""},
	}
	for _, test := range tests {
		source, err := ParseSourceUrl(test.url)
		if err != nil {
			t.Errorf("ParseSourceUrl(%q) returned error: %v", test.url, err)
			continue
		}
		if source.Site != test.site || source.Service != test.service ||
			source.UserId != test.userId || source.PostId != test.postId {
			t.Errorf("ParseSourceUrl(%q) = %+v", test.url, source)
		}
	}
}

func TestParseSourceUrlRejectsGarbage(t *testing.T) {
	badUrls := []string{
		"",
		"https://example.com/patreon/user/123",
		"https://kemono.su/patreon/123456",
		"kemono.su/patreon/user/123456",
		"https://kemono.su/patreon/user/123/post/1/extra",
	}
	for _, url := range badUrls {
		if _, err := ParseSourceUrl(url); err == nil {
			t.Errorf("ParseSourceUrl(%q) should have failed", url)
		}
	}
}

func TestSourceUrls(t *testing.T) {
	source, err := ParseSourceUrl("https://kemono.su/patreon/user/123456")
	if err != nil {
		t.Fatal(err)
	}
	if got := source.Host(); got != "kemono.su" {
		t.Errorf("Host() = %q", got)
	}
	if got := source.PostsUrl(); got != "https://kemono.su/api/v1/patreon/user/123456/posts" {
		t.Errorf("PostsUrl() = %q", got)
	}
	if got := source.PostUrl("789"); got != "https://kemono.su/api/v1/patreon/user/123456/post/789" {
		t.Errorf("PostUrl() = %q", got)
	}
	if got := source.CommentsUrl("789"); got != "https://kemono.su/api/v1/patreon/user/123456/post/789/comments" {
		t.Errorf("CommentsUrl() = %q", got)
	}
	if got := source.ProfileKey(); got != "patreon_123456" {
		t.Errorf("ProfileKey() = %q", got)
	}
}

func TestDataUrlHandlesLeadingSlash(t *testing.T) {
	source, _ := ParseSourceUrl("https://kemono.su/patreon/user/123456")
	withSlash := source.DataUrl("/aa/bb/file.png")
	withoutSlash := source.DataUrl("aa/bb/file.png")
	expected := "https://kemono.su/data/aa/bb/file.png"
	if withSlash != expected || withoutSlash != expected {
		t.Errorf("DataUrl = %q / %q, expected %q", withSlash, withoutSlash, expected)
	}
}
