package images

import "testing"

func TestScanContent(t *testing.T) {
	html := `<p>preview below</p>
<img src="https://c1.kemono.su/data/ab/cd/preview.png">
<img src="/thumbnail/data/ef/gh/inline.jpg">
<p>full res at https://files.example.com/art/full.jpeg?f=orig.jpeg enjoy!</p>
<img src="https://c1.kemono.su/data/ab/cd/preview.png">`

	urls := ScanContent(html)
	if len(urls) != 3 {
		t.Fatalf("got %d urls, expected 3 (duplicate img dropped): %v", len(urls), urls)
	}
	if urls[0] != "https://c1.kemono.su/data/ab/cd/preview.png" {
		t.Errorf("urls[0] = %q", urls[0])
	}
	if urls[1] != "/thumbnail/data/ef/gh/inline.jpg" {
		t.Errorf("urls[1] = %q", urls[1])
	}
	if urls[2] != "https://files.example.com/art/full.jpeg?f=orig.jpeg" {
		t.Errorf("urls[2] = %q", urls[2])
	}
}

func TestScanContentEmpty(t *testing.T) {
	if urls := ScanContent(""); urls != nil {
		t.Errorf("got %v", urls)
	}
	if urls := ScanContent("<p>no images here</p>"); len(urls) != 0 {
		t.Errorf("got %v", urls)
	}
}

func TestShouldRecompress(t *testing.T) {
	big := int64(recompressThreshold + 1)
	tests := []struct {
		name     string
		path     string
		size     int64
		expected bool
	}{
		{"big png", "photo.png", big, true},
		{"small png", "photo.png", 1024, false},
		{"exactly at threshold", "photo.png", recompressThreshold, false},
		{"already webp", "photo.webp", big, false},
		{"not an image", "movie.mp4", big, false},
		{"uppercase ext", "PHOTO.PNG", big, true},
	}
	for _, test := range tests {
		if got := ShouldRecompress(test.path, test.size); got != test.expected {
			t.Errorf("%s: ShouldRecompress(%q, %d) = %v, expected %v",
				test.name, test.path, test.size, got, test.expected)
		}
	}
}
