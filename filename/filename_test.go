package filename

import (
	"fmt"
	"testing"

	"github.com/KJHJason/Kemono-Harvester-CLI/configs"
)

func TestSynthesizePostTitle(t *testing.T) {
	tests := []struct {
		fileIndex int
		expected  string
	}{
		{0, "My Post.png"},
		{1, "My Post _1.png"},
		{2, "My Post _2.png"},
	}
	for _, test := range tests {
		got := Synthesize(&StyleArgs{
			OriginalName:     "a.png",
			PostTitle:        "My Post",
			PostId:           "123",
			FileIndex:        test.fileIndex,
			FilesInPost:      3,
			PublishedOrAdded: "2023-05-01T12:00:00",
			Style:            configs.StylePostTitle,
		})
		if got != test.expected {
			t.Errorf("index %d: got %q, expected %q", test.fileIndex, got, test.expected)
		}
	}
}

func TestSynthesizeOriginalNameKeepsDatePrefix(t *testing.T) {
	got := Synthesize(&StyleArgs{
		OriginalName:     "photo_set.JPG",
		PostTitle:        "ignored",
		PostId:           "123",
		PublishedOrAdded: "2023-05-01T12:00:00",
		Style:            configs.StyleOriginalName,
	})
	if got != "2023-05-01_photo_set.jpg" {
		t.Errorf("got %q", got)
	}
}

func TestSynthesizeDateTitle(t *testing.T) {
	got := Synthesize(&StyleArgs{
		OriginalName:     "b.png",
		PostTitle:        "Chapter One",
		FileIndex:        1,
		FilesInPost:      2,
		PublishedOrAdded: "2024-01-15T08:30:00",
		Style:            configs.StyleDateTitle,
	})
	if got != "2024-01-15_Chapter One _1.png" {
		t.Errorf("got %q", got)
	}
}

func TestSynthesizeDateBasedSequence(t *testing.T) {
	counters := NewCounters()
	var got []string
	for post := 0; post < 3; post++ {
		for file := 0; file < 2; file++ {
			got = append(got, Synthesize(&StyleArgs{
				OriginalName:     fmt.Sprintf("%c.png", 'a'+file),
				PostTitle:        "whatever",
				FileIndex:        file,
				FilesInPost:      2,
				PublishedOrAdded: "2023-01-01T00:00:00",
				Style:            configs.StyleDateBased,
				MangaPrefix:      "Ch",
				Counters:         counters,
			}))
		}
	}
	expected := []string{"Ch 001.png", "Ch 002.png", "Ch 003.png", "Ch 004.png", "Ch 005.png", "Ch 006.png"}
	for i := range expected {
		if got[i] != expected[i] {
			t.Errorf("file %d: got %q, expected %q", i, got[i], expected[i])
		}
	}
}

func TestSynthesizeDateBasedWithoutPrefix(t *testing.T) {
	counters := NewCounters()
	got := Synthesize(&StyleArgs{
		OriginalName: "a.png",
		Style:        configs.StyleDateBased,
		Counters:     counters,
	})
	if got != "001.png" {
		t.Errorf("got %q", got)
	}
}

func TestSynthesizeTitleGlobal(t *testing.T) {
	counters := NewCounters()
	counters.Seed(0, 41)
	got := Synthesize(&StyleArgs{
		OriginalName: "x.webm",
		PostTitle:    "Series",
		Style:        configs.StyleTitleGlobal,
		Counters:     counters,
	})
	if got != "Series_042.webm" {
		t.Errorf("got %q", got)
	}
}

func TestSynthesizePostId(t *testing.T) {
	got := Synthesize(&StyleArgs{
		OriginalName: "orig.mp4",
		PostId:       "98765",
		FileIndex:    3,
		Style:        configs.StylePostId,
	})
	if got != "98765_3.mp4" {
		t.Errorf("got %q", got)
	}
}

func TestSynthesizeCleansIllegalChars(t *testing.T) {
	got := Synthesize(&StyleArgs{
		OriginalName: "a.png",
		PostTitle:    `What: a "post"?`,
		PostId:       "1",
		Style:        configs.StylePostTitle,
	})
	for _, r := range got {
		switch r {
		case ':', '"', '?', '<', '>', '|', '*', '/', '\\':
			t.Fatalf("illegal char %q left in %q", r, got)
		}
	}
}

func TestApplyRemoveWords(t *testing.T) {
	tests := []struct {
		name        string
		removeWords []string
		expected    string
	}{
		{"Alice [HD] set.png", []string{"[HD]"}, "Alice  set.png"},
		{"Alice nsfw.png", []string{"NSFW"}, "Alice.png"},
		{"Alice.png", nil, "Alice.png"},
		{"nsfw.png", []string{"nsfw"}, "file.png"},
	}
	for _, test := range tests {
		got := ApplyRemoveWords(test.name, test.removeWords)
		if got != test.expected {
			t.Errorf("ApplyRemoveWords(%q, %v) = %q, expected %q", test.name, test.removeWords, got, test.expected)
		}
	}
}

func TestCountersAreMonotonic(t *testing.T) {
	counters := NewCounters()
	done := make(chan struct{})
	for i := 0; i < 4; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			for j := 0; j < 100; j++ {
				counters.nextDateBased()
				counters.nextGlobalNumbering()
			}
		}()
	}
	for i := 0; i < 4; i++ {
		<-done
	}
	dateBased, globalNumbering := counters.Values()
	if dateBased != 400 || globalNumbering != 400 {
		t.Errorf("got (%d, %d), expected (400, 400)", dateBased, globalNumbering)
	}
}
