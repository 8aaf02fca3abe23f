package kemono

import (
	"testing"

	"github.com/KJHJason/Kemono-Harvester-CLI/api/kemono/models"
	"github.com/KJHJason/Kemono-Harvester-CLI/configs"
)

func TestSortOldestFirst(t *testing.T) {
	posts := []*models.PostSummary{
		{Id: "30", Published: "2023-03-01T00:00:00"},
		{Id: "10", Published: "2023-01-01T00:00:00"},
		{Id: "21", Published: "2023-02-01T00:00:00"},
		{Id: "20", Published: "2023-02-01T00:00:00"},
	}
	sortOldestFirst(posts)

	expectedOrder := []string{"10", "20", "21", "30"}
	for i, id := range expectedOrder {
		if posts[i].Id != id {
			t.Errorf("position %d: got id %s, expected %s", i, posts[i].Id, id)
		}
	}
}

func TestSortOldestFirstFallsBackToAdded(t *testing.T) {
	posts := []*models.PostSummary{
		{Id: "2", Added: "2023-06-01T00:00:00"},
		{Id: "1", Published: "2023-01-01T00:00:00"},
		{Id: "3"}, // neither timestamp sorts first via the sentinel
	}
	sortOldestFirst(posts)
	if posts[0].Id != "3" || posts[1].Id != "1" || posts[2].Id != "2" {
		t.Errorf("order = %s, %s, %s", posts[0].Id, posts[1].Id, posts[2].Id)
	}
}

func TestNumericIdNonInteger(t *testing.T) {
	if got := numericId("not-a-number"); got != 0 {
		t.Errorf("numericId = %d, expected 0", got)
	}
	if got := numericId("42"); got != 42 {
		t.Errorf("numericId = %d, expected 42", got)
	}
}

func TestSortAllDecision(t *testing.T) {
	tests := []struct {
		mangaMode bool
		style     string
		expected  bool
	}{
		{true, configs.StyleDateBased, true},
		{true, configs.StyleTitleGlobal, true},
		{true, configs.StylePostTitle, true},
		{true, configs.StyleDateTitle, false}, // the date prefix keeps reader order
		{false, configs.StyleDateBased, false},
	}
	for _, test := range tests {
		args := &FeedArgs{MangaMode: test.mangaMode, Style: test.style}
		if got := args.sortAll(); got != test.expected {
			t.Errorf("sortAll(manga=%v, style=%s) = %v, expected %v",
				test.mangaMode, test.style, got, test.expected)
		}
	}
}

func TestFilterProcessed(t *testing.T) {
	args := &FeedArgs{
		Processed: map[string]struct{}{"1": {}, "3": {}},
	}
	page := []*models.PostSummary{{Id: "1"}, {Id: "2"}, {Id: "3"}, {Id: "4"}}
	filtered := args.filterProcessed(page)
	if len(filtered) != 2 || filtered[0].Id != "2" || filtered[1].Id != "4" {
		t.Errorf("filtered = %+v", filtered)
	}
}

func TestPublishedOrAddedSentinel(t *testing.T) {
	post := &models.PostSummary{}
	if got := post.PublishedOrAdded(); got != "0000-00-00T00:00:00" {
		t.Errorf("sentinel = %q", got)
	}
	post.Added = "2023-06-01T00:00:00"
	if got := post.PublishedOrAdded(); got != "2023-06-01T00:00:00" {
		t.Errorf("added fallback = %q", got)
	}
	post.Published = "2023-05-01T00:00:00"
	if got := post.PublishedOrAdded(); got != "2023-05-01T00:00:00" {
		t.Errorf("published = %q", got)
	}
}
