package knownnames

import (
	"os"
	"path/filepath"
	"testing"
)

func writeKnownFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "Known.txt")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadParsesBothRecordShapes(t *testing.T) {
	store := NewStore(writeKnownFile(t, "Alice\n(Bob, Bobby, Robert)\n\nCarol\n"))
	if err := store.Load(); err != nil {
		t.Fatal(err)
	}
	groups := store.Groups()
	if len(groups) != 3 {
		t.Fatalf("got %d groups, expected 3", len(groups))
	}
	if groups[0].Name != "Alice" || groups[0].IsGroup {
		t.Errorf("first group = %+v", groups[0])
	}
	if groups[1].Name != "Bob Bobby Robert" || !groups[1].IsGroup || len(groups[1].Aliases) != 3 {
		t.Errorf("second group = %+v", groups[1])
	}
}

func TestMatchTitleWholeWordAfterTagStripping(t *testing.T) {
	store := NewStore(writeKnownFile(t, "Alice\n(Bob, Robert)\n"))
	if err := store.Load(); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		title    string
		expected []string
	}{
		{"[HD] Alice beach set (1920x1080)", []string{"Alice"}},
		{"Robert goes fishing", []string{"Bob Robert"}},
		{"Alice and Robert", []string{"Alice", "Bob Robert"}},
		{"Alicette solo", nil}, // no partial-word matches
		{"nothing here", nil},
	}
	for _, test := range tests {
		got := store.MatchTitle(test.title)
		if len(got) != len(test.expected) {
			t.Errorf("MatchTitle(%q) = %v, expected %v", test.title, got, test.expected)
			continue
		}
		for i := range got {
			if got[i] != test.expected[i] {
				t.Errorf("MatchTitle(%q) = %v, expected %v", test.title, got, test.expected)
				break
			}
		}
	}
}

func TestMatchFilenameUsesPrefix(t *testing.T) {
	store := NewStore(writeKnownFile(t, "Alice\n"))
	if err := store.Load(); err != nil {
		t.Fatal(err)
	}
	if got := store.MatchFilename("alice_beach_01.png"); len(got) != 1 || got[0] != "Alice" {
		t.Errorf("got %v", got)
	}
	if got := store.MatchFilename("beach_alice.png"); got != nil {
		t.Errorf("non-prefix filename matched: %v", got)
	}
}

func TestSaveUnionsExternalEdits(t *testing.T) {
	path := writeKnownFile(t, "Alice\n")
	store := NewStore(path)
	if err := store.Load(); err != nil {
		t.Fatal(err)
	}
	store.Add(&Group{Name: "Carol", Aliases: []string{"Carol"}})

	// simulate the user appending a line while the program is running
	if err := os.WriteFile(path, []byte("Alice\nDave\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := store.Save(); err != nil {
		t.Fatal(err)
	}

	reloaded := NewStore(path)
	if err := reloaded.Load(); err != nil {
		t.Fatal(err)
	}
	names := make(map[string]bool)
	for _, group := range reloaded.Groups() {
		names[group.Name] = true
	}
	for _, expected := range []string{"Alice", "Carol", "Dave"} {
		if !names[expected] {
			t.Errorf("expected %q to survive the save, got %v", expected, names)
		}
	}
}

func TestLoadMissingFileIsEmpty(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "missing.txt"))
	if err := store.Load(); err != nil {
		t.Fatal(err)
	}
	if len(store.Groups()) != 0 {
		t.Errorf("expected no groups, got %d", len(store.Groups()))
	}
}

func TestFilterGroups(t *testing.T) {
	store := NewStore(writeKnownFile(t, "Alice\nBob\nCarol\n"))
	if err := store.Load(); err != nil {
		t.Fatal(err)
	}
	filtered := store.FilterGroups([]string{"alice", "Carol"})
	if len(filtered) != 2 {
		t.Fatalf("got %d groups, expected 2", len(filtered))
	}
	if filtered[0].Name != "Alice" || filtered[1].Name != "Carol" {
		t.Errorf("got %v", filtered)
	}
}
