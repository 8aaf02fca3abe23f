// Package filename synthesizes on-disk filenames for the selected
// naming style.
package filename

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/KJHJason/Kemono-Harvester-CLI/configs"
	"github.com/KJHJason/Kemono-Harvester-CLI/utils"
)

// Counters hold the shared sequential numbers used by the manga
// styles. Increments happen under the lock so the sequence stays
// strictly increasing even if callers misconfigure the worker count.
type Counters struct {
	mu              sync.Mutex
	dateBased       int
	globalNumbering int
}

func NewCounters() *Counters {
	return &Counters{}
}

// Seed restores counter values from a saved session.
func (c *Counters) Seed(dateBased, globalNumbering int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dateBased = dateBased
	c.globalNumbering = globalNumbering
}

// Values returns the current counter values for session snapshots.
func (c *Counters) Values() (dateBased, globalNumbering int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dateBased, c.globalNumbering
}

func (c *Counters) nextDateBased() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dateBased++
	return c.dateBased
}

func (c *Counters) nextGlobalNumbering() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.globalNumbering++
	return c.globalNumbering
}

// StyleArgs carries everything one synthesis decision needs.
type StyleArgs struct {
	OriginalName     string
	PostTitle        string
	PostId           string
	FileIndex        int // zero-based position within the post
	FilesInPost      int
	PublishedOrAdded string
	Style            string
	MangaPrefix      string
	Counters         *Counters
}

func cleanComponent(s string) string {
	return strings.TrimSpace(utils.RemoveIllegalCharsInPathName(s))
}

// indexSuffix is empty for the first file of a multi-file post, so
// the common single-image case keeps the bare title.
func indexSuffix(args *StyleArgs) string {
	if args.FileIndex == 0 {
		return ""
	}
	return fmt.Sprintf(" _%d", args.FileIndex)
}

// Synthesize builds the base filename for the chosen style, keeping
// the original extension.
func Synthesize(args *StyleArgs) string {
	ext := filepath.Ext(args.OriginalName)
	var stem string
	switch args.Style {
	case configs.StyleOriginalName:
		// the date prefix is deliberate, it keeps "original" names
		// sortable by upload date
		stem = fmt.Sprintf(
			"%s_%s",
			utils.DatePrefix(args.PublishedOrAdded),
			cleanComponent(utils.RemoveExtFromFilename(args.OriginalName)),
		)
	case configs.StyleDateTitle:
		stem = fmt.Sprintf(
			"%s_%s%s",
			utils.DatePrefix(args.PublishedOrAdded),
			cleanComponent(args.PostTitle),
			indexSuffix(args),
		)
	case configs.StyleTitleGlobal:
		stem = fmt.Sprintf(
			"%s_%03d",
			cleanComponent(args.PostTitle),
			args.Counters.nextGlobalNumbering(),
		)
	case configs.StyleDateBased:
		n := args.Counters.nextDateBased()
		if prefix := cleanComponent(args.MangaPrefix); prefix != "" {
			stem = fmt.Sprintf("%s %03d", prefix, n)
		} else {
			stem = fmt.Sprintf("%03d", n)
		}
	case configs.StylePostId:
		stem = fmt.Sprintf("%s_%d", args.PostId, args.FileIndex)
	default: // configs.StylePostTitle
		stem = fmt.Sprintf(
			"%s%s",
			cleanComponent(args.PostTitle),
			indexSuffix(args),
		)
	}

	if stem == "" {
		stem = args.PostId
	}
	return stem + strings.ToLower(ext)
}

// ApplyRemoveWords strips the configured substrings from the base name
// (case-insensitive), leaving the extension alone.
func ApplyRemoveWords(name string, removeWords []string) string {
	if len(removeWords) == 0 {
		return name
	}
	ext := filepath.Ext(name)
	stem := utils.RemoveExtFromFilename(name)
	for _, word := range removeWords {
		if word == "" {
			continue
		}
		stem = removeCaseInsensitive(stem, word)
	}
	stem = strings.TrimSpace(stem)
	if stem == "" {
		stem = "file"
	}
	return stem + ext
}

func removeCaseInsensitive(s, word string) string {
	lower := strings.ToLower(s)
	target := strings.ToLower(word)
	var b strings.Builder
	for {
		idx := strings.Index(lower, target)
		if idx == -1 {
			b.WriteString(s)
			return b.String()
		}
		b.WriteString(s[:idx])
		s = s[idx+len(word):]
		lower = lower[idx+len(target):]
	}
}
