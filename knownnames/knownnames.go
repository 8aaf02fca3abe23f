// Package knownnames persists the name/alias groups used to route
// posts into per-character folders.
package knownnames

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/KJHJason/Kemono-Harvester-CLI/configs"
	"github.com/KJHJason/Kemono-Harvester-CLI/utils"
)

var (
	bracketTagRegex = regexp.MustCompile(`\[[^\]]*\]|\([^)]*\)`)
	resolutionRegex = regexp.MustCompile(`(?i)\b\d{3,4}\s*[xX]\s*\d{3,4}\b|\b\d{3,4}p\b|\b[248]k\b`)
)

// stripTitleTags removes bracketed tags and resolution markers so
// "[HD] Alice (1920x1080)" still matches the alias "Alice".
func stripTitleTags(title string) string {
	title = bracketTagRegex.ReplaceAllString(title, " ")
	title = resolutionRegex.ReplaceAllString(title, " ")
	return strings.Join(strings.Fields(title), " ")
}

// Group is one known-names record. A plain name is a group whose only
// alias is the name itself.
type Group struct {
	Name    string
	IsGroup bool
	Aliases []string
}

func (g *Group) line() string {
	if !g.IsGroup {
		return g.Aliases[0]
	}
	return fmt.Sprintf("(%s)", strings.Join(g.Aliases, ", "))
}

func parseLine(line string) (*Group, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil, false
	}
	if strings.HasPrefix(line, "(") && strings.HasSuffix(line, ")") {
		var aliases []string
		for _, alias := range strings.Split(line[1:len(line)-1], ",") {
			if alias = strings.TrimSpace(alias); alias != "" {
				aliases = append(aliases, alias)
			}
		}
		if len(aliases) == 0 {
			return nil, false
		}
		name := utils.RemoveIllegalCharsInPathName(strings.Join(aliases, " "))
		return &Group{Name: name, IsGroup: true, Aliases: aliases}, true
	}
	return &Group{
		Name:    utils.RemoveIllegalCharsInPathName(line),
		IsGroup: false,
		Aliases: []string{line},
	}, true
}

// Store is the in-memory view of Known.txt.
type Store struct {
	mu       sync.Mutex
	filePath string
	groups   []*Group
}

func NewStore(filePath string) *Store {
	if filePath == "" {
		filePath = utils.KNOWN_NAMES_FILE_PATH
	}
	return &Store{filePath: filePath}
}

func readGroups(filePath string) ([]*Group, error) {
	f, err := os.Open(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf(
			"error %d: failed to open %s, more info => %w",
			utils.OS_ERROR,
			filePath,
			err,
		)
	}
	defer f.Close()

	var groups []*Group
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if group, ok := parseLine(scanner.Text()); ok {
			groups = append(groups, group)
		}
	}
	return groups, scanner.Err()
}

// Load reads the file, replacing the in-memory state.
func (s *Store) Load() error {
	groups, err := readGroups(s.filePath)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.groups = groups
	s.mu.Unlock()
	return nil
}

// Save rewrites the file atomically. The file is re-read first and
// unioned with the in-memory groups so lines added by hand while the
// program ran are never lost.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	onDisk, err := readGroups(s.filePath)
	if err != nil {
		return err
	}
	seen := make(map[string]struct{}, len(s.groups))
	merged := make([]*Group, 0, len(s.groups)+len(onDisk))
	for _, group := range s.groups {
		seen[group.line()] = struct{}{}
		merged = append(merged, group)
	}
	for _, group := range onDisk {
		if _, ok := seen[group.line()]; !ok {
			merged = append(merged, group)
		}
	}
	s.groups = merged

	if err := os.MkdirAll(filepath.Dir(s.filePath), 0755); err != nil {
		return fmt.Errorf(
			"error %d: failed to create %s, more info => %w",
			utils.OS_ERROR,
			filepath.Dir(s.filePath),
			err,
		)
	}
	tmpPath := s.filePath + ".tmp"
	var b strings.Builder
	for _, group := range merged {
		b.WriteString(group.line())
		b.WriteByte('\n')
	}
	if err := os.WriteFile(tmpPath, []byte(b.String()), 0644); err != nil {
		return fmt.Errorf(
			"error %d: failed to write %s, more info => %w",
			utils.OS_ERROR,
			tmpPath,
			err,
		)
	}
	return os.Rename(tmpPath, s.filePath)
}

// Add appends a group if no identical line exists yet.
func (s *Store) Add(group *Group) {
	s.mu.Lock()
	defer s.mu.Unlock()
	line := group.line()
	for _, existing := range s.groups {
		if existing.line() == line {
			return
		}
	}
	s.groups = append(s.groups, group)
}

// Groups returns a snapshot of the current groups.
func (s *Store) Groups() []*Group {
	s.mu.Lock()
	defer s.mu.Unlock()
	groups := make([]*Group, len(s.groups))
	copy(groups, s.groups)
	return groups
}

// FilterGroups converts the store into the run-config representation,
// keeping only the named groups when names is non-empty.
func (s *Store) FilterGroups(names []string) []configs.FilterGroup {
	wanted := make(map[string]struct{}, len(names))
	for _, name := range names {
		wanted[strings.ToLower(name)] = struct{}{}
	}

	var out []configs.FilterGroup
	for _, group := range s.Groups() {
		if len(wanted) > 0 {
			if _, ok := wanted[strings.ToLower(group.Name)]; !ok {
				continue
			}
		}
		out = append(out, configs.FilterGroup{
			Name:    group.Name,
			IsGroup: group.IsGroup,
			Aliases: append([]string(nil), group.Aliases...),
		})
	}
	return out
}

// MatchTitle returns the sorted primary names whose aliases appear as
// whole words in the title after tag stripping.
func (s *Store) MatchTitle(title string) []string {
	stripped := stripTitleTags(title)
	matched := make(map[string]struct{})
	for _, group := range s.Groups() {
		for _, alias := range group.Aliases {
			if utils.ContainsWholeWord(stripped, alias) {
				matched[group.Name] = struct{}{}
				break
			}
		}
	}
	return sortedKeys(matched)
}

// MatchFilename returns the sorted primary names whose aliases prefix
// the filename, case-insensitively.
func (s *Store) MatchFilename(filename string) []string {
	lower := strings.ToLower(filename)
	matched := make(map[string]struct{})
	for _, group := range s.Groups() {
		for _, alias := range group.Aliases {
			if strings.HasPrefix(lower, strings.ToLower(alias)) {
				matched[group.Name] = struct{}{}
				break
			}
		}
	}
	return sortedKeys(matched)
}

func sortedKeys(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
