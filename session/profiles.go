package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/KJHJason/Kemono-Harvester-CLI/configs"
	"github.com/KJHJason/Kemono-Harvester-CLI/utils"
)

// CreatorProfile is the long-lived per-creator store behind the
// "check for updates" command.
type CreatorProfile struct {
	Settings         *configs.RunConfig `json:"settings"`
	CreatorUrl       []string           `json:"creator_url"`
	ProcessedPostIds []string           `json:"processed_post_ids"`
}

// HasProcessed reports whether the post id is already in the profile.
func (p *CreatorProfile) HasProcessed(postId string) bool {
	for _, id := range p.ProcessedPostIds {
		if id == postId {
			return true
		}
	}
	return false
}

// ProcessedSet converts the id list into the lookup form the feed
// walker expects.
func (p *CreatorProfile) ProcessedSet() map[string]struct{} {
	set := make(map[string]struct{}, len(p.ProcessedPostIds))
	for _, id := range p.ProcessedPostIds {
		set[id] = struct{}{}
	}
	return set
}

// Extend adds new post ids, keeping the list sorted and unique.
func (p *CreatorProfile) Extend(postIds []string) {
	set := p.ProcessedSet()
	for _, id := range postIds {
		set[id] = struct{}{}
	}
	merged := make([]string, 0, len(set))
	for id := range set {
		merged = append(merged, id)
	}
	sort.Strings(merged)
	p.ProcessedPostIds = merged
}

// ProfilePath maps a profile key like "patreon_12345" to its file.
func ProfilePath(profileKey string) string {
	cleaned := utils.RemoveIllegalCharsInPathName(profileKey)
	return filepath.Join(utils.CREATOR_PROFILES_PATH, cleaned+".json")
}

// LoadProfile reads a creator profile; a missing file yields an empty
// profile so first runs need no special casing.
func LoadProfile(profileKey string) (*CreatorProfile, error) {
	data, err := os.ReadFile(ProfilePath(profileKey))
	if err != nil {
		if os.IsNotExist(err) {
			return &CreatorProfile{}, nil
		}
		return nil, fmt.Errorf(
			"error %d: failed to read creator profile %s, more info => %w",
			utils.OS_ERROR,
			profileKey,
			err,
		)
	}
	var profile CreatorProfile
	if err := json.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf(
			"error %d: creator profile %s is corrupt, more info => %w",
			utils.JSON_ERROR,
			profileKey,
			err,
		)
	}
	return &profile, nil
}

// SaveProfile writes the profile atomically.
func SaveProfile(profileKey string, profile *CreatorProfile) error {
	data, err := json.MarshalIndent(profile, "", "\t")
	if err != nil {
		return fmt.Errorf(
			"error %d: failed to marshal creator profile %s, more info => %w",
			utils.JSON_ERROR,
			profileKey,
			err,
		)
	}
	if err := os.MkdirAll(utils.CREATOR_PROFILES_PATH, 0755); err != nil {
		return fmt.Errorf(
			"error %d: failed to create %s, more info => %w",
			utils.OS_ERROR,
			utils.CREATOR_PROFILES_PATH,
			err,
		)
	}
	destPath := ProfilePath(profileKey)
	tmpPath := destPath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf(
			"error %d: failed to write %s, more info => %w",
			utils.OS_ERROR,
			tmpPath,
			err,
		)
	}
	return os.Rename(tmpPath, destPath)
}
