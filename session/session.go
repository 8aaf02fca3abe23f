// Package session persists run progress so an interrupted harvest can
// be resumed.
package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/KJHJason/Kemono-Harvester-CLI/api/kemono/models"
	"github.com/KJHJason/Kemono-Harvester-CLI/configs"
	"github.com/KJHJason/Kemono-Harvester-CLI/utils"
)

// FailedFile records one download failure for the retry pass and the
// session file.
type FailedFile struct {
	FileName         string `json:"file_name"`
	FileUrl          string `json:"file_url"`
	TargetFolderPath string `json:"target_folder_path"`
	PostId           string `json:"post_id"`
	PostTitle        string `json:"post_title"`
	ForcedFilename   string `json:"forced_filename_override,omitempty"`
	FailureClass     string `json:"failure_class"` // "retryable" or "permanent"
}

type MangaCounters struct {
	DateBased       int `json:"date_based"`
	GlobalNumbering int `json:"global_numbering"`
}

type DownloadState struct {
	ProcessedPostIds             []string      `json:"processed_post_ids"`
	LastProcessedOffset          int           `json:"last_processed_offset"`
	SuccessfullyDownloadedHashes []string      `json:"successfully_downloaded_hashes"`
	PermanentlyFailedFiles       []FailedFile  `json:"permanently_failed_files"`
	MangaCounters                MangaCounters `json:"manga_counters"`
}

// Snapshot is the on-disk resume state, written atomically on every
// post completion.
type Snapshot struct {
	UiSettings     *configs.RunConfig    `json:"ui_settings"`
	DownloadState  DownloadState         `json:"download_state"`
	RemainingQueue []*models.PostSummary `json:"remaining_queue"`
}

// Valid does a structural sanity check on a loaded snapshot.
func (s *Snapshot) Valid() bool {
	return s != nil && s.UiSettings != nil && s.UiSettings.SourceUrl != ""
}

// Store serializes snapshots to a fixed path under a lock so post
// workers finishing concurrently cannot interleave writes.
type Store struct {
	mu       sync.Mutex
	filePath string
}

func NewStore(filePath string) *Store {
	if filePath == "" {
		filePath = utils.SESSION_FILE_PATH
	}
	return &Store{filePath: filePath}
}

// Save writes the snapshot via a temp file and rename so a crash never
// leaves a truncated session file behind.
func (s *Store) Save(snapshot *Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(snapshot, "", "\t")
	if err != nil {
		return fmt.Errorf(
			"error %d: failed to marshal session, more info => %w",
			utils.JSON_ERROR,
			err,
		)
	}
	if err := os.MkdirAll(filepath.Dir(s.filePath), 0755); err != nil {
		return fmt.Errorf(
			"error %d: failed to create %s, more info => %w",
			utils.OS_ERROR,
			filepath.Dir(s.filePath),
			err,
		)
	}
	tmpPath := s.filePath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf(
			"error %d: failed to write %s, more info => %w",
			utils.OS_ERROR,
			tmpPath,
			err,
		)
	}
	return os.Rename(tmpPath, s.filePath)
}

// Load reads the snapshot if one exists. A missing file returns
// (nil, nil); a corrupt one returns the parse error so the caller can
// offer to discard it.
func (s *Store) Load() (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf(
			"error %d: failed to read %s, more info => %w",
			utils.OS_ERROR,
			s.filePath,
			err,
		)
	}
	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf(
			"error %d: session file %s is corrupt, more info => %w",
			utils.JSON_ERROR,
			s.filePath,
			err,
		)
	}
	return &snapshot, nil
}

// Remove deletes the session file after a clean finish or a discard.
func (s *Store) Remove() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := os.Remove(s.filePath)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
