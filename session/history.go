package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/KJHJason/Kemono-Harvester-CLI/utils"
)

// DownloadedFile is one entry of the per-file download history.
type DownloadedFile struct {
	DiskFilename    string `json:"disk_filename"`
	PostId          string `json:"post_id"`
	PostTitle       string `json:"post_title"`
	DownloadPath    string `json:"download_path"`
	Service         string `json:"service"`
	UserId          string `json:"user_id"`
	ApiOriginalName string `json:"api_original_filename"`
	FolderContext   string `json:"folder_context_name"`
	UploadDate      string `json:"upload_date_str"`
	DownloadedAt    string `json:"download_timestamp"`
}

// ProcessedPost is one entry of the per-post history.
type ProcessedPost struct {
	PostId           string `json:"post_id"`
	PostTitle        string `json:"post_title"`
	TopFileName      string `json:"top_file_name"`
	NumFiles         int    `json:"num_files"`
	UploadDate       string `json:"upload_date_str"`
	DownloadLocation string `json:"download_location"`
	Service          string `json:"service"`
	UserId           string `json:"user_id"`
}

type historyFile struct {
	LastDownloadedFiles []DownloadedFile `json:"last_downloaded_files"`
	FirstProcessedPosts []ProcessedPost  `json:"first_processed_posts"`
}

// History appends run results to download_history.json.
type History struct {
	mu       sync.Mutex
	filePath string
	files    []DownloadedFile
	posts    []ProcessedPost
}

func NewHistory(filePath string) *History {
	if filePath == "" {
		filePath = utils.HISTORY_FILE_PATH
	}
	return &History{filePath: filePath}
}

func (h *History) AddFile(entry DownloadedFile) {
	h.mu.Lock()
	h.files = append(h.files, entry)
	h.mu.Unlock()
}

func (h *History) AddPost(entry ProcessedPost) {
	h.mu.Lock()
	h.posts = append(h.posts, entry)
	h.mu.Unlock()
}

// Flush merges the collected entries into the history file. Existing
// entries from earlier runs are kept in front.
func (h *History) Flush() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.files) == 0 && len(h.posts) == 0 {
		return nil
	}

	var onDisk historyFile
	if data, err := os.ReadFile(h.filePath); err == nil {
		// a corrupt history file is replaced rather than fatal
		_ = json.Unmarshal(data, &onDisk)
	}
	onDisk.LastDownloadedFiles = append(onDisk.LastDownloadedFiles, h.files...)
	onDisk.FirstProcessedPosts = append(onDisk.FirstProcessedPosts, h.posts...)

	data, err := json.MarshalIndent(&onDisk, "", "\t")
	if err != nil {
		return fmt.Errorf(
			"error %d: failed to marshal history, more info => %w",
			utils.JSON_ERROR,
			err,
		)
	}
	if err := os.MkdirAll(filepath.Dir(h.filePath), 0755); err != nil {
		return fmt.Errorf(
			"error %d: failed to create %s, more info => %w",
			utils.OS_ERROR,
			filepath.Dir(h.filePath),
			err,
		)
	}
	tmpPath := h.filePath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf(
			"error %d: failed to write %s, more info => %w",
			utils.OS_ERROR,
			tmpPath,
			err,
		)
	}
	if err := os.Rename(tmpPath, h.filePath); err != nil {
		return err
	}
	h.files = nil
	h.posts = nil
	return nil
}
