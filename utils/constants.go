package utils

import (
	"os"
	"path/filepath"
	"regexp"
	"runtime"
)

const VERSION = "1.2.0"

func GetUserAgent() string {
	var userAgent = map[string]string{
		"linux":  "Mozilla/5.0 (X11; Linux x86_64)",
		"darwin": "Mozilla/5.0 (Macintosh; Intel Mac OS X 12_6)",
	}
	userAgentOS := userAgent[runtime.GOOS]
	if userAgentOS == "" {
		userAgentOS = "Mozilla/5.0 (Windows NT 10.0; Win64; x64)"
	}
	return userAgentOS + " AppleWebKit/537.36 (KHTML, like Gecko) Chrome/106.0.0.0 Safari/537.36"
}

func GetAppPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		panic("failed to get user home directory: " + err.Error())
	}
	var appDir = map[string]string{
		"windows": "AppData/Roaming/Kemono-Harvester",
		"linux":   ".config/Kemono-Harvester",
		"darwin":  "Library/Preferences/Kemono-Harvester",
	}
	appDirOS := appDir[runtime.GOOS]
	if appDirOS == "" {
		appDirOS = ".kemono-harvester"
	}
	return filepath.Join(homeDir, appDirOS)
}

var (
	USER_AGENT = GetUserAgent()
	APP_PATH   = GetAppPath()
)

// Error codes used in user-facing error messages
const (
	DEV_ERROR = 1000 + iota
	UNEXPECTED_ERROR
	OS_ERROR
	INPUT_ERROR
	CONNECTION_ERROR
	RESPONSE_ERROR
	DOWNLOAD_ERROR
	JSON_ERROR
)

const (
	RETRY_COUNTER    = 3
	RETRY_BASE_DELAY = 5 // seconds, doubled per attempt

	CONNECT_TIMEOUT  = 15  // seconds
	PAGE_TIMEOUT     = 60  // seconds, API page fetches
	DOWNLOAD_TIMEOUT = 300 // seconds, file downloads

	MAX_POST_WORKERS       = 10
	POST_WORKER_SOFT_LIMIT = 6
	MAX_FILE_THREADS       = 8

	PER_PAGE = 50

	PAUSE_POLL_MS = 500
)

var (
	SESSION_FILE_PATH     = filepath.Join(APP_PATH, "session.json")
	KNOWN_NAMES_FILE_PATH = filepath.Join(APP_PATH, "Known.txt")
	HISTORY_FILE_PATH     = filepath.Join(APP_PATH, "download_history.json")
	CREATOR_PROFILES_PATH = filepath.Join(APP_PATH, "creator_profiles")

	ILLEGAL_PATH_CHARS_REGEX = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)
)

// Words that are never usable on their own as a derived folder name.
var FOLDER_STOP_WORDS = []string{
	"a", "an", "the", "and", "or", "of", "in", "on", "for", "to", "with",
	"new", "set", "pack", "update", "updated", "post", "page", "part",
	"vol", "ver", "version", "sketch", "sketches", "wip", "preview",
	"request", "requests", "reward", "rewards", "commission", "comm",
	"high", "res", "full",
}
