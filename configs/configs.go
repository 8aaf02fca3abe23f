package configs

import (
	"fmt"

	"github.com/KJHJason/Kemono-Harvester-CLI/utils"
)

// Filter modes
const (
	FilterAll       = "all"
	FilterImage     = "image"
	FilterVideo     = "video"
	FilterArchive   = "archive"
	FilterAudio     = "audio"
	FilterTextOnly  = "text-only"
	FilterLinksOnly = "links-only"
)

// Text-only sub-scopes and export formats
const (
	TextScopeContent  = "content"
	TextScopeComments = "comments"

	TextFormatTxt       = "txt"
	TextFormatDocx      = "docx"
	TextFormatPdf       = "pdf"
	TextFormatSinglePdf = "single-pdf"
)

// Character-filter scopes
const (
	CharScopeTitle    = "title"
	CharScopeFiles    = "files"
	CharScopeBoth     = "both"
	CharScopeComments = "comments"
)

// Skip-word scopes
const (
	SkipScopePosts = "posts"
	SkipScopeFiles = "files"
	SkipScopeBoth  = "both"
)

// Filename styles
const (
	StylePostTitle    = "post_title"
	StyleOriginalName = "original_name"
	StyleDateTitle    = "date_title"
	StyleTitleGlobal  = "title_global_numbering"
	StyleDateBased    = "date_based"
	StylePostId       = "post_id"
)

// Multi-part download scopes
const (
	MultipartVideos   = "videos"
	MultipartArchives = "archives"
	MultipartBoth     = "both"
)

// Duplicate handling modes
const (
	DuplicateHash    = "hash"
	DuplicateKeepAll = "keep_all"
)

// A FilterGroup is one character filter. The primary Name is the folder
// the group maps to; a post or file matching any alias makes the post a
// candidate for that folder.
type FilterGroup struct {
	Name    string   `json:"name" yaml:"name"`
	IsGroup bool     `json:"is_group" yaml:"is_group"`
	Aliases []string `json:"aliases" yaml:"aliases"`
}

type FolderOptions struct {
	UseKnownNameFolders bool   `json:"use_known_name_folders" yaml:"use_known_name_folders"`
	UsePostSubfolders   bool   `json:"use_post_subfolders" yaml:"use_post_subfolders"`
	DatePrefixSubfolder bool   `json:"date_prefix_subfolder" yaml:"date_prefix_subfolder"`
	CustomFolderName    string `json:"custom_folder_name" yaml:"custom_folder_name"`
}

type MultipartPolicy struct {
	Enabled   bool   `json:"enabled" yaml:"enabled"`
	Scope     string `json:"scope" yaml:"scope"`
	Parts     int    `json:"parts" yaml:"parts"`
	MinSizeMB int64  `json:"min_size_mb" yaml:"min_size_mb"`
}

type DuplicatePolicy struct {
	Mode  string `json:"mode" yaml:"mode"`
	Limit int    `json:"limit" yaml:"limit"`
}

type PageRange struct {
	Start int `json:"start" yaml:"start"`
	End   int `json:"end" yaml:"end"`
}

type ThreadCounts struct {
	PostWorkers int `json:"post_workers" yaml:"post_workers"`
	FileParts   int `json:"file_parts" yaml:"file_parts"`
}

type CookieSource struct {
	UseCookies bool   `json:"use_cookies" yaml:"use_cookies"`
	RawString  string `json:"raw_string" yaml:"raw_string"`
	FilePath   string `json:"file_path" yaml:"file_path"`
}

// RunConfig is everything one run of the pipeline needs. It is built by
// the CLI (or restored from a session snapshot) and never mutated after
// being handed to the coordinator.
type RunConfig struct {
	SourceUrl  string `json:"source_url" yaml:"source_url"`
	OutputRoot string `json:"output_root" yaml:"output_root"`
	CreatorDir string `json:"creator_dir" yaml:"creator_dir"`

	FilterMode string `json:"filter_mode" yaml:"filter_mode"`
	TextScope  string `json:"text_scope" yaml:"text_scope"`
	TextFormat string `json:"text_format" yaml:"text_format"`

	CharFilters     []*FilterGroup `json:"char_filters" yaml:"char_filters"`
	CharFilterScope string         `json:"char_filter_scope" yaml:"char_filter_scope"`

	SkipWords     []string `json:"skip_words" yaml:"skip_words"`
	SkipWordScope string   `json:"skip_word_scope" yaml:"skip_word_scope"`
	RemoveWords   []string `json:"remove_words" yaml:"remove_words"`

	// Extra stop-words applied to folder derivation on full-creator runs
	// without character filters, so generic tags cannot become folders.
	CreatorIgnoreWords []string `json:"creator_ignore_words" yaml:"creator_ignore_words"`

	Folders FolderOptions `json:"folders" yaml:"folders"`

	MangaMode   bool   `json:"manga_mode" yaml:"manga_mode"`
	Style       string `json:"style" yaml:"style"`
	MangaPrefix string `json:"manga_prefix" yaml:"manga_prefix"`

	Multipart  MultipartPolicy `json:"multipart" yaml:"multipart"`
	Duplicates DuplicatePolicy `json:"duplicates" yaml:"duplicates"`
	Pages      PageRange       `json:"pages" yaml:"pages"`
	Threads    ThreadCounts    `json:"threads" yaml:"threads"`
	Cookies    CookieSource    `json:"cookies" yaml:"cookies"`

	ScanContentForImages bool `json:"scan_content_for_images" yaml:"scan_content_for_images"`
	CompressImages       bool `json:"compress_images" yaml:"compress_images"`
	ThumbnailsOnly       bool `json:"thumbnails_only" yaml:"thumbnails_only"`
	ExtractArchives      bool `json:"extract_archives" yaml:"extract_archives"`
	OpenFolderOnFinish   bool `json:"open_folder_on_finish" yaml:"open_folder_on_finish"`

	UserAgent string `json:"user_agent" yaml:"user_agent"`
	UseHttp3  bool   `json:"use_http3" yaml:"use_http3"`
}

// SequentialStyle reports whether the filename style relies on a shared
// counter and therefore needs single-worker post processing.
func (c *RunConfig) SequentialStyle() bool {
	return c.Style == StyleDateBased || c.Style == StyleTitleGlobal
}

// PdfExport reports whether any PDF output is produced by this run.
func (c *RunConfig) PdfExport() bool {
	return c.FilterMode == FilterTextOnly &&
		(c.TextFormat == TextFormatPdf || c.TextFormat == TextFormatSinglePdf)
}

func policyErr(format string, args ...any) error {
	return fmt.Errorf(
		"config error %d: %s",
		utils.INPUT_ERROR,
		fmt.Sprintf(format, args...),
	)
}

func oneOf(value string, allowed ...string) bool {
	for _, a := range allowed {
		if value == a {
			return true
		}
	}
	return false
}

// Validate fills defaults and rejects impossible configurations before
// the pipeline starts.
func (c *RunConfig) Validate() error {
	if c.SourceUrl == "" {
		return policyErr("source URL cannot be empty")
	}
	if c.OutputRoot == "" {
		return policyErr("output directory cannot be empty")
	}

	if c.FilterMode == "" {
		c.FilterMode = FilterAll
	}
	if !oneOf(c.FilterMode, FilterAll, FilterImage, FilterVideo, FilterArchive,
		FilterAudio, FilterTextOnly, FilterLinksOnly) {
		return policyErr("invalid filter mode %q", c.FilterMode)
	}

	if c.FilterMode == FilterTextOnly {
		if c.TextScope == "" {
			c.TextScope = TextScopeContent
		}
		if !oneOf(c.TextScope, TextScopeContent, TextScopeComments) {
			return policyErr("invalid text-only scope %q", c.TextScope)
		}
		if c.TextFormat == "" {
			c.TextFormat = TextFormatTxt
		}
		if !oneOf(c.TextFormat, TextFormatTxt, TextFormatDocx, TextFormatPdf, TextFormatSinglePdf) {
			return policyErr("invalid text export format %q", c.TextFormat)
		}
	}

	if len(c.CharFilters) > 0 {
		if c.CharFilterScope == "" {
			c.CharFilterScope = CharScopeTitle
		}
		if !oneOf(c.CharFilterScope, CharScopeTitle, CharScopeFiles, CharScopeBoth, CharScopeComments) {
			return policyErr("invalid character filter scope %q", c.CharFilterScope)
		}
		for _, group := range c.CharFilters {
			if group.Name == "" {
				return policyErr("character filter group with empty name")
			}
			if len(group.Aliases) == 0 {
				group.Aliases = []string{group.Name}
			}
		}
	}

	if len(c.SkipWords) > 0 {
		if c.SkipWordScope == "" {
			c.SkipWordScope = SkipScopeBoth
		}
		if !oneOf(c.SkipWordScope, SkipScopePosts, SkipScopeFiles, SkipScopeBoth) {
			return policyErr("invalid skip word scope %q", c.SkipWordScope)
		}
	}

	if c.Style == "" {
		c.Style = StylePostTitle
	}
	if !oneOf(c.Style, StylePostTitle, StyleOriginalName, StyleDateTitle,
		StyleTitleGlobal, StyleDateBased, StylePostId) {
		return policyErr("invalid filename style %q", c.Style)
	}

	if c.Multipart.Enabled {
		if c.Multipart.Scope == "" {
			c.Multipart.Scope = MultipartBoth
		}
		if !oneOf(c.Multipart.Scope, MultipartVideos, MultipartArchives, MultipartBoth) {
			return policyErr("invalid multi-part scope %q", c.Multipart.Scope)
		}
		if c.Multipart.Parts < 2 || c.Multipart.Parts > 16 {
			return policyErr("multi-part count must be between 2 and 16, got %d", c.Multipart.Parts)
		}
		if c.Multipart.MinSizeMB <= 0 {
			c.Multipart.MinSizeMB = 100
		}
	}

	if c.Duplicates.Mode == "" {
		c.Duplicates.Mode = DuplicateHash
	}
	if !oneOf(c.Duplicates.Mode, DuplicateHash, DuplicateKeepAll) {
		return policyErr("invalid duplicate mode %q", c.Duplicates.Mode)
	}
	if c.Duplicates.Limit < 0 {
		return policyErr("duplicate retention limit cannot be negative")
	}

	if c.Pages.Start < 0 || c.Pages.End < 0 {
		return policyErr("page numbers cannot be negative")
	}
	if c.Pages.Start == 0 {
		c.Pages.Start = 1
	}
	if c.Pages.End != 0 && c.Pages.End < c.Pages.Start {
		return policyErr("end page %d is before start page %d", c.Pages.End, c.Pages.Start)
	}

	if c.Threads.PostWorkers <= 0 {
		c.Threads.PostWorkers = 1
	}
	if c.Threads.PostWorkers > utils.MAX_POST_WORKERS {
		return policyErr(
			"post worker count %d exceeds the maximum of %d",
			c.Threads.PostWorkers,
			utils.MAX_POST_WORKERS,
		)
	}
	if c.Threads.FileParts <= 0 {
		c.Threads.FileParts = 2
	}
	if c.Threads.FileParts > utils.MAX_FILE_THREADS {
		return policyErr(
			"file thread count %d exceeds the maximum of %d",
			c.Threads.FileParts,
			utils.MAX_FILE_THREADS,
		)
	}

	if c.UserAgent == "" {
		c.UserAgent = utils.USER_AGENT
	}
	return nil
}
