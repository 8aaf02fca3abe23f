package cmds

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/KJHJason/Kemono-Harvester-CLI/configs"
	"github.com/KJHJason/Kemono-Harvester-CLI/knownnames"
	"github.com/KJHJason/Kemono-Harvester-CLI/pipeline"
	"github.com/KJHJason/Kemono-Harvester-CLI/session"
	"github.com/KJHJason/Kemono-Harvester-CLI/utils"
)

var (
	dlUrl          string
	dlOutput       string
	dlCreatorDir   string
	dlFilterMode   string
	dlTextScope    string
	dlTextFormat   string
	dlCharFilters  string
	dlCharScope    string
	dlSkipWords    string
	dlSkipScope    string
	dlRemoveWords  string
	dlIgnoreWords  string
	dlKnownFolders bool
	dlPostFolders  bool
	dlDateFolders  bool
	dlCustomFolder string
	dlMangaMode    bool
	dlStyle        string
	dlMangaPrefix  string
	dlMultipart    bool
	dlPartScope    string
	dlParts        int
	dlMinSizeMB    int64
	dlDupMode      string
	dlDupLimit     int
	dlPages        string
	dlPostWorkers  int
	dlFileThreads  int
	dlCookieFile   string
	dlCookieString string
	dlScanImages   bool
	dlCompress     bool
	dlThumbnails   bool
	dlExtract      bool
	dlOpenFolder   bool
	dlUserAgent    string
	dlHttp3        bool
	dlResume       bool

	downloadCmd = &cobra.Command{
		Use:   "download",
		Short: "Download from a kemono/coomer creator or post URL.",
		Long: "Downloads every in-scope file of a creator (or a single post) into a folder\n" +
			"structure derived from known names, character filters and the post titles.",
		Run: func(cmd *cobra.Command, args []string) {
			runPipeline(buildRunConfig())
		},
	}
)

func parsePageRange(pages string) configs.PageRange {
	if pages == "" {
		return configs.PageRange{}
	}
	if start, err := strconv.Atoi(pages); err == nil {
		return configs.PageRange{Start: start, End: start}
	}
	parts := strings.SplitN(pages, "-", 2)
	if len(parts) != 2 {
		color.Red("Invalid page range format: %s", pages)
		color.Red("Please follow the format \"1\" or \"1-10\".")
		os.Exit(1)
	}
	start, startErr := strconv.Atoi(strings.TrimSpace(parts[0]))
	end, endErr := strconv.Atoi(strings.TrimSpace(parts[1]))
	if startErr != nil || endErr != nil {
		color.Red("Invalid page range format: %s", pages)
		os.Exit(1)
	}
	return configs.PageRange{Start: start, End: end}
}

func resolveCharFilters(names []string) []*configs.FilterGroup {
	if len(names) == 0 {
		return nil
	}
	store := knownnames.NewStore("")
	if err := store.Load(); err != nil {
		utils.LogError(err, "", true, utils.ERROR)
	}
	groups := store.FilterGroups(names)
	if len(groups) == 0 {
		color.Red("None of the supplied character filters were found in Known.txt.")
		os.Exit(1)
	}
	filters := make([]*configs.FilterGroup, len(groups))
	for i := range groups {
		filters[i] = &groups[i]
	}
	return filters
}

func buildRunConfig() *configs.RunConfig {
	settings, err := configs.LoadSettings()
	if err != nil {
		utils.LogError(err, "", true, utils.ERROR)
	}

	cfg := &configs.RunConfig{
		SourceUrl:  dlUrl,
		OutputRoot: dlOutput,
		CreatorDir: dlCreatorDir,

		FilterMode: dlFilterMode,
		TextScope:  dlTextScope,
		TextFormat: dlTextFormat,

		CharFilters:     resolveCharFilters(utils.SplitArgs(dlCharFilters)),
		CharFilterScope: dlCharScope,

		SkipWords:          utils.SplitArgs(dlSkipWords),
		SkipWordScope:      dlSkipScope,
		RemoveWords:        utils.SplitArgs(dlRemoveWords),
		CreatorIgnoreWords: utils.SplitArgs(dlIgnoreWords),

		Folders: configs.FolderOptions{
			UseKnownNameFolders: dlKnownFolders,
			UsePostSubfolders:   dlPostFolders,
			DatePrefixSubfolder: dlDateFolders,
			CustomFolderName:    dlCustomFolder,
		},

		MangaMode:   dlMangaMode,
		Style:       dlStyle,
		MangaPrefix: dlMangaPrefix,

		Multipart: configs.MultipartPolicy{
			Enabled:   dlMultipart,
			Scope:     dlPartScope,
			Parts:     dlParts,
			MinSizeMB: dlMinSizeMB,
		},
		Duplicates: configs.DuplicatePolicy{
			Mode:  dlDupMode,
			Limit: dlDupLimit,
		},
		Pages: parsePageRange(dlPages),
		Threads: configs.ThreadCounts{
			PostWorkers: dlPostWorkers,
			FileParts:   dlFileThreads,
		},
		Cookies: configs.CookieSource{
			UseCookies: dlCookieFile != "" || dlCookieString != "",
			RawString:  dlCookieString,
			FilePath:   dlCookieFile,
		},

		ScanContentForImages: dlScanImages,
		CompressImages:       dlCompress,
		ThumbnailsOnly:       dlThumbnails,
		ExtractArchives:      dlExtract,
		OpenFolderOnFinish:   dlOpenFolder,

		UserAgent: dlUserAgent,
		UseHttp3:  dlHttp3,
	}
	cfg.ApplyDefaults(settings)
	if err := cfg.Validate(); err != nil {
		color.Red(err.Error())
		os.Exit(1)
	}
	return cfg
}

// runPipeline drives one coordinator run with Ctrl+C wired to the
// cooperative cancel token.
func runPipeline(cfg *configs.RunConfig) {
	var restored *session.Snapshot
	if dlResume {
		snapshot, err := pipeline.LoadSession()
		if err != nil {
			utils.LogError(err, "", false, utils.ERROR)
		}
		if snapshot.Valid() {
			// the saved settings take precedence so the resumed run
			// behaves exactly like the interrupted one
			cfg = snapshot.UiSettings
			restored = snapshot
			color.Green(
				"Restoring session: %d post(s) already processed, %d file hash(es) known.",
				len(snapshot.DownloadState.ProcessedPostIds),
				len(snapshot.DownloadState.SuccessfullyDownloadedHashes),
			)
		} else {
			color.Yellow("No resumable session found, starting a new run.")
		}
	}

	coordinator, err := pipeline.NewCoordinator(cfg)
	if err != nil {
		utils.LogError(err, "", true, utils.ERROR)
	}
	if restored != nil {
		coordinator.Restore(restored)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		color.Yellow("\nStopping, waiting for running downloads to wind down... (Ctrl+C again to force quit)")
		coordinator.Tokens().Cancel.Set()
		cancel()
		<-sigCh
		os.Exit(1)
	}()

	summary, err := coordinator.Run(ctx)
	if err != nil {
		utils.LogError(err, "", true, utils.ERROR)
	}
	if summary != nil && summary.Cancelled {
		os.Exit(1)
	}
}

func init() {
	downloadCmd.Flags().StringVarP(&dlUrl, "url", "u", "", "Creator or post URL to download from. (required)")
	downloadCmd.MarkFlagRequired("url")
	downloadCmd.Flags().StringVarP(&dlOutput, "output", "o", "", "Directory to download into. Defaults to the saved download path.")
	downloadCmd.Flags().StringVar(&dlCreatorDir, "creator_dir", "", "Subdirectory name for this creator. Defaults to \"<service>_<user id>\".")
	downloadCmd.Flags().StringVar(
		&dlFilterMode,
		"filter",
		configs.FilterAll,
		utils.CombineStringsWithNewline(
			[]string{
				"What to download from each post.",
				fmt.Sprintf(
					"Options: %s, %s, %s, %s, %s, %s, %s",
					configs.FilterAll, configs.FilterImage, configs.FilterVideo,
					configs.FilterArchive, configs.FilterAudio,
					configs.FilterTextOnly, configs.FilterLinksOnly,
				),
			},
		),
	)
	downloadCmd.Flags().StringVar(&dlTextScope, "text_scope", "", "Text-only source: \"content\" or \"comments\".")
	downloadCmd.Flags().StringVar(
		&dlTextFormat,
		"text_format",
		"",
		"Text-only export format: \"txt\", \"docx\", \"pdf\" or \"single-pdf\" (one merged PDF per creator).",
	)
	downloadCmd.Flags().StringVar(
		&dlCharFilters,
		"characters",
		"",
		utils.CombineStringsWithNewline(
			[]string{
				"Only download posts matching these known names from Known.txt.",
				"For multiple names, separate them with a comma.",
			},
		),
	)
	downloadCmd.Flags().StringVar(
		&dlCharScope,
		"character_scope",
		"",
		"Where character filters match: \"title\", \"files\", \"both\" or \"comments\".",
	)
	downloadCmd.Flags().StringVar(&dlSkipWords, "skip_words", "", "Comma-separated words that make a post or file get skipped.")
	downloadCmd.Flags().StringVar(&dlSkipScope, "skip_scope", "", "Where skip words apply: \"posts\", \"files\" or \"both\".")
	downloadCmd.Flags().StringVar(&dlRemoveWords, "remove_words", "", "Comma-separated substrings removed from synthesized filenames.")
	downloadCmd.Flags().StringVar(
		&dlIgnoreWords,
		"folder_ignore_words",
		"",
		"Extra words that are never used as derived folder names on full-creator runs.",
	)
	downloadCmd.Flags().BoolVar(&dlKnownFolders, "known_name_folders", false, "Route posts into folders named after matching Known.txt entries.")
	downloadCmd.Flags().BoolVar(&dlPostFolders, "post_subfolders", false, "Create one subfolder per post, named after the post title.")
	downloadCmd.Flags().BoolVar(&dlDateFolders, "date_prefix_subfolders", false, "Prefix per-post subfolders with the upload date (YYYY-MM-DD).")
	downloadCmd.Flags().StringVar(&dlCustomFolder, "custom_folder", "", "Folder name override, only honoured for single-post URLs.")
	downloadCmd.Flags().BoolVar(
		&dlMangaMode,
		"manga",
		false,
		utils.CombineStringsWithNewline(
			[]string{
				"Treat the creator's posts as a sequential series:",
				"posts are processed oldest first so numbering styles stay deterministic.",
			},
		),
	)
	downloadCmd.Flags().StringVar(
		&dlStyle,
		"style",
		configs.StylePostTitle,
		utils.CombineStringsWithNewline(
			[]string{
				"Filename style.",
				fmt.Sprintf(
					"Options: %s, %s, %s, %s, %s, %s",
					configs.StylePostTitle, configs.StyleOriginalName, configs.StyleDateTitle,
					configs.StyleTitleGlobal, configs.StyleDateBased, configs.StylePostId,
				),
				"The numbering styles force single-worker post processing.",
			},
		),
	)
	downloadCmd.Flags().StringVar(&dlMangaPrefix, "manga_prefix", "", "Prefix for the date_based style, e.g. \"Ch\" gives \"Ch 001.png\".")
	downloadCmd.Flags().BoolVar(&dlMultipart, "multipart", false, "Download large files in parallel byte-range chunks.")
	downloadCmd.Flags().StringVar(
		&dlPartScope,
		"multipart_scope",
		"",
		"File types eligible for multi-part: \"videos\", \"archives\" or \"both\".",
	)
	downloadCmd.Flags().IntVar(&dlParts, "multipart_parts", 4, "Number of byte-range chunks per multi-part download (2-16).")
	downloadCmd.Flags().Int64Var(&dlMinSizeMB, "multipart_min_mb", 0, "Minimum file size in MiB before multi-part kicks in. Defaults to 100.")
	downloadCmd.Flags().StringVar(
		&dlDupMode,
		"duplicates",
		"",
		"Duplicate content handling: \"hash\" keeps one copy per MD5, \"keep_all\" keeps up to the limit.",
	)
	downloadCmd.Flags().IntVar(&dlDupLimit, "duplicate_limit", 0, "Copies to keep per MD5 in keep_all mode. 0 keeps everything.")
	downloadCmd.Flags().StringVar(
		&dlPages,
		"page_num",
		"",
		utils.CombineStringsWithNewline(
			[]string{
				"Min and max page numbers to walk on the creator's feed.",
				"Format: \"num\" or \"minNum-maxNum\", leave blank to download all pages.",
			},
		),
	)
	downloadCmd.Flags().IntVar(&dlPostWorkers, "post_workers", 0, fmt.Sprintf("Concurrent post workers (max %d).", utils.MAX_POST_WORKERS))
	downloadCmd.Flags().IntVar(&dlFileThreads, "file_threads", 0, fmt.Sprintf("Concurrent file downloads per post (max %d).", utils.MAX_FILE_THREADS))
	downloadCmd.Flags().StringVar(
		&dlCookieFile,
		"cookie_file",
		"",
		utils.CombineStringsWithNewline(
			[]string{
				"Pass in a file path to your saved Netscape/Mozilla generated cookie file to use when downloading.",
				"You can generate a cookie file by using the \"Get cookies.txt\" extension for your browser.",
			},
		),
	)
	downloadCmd.Flags().StringVar(&dlCookieString, "cookie_string", "", "Raw \"name=value; name2=value2\" cookie string, used when no cookie file is found.")
	downloadCmd.Flags().BoolVar(&dlScanImages, "scan_content", false, "Also download images that are embedded in the post body HTML.")
	downloadCmd.Flags().BoolVar(&dlCompress, "compress_images", false, "Recompress images over 1.5 MiB to WebP at quality 85.")
	downloadCmd.Flags().BoolVar(&dlThumbnails, "thumbnails_only", false, "Restrict the download to image files only.")
	downloadCmd.Flags().BoolVar(&dlExtract, "extract_archives", false, "Extract downloaded archives next to the archive file.")
	downloadCmd.Flags().BoolVar(&dlOpenFolder, "open_folder", false, "Open the download folder when the run finishes.")
	downloadCmd.Flags().StringVar(&dlUserAgent, "user_agent", "", "Override the user agent to use for the requests.")
	downloadCmd.Flags().BoolVar(&dlHttp3, "http3", false, "Use HTTP/3 instead of HTTP/2 for the requests. (experimental)")
	downloadCmd.Flags().BoolVar(&dlResume, "resume", false, "Resume the previous interrupted run if a session file exists.")
}
