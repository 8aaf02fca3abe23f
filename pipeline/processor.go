package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/KJHJason/Kemono-Harvester-CLI/api/kemono"
	"github.com/KJHJason/Kemono-Harvester-CLI/api/kemono/models"
	"github.com/KJHJason/Kemono-Harvester-CLI/configs"
	"github.com/KJHJason/Kemono-Harvester-CLI/dedupe"
	"github.com/KJHJason/Kemono-Harvester-CLI/filename"
	"github.com/KJHJason/Kemono-Harvester-CLI/images"
	"github.com/KJHJason/Kemono-Harvester-CLI/knownnames"
	"github.com/KJHJason/Kemono-Harvester-CLI/links"
	"github.com/KJHJason/Kemono-Harvester-CLI/request"
	"github.com/KJHJason/Kemono-Harvester-CLI/session"
	"github.com/KJHJason/Kemono-Harvester-CLI/textexport"
	"github.com/KJHJason/Kemono-Harvester-CLI/utils"
)

const untitledFolder = "untitled_folder"

// RunContext is the shared state one run hands to every post worker.
type RunContext struct {
	Ctx      context.Context
	Config   *configs.RunConfig
	Client   *request.Client
	Source   *kemono.Source
	Known    *knownnames.Store
	Counters *filename.Counters
	Registry *dedupe.Registry
	Tokens   *utils.Tokens
	Queue    *Queue

	// BaseDir is <output_root>/<creator_dir>, created by the coordinator.
	BaseDir string
}

// PostResult is the outcome of processing one post.
type PostResult struct {
	Downloaded        int
	Skipped           int
	KeptOriginalNames bool

	// Attempted reports whether any file download or text export was
	// actually tried. Posts the filters drop entirely stay out of the
	// processed id set so a later run with different filters revisits
	// them.
	Attempted bool

	Retryable []session.FailedFile
	Permanent []session.FailedFile

	HistoryRecord *session.ProcessedPost

	// TextTempPath is set in single-pdf mode; the coordinator merges
	// all of them once the run finishes.
	TextTempPath string
}

type downloadJob struct {
	originalName string
	url          string
	index        int
	count        int
	fromScan     bool   // found by the content scan rather than the API attachment list
	diskName     string // synthesized before download so counters stay ordered
}

// candidacy is the outcome of matching a post against the character
// filters.
type candidacy struct {
	candidate bool
	winner    string // primary group name, empty when no char filters
	// perFile defers the decision to the per-file loop (files scope).
	perFile bool
}

func aliasInTitle(title string, group *configs.FilterGroup) bool {
	for _, alias := range group.Aliases {
		if utils.ContainsWholeWord(title, alias) {
			return true
		}
	}
	return false
}

func aliasMatchesFilename(name string, group *configs.FilterGroup) bool {
	lower := strings.ToLower(name)
	for _, alias := range group.Aliases {
		if strings.HasPrefix(lower, strings.ToLower(alias)) || utils.ContainsWholeWord(name, alias) {
			return true
		}
	}
	return false
}

func sortedWinner(matched map[string]struct{}) string {
	if len(matched) == 0 {
		return ""
	}
	names := make([]string, 0, len(matched))
	for name := range matched {
		names = append(names, name)
	}
	sort.Strings(names)
	return names[0]
}

func (rc *RunContext) decideCandidacy(post *models.Post) (candidacy, error) {
	cfg := rc.Config
	if len(cfg.CharFilters) == 0 {
		return candidacy{candidate: true}, nil
	}

	switch cfg.CharFilterScope {
	case configs.CharScopeFiles:
		return candidacy{candidate: true, perFile: true}, nil
	case configs.CharScopeComments:
		matched := make(map[string]struct{})
		for _, file := range post.Files() {
			for _, group := range cfg.CharFilters {
				if aliasMatchesFilename(file.Name, group) {
					matched[group.Name] = struct{}{}
				}
			}
		}
		if len(matched) == 0 {
			comments, err := kemono.GetComments(rc.Ctx, rc.Client, rc.Source, post.Id)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return candidacy{}, err
				}
				// failing to fetch comments only loses the comment
				// heuristic, not the post
				rc.Queue.Publish(LogEvent{
					Level:   utils.ERROR,
					Message: fmt.Sprintf("failed to fetch comments of post %s: %v", post.Id, err),
				})
			}
			for _, comment := range comments {
				text := textexport.StripHtml(comment.Content)
				for _, group := range cfg.CharFilters {
					if aliasInTitle(text, group) {
						matched[group.Name] = struct{}{}
					}
				}
			}
		}
		winner := sortedWinner(matched)
		return candidacy{candidate: winner != "", winner: winner}, nil
	default: // title or both
		matched := make(map[string]struct{})
		for _, group := range cfg.CharFilters {
			if aliasInTitle(post.Title, group) {
				matched[group.Name] = struct{}{}
			}
		}
		winner := sortedWinner(matched)
		return candidacy{candidate: winner != "", winner: winner}, nil
	}
}

// containsAnySkipWord does a case-insensitive substring match, so
// "sketch" also catches "sketchbook".
func containsAnySkipWord(s string, skipWords []string) string {
	lower := strings.ToLower(s)
	for _, word := range skipWords {
		if word != "" && strings.Contains(lower, strings.ToLower(word)) {
			return word
		}
	}
	return ""
}

// derivedFolderPart strips the configured base directory off targetDir
// so skip words only ever match the folder names derived from the post.
func derivedFolderPart(baseDir, targetDir string) string {
	rel, err := filepath.Rel(baseDir, targetDir)
	if err != nil {
		return targetDir
	}
	return rel
}

// firstSignificantWord finds the first title token that survives the
// stop-word lists and looks usable as a folder name.
func firstSignificantWord(title string, extraStopWords []string) string {
	isStopWord := func(token string) bool {
		lower := strings.ToLower(token)
		for _, word := range utils.FOLDER_STOP_WORDS {
			if lower == word {
				return true
			}
		}
		for _, word := range extraStopWords {
			if lower == strings.ToLower(word) {
				return true
			}
		}
		return false
	}

	for _, token := range strings.Fields(title) {
		token = strings.Trim(token, ".,!?:;()[]{}<>\"'~-_")
		if len(token) < 3 || isStopWord(token) {
			continue
		}
		if digitsOnly(token) {
			continue
		}
		return token
	}
	return ""
}

func digitsOnly(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}

// routeFolders picks the base character/known-name folder for the post
// plus the optional per-post subfolder.
func (rc *RunContext) routeFolders(post *models.Post, cand candidacy) (targetDir, folderContext string) {
	cfg := rc.Config

	var baseName string
	switch {
	case cfg.Folders.CustomFolderName != "" && rc.Source.IsSinglePost():
		baseName = utils.RemoveIllegalCharsInPathName(cfg.Folders.CustomFolderName)
	case cand.winner != "":
		baseName = utils.RemoveIllegalCharsInPathName(cand.winner)
	default:
		if cfg.Folders.UseKnownNameFolders && rc.Known != nil {
			if matches := rc.Known.MatchTitle(post.Title); len(matches) > 0 {
				baseName = utils.RemoveIllegalCharsInPathName(matches[0])
			}
		}
		if baseName == "" {
			var extraStopWords []string
			if !rc.Source.IsSinglePost() && len(cfg.CharFilters) == 0 {
				extraStopWords = cfg.CreatorIgnoreWords
			}
			if word := firstSignificantWord(post.Title, extraStopWords); word != "" {
				baseName = utils.RemoveIllegalCharsInPathName(word)
			}
		}
		if baseName == "" && strings.TrimSpace(post.Title) != "" {
			baseName = utils.RemoveIllegalCharsInPathName(post.Title)
		}
		if baseName == "" || baseName == "untitled" {
			baseName = untitledFolder
		}
	}

	targetDir = filepath.Join(rc.BaseDir, baseName)
	if cfg.Folders.UsePostSubfolders {
		subName := utils.RemoveIllegalCharsInPathName(post.Title)
		if cfg.Folders.DatePrefixSubfolder {
			if date := utils.DatePrefix(post.PublishedOrAdded()); date != "" {
				subName = date + " " + subName
			}
		}
		targetDir = utils.UniqueDirPath(filepath.Join(targetDir, subName))
	}
	return targetDir, baseName
}

// assembleJobs builds the download list from the post's attachments and
// the optional content-scan hits.
func (rc *RunContext) assembleJobs(post *models.Post) []*downloadJob {
	cfg := rc.Config

	var jobs []*downloadJob
	seenUrls := make(map[string]struct{})
	add := func(name, url string, fromScan bool) {
		if url == "" {
			return
		}
		if cfg.Duplicates.Mode == configs.DuplicateHash {
			if _, dup := seenUrls[url]; dup {
				return
			}
		}
		seenUrls[url] = struct{}{}
		jobs = append(jobs, &downloadJob{originalName: name, url: url, fromScan: fromScan})
	}

	for _, file := range post.Files() {
		name := file.Name
		if name == "" {
			name = utils.GetLastPartOfUrl(file.Path)
		}
		add(name, rc.Source.DataUrl(file.Path), false)
	}

	if cfg.ScanContentForImages {
		for _, rawUrl := range images.ScanContent(post.Content) {
			url := rawUrl
			if strings.HasPrefix(url, "/") {
				url = rc.Source.DataUrl(url)
			}
			if _, dup := seenUrls[url]; dup {
				continue
			}
			add(utils.GetLastPartOfUrl(url), url, true)
		}
	}

	if cfg.ThumbnailsOnly {
		kept := jobs[:0:0]
		for _, job := range jobs {
			// with a content scan active, thumbnails-only keeps the
			// scanned images only
			if cfg.ScanContentForImages {
				if job.fromScan {
					kept = append(kept, job)
				}
			} else if utils.IsImageFile(job.originalName) {
				kept = append(kept, job)
			}
		}
		jobs = kept
	}

	if cfg.MangaMode && cfg.Style == configs.StyleDateBased {
		sort.SliceStable(jobs, func(i, j int) bool {
			return utils.NaturalLess(jobs[i].originalName, jobs[j].originalName)
		})
	}

	for i, job := range jobs {
		job.index = i
		job.count = len(jobs)
	}
	return jobs
}

// exportText writes the post's text (or its comments) to disk instead
// of downloading files.
func (rc *RunContext) exportText(post *models.Post, targetDir string, result *PostResult) error {
	cfg := rc.Config

	var content string
	if cfg.TextScope == configs.TextScopeComments {
		comments, err := kemono.GetComments(rc.Ctx, rc.Client, rc.Source, post.Id)
		if err != nil {
			return err
		}
		var parts []string
		for _, comment := range comments {
			parts = append(parts, fmt.Sprintf(
				"%s (%s):\n%s",
				comment.Commenter,
				comment.Published,
				textexport.StripHtml(comment.Content),
			))
		}
		content = strings.Join(parts, "\n\n")
	} else {
		content = textexport.StripHtml(post.Content)
	}
	if content == "" {
		return nil
	}
	result.Attempted = true

	doc := &textexport.Document{
		Title:     post.Title,
		Published: post.PublishedOrAdded(),
		Content:   content,
	}

	if cfg.TextFormat == configs.TextFormatSinglePdf {
		if err := os.MkdirAll(rc.BaseDir, 0755); err != nil {
			return fmt.Errorf(
				"error %d: failed to create %s, more info => %w",
				utils.OS_ERROR,
				rc.BaseDir,
				err,
			)
		}
		tempPath, err := textexport.WriteIntermediate(doc, rc.BaseDir, post.Id)
		if err != nil {
			return err
		}
		result.TextTempPath = tempPath
		result.Downloaded++
		return nil
	}

	if err := os.MkdirAll(targetDir, 0755); err != nil {
		return fmt.Errorf(
			"error %d: failed to create %s, more info => %w",
			utils.OS_ERROR,
			targetDir,
			err,
		)
	}
	cleanedTitle := utils.RemoveIllegalCharsInPathName(post.Title)
	destPath, err := textexport.Write(doc, targetDir, cleanedTitle, cfg.TextFormat)
	if err != nil {
		return err
	}
	result.Downloaded++
	rc.Queue.Publish(LogEvent{
		Level:   utils.INFO,
		Message: fmt.Sprintf("exported text of %q to %s", post.Title, destPath),
	})
	return nil
}

// multipartEligible checks the policy side of the multi-part decision;
// the server side (size, Accept-Ranges) is probed per file.
func multipartEligible(policy *configs.MultipartPolicy, name string) bool {
	if !policy.Enabled {
		return false
	}
	switch policy.Scope {
	case configs.MultipartVideos:
		return utils.IsVideoFile(name)
	case configs.MultipartArchives:
		return utils.IsArchiveFile(name)
	default:
		return utils.IsVideoFile(name) || utils.IsArchiveFile(name)
	}
}

func passesTypeFilter(mode, name string) bool {
	switch mode {
	case configs.FilterImage:
		return utils.IsImageFile(name)
	case configs.FilterVideo:
		return utils.IsVideoFile(name)
	case configs.FilterArchive:
		return utils.IsArchiveFile(name)
	case configs.FilterAudio:
		return utils.ClassifyFileType(name) == utils.FILE_TYPE_AUDIO
	default:
		return true
	}
}

// claimFinalPath picks the destination for a finished download,
// suffixing the stem until a path is found that neither exists on disk
// nor has been claimed by another worker in this run. The claim happens
// before the rename so two workers with the same filename cannot
// resolve to the same destination.
func claimFinalPath(registry *dedupe.Registry, dirPath, name string) string {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	candidate := filepath.Join(dirPath, name)
	for i := 1; i <= 100; i++ {
		if !utils.PathExists(candidate) && registry.ClaimPath(candidate) {
			return candidate
		}
		candidate = filepath.Join(dirPath, fmt.Sprintf("%s_%d%s", stem, i, ext))
	}
	for {
		candidate = filepath.Join(dirPath, fmt.Sprintf("%s_%s%s", stem, utils.RandomHexSuffix(), ext))
		if registry.ClaimPath(candidate) {
			return candidate
		}
	}
}

type fileOutcome struct {
	downloaded bool
	skipped    bool
	diskName   string
	failure    *session.FailedFile
}

// downloadOne fetches, dedupes and places one job whose disk name has
// already been synthesized.
func (rc *RunContext) downloadOne(post *models.Post, job *downloadJob, targetDir, folderContext string) fileOutcome {
	cfg := rc.Config

	fail := func(class string, err error) fileOutcome {
		rc.Queue.Publish(LogEvent{
			Level:   utils.ERROR,
			Message: fmt.Sprintf("failed to download %q of post %s: %v", job.originalName, post.Id, err),
		})
		return fileOutcome{failure: &session.FailedFile{
			FileName:         job.originalName,
			FileUrl:          job.url,
			TargetFolderPath: targetDir,
			PostId:           post.Id,
			PostTitle:        post.Title,
			ForcedFilename:   job.diskName,
			FailureClass:     class,
		}}
	}

	if err := os.MkdirAll(targetDir, 0755); err != nil {
		return fail("permanent", err)
	}
	tempPath := utils.TempPartPath(targetDir, utils.RemoveExtFromFilename(job.diskName))

	var (
		written  int64
		md5Hash  string
		err      error
		probed   int64
		ranges   bool
		probeErr error
	)
	useMultipart := false
	if multipartEligible(&cfg.Multipart, job.originalName) {
		probed, ranges, probeErr = rc.Client.ProbeFile(rc.Ctx, job.url)
		useMultipart = probeErr == nil && ranges &&
			probed >= cfg.Multipart.MinSizeMB<<20 &&
			cfg.Multipart.Parts > 1
	}

	if useMultipart {
		written, md5Hash, err = rc.Client.DownloadMultipart(&request.MultipartArgs{
			Url:           job.url,
			TempPath:      tempPath,
			Size:          probed,
			Parts:         cfg.Multipart.Parts,
			Tokens:        rc.Tokens,
			ProgressLabel: job.diskName,
		})
		if err != nil && request.IsRetryable(err) {
			// fall back to a plain stream before giving up
			written, md5Hash, err = rc.Client.DownloadStream(&request.DownloadArgs{
				Url:           job.url,
				TempPath:      tempPath,
				DeclaredSize:  probed,
				Tokens:        rc.Tokens,
				ProgressLabel: job.diskName,
			})
		}
	} else {
		written, md5Hash, err = rc.Client.DownloadStream(&request.DownloadArgs{
			Url:           job.url,
			TempPath:      tempPath,
			Tokens:        rc.Tokens,
			ProgressLabel: job.diskName,
		})
	}
	if err != nil {
		os.Remove(tempPath)
		if errors.Is(err, request.ErrSkipped) || errors.Is(err, context.Canceled) {
			return fileOutcome{skipped: true}
		}
		if request.IsRetryable(err) {
			return fail("retryable", err)
		}
		return fail("permanent", err)
	}

	if !rc.Registry.Reserve(md5Hash) {
		os.Remove(tempPath)
		rc.Queue.Publish(LogEvent{
			Level:   utils.INFO,
			Message: fmt.Sprintf("skipped duplicate %q of post %s", job.originalName, post.Id),
		})
		return fileOutcome{skipped: true}
	}

	finalName := job.diskName
	if cfg.CompressImages && images.ShouldRecompress(job.originalName, written) {
		finalName = utils.RemoveExtFromFilename(finalName) + ".webp"
		finalPath := claimFinalPath(rc.Registry, targetDir, finalName)
		if compressErr := images.RecompressToWebp(tempPath, finalPath); compressErr == nil {
			os.Remove(tempPath)
			return rc.fileSaved(post, job, finalPath, folderContext)
		}
		// keep the original bytes when recompression fails
		finalName = job.diskName
	}

	finalPath := claimFinalPath(rc.Registry, targetDir, finalName)
	if renameErr := os.Rename(tempPath, finalPath); renameErr != nil {
		rc.Registry.Rollback(md5Hash)
		os.Remove(tempPath)
		return fail("permanent", renameErr)
	}

	if cfg.ExtractArchives && utils.IsArchiveFile(finalPath) {
		extractDir := utils.RemoveExtFromFilename(finalPath)
		if extractErr := utils.ExtractFiles(rc.Ctx, finalPath, extractDir); extractErr != nil &&
			!errors.Is(extractErr, context.Canceled) {
			rc.Queue.Publish(LogEvent{
				Level:   utils.ERROR,
				Message: fmt.Sprintf("failed to extract %s: %v", finalPath, extractErr),
			})
		}
	}
	return rc.fileSaved(post, job, finalPath, folderContext)
}

func (rc *RunContext) fileSaved(post *models.Post, job *downloadJob, finalPath, folderContext string) fileOutcome {
	diskName := filepath.Base(finalPath)
	rc.Registry.MarkName(diskName)
	rc.Queue.Publish(FileDownloadedEvent{Entry: session.DownloadedFile{
		DiskFilename:    diskName,
		PostId:          post.Id,
		PostTitle:       post.Title,
		DownloadPath:    finalPath,
		Service:         rc.Source.Service,
		UserId:          rc.Source.UserId,
		ApiOriginalName: job.originalName,
		FolderContext:   folderContext,
		UploadDate:      post.PublishedOrAdded(),
		DownloadedAt:    time.Now().Format(time.RFC3339),
	}})
	return fileOutcome{downloaded: true, diskName: diskName}
}

// skippedPostEntry builds the history record for a post the skip-word
// gate dropped. NumFiles still reports the full attachment count so the
// history shows what the post held.
func (rc *RunContext) skippedPostEntry(post *models.Post) session.ProcessedPost {
	return session.ProcessedPost{
		PostId:      post.Id,
		PostTitle:   post.Title,
		TopFileName: "N/A (Post Skipped)",
		NumFiles:    len(post.Files()),
		UploadDate:  post.PublishedOrAdded(),
		Service:     rc.Source.Service,
		UserId:      rc.Source.UserId,
	}
}

// downloadedPostEntry builds the history record for a post whose files
// were attempted. NumFiles counts every assembled file, not just the
// saves, so duplicate skips do not shrink the recorded size.
func (rc *RunContext) downloadedPostEntry(post *models.Post, topFile, targetDir string, totalFiles int) session.ProcessedPost {
	return session.ProcessedPost{
		PostId:           post.Id,
		PostTitle:        post.Title,
		TopFileName:      topFile,
		NumFiles:         totalFiles,
		UploadDate:       post.PublishedOrAdded(),
		DownloadLocation: targetDir,
		Service:          rc.Source.Service,
		UserId:           rc.Source.UserId,
	}
}

// ProcessPost runs one post through filtering, folder routing and
// download (or text export). The returned
// error is context.Canceled on user cancellation; every other failure
// is folded into the result.
func (rc *RunContext) ProcessPost(summary *models.PostSummary) (*PostResult, error) {
	cfg := rc.Config
	result := &PostResult{
		KeptOriginalNames: cfg.Style == configs.StyleOriginalName,
	}

	if err := rc.Tokens.Checkpoint(); err != nil {
		return result, err
	}

	post, err := kemono.GetFullPost(rc.Ctx, rc.Client, rc.Source, summary.Id)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return result, err
		}
		result.Permanent = append(result.Permanent, session.FailedFile{
			PostId:       summary.Id,
			PostTitle:    summary.Title,
			FileName:     "N/A",
			FailureClass: "permanent",
		})
		rc.Queue.Publish(LogEvent{
			Level:   utils.ERROR,
			Message: fmt.Sprintf("failed to fetch post %s: %v", summary.Id, err),
		})
		return result, nil
	}

	cand, err := rc.decideCandidacy(post)
	if err != nil {
		return result, err
	}
	if !cand.candidate {
		result.Skipped = len(post.Files())
		rc.Queue.Publish(MissedPostEvent{
			PostId:    post.Id,
			PostTitle: post.Title,
			Reason:    "no character filter matched",
		})
		return result, nil
	}

	skipPostScope := cfg.SkipWordScope == configs.SkipScopePosts || cfg.SkipWordScope == configs.SkipScopeBoth
	if len(cfg.SkipWords) > 0 && skipPostScope {
		if word := containsAnySkipWord(post.Title, cfg.SkipWords); word != "" {
			result.Skipped = len(post.Files())
			rc.Queue.Publish(MissedPostEvent{
				PostId:    post.Id,
				PostTitle: post.Title,
				Reason:    fmt.Sprintf("post title contains skip word %q", word),
			})
			rc.Queue.Publish(PostProcessedEvent{Entry: rc.skippedPostEntry(post)})
			return result, nil
		}
	}

	if extracted, linkErr := links.ExtractFromHtml(post.Title, post.Content); linkErr == nil {
		for _, link := range extracted {
			rc.Queue.Publish(LinkEvent{Link: link})
		}
	}
	if cfg.FilterMode == configs.FilterLinksOnly {
		return result, nil
	}

	targetDir, folderContext := rc.routeFolders(post, cand)
	if len(cfg.SkipWords) > 0 && skipPostScope {
		if word := containsAnySkipWord(derivedFolderPart(rc.BaseDir, targetDir), cfg.SkipWords); word != "" {
			result.Skipped = len(post.Files())
			rc.Queue.Publish(MissedPostEvent{
				PostId:    post.Id,
				PostTitle: post.Title,
				Reason:    fmt.Sprintf("target folder contains skip word %q", word),
			})
			return result, nil
		}
	}

	if cfg.FilterMode == configs.FilterTextOnly {
		if err := rc.exportText(post, targetDir, result); err != nil {
			if errors.Is(err, context.Canceled) {
				return result, err
			}
			result.Permanent = append(result.Permanent, session.FailedFile{
				PostId:           post.Id,
				PostTitle:        post.Title,
				FileName:         "N/A (Text Export)",
				TargetFolderPath: targetDir,
				FailureClass:     "permanent",
			})
			rc.Queue.Publish(LogEvent{
				Level:   utils.ERROR,
				Message: fmt.Sprintf("failed to export text of post %s: %v", post.Id, err),
			})
		}
		if result.Downloaded > 0 && len(result.Permanent) == 0 {
			result.HistoryRecord = &session.ProcessedPost{
				PostId:           post.Id,
				PostTitle:        post.Title,
				TopFileName:      utils.RemoveIllegalCharsInPathName(post.Title),
				NumFiles:         result.Downloaded,
				UploadDate:       post.PublishedOrAdded(),
				DownloadLocation: targetDir,
				Service:          rc.Source.Service,
				UserId:           rc.Source.UserId,
			}
			rc.Queue.Publish(PostProcessedEvent{Entry: *result.HistoryRecord})
		}
		rc.finishPost(targetDir, result)
		return result, nil
	}

	jobs := rc.assembleJobs(post)
	totalFiles := len(jobs)

	skipFileScope := cfg.SkipWordScope == configs.SkipScopeFiles || cfg.SkipWordScope == configs.SkipScopeBoth
	kept := jobs[:0:0]
	for _, job := range jobs {
		if len(cfg.SkipWords) > 0 && skipFileScope {
			if word := containsAnySkipWord(job.originalName, cfg.SkipWords); word != "" {
				result.Skipped++
				rc.Queue.Publish(LogEvent{
					Level:   utils.INFO,
					Message: fmt.Sprintf("skipped %q (skip word %q)", job.originalName, word),
				})
				continue
			}
		}
		if !passesTypeFilter(cfg.FilterMode, job.originalName) {
			result.Skipped++
			continue
		}
		if cand.perFile {
			matched := false
			for _, group := range cfg.CharFilters {
				if aliasMatchesFilename(job.originalName, group) {
					matched = true
					break
				}
			}
			if !matched {
				result.Skipped++
				continue
			}
		}
		kept = append(kept, job)
	}
	jobs = kept
	result.Attempted = len(jobs) > 0

	// Names are synthesized in list order before any download starts so
	// the counter styles stay deterministic.
	for _, job := range jobs {
		synthesized := filename.Synthesize(&filename.StyleArgs{
			OriginalName:     job.originalName,
			PostTitle:        post.Title,
			PostId:           post.Id,
			FileIndex:        job.index,
			FilesInPost:      job.count,
			PublishedOrAdded: post.PublishedOrAdded(),
			Style:            cfg.Style,
			MangaPrefix:      cfg.MangaPrefix,
			Counters:         rc.Counters,
		})
		job.diskName = filename.ApplyRemoveWords(synthesized, cfg.RemoveWords)
	}

	maxConcurrency := cfg.Threads.FileParts
	if cfg.SequentialStyle() || maxConcurrency < 1 {
		maxConcurrency = 1
	}
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		topFile string
	)
	queue := make(chan struct{}, maxConcurrency)
	for _, job := range jobs {
		if err := rc.Tokens.Checkpoint(); err != nil {
			break
		}
		wg.Add(1)
		queue <- struct{}{}
		go func(job *downloadJob) {
			defer func() {
				<-queue
				wg.Done()
			}()
			outcome := rc.downloadOne(post, job, targetDir, folderContext)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case outcome.downloaded:
				result.Downloaded++
				if topFile == "" {
					topFile = outcome.diskName
				}
			case outcome.skipped:
				result.Skipped++
			case outcome.failure != nil:
				if outcome.failure.FailureClass == "retryable" {
					result.Retryable = append(result.Retryable, *outcome.failure)
				} else {
					result.Permanent = append(result.Permanent, *outcome.failure)
				}
			}
		}(job)
	}
	wg.Wait()

	if result.Downloaded > 0 && len(result.Permanent) == 0 {
		entry := rc.downloadedPostEntry(post, topFile, targetDir, totalFiles)
		result.HistoryRecord = &entry
		rc.Queue.Publish(PostProcessedEvent{Entry: entry})
	}
	rc.finishPost(targetDir, result)
	return result, nil
}

// finishPost drops per-post subfolders that ended up empty.
func (rc *RunContext) finishPost(targetDir string, result *PostResult) {
	if rc.Config.Folders.UsePostSubfolders && result.Downloaded == 0 {
		utils.RemoveDirIfEmpty(targetDir)
	}
}
