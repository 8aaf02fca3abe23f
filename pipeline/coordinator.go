package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"

	"github.com/fatih/color"
	"github.com/pkg/browser"

	"github.com/KJHJason/Kemono-Harvester-CLI/api/kemono"
	"github.com/KJHJason/Kemono-Harvester-CLI/api/kemono/models"
	"github.com/KJHJason/Kemono-Harvester-CLI/configs"
	"github.com/KJHJason/Kemono-Harvester-CLI/dedupe"
	"github.com/KJHJason/Kemono-Harvester-CLI/filename"
	"github.com/KJHJason/Kemono-Harvester-CLI/knownnames"
	"github.com/KJHJason/Kemono-Harvester-CLI/links"
	"github.com/KJHJason/Kemono-Harvester-CLI/request"
	"github.com/KJHJason/Kemono-Harvester-CLI/session"
	"github.com/KJHJason/Kemono-Harvester-CLI/spinner"
	"github.com/KJHJason/Kemono-Harvester-CLI/textexport"
	"github.com/KJHJason/Kemono-Harvester-CLI/utils"
)

// Summary is the terminal result of one run.
type Summary struct {
	Downloaded int
	Skipped    int
	Cancelled  bool

	// ProcessedPostIds covers this run only, for the update command to
	// extend the creator profile with.
	ProcessedPostIds []string
}

// Coordinator owns one run: the fetcher, the post-worker pool, the
// event consumer and the session snapshots.
type Coordinator struct {
	cfg      *configs.RunConfig
	source   *kemono.Source
	client   *request.Client
	known    *knownnames.Store
	store    *session.Store
	history  *session.History
	queue    *Queue
	tokens   *utils.Tokens
	registry *dedupe.Registry
	counters *filename.Counters

	baseDir   string
	processed map[string]struct{}

	mu             sync.Mutex
	totalPosts     int
	processedPosts int
	pagesEnqueued  int
	downloaded     int
	skipped        int
	retryable      []session.FailedFile
	permanent      []session.FailedFile
	processedIds   []string
	pending        map[string]*models.PostSummary
	textTempPaths  []string
	foundLinks     []*links.ExternalLink

	finishOnce sync.Once
}

// LoadSession reads the saved resume snapshot, if one exists.
func LoadSession() (*session.Snapshot, error) {
	return session.NewStore("").Load()
}

// NewCoordinator wires the run state up from a validated config.
func NewCoordinator(cfg *configs.RunConfig) (*Coordinator, error) {
	source, err := kemono.ParseSourceUrl(cfg.SourceUrl)
	if err != nil {
		return nil, err
	}

	var cookies []*http.Cookie
	if cfg.Cookies.UseCookies {
		cookies, err = utils.ResolveCookies(cfg.Cookies.FilePath, cfg.Cookies.RawString, source.Host())
		if err != nil {
			return nil, err
		}
	}

	creatorDir := cfg.CreatorDir
	if creatorDir == "" {
		creatorDir = utils.RemoveIllegalCharsInPathName(source.ProfileKey())
	}

	known := knownnames.NewStore("")
	if err := known.Load(); err != nil {
		return nil, err
	}

	return &Coordinator{
		cfg:    cfg,
		source: source,
		client: &request.Client{
			Cookies:   cookies,
			UserAgent: cfg.UserAgent,
			UseHttp3:  cfg.UseHttp3,
		},
		known:     known,
		store:     session.NewStore(""),
		history:   session.NewHistory(""),
		queue:     NewQueue(),
		tokens:    utils.NewTokens(),
		registry:  dedupe.NewRegistry(cfg.Duplicates),
		counters:  filename.NewCounters(),
		baseDir:   filepath.Join(cfg.OutputRoot, creatorDir),
		processed: make(map[string]struct{}),
		pending:   make(map[string]*models.PostSummary),
	}, nil
}

// Tokens exposes the run tokens so the CLI can wire signal handling.
func (c *Coordinator) Tokens() *utils.Tokens {
	return c.tokens
}

// SeedProcessed marks post ids as already handled, for resumed
// sessions and update runs.
func (c *Coordinator) SeedProcessed(postIds []string) {
	for _, id := range postIds {
		c.processed[id] = struct{}{}
	}
}

// Restore re-applies the download state of a saved session.
func (c *Coordinator) Restore(snapshot *session.Snapshot) {
	state := &snapshot.DownloadState
	c.SeedProcessed(state.ProcessedPostIds)
	c.registry.SeedHashes(state.SuccessfullyDownloadedHashes)
	c.counters.Seed(state.MangaCounters.DateBased, state.MangaCounters.GlobalNumbering)
	c.permanent = append(c.permanent, state.PermanentlyFailedFiles...)
}

func (c *Coordinator) workerCount() int {
	if c.source.IsSinglePost() || c.cfg.PdfExport() || c.cfg.SequentialStyle() {
		return 1
	}
	n := c.cfg.Threads.PostWorkers
	if n > utils.POST_WORKER_SOFT_LIMIT {
		color.Yellow(
			"Warning: running %d post workers may strain the archive host, consider %d or fewer.",
			n,
			utils.POST_WORKER_SOFT_LIMIT,
		)
	}
	return n
}

func (c *Coordinator) snapshotLocked() *session.Snapshot {
	dateBased, globalNumbering := c.counters.Values()
	remaining := make([]*models.PostSummary, 0, len(c.pending))
	for _, post := range c.pending {
		remaining = append(remaining, post)
	}
	processedIds := make([]string, 0, len(c.processed)+len(c.processedIds))
	for id := range c.processed {
		processedIds = append(processedIds, id)
	}
	processedIds = append(processedIds, c.processedIds...)

	return &session.Snapshot{
		UiSettings: c.cfg,
		DownloadState: session.DownloadState{
			ProcessedPostIds:             processedIds,
			LastProcessedOffset:          c.pagesEnqueued * utils.PER_PAGE,
			SuccessfullyDownloadedHashes: c.registry.Hashes(),
			PermanentlyFailedFiles:       c.permanent,
			MangaCounters: session.MangaCounters{
				DateBased:       dateBased,
				GlobalNumbering: globalNumbering,
			},
		},
		RemainingQueue: remaining,
	}
}

func (c *Coordinator) saveSnapshot() {
	c.mu.Lock()
	snapshot := c.snapshotLocked()
	c.mu.Unlock()
	if err := c.store.Save(snapshot); err != nil {
		utils.LogError(err, "failed to save session snapshot", false, utils.ERROR)
	}
}

// markPostProcessed decides whether a post joins the processed id set.
// Only posts that actually had something attempted and saw no permanent
// failure count; filter-skipped posts stay out so a later run with
// different filters revisits them.
func markPostProcessed(result *PostResult, err error) bool {
	return err == nil && result.Attempted && len(result.Permanent) == 0
}

func (c *Coordinator) runPost(rc *RunContext, post *models.PostSummary) {
	result, err := rc.ProcessPost(post)
	if err != nil && errors.Is(err, context.Canceled) {
		c.tokens.Cancel.Set()
	}

	c.mu.Lock()
	c.processedPosts++
	delete(c.pending, post.Id)
	c.downloaded += result.Downloaded
	c.skipped += result.Skipped
	c.retryable = append(c.retryable, result.Retryable...)
	c.permanent = append(c.permanent, result.Permanent...)
	if result.TextTempPath != "" {
		c.textTempPaths = append(c.textTempPaths, result.TextTempPath)
	}
	if markPostProcessed(result, err) {
		c.processedIds = append(c.processedIds, post.Id)
	}
	total, processed := c.totalPosts, c.processedPosts
	c.mu.Unlock()

	c.queue.Publish(TotalsEvent{Total: total, Processed: processed})
	c.saveSnapshot()
}

// Run executes the whole pipeline and blocks until it finishes or is
// cancelled.
func (c *Coordinator) Run(ctx context.Context) (*Summary, error) {
	if err := os.MkdirAll(c.baseDir, 0755); err != nil {
		return nil, fmt.Errorf(
			"error %d: failed to create %s, more info => %w",
			utils.OS_ERROR,
			c.baseDir,
			err,
		)
	}

	consumerDone := make(chan struct{})
	go c.consumeEvents(consumerDone)

	c.saveSnapshot()

	rc := &RunContext{
		Ctx:      ctx,
		Config:   c.cfg,
		Client:   c.client,
		Source:   c.source,
		Known:    c.known,
		Counters: c.counters,
		Registry: c.registry,
		Tokens:   c.tokens,
		Queue:    c.queue,
		BaseDir:  c.baseDir,
	}

	var wg sync.WaitGroup
	workerQueue := make(chan struct{}, c.workerCount())
	submit := func(post *models.PostSummary) {
		c.mu.Lock()
		c.totalPosts++
		c.pending[post.Id] = post
		total, processed := c.totalPosts, c.processedPosts
		c.mu.Unlock()
		c.queue.Publish(TotalsEvent{Total: total, Processed: processed})

		wg.Add(1)
		workerQueue <- struct{}{}
		go func() {
			defer func() {
				<-workerQueue
				wg.Done()
			}()
			c.runPost(rc, post)
		}()
	}

	feedArgs := &kemono.FeedArgs{
		Client:    c.client,
		Source:    c.source,
		Pages:     c.cfg.Pages,
		MangaMode: c.cfg.MangaMode,
		Style:     c.cfg.Style,
		Processed: c.processed,
		Tokens:    c.tokens,
	}

	// Sequential styles need the full feed before numbering starts, so
	// they fetch to exhaustion first.
	fetchFirst := c.cfg.MangaMode && c.cfg.SequentialStyle()
	var fetchErr error
	if fetchFirst {
		sp := spinner.New("dots", "cyan", fmt.Sprintf("Getting posts from %s...", c.source.Host()))
		sp.SuccessMsg = "Finished getting posts!"
		sp.ErrMsg = "Failed to get posts."
		sp.Start()

		var all []*models.PostSummary
		fetchErr = kemono.WalkPosts(
			ctx,
			feedArgs,
			func(posts []*models.PostSummary) error {
				all = append(all, posts...)
				c.mu.Lock()
				c.pagesEnqueued++
				c.mu.Unlock()
				return nil
			},
			func(fetched int) {
				sp.UpdateMsg(fmt.Sprintf("Getting posts from %s... (%d fetched)", c.source.Host(), fetched))
			},
		)
		sp.Stop(fetchErr != nil)
		if fetchErr == nil {
			for _, post := range all {
				if c.tokens.Cancel.IsSet() {
					break
				}
				submit(post)
			}
		}
	} else {
		fetchErr = kemono.WalkPosts(
			ctx,
			feedArgs,
			func(posts []*models.PostSummary) error {
				for _, post := range posts {
					if c.tokens.Cancel.IsSet() {
						return context.Canceled
					}
					submit(post)
				}
				c.mu.Lock()
				c.pagesEnqueued++
				c.mu.Unlock()
				return nil
			},
			nil,
		)
	}
	if fetchErr != nil {
		if errors.Is(fetchErr, context.Canceled) {
			c.tokens.Cancel.Set()
		} else {
			c.queue.Publish(LogEvent{
				Level:   utils.ERROR,
				Message: fmt.Sprintf("feed walk stopped: %v", fetchErr),
			})
		}
	}

	// Completion barrier: the fetcher is done at this point, so once
	// every submitted worker returns the run can finalize exactly once.
	wg.Wait()

	var summary *Summary
	c.finishOnce.Do(func() {
		summary = c.finalize(rc, consumerDone)
	})
	return summary, nil
}

func (c *Coordinator) finalize(rc *RunContext, consumerDone chan struct{}) *Summary {
	cancelled := c.tokens.Cancel.IsSet()

	c.mu.Lock()
	retryable := c.retryable
	c.retryable = nil
	c.mu.Unlock()

	if len(retryable) > 0 && !cancelled {
		c.queue.Publish(LogEvent{
			Level:   utils.INFO,
			Message: fmt.Sprintf("retrying %d failed download(s)...", len(retryable)),
		})
		recovered, remaining := rc.RetryDownloads(retryable)
		c.mu.Lock()
		c.downloaded += recovered
		c.retryable = remaining
		c.mu.Unlock()
	} else {
		c.mu.Lock()
		c.retryable = retryable
		c.mu.Unlock()
	}

	c.mu.Lock()
	textTempPaths := append([]string(nil), c.textTempPaths...)
	c.mu.Unlock()
	if c.cfg.FilterMode == configs.FilterTextOnly &&
		c.cfg.TextFormat == configs.TextFormatSinglePdf &&
		len(textTempPaths) > 0 && !cancelled {
		mergedPath := filepath.Join(c.baseDir, filepath.Base(c.baseDir)+".pdf")
		if err := textexport.MergeSinglePdf(textTempPaths, mergedPath); err != nil {
			utils.LogError(err, "failed to merge the single pdf", false, utils.ERROR)
		} else {
			c.queue.Publish(LogEvent{
				Level:   utils.INFO,
				Message: fmt.Sprintf("merged %d post(s) into %s", len(textTempPaths), mergedPath),
			})
		}
	}

	c.writeLinksFile()

	if err := c.history.Flush(); err != nil {
		utils.LogError(err, "failed to write the download history", false, utils.ERROR)
	}
	if err := c.known.Save(); err != nil {
		utils.LogError(err, "failed to save the known names file", false, utils.ERROR)
	}

	if cancelled {
		// keep the session file so the run can be resumed
		c.saveSnapshot()
	} else {
		if err := c.store.Remove(); err != nil {
			utils.LogError(err, "failed to remove the session file", false, utils.ERROR)
		}
		c.updateCreatorProfile()
	}

	c.mu.Lock()
	summary := &Summary{
		Downloaded:       c.downloaded,
		Skipped:          c.skipped,
		Cancelled:        cancelled,
		ProcessedPostIds: append([]string(nil), c.processedIds...),
	}
	retryable = append([]session.FailedFile(nil), c.retryable...)
	permanent := append([]session.FailedFile(nil), c.permanent...)
	c.mu.Unlock()

	// published outside the lock since the consumer takes it for links
	c.queue.Publish(FailuresEvent{Retryable: retryable, Permanent: permanent})

	c.queue.Publish(FinishedEvent{
		Downloaded:        summary.Downloaded,
		Skipped:           summary.Skipped,
		Cancelled:         cancelled,
		KeptOriginalNames: c.cfg.Style == configs.StyleOriginalName,
	})
	c.queue.Close()
	<-consumerDone

	if cancelled {
		utils.AlertWithoutErr(utils.Title, "Download cancelled, progress has been saved.")
	} else {
		utils.AlertWithoutErr(utils.Title, fmt.Sprintf("Downloaded %d file(s)!", summary.Downloaded))
		if c.cfg.OpenFolderOnFinish {
			if err := browser.OpenURL("file://" + c.baseDir); err != nil {
				utils.LogError(err, "failed to open the download folder", false, utils.ERROR)
			}
		}
	}
	return summary
}

// updateCreatorProfile extends the long-lived per-creator store so the
// update command can diff future post lists against it.
func (c *Coordinator) updateCreatorProfile() {
	if c.source.IsSinglePost() {
		return
	}
	c.mu.Lock()
	processedIds := append([]string(nil), c.processedIds...)
	c.mu.Unlock()
	if len(processedIds) == 0 {
		return
	}

	profile, err := session.LoadProfile(c.source.ProfileKey())
	if err != nil {
		utils.LogError(err, "failed to load the creator profile", false, utils.ERROR)
		return
	}
	profile.Settings = c.cfg
	hasUrl := false
	for _, url := range profile.CreatorUrl {
		if url == c.cfg.SourceUrl {
			hasUrl = true
			break
		}
	}
	if !hasUrl {
		profile.CreatorUrl = append(profile.CreatorUrl, c.cfg.SourceUrl)
	}
	profile.Extend(processedIds)
	if err := session.SaveProfile(c.source.ProfileKey(), profile); err != nil {
		utils.LogError(err, "failed to save the creator profile", false, utils.ERROR)
	}
}

func (c *Coordinator) writeLinksFile() {
	c.mu.Lock()
	foundLinks := c.foundLinks
	c.mu.Unlock()
	if len(foundLinks) == 0 {
		return
	}

	linksPath := filepath.Join(c.baseDir, "external_links.txt")
	var lines []string
	for _, link := range foundLinks {
		line := fmt.Sprintf("%s | %s | %s", link.PostTitle, link.Platform, link.Url)
		if link.Key != "" {
			line += fmt.Sprintf(" | key: %s", link.Key)
		}
		lines = append(lines, line)
	}
	content := utils.CombineStringsWithNewline(lines) + "\n"
	if err := os.WriteFile(linksPath, []byte(content), 0644); err != nil {
		utils.LogError(err, "failed to write "+linksPath, false, utils.ERROR)
	}
}

func (c *Coordinator) consumeEvents(done chan struct{}) {
	defer close(done)
	for event := range c.queue.Events() {
		switch e := event.(type) {
		case LogEvent:
			if e.Level == utils.ERROR {
				color.Red(e.Message)
				utils.LogError(nil, e.Message, false, utils.ERROR)
			} else {
				fmt.Println(e.Message)
			}
		case TotalsEvent:
			color.Cyan("Processed %d of %d post(s)", e.Processed, e.Total)
		case LinkEvent:
			c.mu.Lock()
			c.foundLinks = append(c.foundLinks, e.Link)
			c.mu.Unlock()
		case MissedPostEvent:
			color.Yellow("Skipped post %s (%q): %s", e.PostId, e.PostTitle, e.Reason)
		case FileDownloadedEvent:
			c.history.AddFile(e.Entry)
		case PostProcessedEvent:
			c.history.AddPost(e.Entry)
		case FailuresEvent:
			for _, file := range e.Retryable {
				color.Yellow("Still failing (retryable): %q of post %s", file.FileName, file.PostId)
			}
			for _, file := range e.Permanent {
				color.Red("Failed permanently: %q of post %s", file.FileName, file.PostId)
			}
		case FinishedEvent:
			if e.Cancelled {
				color.Yellow("\nDownload cancelled: %d file(s) downloaded, %d skipped.", e.Downloaded, e.Skipped)
			} else {
				color.Green("\nDownload finished: %d file(s) downloaded, %d skipped.", e.Downloaded, e.Skipped)
				if e.KeptOriginalNames {
					color.Green("Original filenames were kept (with upload-date prefixes).")
				}
			}
		}
	}
}
