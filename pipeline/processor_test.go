package pipeline

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/KJHJason/Kemono-Harvester-CLI/api/kemono"
	"github.com/KJHJason/Kemono-Harvester-CLI/api/kemono/models"
	"github.com/KJHJason/Kemono-Harvester-CLI/configs"
	"github.com/KJHJason/Kemono-Harvester-CLI/dedupe"
)

func TestFirstSignificantWord(t *testing.T) {
	tests := []struct {
		title    string
		extra    []string
		expected string
	}{
		{"The new Alice set", nil, "Alice"},
		{"[WIP] sketch preview", nil, ""},
		{"2023 update part 12", nil, ""},
		{"Rem and Ram beach day", nil, "Rem"},
		{"reward pack Bowsette!", nil, "Bowsette"},
		{"Monthly Alice pack", []string{"monthly"}, "Alice"},
		{"", nil, ""},
	}
	for _, test := range tests {
		if got := firstSignificantWord(test.title, test.extra); got != test.expected {
			t.Errorf("firstSignificantWord(%q, %v) = %q, expected %q", test.title, test.extra, got, test.expected)
		}
	}
}

func TestDigitsOnly(t *testing.T) {
	tests := []struct {
		s        string
		expected bool
	}{
		{"12345", true},
		{"12a45", false},
		{"", false},
	}
	for _, test := range tests {
		if got := digitsOnly(test.s); got != test.expected {
			t.Errorf("digitsOnly(%q) = %v", test.s, got)
		}
	}
}

func TestContainsAnySkipWord(t *testing.T) {
	skipWords := []string{"nsfw", "sketch"}
	if got := containsAnySkipWord("NSFW bonus content", skipWords); got != "nsfw" {
		t.Errorf("got %q", got)
	}
	if got := containsAnySkipWord("sketchbook scans", skipWords); got != "sketch" {
		t.Errorf("substring should match, got %q", got)
	}
	if got := containsAnySkipWord("Bonus SKETCHES", skipWords); got != "sketch" {
		t.Errorf("case-insensitive substring should match, got %q", got)
	}
	if got := containsAnySkipWord("safe post", skipWords); got != "" {
		t.Errorf("got %q", got)
	}
}

func TestDerivedFolderPart(t *testing.T) {
	base := filepath.Join("/downloads", "nsfw stash", "creator")
	got := derivedFolderPart(base, filepath.Join(base, "Alice", "beach day"))
	if got != filepath.Join("Alice", "beach day") {
		t.Errorf("derivedFolderPart = %q", got)
	}

	// a skip word in the user's own base directory must never trip the
	// folder gate
	skipWords := []string{"nsfw"}
	if word := containsAnySkipWord(got, skipWords); word != "" {
		t.Errorf("base directory leaked into the skip check, matched %q", word)
	}
}

func TestMultipartEligible(t *testing.T) {
	tests := []struct {
		name     string
		policy   configs.MultipartPolicy
		file     string
		expected bool
	}{
		{"disabled", configs.MultipartPolicy{}, "movie.mp4", false},
		{
			"videos scope matches video",
			configs.MultipartPolicy{Enabled: true, Scope: configs.MultipartVideos},
			"movie.mp4",
			true,
		},
		{
			"videos scope rejects archive",
			configs.MultipartPolicy{Enabled: true, Scope: configs.MultipartVideos},
			"pack.zip",
			false,
		},
		{
			"archives scope matches archive",
			configs.MultipartPolicy{Enabled: true, Scope: configs.MultipartArchives},
			"pack.7z",
			true,
		},
		{
			"both scope matches either",
			configs.MultipartPolicy{Enabled: true, Scope: configs.MultipartBoth},
			"movie.mkv",
			true,
		},
		{
			"both scope rejects image",
			configs.MultipartPolicy{Enabled: true, Scope: configs.MultipartBoth},
			"photo.png",
			false,
		},
	}
	for _, test := range tests {
		if got := multipartEligible(&test.policy, test.file); got != test.expected {
			t.Errorf("%s: multipartEligible = %v, expected %v", test.name, got, test.expected)
		}
	}
}

func TestPassesTypeFilter(t *testing.T) {
	tests := []struct {
		mode     string
		file     string
		expected bool
	}{
		{configs.FilterAll, "anything.bin", true},
		{configs.FilterImage, "photo.png", true},
		{configs.FilterImage, "movie.mp4", false},
		{configs.FilterVideo, "movie.mp4", true},
		{configs.FilterVideo, "photo.png", false},
		{configs.FilterArchive, "pack.zip", true},
		{configs.FilterAudio, "song.mp3", true},
		{configs.FilterAudio, "photo.png", false},
	}
	for _, test := range tests {
		if got := passesTypeFilter(test.mode, test.file); got != test.expected {
			t.Errorf("passesTypeFilter(%s, %s) = %v, expected %v", test.mode, test.file, got, test.expected)
		}
	}
}

func TestSortedWinner(t *testing.T) {
	if got := sortedWinner(nil); got != "" {
		t.Errorf("empty set should yield no winner, got %q", got)
	}
	matched := map[string]struct{}{"Zelda": {}, "Alice": {}, "Midna": {}}
	if got := sortedWinner(matched); got != "Alice" {
		t.Errorf("winner = %q, expected the alphabetically first group", got)
	}
}

func TestAliasMatchesFilename(t *testing.T) {
	group := &configs.FilterGroup{Name: "Alice", Aliases: []string{"Alice", "Al"}}
	tests := []struct {
		file     string
		expected bool
	}{
		{"alice_beach_01.png", true}, // prefix, case-insensitive
		{"beach alice 01.png", true}, // whole word
		{"alicette_01.png", false},
		{"bob_01.png", false},
	}
	for _, test := range tests {
		if got := aliasMatchesFilename(test.file, group); got != test.expected {
			t.Errorf("aliasMatchesFilename(%q) = %v, expected %v", test.file, got, test.expected)
		}
	}
}

func testRunContext(cfg *configs.RunConfig, baseDir string) *RunContext {
	return &RunContext{
		Config:  cfg,
		Source:  &kemono.Source{Site: "kemono", Tld: "su", Service: "patreon", UserId: "123"},
		Queue:   NewQueue(),
		BaseDir: baseDir,
	}
}

func TestRouteFoldersCharWinner(t *testing.T) {
	base := t.TempDir()
	rc := testRunContext(&configs.RunConfig{}, base)

	post := &models.Post{}
	post.Title = "Alice at the beach"
	targetDir, folderContext := rc.routeFolders(post, candidacy{candidate: true, winner: "Alice"})
	if targetDir != filepath.Join(base, "Alice") {
		t.Errorf("targetDir = %q", targetDir)
	}
	if folderContext != "Alice" {
		t.Errorf("folderContext = %q", folderContext)
	}
}

func TestRouteFoldersFirstSignificantWord(t *testing.T) {
	base := t.TempDir()
	rc := testRunContext(&configs.RunConfig{}, base)

	post := &models.Post{}
	post.Title = "The new Bowsette pack"
	targetDir, _ := rc.routeFolders(post, candidacy{candidate: true})
	if targetDir != filepath.Join(base, "Bowsette") {
		t.Errorf("targetDir = %q", targetDir)
	}
}

func TestRouteFoldersUntitledFallback(t *testing.T) {
	base := t.TempDir()
	rc := testRunContext(&configs.RunConfig{}, base)

	post := &models.Post{}
	post.Title = "   "
	targetDir, _ := rc.routeFolders(post, candidacy{candidate: true})
	if targetDir != filepath.Join(base, "untitled_folder") {
		t.Errorf("targetDir = %q", targetDir)
	}
}

func TestRouteFoldersPostSubfolderWithDate(t *testing.T) {
	base := t.TempDir()
	cfg := &configs.RunConfig{
		Folders: configs.FolderOptions{UsePostSubfolders: true, DatePrefixSubfolder: true},
	}
	rc := testRunContext(cfg, base)

	post := &models.Post{}
	post.Title = "Bowsette pack"
	post.Published = "2023-05-01T10:30:00"
	targetDir, _ := rc.routeFolders(post, candidacy{candidate: true})
	expected := filepath.Join(base, "Bowsette", "2023-05-01 Bowsette pack")
	if targetDir != expected {
		t.Errorf("targetDir = %q, expected %q", targetDir, expected)
	}
}

func TestAssembleJobsDeduplicatesUrls(t *testing.T) {
	rc := testRunContext(&configs.RunConfig{
		Duplicates: configs.DuplicatePolicy{Mode: configs.DuplicateHash},
	}, t.TempDir())

	post := &models.Post{}
	post.File = models.FileRef{Name: "cover.png", Path: "/ab/cd/cover.png"}
	post.Attachments = []models.FileRef{
		{Name: "cover.png", Path: "/ab/cd/cover.png"}, // same file again
		{Name: "extra.zip", Path: "/ef/gh/extra.zip"},
	}

	jobs := rc.assembleJobs(post)
	if len(jobs) != 2 {
		t.Fatalf("got %d jobs, expected 2", len(jobs))
	}
	if jobs[0].originalName != "cover.png" || jobs[1].originalName != "extra.zip" {
		t.Errorf("jobs = %q, %q", jobs[0].originalName, jobs[1].originalName)
	}
	for i, job := range jobs {
		if job.index != i || job.count != 2 {
			t.Errorf("job %d has index=%d count=%d", i, job.index, job.count)
		}
	}
}

func TestAssembleJobsThumbnailsOnly(t *testing.T) {
	rc := testRunContext(&configs.RunConfig{ThumbnailsOnly: true}, t.TempDir())

	post := &models.Post{}
	post.Attachments = []models.FileRef{
		{Name: "photo.png", Path: "/a/photo.png"},
		{Name: "movie.mp4", Path: "/b/movie.mp4"},
	}
	jobs := rc.assembleJobs(post)
	if len(jobs) != 1 || jobs[0].originalName != "photo.png" {
		t.Errorf("jobs = %+v", jobs)
	}
}

func TestAssembleJobsThumbnailsOnlyWithScan(t *testing.T) {
	rc := testRunContext(&configs.RunConfig{
		ThumbnailsOnly:       true,
		ScanContentForImages: true,
	}, t.TempDir())

	post := &models.Post{}
	post.Attachments = []models.FileRef{
		{Name: "photo.png", Path: "/a/photo.png"},
		{Name: "movie.mp4", Path: "/b/movie.mp4"},
	}
	post.Content = `<p><img src="https://example.com/inline.jpg"></p>`

	jobs := rc.assembleJobs(post)
	if len(jobs) != 1 || jobs[0].originalName != "inline.jpg" {
		t.Fatalf("expected only the scanned image, got %+v", jobs)
	}
	if !jobs[0].fromScan {
		t.Error("scanned job should be marked as such")
	}
}

func TestSkippedPostEntryCountsAllFiles(t *testing.T) {
	rc := testRunContext(&configs.RunConfig{}, t.TempDir())

	post := &models.Post{}
	post.Id = "p1"
	post.Title = "NSFW bonus"
	post.File = models.FileRef{Name: "cover.png", Path: "/a/cover.png"}
	post.Attachments = []models.FileRef{
		{Name: "b.png", Path: "/b/b.png"},
		{Name: "c.zip", Path: "/c/c.zip"},
	}

	entry := rc.skippedPostEntry(post)
	if entry.TopFileName != "N/A (Post Skipped)" {
		t.Errorf("TopFileName = %q", entry.TopFileName)
	}
	if entry.NumFiles != 3 {
		t.Errorf("NumFiles = %d, expected 3", entry.NumFiles)
	}
	if entry.PostId != "p1" || entry.Service != "patreon" || entry.UserId != "123" {
		t.Errorf("entry = %+v", entry)
	}
}

func TestDownloadedPostEntryCountsAssembledFiles(t *testing.T) {
	rc := testRunContext(&configs.RunConfig{}, t.TempDir())

	post := &models.Post{}
	post.Id = "p2"
	post.Title = "Beach set"

	// three files were assembled even though only two were saved (one
	// was a content duplicate)
	entry := rc.downloadedPostEntry(post, "cover.png", "/downloads/Alice", 3)
	if entry.NumFiles != 3 {
		t.Errorf("NumFiles = %d, expected 3", entry.NumFiles)
	}
	if entry.TopFileName != "cover.png" || entry.DownloadLocation != "/downloads/Alice" {
		t.Errorf("entry = %+v", entry)
	}
}

func TestClaimFinalPathSuffixesOnDiskCollision(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "photo.png"), []byte("x"), 0666); err != nil {
		t.Fatal(err)
	}
	registry := dedupe.NewRegistry(configs.DuplicatePolicy{Mode: configs.DuplicateKeepAll})

	got := claimFinalPath(registry, dir, "photo.png")
	if got != filepath.Join(dir, "photo_1.png") {
		t.Errorf("claimFinalPath = %q", got)
	}
}

func TestClaimFinalPathConcurrentSameName(t *testing.T) {
	dir := t.TempDir()
	registry := dedupe.NewRegistry(configs.DuplicatePolicy{Mode: configs.DuplicateKeepAll})

	const workers = 8
	var wg sync.WaitGroup
	paths := make(chan string, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			paths <- claimFinalPath(registry, dir, "photo.png")
		}()
	}
	wg.Wait()
	close(paths)

	seen := make(map[string]struct{})
	for path := range paths {
		if _, dup := seen[path]; dup {
			t.Fatalf("two workers resolved the same final path %q", path)
		}
		seen[path] = struct{}{}
	}
	if len(seen) != workers {
		t.Errorf("got %d distinct paths, expected %d", len(seen), workers)
	}
}

func TestAssembleJobsMangaDateBasedOrder(t *testing.T) {
	rc := testRunContext(&configs.RunConfig{
		MangaMode: true,
		Style:     configs.StyleDateBased,
	}, t.TempDir())

	post := &models.Post{}
	post.Attachments = []models.FileRef{
		{Name: "page10.png", Path: "/a/page10.png"},
		{Name: "page2.png", Path: "/b/page2.png"},
	}
	jobs := rc.assembleJobs(post)
	if len(jobs) != 2 || jobs[0].originalName != "page2.png" {
		t.Errorf("natural order expected, got %q first", jobs[0].originalName)
	}
}
