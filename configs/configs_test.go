package configs

import (
	"strings"
	"testing"
)

func validConfig() *RunConfig {
	return &RunConfig{
		SourceUrl:  "https://kemono.su/patreon/user/123456",
		OutputRoot: "/tmp/downloads",
	}
}

func TestValidateFillsDefaults(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	if cfg.FilterMode != FilterAll {
		t.Errorf("FilterMode = %q", cfg.FilterMode)
	}
	if cfg.Style != StylePostTitle {
		t.Errorf("Style = %q", cfg.Style)
	}
	if cfg.Duplicates.Mode != DuplicateHash {
		t.Errorf("Duplicates.Mode = %q", cfg.Duplicates.Mode)
	}
	if cfg.Pages.Start != 1 {
		t.Errorf("Pages.Start = %d", cfg.Pages.Start)
	}
	if cfg.Threads.PostWorkers != 1 || cfg.Threads.FileParts != 2 {
		t.Errorf("Threads = %+v", cfg.Threads)
	}
	if cfg.UserAgent == "" {
		t.Error("UserAgent should default to the built-in one")
	}
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*RunConfig)
	}{
		{"empty url", func(c *RunConfig) { c.SourceUrl = "" }},
		{"empty output", func(c *RunConfig) { c.OutputRoot = "" }},
		{"bad filter mode", func(c *RunConfig) { c.FilterMode = "everything" }},
		{"bad style", func(c *RunConfig) { c.Style = "fancy" }},
		{"bad text format", func(c *RunConfig) {
			c.FilterMode = FilterTextOnly
			c.TextFormat = "epub"
		}},
		{"multipart too many parts", func(c *RunConfig) {
			c.Multipart.Enabled = true
			c.Multipart.Parts = 99
		}},
		{"multipart one part", func(c *RunConfig) {
			c.Multipart.Enabled = true
			c.Multipart.Parts = 1
		}},
		{"negative duplicate limit", func(c *RunConfig) { c.Duplicates.Limit = -1 }},
		{"end page before start", func(c *RunConfig) { c.Pages = PageRange{Start: 5, End: 2} }},
		{"too many post workers", func(c *RunConfig) { c.Threads.PostWorkers = 100 }},
		{"bad skip scope", func(c *RunConfig) {
			c.SkipWords = []string{"nsfw"}
			c.SkipWordScope = "everywhere"
		}},
	}
	for _, test := range tests {
		cfg := validConfig()
		test.mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected a validation error", test.name)
		}
	}
}

func TestValidateMultipartDefaults(t *testing.T) {
	cfg := validConfig()
	cfg.Multipart = MultipartPolicy{Enabled: true, Parts: 4}
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	if cfg.Multipart.Scope != MultipartBoth {
		t.Errorf("Scope = %q", cfg.Multipart.Scope)
	}
	if cfg.Multipart.MinSizeMB != 100 {
		t.Errorf("MinSizeMB = %d", cfg.Multipart.MinSizeMB)
	}
}

func TestValidateCharFilterAliasDefault(t *testing.T) {
	cfg := validConfig()
	cfg.CharFilters = []*FilterGroup{{Name: "Alice"}}
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	if cfg.CharFilterScope != CharScopeTitle {
		t.Errorf("CharFilterScope = %q", cfg.CharFilterScope)
	}
	if len(cfg.CharFilters[0].Aliases) != 1 || cfg.CharFilters[0].Aliases[0] != "Alice" {
		t.Errorf("Aliases = %v", cfg.CharFilters[0].Aliases)
	}
}

func TestSequentialStyle(t *testing.T) {
	for style, expected := range map[string]bool{
		StyleDateBased:    true,
		StyleTitleGlobal:  true,
		StylePostTitle:    false,
		StyleDateTitle:    false,
		StyleOriginalName: false,
	} {
		cfg := &RunConfig{Style: style}
		if got := cfg.SequentialStyle(); got != expected {
			t.Errorf("SequentialStyle(%s) = %v, expected %v", style, got, expected)
		}
	}
}

func TestPdfExport(t *testing.T) {
	cfg := &RunConfig{FilterMode: FilterTextOnly, TextFormat: TextFormatSinglePdf}
	if !cfg.PdfExport() {
		t.Error("single-pdf should count as a pdf export")
	}
	cfg.TextFormat = TextFormatTxt
	if cfg.PdfExport() {
		t.Error("txt export should not count as a pdf export")
	}
	cfg = &RunConfig{FilterMode: FilterAll, TextFormat: TextFormatPdf}
	if cfg.PdfExport() {
		t.Error("pdf format outside text-only mode should not count")
	}
}

func TestValidateErrorMentionsCode(t *testing.T) {
	cfg := validConfig()
	cfg.SourceUrl = ""
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "config error") {
		t.Errorf("error = %v", err)
	}
}
