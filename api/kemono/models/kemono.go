package models

import "encoding/json"

// FileRef points at one file on the archive host. Path is
// server-relative; the full URL is <host>/data/<path>.
type FileRef struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// TagList tolerates the API returning tags as an array, a single
// string, or null depending on the service.
type TagList []string

func (t *TagList) UnmarshalJSON(data []byte) error {
	var asSlice []string
	if err := json.Unmarshal(data, &asSlice); err == nil {
		*t = asSlice
		return nil
	}

	var asString string
	if err := json.Unmarshal(data, &asString); err == nil {
		if asString != "" {
			*t = []string{asString}
		}
		return nil
	}

	// unknown shape, drop the tags rather than failing the post
	*t = nil
	return nil
}

// PostSummary is one entry of the paginated creator feed. The API
// returns newest posts first.
type PostSummary struct {
	Id          string    `json:"id"`
	User        string    `json:"user"`
	Service     string    `json:"service"`
	Title       string    `json:"title"`
	SharedFile  bool      `json:"shared_file"`
	Added       string    `json:"added"`
	Published   string    `json:"published"`
	Edited      string    `json:"edited"`
	File        FileRef   `json:"file"`
	Attachments []FileRef `json:"attachments"`
	Tags        TagList   `json:"tags"`
}

// Files flattens the cover file and the attachments in API order.
func (p *PostSummary) Files() []FileRef {
	var files []FileRef
	if p.File.Path != "" {
		files = append(files, p.File)
	}
	files = append(files, p.Attachments...)
	return files
}

// PublishedOrAdded is the sort/display timestamp with the documented
// fallback chain.
func (p *PostSummary) PublishedOrAdded() string {
	if p.Published != "" {
		return p.Published
	}
	if p.Added != "" {
		return p.Added
	}
	return "0000-00-00T00:00:00"
}

// Post is a full post record including the lazily fetched HTML content.
type Post struct {
	PostSummary
	Content string `json:"content"`
	Embed   struct {
		Description string `json:"description"`
		Subject     string `json:"subject"`
		Url         string `json:"url"`
	} `json:"embed"`
}

type Comment struct {
	Commenter string `json:"commenter_name"`
	Published string `json:"published"`
	Content   string `json:"content"`
}

type Creator struct {
	Id      string `json:"id"`
	Name    string `json:"name"`
	Service string `json:"service"`
	Indexed string `json:"indexed"`
	Updated string `json:"updated"`
}
