package kemono

import (
	"fmt"
	"regexp"

	"github.com/KJHJason/Kemono-Harvester-CLI/utils"
)

var sourceUrlRegex = regexp.MustCompile(
	`^https?://(?P<site>kemono|coomer)\.(?P<tld>su|cr|st|party)` +
		`/(?P<service>[\w-]+)/user/(?P<userId>[\w.-]+)(?:/post/(?P<postId>[\w.-]+))?/?$`,
)

var (
	siteIdx    = sourceUrlRegex.SubexpIndex("site")
	tldIdx     = sourceUrlRegex.SubexpIndex("tld")
	serviceIdx = sourceUrlRegex.SubexpIndex("service")
	userIdIdx  = sourceUrlRegex.SubexpIndex("userId")
	postIdIdx  = sourceUrlRegex.SubexpIndex("postId")
)

// Source identifies one creator feed (or a single post of it) on one
// of the supported archive hosts.
type Source struct {
	Site    string // "kemono" or "coomer"
	Tld     string
	Service string
	UserId  string
	PostId  string // empty for a whole-creator run
}

// ParseSourceUrl splits a creator or post URL into its parts.
func ParseSourceUrl(rawUrl string) (*Source, error) {
	match := sourceUrlRegex.FindStringSubmatch(rawUrl)
	if match == nil {
		return nil, fmt.Errorf(
			"error %d: unsupported URL %q, expected a kemono/coomer creator or post URL",
			utils.INPUT_ERROR,
			rawUrl,
		)
	}
	return &Source{
		Site:    match[siteIdx],
		Tld:     match[tldIdx],
		Service: match[serviceIdx],
		UserId:  match[userIdIdx],
		PostId:  match[postIdIdx],
	}, nil
}

func (s *Source) IsSinglePost() bool {
	return s.PostId != ""
}

// Host returns the bare host name, e.g. "kemono.su".
func (s *Source) Host() string {
	return fmt.Sprintf("%s.%s", s.Site, s.Tld)
}

func (s *Source) apiBase() string {
	return fmt.Sprintf("https://%s/api/v1", s.Host())
}

// PostsUrl is the paginated post listing endpoint.
func (s *Source) PostsUrl() string {
	return fmt.Sprintf("%s/%s/user/%s/posts", s.apiBase(), s.Service, s.UserId)
}

// PostUrl is the single full-post endpoint.
func (s *Source) PostUrl(postId string) string {
	return fmt.Sprintf("%s/%s/user/%s/post/%s", s.apiBase(), s.Service, s.UserId, postId)
}

// CommentsUrl lists the comments of one post.
func (s *Source) CommentsUrl(postId string) string {
	return s.PostUrl(postId) + "/comments"
}

// DataUrl builds the file URL for a server-relative path.
func (s *Source) DataUrl(path string) string {
	if len(path) > 0 && path[0] != '/' {
		path = "/" + path
	}
	return fmt.Sprintf("https://%s/data%s", s.Host(), path)
}

// ProfileKey is the (service, user) identity used for creator profiles.
func (s *Source) ProfileKey() string {
	return fmt.Sprintf("%s_%s", s.Service, s.UserId)
}
