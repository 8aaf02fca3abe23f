// Package links extracts and classifies external links found in post
// content.
package links

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ExternalLink is one classified link from a post body.
type ExternalLink struct {
	PostTitle string
	Text      string
	Url       string
	Platform  string
	// Key is the recovered Mega decryption key, empty otherwise.
	Key string
}

// Mega keys are 22 (folder) or 43 (file) base64url chars.
var megaKeyRegex = regexp.MustCompile(`[A-Za-z0-9_-]{43}|[A-Za-z0-9_-]{22}`)

var platformDomains = map[string]string{
	"mega.nz":      "mega",
	"mega.io":      "mega",
	"drive.google": "google drive",
	"docs.google":  "google drive",
	"dropbox":      "dropbox",
	"patreon":      "patreon",
	"pixiv":        "pixiv",
	"fanbox":       "pixiv",
	"gofile":       "gofile",
	"twitter":      "twitter/x",
	"x.com":        "twitter/x",
	"instagram":    "instagram",
	"discord.gg":   "discord invite",
	"discord.com":  "discord invite",
	"discordapp":   "discord invite",
	"kemono":       "kemono",
	"coomer":       "coomer",
}

// ClassifyPlatform maps a URL to a platform label, falling back to the
// second-level domain for unknown hosts.
func ClassifyPlatform(rawUrl string) string {
	parsed, err := url.Parse(rawUrl)
	if err != nil || parsed.Host == "" {
		return "unknown"
	}
	host := strings.ToLower(parsed.Hostname())
	for needle, platform := range platformDomains {
		if strings.Contains(host, needle) {
			return platform
		}
	}

	parts := strings.Split(host, ".")
	if len(parts) >= 2 {
		return parts[len(parts)-2]
	}
	return host
}

// extractMegaKey looks for the decryption key in the URL fragment
// first, then in the text surrounding the link.
func extractMegaKey(rawUrl, surroundingText string) string {
	if idx := strings.IndexAny(rawUrl, "#!"); idx != -1 {
		fragment := strings.TrimLeft(rawUrl[idx:], "#!")
		// new-style links embed the key after the handle
		if keyIdx := strings.LastIndexAny(fragment, "#!"); keyIdx != -1 {
			fragment = fragment[keyIdx+1:]
		}
		if megaKeyRegex.MatchString(fragment) && len(fragment) >= 22 {
			if key := megaKeyRegex.FindString(fragment); key == fragment {
				return key
			}
		}
	}
	return megaKeyRegex.FindString(surroundingText)
}

// ExtractFromHtml pulls every anchor out of the HTML content and
// classifies it. The post title is attached to each link for display.
func ExtractFromHtml(postTitle, htmlContent string) ([]*ExternalLink, error) {
	if htmlContent == "" {
		return nil, nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return nil, err
	}

	plainText := doc.Text()
	var found []*ExternalLink
	seen := make(map[string]struct{})
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "mailto:") {
			return
		}
		if _, dup := seen[href]; dup {
			return
		}
		seen[href] = struct{}{}

		link := &ExternalLink{
			PostTitle: postTitle,
			Text:      strings.TrimSpace(sel.Text()),
			Url:       href,
			Platform:  ClassifyPlatform(href),
		}
		if link.Platform == "mega" {
			link.Key = extractMegaKey(href, plainText)
		}
		found = append(found, link)
	})
	return found, nil
}
