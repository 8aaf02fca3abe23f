// Package images handles content-embedded image discovery and the
// optional WebP recompression pass.
package images

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/kolesa-team/go-webp/encoder"
	"github.com/kolesa-team/go-webp/webp"

	"github.com/KJHJason/Kemono-Harvester-CLI/utils"
)

const (
	// files at or below this size are left alone
	recompressThreshold = 1536 * 1024
	webpQuality         = 85
)

var bareImageUrlRegex = regexp.MustCompile(
	`https?://[^\s"'<>]+\.(?:png|jpe?g|gif|webp|bmp)(?:\?[^\s"'<>]*)?`,
)

// ScanContent finds image URLs embedded in the post HTML, both as
// <img src> and as bare links in the text.
func ScanContent(htmlContent string) []string {
	if htmlContent == "" {
		return nil
	}

	var urls []string
	seen := make(map[string]struct{})
	add := func(rawUrl string) {
		rawUrl = strings.TrimSpace(rawUrl)
		if rawUrl == "" {
			return
		}
		if _, dup := seen[rawUrl]; dup {
			return
		}
		seen[rawUrl] = struct{}{}
		urls = append(urls, rawUrl)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err == nil {
		doc.Find("img[src]").Each(func(_ int, sel *goquery.Selection) {
			src, _ := sel.Attr("src")
			add(src)
		})
	}
	for _, match := range bareImageUrlRegex.FindAllString(htmlContent, -1) {
		add(match)
	}
	return urls
}

// ShouldRecompress reports whether the file is an image big enough to
// be worth converting to WebP.
func ShouldRecompress(path string, size int64) bool {
	return size > recompressThreshold && utils.IsImageFile(path) &&
		!strings.HasSuffix(strings.ToLower(path), ".webp")
}

// RecompressToWebp re-encodes the image at srcPath as lossy WebP at
// destPath. The source is left in place for the caller to remove.
func RecompressToWebp(srcPath, destPath string) error {
	src, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf(
			"error %d: failed to open %s for recompression, more info => %w",
			utils.OS_ERROR,
			srcPath,
			err,
		)
	}
	defer src.Close()

	img, _, err := image.Decode(src)
	if err != nil {
		return fmt.Errorf(
			"error %d: failed to decode image %s, more info => %w",
			utils.UNEXPECTED_ERROR,
			srcPath,
			err,
		)
	}

	options, err := encoder.NewLossyEncoderOptions(encoder.PresetDefault, webpQuality)
	if err != nil {
		return err
	}

	dest, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf(
			"error %d: failed to create %s, more info => %w",
			utils.OS_ERROR,
			destPath,
			err,
		)
	}
	defer dest.Close()

	if err := webp.Encode(dest, img, options); err != nil {
		dest.Close()
		os.Remove(destPath)
		return err
	}
	return nil
}
