package kemono

import (
	"context"
	"sort"
	"strconv"

	"github.com/KJHJason/Kemono-Harvester-CLI/api/kemono/models"
	"github.com/KJHJason/Kemono-Harvester-CLI/configs"
	"github.com/KJHJason/Kemono-Harvester-CLI/request"
	"github.com/KJHJason/Kemono-Harvester-CLI/utils"
)

// FeedArgs drives one walk over a creator feed.
type FeedArgs struct {
	Client    *request.Client
	Source    *Source
	Pages     configs.PageRange
	MangaMode bool
	Style     string

	// Processed post ids are filtered out before emitting, so a
	// restored session never re-processes finished posts.
	Processed map[string]struct{}

	Tokens *utils.Tokens
}

// sortAll reports whether the whole range has to be fetched and sorted
// oldest-first before anything is emitted. date_title keeps reader
// order through its date prefix, so it can stream.
func (args *FeedArgs) sortAll() bool {
	return args.MangaMode && args.Style != configs.StyleDateTitle
}

func (args *FeedArgs) filterProcessed(page []*models.PostSummary) []*models.PostSummary {
	if len(args.Processed) == 0 {
		return page
	}
	filtered := page[:0:0]
	for _, post := range page {
		if _, done := args.Processed[post.Id]; !done {
			filtered = append(filtered, post)
		}
	}
	return filtered
}

func numericId(id string) int64 {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func sortOldestFirst(posts []*models.PostSummary) {
	sort.SliceStable(posts, func(i, j int) bool {
		ti, tj := posts[i].PublishedOrAdded(), posts[j].PublishedOrAdded()
		if ti != tj {
			return ti < tj
		}
		return numericId(posts[i].Id) < numericId(posts[j].Id)
	})
}

// WalkPosts streams post batches to emit as pages arrive. In sort-all
// mode the whole page range is accumulated first, sorted oldest-first
// and re-emitted in batches of the page size; progress is called with
// the running fetch count so the caller can show "N posts fetched".
//
// A single-post source emits exactly that post (unless it was already
// processed) and stops.
func WalkPosts(ctx context.Context, args *FeedArgs, emit func(posts []*models.PostSummary) error, progress func(fetched int)) error {
	if args.Source.IsSinglePost() {
		if _, done := args.Processed[args.Source.PostId]; done {
			return nil
		}
		post, err := GetFullPost(ctx, args.Client, args.Source, args.Source.PostId)
		if err != nil {
			return err
		}
		return emit([]*models.PostSummary{&post.PostSummary})
	}

	var accumulated []*models.PostSummary
	offset := (args.Pages.Start - 1) * utils.PER_PAGE
	page := args.Pages.Start
	for {
		if err := args.Tokens.Checkpoint(); err != nil {
			return err
		}
		if args.Pages.End != 0 && page > args.Pages.End {
			break
		}

		batch, err := getPostsPage(ctx, args.Client, args.Source, offset)
		if err != nil {
			return err
		}
		if len(batch) == 0 {
			break
		}

		batch = args.filterProcessed(batch)
		if args.sortAll() {
			accumulated = append(accumulated, batch...)
			if progress != nil {
				progress(len(accumulated))
			}
		} else if len(batch) > 0 {
			if err := emit(batch); err != nil {
				return err
			}
		}

		offset += utils.PER_PAGE
		page++
	}

	if !args.sortAll() {
		return nil
	}

	sortOldestFirst(accumulated)
	for start := 0; start < len(accumulated); start += utils.PER_PAGE {
		if err := args.Tokens.Checkpoint(); err != nil {
			return err
		}
		end := start + utils.PER_PAGE
		if end > len(accumulated) {
			end = len(accumulated)
		}
		if err := emit(accumulated[start:end]); err != nil {
			return err
		}
	}
	return nil
}
