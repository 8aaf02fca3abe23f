package kemono

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/KJHJason/Kemono-Harvester-CLI/api/kemono/models"
	"github.com/KJHJason/Kemono-Harvester-CLI/request"
	"github.com/KJHJason/Kemono-Harvester-CLI/utils"
)

// The feed listing only needs these fields; asking for them keeps the
// page responses small.
const essentialFields = "id,user,service,title,shared_file,added,published,edited,file,attachments,tags"

// GetFullPost fetches one post including its HTML content. Some hosts
// return the record as a bare object, others as a one-element array or
// wrapped in a {"post": ...} envelope.
func GetFullPost(ctx context.Context, client *request.Client, source *Source, postId string) (*models.Post, error) {
	var raw json.RawMessage
	if err := client.GetJson(ctx, source.PostUrl(postId), &raw); err != nil {
		return nil, err
	}

	var post models.Post
	if err := json.Unmarshal(raw, &post); err == nil && post.Id != "" {
		return &post, nil
	}

	var asArray []*models.Post
	if err := json.Unmarshal(raw, &asArray); err == nil && len(asArray) > 0 {
		return asArray[0], nil
	}

	var envelope struct {
		Post *models.Post `json:"post"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Post != nil {
		return envelope.Post, nil
	}

	return nil, &request.NetworkError{
		Permanent: true,
		Url:       source.PostUrl(postId),
		Err: fmt.Errorf(
			"error %d: unrecognised post response shape",
			utils.RESPONSE_ERROR,
		),
	}
}

// GetComments fetches the comments of one post.
func GetComments(ctx context.Context, client *request.Client, source *Source, postId string) ([]*models.Comment, error) {
	var comments []*models.Comment
	if err := client.GetJson(ctx, source.CommentsUrl(postId), &comments); err != nil {
		return nil, err
	}
	return comments, nil
}

// GetAllPostIds walks the whole feed and returns every post id. Used
// by the update check to diff against a creator profile.
func GetAllPostIds(ctx context.Context, client *request.Client, source *Source) ([]string, error) {
	var ids []string
	offset := 0
	for {
		page, err := getPostsPage(ctx, client, source, offset)
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			return ids, nil
		}
		for _, post := range page {
			ids = append(ids, post.Id)
		}
		offset += utils.PER_PAGE
	}
}

func getPostsPage(ctx context.Context, client *request.Client, source *Source, offset int) ([]*models.PostSummary, error) {
	url := fmt.Sprintf(
		"%s?o=%d&fields=%s",
		source.PostsUrl(),
		offset,
		essentialFields,
	)
	var page []*models.PostSummary
	if err := client.GetJson(ctx, url, &page); err != nil {
		return nil, err
	}
	return page, nil
}
