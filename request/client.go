package request

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/KJHJason/Kemono-Harvester-CLI/utils"
)

// Client bundles the per-run request state: resolved cookies, the user
// agent and the transport choice. It is shared by the feed generator
// and every download worker.
type Client struct {
	Cookies   []*http.Cookie
	UserAgent string
	UseHttp3  bool
}

// GetJson fetches the URL and unmarshals the JSON response body into out.
func (c *Client) GetJson(ctx context.Context, url string, out any) error {
	res, err := CallRequest(
		&RequestArgs{
			Url:         url,
			Method:      "GET",
			Timeout:     utils.PAGE_TIMEOUT,
			Cookies:     c.Cookies,
			UserAgent:   c.UserAgent,
			Http2:       !c.UseHttp3,
			Http3:       c.UseHttp3,
			CheckStatus: true,
			IsApi:       true,
			Context:     ctx,
			Headers: map[string]string{
				"Accept": "application/json",
			},
		},
	)
	if err != nil {
		return err
	}

	contentType := res.Header.Get("Content-Type")
	if contentType != "" && !strings.Contains(contentType, "json") {
		res.Body.Close()
		return &NetworkError{
			Permanent:  true,
			StatusCode: res.StatusCode,
			Url:        url,
			Err: fmt.Errorf(
				"error %d: expected a JSON response but got %q",
				utils.RESPONSE_ERROR,
				contentType,
			),
		}
	}
	return utils.LoadJsonFromResponse(res, out)
}

// GetStream opens a file download response. The caller owns the body
// and the retry policy.
func (c *Client) GetStream(ctx context.Context, url string, headers map[string]string) (*http.Response, error) {
	return CallRequest(
		&RequestArgs{
			Url:            url,
			Method:         "GET",
			Timeout:        utils.DOWNLOAD_TIMEOUT,
			Headers:        headers,
			Cookies:        c.Cookies,
			UserAgent:      c.UserAgent,
			Http2:          !c.UseHttp3,
			Http3:          c.UseHttp3,
			CheckStatus:    true,
			DisableRetries: true,
			Context:        ctx,
		},
	)
}

// GetRange opens a byte-range download response for one chunk of a
// multi-part download.
func (c *Client) GetRange(ctx context.Context, url string, start, end int64) (*http.Response, error) {
	return c.GetStream(
		ctx,
		url,
		map[string]string{
			"Range": fmt.Sprintf("bytes=%d-%d", start, end),
		},
	)
}

// ProbeFile sends a HEAD request to learn the declared size and whether
// the server accepts byte ranges.
func (c *Client) ProbeFile(ctx context.Context, url string) (int64, bool, error) {
	res, err := CallRequest(
		&RequestArgs{
			Url:         url,
			Method:      "HEAD",
			Timeout:     utils.CONNECT_TIMEOUT,
			Cookies:     c.Cookies,
			UserAgent:   c.UserAgent,
			Http2:       !c.UseHttp3,
			Http3:       c.UseHttp3,
			CheckStatus: true,
			Context:     ctx,
		},
	)
	if err != nil {
		return 0, false, err
	}
	defer res.Body.Close()

	acceptRanges := strings.EqualFold(res.Header.Get("Accept-Ranges"), "bytes")
	return res.ContentLength, acceptRanges, nil
}
