package request

import (
	"context"
	"fmt"
	"net/http"

	"github.com/KJHJason/Kemono-Harvester-CLI/utils"
)

type RequestArgs struct {
	// Main Request Options
	Method  string
	Url     string
	Timeout int

	// Additional Request Options
	Headers            map[string]string
	Params             map[string]string
	Cookies            []*http.Cookie
	UserAgent          string
	DisableCompression bool

	// HTTP/2 and HTTP/3 Options
	Http2 bool
	Http3 bool

	// CheckStatus will check the status code of the response.
	// A 2xx/3xx response is returned as-is; 429 and 5xx are retried and
	// other 4xx responses fail permanently. When false, the response is
	// returned regardless of the status code.
	CheckStatus bool

	// DisableRetries hands retry policy to the caller. Used for file
	// downloads where the per-file retry budget lives in the pipeline.
	DisableRetries bool

	// IsApi routes the request through the shared API rate limiter.
	IsApi bool

	// Context is used to cancel the request if needed.
	Context context.Context
}

// ValidateArgs validates the arguments of the request
//
// Will panic if the arguments are invalid as this is a developer error
func (args *RequestArgs) ValidateArgs() {
	if args.Method == "" {
		panic(
			fmt.Errorf(
				"error %d: method cannot be empty",
				utils.DEV_ERROR,
			),
		)
	}

	if args.Url == "" {
		panic(
			fmt.Errorf(
				"error %d: url cannot be empty",
				utils.DEV_ERROR,
			),
		)
	}

	if args.Headers == nil {
		args.Headers = make(map[string]string)
	}

	if args.Params == nil {
		args.Params = make(map[string]string)
	}

	if args.UserAgent == "" {
		args.UserAgent = utils.USER_AGENT
	}

	if args.Context == nil {
		args.Context = context.Background()
	}

	if args.Http2 && args.Http3 {
		panic(
			fmt.Errorf(
				"error %d: http2 and http3 cannot be enabled at the same time",
				utils.DEV_ERROR,
			),
		)
	}
	if !args.Http2 && !args.Http3 {
		args.Http2 = true
	}

	if args.Timeout < 0 {
		panic(
			fmt.Errorf(
				"error %d: timeout cannot be negative",
				utils.DEV_ERROR,
			),
		)
	} else if args.Timeout == 0 {
		args.Timeout = utils.PAGE_TIMEOUT
	}
}
