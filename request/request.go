package request

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/KJHJason/Kemono-Harvester-CLI/utils"
	"github.com/quic-go/quic-go/http3"
	"golang.org/x/time/rate"
)

// Shared limiter for API page/post fetches so the archive hosts are not
// hammered by concurrent workers.
var apiLimiter = rate.NewLimiter(rate.Every(350*time.Millisecond), 2)

// Get a new HTTP/2 or HTTP/3 client based on the request arguments
func GetHttpClient(reqArgs *RequestArgs) *http.Client {
	if reqArgs.Http3 {
		return &http.Client{
			Transport: &http3.RoundTripper{
				DisableCompression: reqArgs.DisableCompression,
			},
		}
	}
	return &http.Client{
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout: utils.CONNECT_TIMEOUT * time.Second,
			}).DialContext,
			DisableCompression: reqArgs.DisableCompression,
		},
	}
}

// add headers to the request
func AddHeaders(headers map[string]string, defaultUserAgent string, req *http.Request) {
	if userAgent, ok := headers["User-Agent"]; !ok || userAgent == "" {
		headers["User-Agent"] = defaultUserAgent
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}
}

// add cookies to the request if their domain matches the request host
func AddCookies(reqUrl string, cookies []*http.Cookie, req *http.Request) {
	for _, cookie := range cookies {
		if strings.Contains(reqUrl, strings.TrimPrefix(cookie.Domain, ".")) {
			req.AddCookie(cookie)
		}
	}
}

// add params to the request
func AddParams(params map[string]string, req *http.Request) {
	if len(params) == 0 {
		return
	}

	query := req.URL.Query()
	for key, value := range params {
		query.Add(key, value)
	}
	req.URL.RawQuery = query.Encode()
}

func classifyResponse(reqArgs *RequestArgs, res *http.Response) error {
	if res.StatusCode < 400 {
		return nil
	}

	err := &NetworkError{
		StatusCode: res.StatusCode,
		Url:        reqArgs.Url,
		Permanent:  !retryableStatus(res.StatusCode),
	}
	res.Body.Close()
	return err
}

// send the request to the target URL and retries if the request was not successful
func sendRequest(req *http.Request, reqArgs *RequestArgs) (*http.Response, error) {
	AddCookies(reqArgs.Url, reqArgs.Cookies, req)
	AddHeaders(reqArgs.Headers, reqArgs.UserAgent, req)
	AddParams(reqArgs.Params, req)

	client := GetHttpClient(reqArgs)
	client.Timeout = time.Duration(reqArgs.Timeout) * time.Second

	retries := utils.RETRY_COUNTER
	if reqArgs.DisableRetries {
		retries = 1
	}

	var err error
	var res *http.Response
	for i := 1; i <= retries; i++ {
		if reqArgs.IsApi {
			if limitErr := apiLimiter.Wait(reqArgs.Context); limitErr != nil {
				return nil, context.Canceled
			}
		}

		res, err = client.Do(req)
		if err == nil {
			if !reqArgs.CheckStatus {
				return res, nil
			}
			err = classifyResponse(reqArgs, res)
			if err == nil {
				return res, nil
			}
		} else if errors.Is(err, context.Canceled) {
			return nil, context.Canceled
		} else {
			err = &NetworkError{
				Url:       reqArgs.Url,
				Err:       err,
				Permanent: !IsRetryable(err),
			}
		}

		if !IsRetryable(err) {
			return nil, err
		}
		if i < retries {
			backoff := time.Duration(utils.RETRY_BASE_DELAY<<uint(i-1)) * time.Second
			select {
			case <-reqArgs.Context.Done():
				return nil, context.Canceled
			case <-time.After(backoff):
			}
		}
	}
	return nil, err
}

// CallRequest is used to make a request to a URL and return the response
//
// Page requests are retried up to the max retry count defined in the
// utils package with exponential backoff; file downloads set
// DisableRetries and manage their own retry budget.
func CallRequest(reqArgs *RequestArgs) (*http.Response, error) {
	reqArgs.ValidateArgs()
	req, err := http.NewRequestWithContext(
		reqArgs.Context,
		reqArgs.Method,
		reqArgs.Url,
		nil,
	)
	if err != nil {
		return nil, &NetworkError{
			Permanent: true,
			Url:       reqArgs.Url,
			Err:       err,
		}
	}

	return sendRequest(req, reqArgs)
}
