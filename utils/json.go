package utils

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

func ReadResBody(res *http.Response) ([]byte, error) {
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf(
			"error %d: failed to read response body from %s, more info => %v",
			RESPONSE_ERROR,
			res.Request.URL.String(),
			err,
		)
	}
	return body, nil
}

// Read the response body and unmarshal it into the given format
func LoadJsonFromResponse(res *http.Response, format any) error {
	body, err := ReadResBody(res)
	if err != nil {
		return err
	}

	if err = json.Unmarshal(body, &format); err != nil {
		err = fmt.Errorf(
			"error %d: failed to unmarshal json response from %s due to %v",
			JSON_ERROR,
			res.Request.URL.String(),
			err,
		)
		return err
	}
	return nil
}
