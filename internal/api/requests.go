package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/pkg/errors"
)

type outboundRequest struct {
	method      string
	path        string
	queryParams map[string]string
	headers     map[string]string
	// reqBodyObj is sent as-is when it is an io.Reader or []byte, otherwise it
	// is marshaled to JSON.
	reqBodyObj  interface{}
	successCode int
	respObj     interface{}
}

func (c *Client) executeRequest(ctx context.Context, req outboundRequest) error {
	resp, err := c.submitRequest(ctx, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if req.respObj == nil {
		return nil
	}
	respBodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "error reading response body")
	}
	if len(bytes.TrimSpace(respBodyBytes)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBodyBytes, req.respObj); err != nil {
		return errors.Wrap(err, "error unmarshaling response body")
	}
	return nil
}

func (c *Client) submitRequest(
	ctx context.Context,
	req outboundRequest,
) (*http.Response, error) {
	var reqBodyReader io.Reader
	contentType := ""
	if req.reqBodyObj != nil {
		switch rb := req.reqBodyObj.(type) {
		case io.Reader:
			reqBodyReader = rb
		case []byte:
			reqBodyReader = bytes.NewBuffer(rb)
		default:
			reqBodyBytes, err := json.Marshal(req.reqBodyObj)
			if err != nil {
				return nil, errors.Wrap(err, "error marshaling request body")
			}
			reqBodyReader = bytes.NewBuffer(reqBodyBytes)
			contentType = "application/json"
		}
	}

	r, err := http.NewRequestWithContext(
		ctx,
		req.method,
		fmt.Sprintf("%s/%s", c.address, strings.TrimLeft(req.path, "/")),
		reqBodyReader,
	)
	if err != nil {
		return nil, errors.Wrapf(
			err,
			"error creating request %s %s",
			req.method,
			req.path,
		)
	}
	if len(req.queryParams) > 0 {
		q := r.URL.Query()
		for k, v := range req.queryParams {
			q.Set(k, v)
		}
		r.URL.RawQuery = q.Encode()
	}
	r.Header.Set("Accept", "application/json")
	if contentType != "" {
		r.Header.Set("Content-Type", contentType)
	}
	for k, v := range req.headers {
		r.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(r)
	if err != nil {
		return nil, errors.Wrapf(err, "error invoking %s %s", req.method, req.path)
	}

	if (req.successCode == 0 && (resp.StatusCode < 200 || resp.StatusCode > 299)) ||
		(req.successCode != 0 && resp.StatusCode != req.successCode) {
		defer resp.Body.Close()
		bodyBytes, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, errors.Wrap(err, "error reading error response body")
		}
		return nil, newError(resp.StatusCode, bodyBytes)
	}
	return resp, nil
}
