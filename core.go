// Copyright 2021 ecodeclub
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package erest

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/ecodeclub/erest/internal/errs"
	"go.uber.org/zap"
)

const (
	headerAPIKey        = "apikey"
	headerAuthorization = "Authorization"
	headerContentType   = "Content-Type"
	headerPrefer        = "Prefer"

	mimeJSON = "application/json"

	preferRepresentation = "return=representation"
	preferMinimal        = "return=minimal"
)

type core struct {
	baseURL string
	apiKey  string
	// header 是每个请求都会带上的额外头部，例如 Accept-Profile
	header http.Header
	client *http.Client
	ms     []Middleware
	logger *zap.Logger
}

// newRequest attaches the two static credentials to every request.
func (c core) newRequest(method, path, query string, body []byte) Request {
	header := c.header.Clone()
	if header == nil {
		header = make(http.Header, 4)
	}
	header.Set(headerAPIKey, c.apiKey)
	header.Set(headerAuthorization, "Bearer "+c.apiKey)
	header.Set(headerContentType, mimeJSON)
	return Request{
		Method: method,
		Path:   path,
		Query:  query,
		Header: header,
		Body:   body,
	}
}

func (c core) handler() HandleFunc {
	var root HandleFunc = c.send
	for i := len(c.ms) - 1; i >= 0; i-- {
		root = c.ms[i](root)
	}
	return root
}

func (c core) execute(ctx context.Context, typ, collection string, b QueryBuilder, req Request) *QueryResult {
	qc := &QueryContext{
		Type:       typ,
		Collection: collection,
		BaseURL:    c.baseURL,
		Builder:    b,
		req:        &req,
	}
	return c.handler()(ctx, qc)
}

// send is the terminal handler: exactly one HTTP round trip.
func (c core) send(ctx context.Context, qc *QueryContext) *QueryResult {
	req, err := qc.Request()
	if err != nil {
		return &QueryResult{Err: err}
	}
	url := req.URL(c.baseURL)
	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}
	hr, err := http.NewRequestWithContext(ctx, req.Method, url, body)
	if err != nil {
		return &QueryResult{Err: &errs.TransportError{Method: req.Method, URL: url, Err: err}}
	}
	hr.Header = req.Header.Clone()

	resp, err := c.client.Do(hr)
	if err != nil {
		c.logger.Debug("erest: request failed",
			zap.String("method", req.Method), zap.String("url", url), zap.Error(err))
		return &QueryResult{Err: &errs.TransportError{Method: req.Method, URL: url, Err: err}}
	}
	defer func() { _ = resp.Body.Close() }()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &QueryResult{Err: &errs.TransportError{Method: req.Method, URL: url, Err: err}}
	}
	res := &QueryResult{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       data,
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		res.Err = errs.NewStatusError(resp.StatusCode, resp.Status, data)
	}
	return res
}

// decodeRows turns a response into rows. The returned slice is never nil.
func decodeRows[T any](res *QueryResult, allowEmpty bool) ([]T, error) {
	if res.Err != nil {
		return []T{}, res.Err
	}
	if len(bytes.TrimSpace(res.Body)) == 0 {
		if allowEmpty {
			return []T{}, nil
		}
		return []T{}, errs.NewDecodeError(errs.ErrEmptyBody)
	}
	var rows []T
	if err := json.Unmarshal(res.Body, &rows); err != nil {
		return []T{}, errs.NewDecodeError(err)
	}
	if rows == nil {
		rows = []T{}
	}
	return rows, nil
}

// decodeWritten ignores the body unless the rows were asked for.
func decodeWritten[T any](res *QueryResult, representation bool) ([]T, error) {
	if !representation {
		return []T{}, res.Err
	}
	return decodeRows[T](res, false)
}

func marshal(val any) ([]byte, error) {
	data, err := json.Marshal(val)
	if err != nil {
		return nil, errs.NewValidationError(err)
	}
	return data, nil
}
