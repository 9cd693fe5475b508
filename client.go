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
	"net/http"
	"net/url"
	"strings"

	"github.com/ecodeclub/erest/internal/errs"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// ClientOption configure Client
type ClientOption func(c *Client)

// Client 持有 endpoint 信息：base url 和 api key。创建之后不可修改，
// 可以被多个 goroutine 同时使用。
type Client struct {
	core
}

// Open 创建一个 Client
func Open(baseURL, apiKey string, opts ...ClientOption) (*Client, error) {
	var err error
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	u, perr := url.Parse(base)
	if perr != nil {
		err = multierr.Append(err, errs.NewInvalidBaseURLError(baseURL, perr))
	} else if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		err = multierr.Append(err, errs.NewInvalidBaseURLError(baseURL, nil))
	}
	if apiKey == "" {
		err = multierr.Append(err, errs.ErrMissingAPIKey)
	}
	if err != nil {
		return nil, errs.NewValidationError(err)
	}
	c := &Client{
		core: core{
			baseURL: base,
			apiKey:  apiKey,
			header:  make(http.Header),
			client:  &http.Client{},
			logger:  zap.NewNop(),
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// WithHTTPClient 指定底层的 http.Client，超时等设置在这里完成。nil 会被忽略
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.client = hc
		}
	}
}

func WithMiddlewares(ms ...Middleware) ClientOption {
	return func(c *Client) {
		c.ms = ms
	}
}

func WithLogger(l *zap.Logger) ClientOption {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithSchema selects a non-default schema for reads and writes.
func WithSchema(schema string) ClientOption {
	return func(c *Client) {
		c.header.Set("Accept-Profile", schema)
		c.header.Set("Content-Profile", schema)
	}
}

// WithHeader adds a static header to every request.
func WithHeader(key, value string) ClientOption {
	return func(c *Client) {
		c.header.Set(key, value)
	}
}

// BaseURL returns the base url without the trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// From 开始对 collection 的无类型操作，行数据是 Row
func (c *Client) From(collection string) *Table {
	return &Table{core: c.core, name: collection}
}

// RPC calls a function endpoint and decodes its result into any.
func (c *Client) RPC(fn string, params any) *Procedure[any] {
	return NewProcedure[any](c, fn).Params(params)
}

func (c *Client) Storage() *Storage {
	return &Storage{core: c.core}
}

// Close releases idle connections. The client must not be used afterwards.
func (c *Client) Close() error {
	c.client.CloseIdleConnections()
	return nil
}
