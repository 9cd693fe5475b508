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

package retry

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ecodeclub/erest"
)

// MiddlewareBuilder 重试幂等请求。只有网络错误和 5xx、429 会被重试，
// POST 和 PATCH 永远不会重试
type MiddlewareBuilder struct {
	maxAttempts     uint64
	initialInterval time.Duration
	maxInterval     time.Duration
}

func NewBuilder() *MiddlewareBuilder {
	return &MiddlewareBuilder{
		maxAttempts:     3,
		initialInterval: 100 * time.Millisecond,
		maxInterval:     2 * time.Second,
	}
}

// MaxAttempts 包含第一次请求。小于 1 的值按 1 处理
func (b *MiddlewareBuilder) MaxAttempts(n int) *MiddlewareBuilder {
	if n < 1 {
		n = 1
	}
	b.maxAttempts = uint64(n)
	return b
}

func (b *MiddlewareBuilder) InitialInterval(d time.Duration) *MiddlewareBuilder {
	b.initialInterval = d
	return b
}

func (b *MiddlewareBuilder) MaxInterval(d time.Duration) *MiddlewareBuilder {
	b.maxInterval = d
	return b
}

func (b *MiddlewareBuilder) newBackOff(ctx context.Context) backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = b.initialInterval
	eb.MaxInterval = b.maxInterval
	// 次数由 WithMaxRetries 控制
	eb.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(eb, b.maxAttempts-1), ctx)
}

func (b *MiddlewareBuilder) Build() erest.Middleware {
	return func(next erest.HandleFunc) erest.HandleFunc {
		return func(ctx context.Context, qc *erest.QueryContext) *erest.QueryResult {
			req, err := qc.Request()
			if err != nil || !idempotent(req.Method) {
				return next(ctx, qc)
			}
			var res *erest.QueryResult
			_ = backoff.Retry(func() error {
				res = next(ctx, qc)
				if retryable(res) {
					return res.Err
				}
				return nil
			}, b.newBackOff(ctx))
			return res
		}
	}
}

func idempotent(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodPut, http.MethodDelete, http.MethodOptions:
		return true
	}
	return false
}

func retryable(res *erest.QueryResult) bool {
	if res == nil || res.Err == nil {
		return false
	}
	if errors.Is(res.Err, context.Canceled) || errors.Is(res.Err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(res.Err, erest.ErrTransport) {
		return true
	}
	return res.StatusCode >= http.StatusInternalServerError || res.StatusCode == http.StatusTooManyRequests
}
