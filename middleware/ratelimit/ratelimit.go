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

package ratelimit

import (
	"context"
	"errors"
	"fmt"

	"github.com/ecodeclub/erest"
	"golang.org/x/time/rate"
)

var ErrRateLimited = errors.New("erest: 触发限流")

// MiddlewareBuilder 在客户端限流，所有经过同一个中间件的请求共享一个令牌桶
type MiddlewareBuilder struct {
	limiter *rate.Limiter
	// wait 为 false 时拿不到令牌直接返回 ErrRateLimited
	wait bool
}

func NewBuilder(rps float64, burst int) *MiddlewareBuilder {
	return &MiddlewareBuilder{
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		wait:    true,
	}
}

// FailFast 拿不到令牌的时候不等待
func (b *MiddlewareBuilder) FailFast() *MiddlewareBuilder {
	b.wait = false
	return b
}

func (b *MiddlewareBuilder) Build() erest.Middleware {
	return func(next erest.HandleFunc) erest.HandleFunc {
		return func(ctx context.Context, qc *erest.QueryContext) *erest.QueryResult {
			if !b.wait {
				if !b.limiter.Allow() {
					return &erest.QueryResult{Err: ErrRateLimited}
				}
				return next(ctx, qc)
			}
			if err := b.limiter.Wait(ctx); err != nil {
				return &erest.QueryResult{Err: fmt.Errorf("%w: %w", ErrRateLimited, err)}
			}
			return next(ctx, qc)
		}
	}
}
