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

package singleflight

import (
	"context"
	"net/http"
	"strings"

	"github.com/ecodeclub/erest"
	"golang.org/x/sync/singleflight"
)

// MiddlewareBuilder 合并同时发出的相同 GET 请求，只有一个请求会真的发出去。
// 它不是缓存，请求结束之后下一次调用会重新发送
type MiddlewareBuilder struct {
	g *singleflight.Group
}

func NewBuilder() *MiddlewareBuilder {
	return &MiddlewareBuilder{g: &singleflight.Group{}}
}

func (b *MiddlewareBuilder) Build() erest.Middleware {
	return func(next erest.HandleFunc) erest.HandleFunc {
		return func(ctx context.Context, qc *erest.QueryContext) *erest.QueryResult {
			req, err := qc.Request()
			if err != nil || req.Method != http.MethodGet {
				return next(ctx, qc)
			}
			ch := b.g.DoChan(dedupKey(req, qc.URL()), func() (interface{}, error) {
				// 共享的请求不能被某一个调用者取消
				return next(context.WithoutCancel(ctx), qc), nil
			})
			select {
			case res := <-ch:
				return res.Val.(*erest.QueryResult)
			case <-ctx.Done():
				return &erest.QueryResult{Err: &erest.TransportError{Method: req.Method, URL: qc.URL(), Err: ctx.Err()}}
			}
		}
	}
}

// dedupKey 凭证也是 key 的一部分
func dedupKey(req erest.Request, url string) string {
	return strings.Join([]string{
		req.Method,
		url,
		req.Header.Get("Accept-Profile"),
		req.Header.Get("apikey"),
		req.Header.Get("Authorization"),
	}, "\n")
}
