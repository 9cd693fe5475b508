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

package querylog

import (
	"context"
	"time"

	"github.com/ecodeclub/erest"
	"go.uber.org/zap"
)

// Entry 是一次请求的日志内容
type Entry struct {
	Type       string
	Method     string
	URL        string
	StatusCode int
	Latency    time.Duration
	Err        error
}

type MiddlewareBuilder struct {
	logFunc func(e Entry)
}

// NewBuilder 默认输出到 zap 的全局 logger
func NewBuilder() *MiddlewareBuilder {
	return NewZapBuilder(zap.L())
}

func NewZapBuilder(l *zap.Logger) *MiddlewareBuilder {
	return &MiddlewareBuilder{
		logFunc: func(e Entry) {
			fields := []zap.Field{
				zap.String("type", e.Type),
				zap.String("method", e.Method),
				zap.String("url", e.URL),
				zap.Int("status", e.StatusCode),
				zap.Duration("latency", e.Latency),
			}
			if e.Err != nil {
				l.Warn("erest query", append(fields, zap.Error(e.Err))...)
				return
			}
			l.Info("erest query", fields...)
		},
	}
}

func (b *MiddlewareBuilder) LogFunc(logFunc func(e Entry)) *MiddlewareBuilder {
	b.logFunc = logFunc
	return b
}

func (b *MiddlewareBuilder) Build() erest.Middleware {
	return func(next erest.HandleFunc) erest.HandleFunc {
		return func(ctx context.Context, qc *erest.QueryContext) *erest.QueryResult {
			start := time.Now()
			res := next(ctx, qc)
			e := Entry{
				Type:    qc.Type,
				URL:     qc.URL(),
				Latency: time.Since(start),
			}
			if req, err := qc.Request(); err == nil {
				e.Method = req.Method
			}
			if res != nil {
				e.StatusCode = res.StatusCode
				e.Err = res.Err
			}
			b.logFunc(e)
			return res
		}
	}
}
