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

package metrics

import (
	"context"
	"strconv"
	"time"

	"github.com/ecodeclub/erest"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type MiddlewareBuilder struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewBuilder 注册到 reg，reg 为 nil 时使用 prometheus.DefaultRegisterer。
// 同一个 registry 只能调用一次
func NewBuilder(namespace string, reg prometheus.Registerer) *MiddlewareBuilder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &MiddlewareBuilder{
		requests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "erest_requests_total",
				Help:      "Total number of REST requests",
			},
			[]string{"type", "collection", "status"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "erest_request_duration_seconds",
				Help:      "REST request latency in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"type", "collection"},
		),
	}
}

func (b *MiddlewareBuilder) Build() erest.Middleware {
	return func(next erest.HandleFunc) erest.HandleFunc {
		return func(ctx context.Context, qc *erest.QueryContext) *erest.QueryResult {
			start := time.Now()
			res := next(ctx, qc)
			b.duration.WithLabelValues(qc.Type, qc.Collection).Observe(time.Since(start).Seconds())
			b.requests.WithLabelValues(qc.Type, qc.Collection, status(res)).Inc()
			return res
		}
	}
}

// status 没有拿到响应的时候是 error
func status(res *erest.QueryResult) string {
	if res == nil || res.StatusCode == 0 {
		return "error"
	}
	return strconv.Itoa(res.StatusCode)
}
