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
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Middleware(t *testing.T) {
	testCases := []struct {
		name      string
		mdls      func(trace *[]string) []Middleware
		wantTrace []string
		wantCalls int
		wantID    float64
	}{
		{
			name: "short circuit",
			mdls: func(trace *[]string) []Middleware {
				var mdl Middleware = func(next HandleFunc) HandleFunc {
					return func(ctx context.Context, qc *QueryContext) *QueryResult {
						*trace = append(*trace, "mdl")
						return &QueryResult{StatusCode: http.StatusOK, Body: []byte(`[{"id":42}]`)}
					}
				}
				return []Middleware{mdl}
			},
			wantTrace: []string{"mdl"},
			wantID:    42,
		},
		{
			name: "many middleware in order",
			mdls: func(trace *[]string) []Middleware {
				mdl1 := func(next HandleFunc) HandleFunc {
					return func(ctx context.Context, qc *QueryContext) *QueryResult {
						*trace = append(*trace, "mdl1 before")
						res := next(ctx, qc)
						*trace = append(*trace, "mdl1 after")
						return res
					}
				}
				mdl2 := func(next HandleFunc) HandleFunc {
					return func(ctx context.Context, qc *QueryContext) *QueryResult {
						*trace = append(*trace, "mdl2 "+qc.Type+" "+qc.Collection)
						return next(ctx, qc)
					}
				}
				return []Middleware{mdl1, mdl2}
			},
			wantTrace: []string{"mdl1 before", "mdl2 SELECT photos", "mdl1 after"},
			wantCalls: 1,
			wantID:    1,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			srv, rec := newRecordServer(t, http.StatusOK, `[{"id":1}]`)
			var trace []string
			db := newTestClient(t, srv.URL, WithMiddlewares(tc.mdls(&trace)...))
			res := NewSelector[Row](db, "photos").Find(context.Background())
			require.NoError(t, res.Err())
			require.Len(t, res.Data(), 1)
			assert.Equal(t, tc.wantID, res.Data()[0]["id"])
			assert.Equal(t, tc.wantTrace, trace)
			assert.Equal(t, tc.wantCalls, rec.snapshot().calls)
		})
	}
}

func TestQueryContext_URL(t *testing.T) {
	srv, _ := newRecordServer(t, http.StatusOK, `[]`)
	var url string
	db := newTestClient(t, srv.URL, WithMiddlewares(func(next HandleFunc) HandleFunc {
		return func(ctx context.Context, qc *QueryContext) *QueryResult {
			url = qc.URL()
			return next(ctx, qc)
		}
	}))
	res := NewSelector[Row](db, "photos").Eq("visible", true).Limit(1).Find(context.Background())
	require.NoError(t, res.Err())
	assert.Equal(t, srv.URL+"/rest/v1/photos?visible=eq.true&select=*&limit=1", url)
}
