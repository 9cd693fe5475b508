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
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ecodeclub/erest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestMiddlewareBuilder_Build(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	testCases := []struct {
		name      string
		mdls      []erest.Middleware
		wantEntry Entry
		wantErr   error
	}{
		{
			name: "success",
			wantEntry: Entry{
				Type:       erest.TypeSelect,
				Method:     http.MethodGet,
				URL:        srv.URL + "/rest/v1/photos?select=*&limit=1",
				StatusCode: http.StatusOK,
			},
		},
		{
			name: "interrupt err",
			mdls: func() []erest.Middleware {
				var interrupt erest.Middleware = func(next erest.HandleFunc) erest.HandleFunc {
					return func(ctx context.Context, qc *erest.QueryContext) *erest.QueryResult {
						return &erest.QueryResult{
							Err: errors.New("interrupt execution"),
						}
					}
				}
				return []erest.Middleware{interrupt}
			}(),
			wantEntry: Entry{
				Type:   erest.TypeSelect,
				Method: http.MethodGet,
				URL:    srv.URL + "/rest/v1/photos?select=*&limit=1",
				Err:    errors.New("interrupt execution"),
			},
			wantErr: errors.New("interrupt execution"),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var got Entry
			b := NewBuilder().LogFunc(func(e Entry) {
				got = e
			})
			mdls := append([]erest.Middleware{b.Build()}, tc.mdls...)
			db, err := erest.Open(srv.URL, "anon-key", erest.WithMiddlewares(mdls...))
			require.NoError(t, err)
			defer func() {
				_ = db.Close()
			}()
			_, err = db.From("photos").Select().Limit(1).Find(context.Background()).Unwrap()
			assert.Equal(t, tc.wantErr, err)
			got.Latency = 0
			assert.Equal(t, tc.wantEntry, got)
		})
	}
}

func TestNewZapBuilder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	core, logs := observer.New(zap.InfoLevel)
	db, err := erest.Open(srv.URL, "anon-key",
		erest.WithMiddlewares(NewZapBuilder(zap.New(core)).Build()))
	require.NoError(t, err)
	defer func() {
		_ = db.Close()
	}()

	res := db.From("photos").Delete().Eq("id", 1).Exec(context.Background())
	assert.ErrorIs(t, res.Err(), erest.ErrHTTPStatus)
	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	ctx := entries[0].ContextMap()
	assert.Equal(t, http.MethodDelete, ctx["method"])
	assert.Equal(t, int64(http.StatusBadGateway), ctx["status"])
	assert.Equal(t, erest.TypeDelete, ctx["type"])
}
