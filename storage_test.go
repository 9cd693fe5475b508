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
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n0000IHDR")

type uploadRecord struct {
	mu          sync.Mutex
	path        string
	contentType string
	fileName    string
	data        []byte
}

func newUploadServer(t *testing.T, status int, body string) (*httptest.Server, *uploadRecord) {
	rec := &uploadRecord{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.mu.Lock()
		defer rec.mu.Unlock()
		rec.path = r.URL.EscapedPath()
		mt, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		if err == nil && mt == "multipart/form-data" {
			mr := multipart.NewReader(r.Body, params["boundary"])
			if part, perr := mr.NextPart(); perr == nil {
				rec.fileName = part.FormName() + ":" + part.FileName()
				rec.contentType = part.Header.Get("Content-Type")
				rec.data, _ = io.ReadAll(part)
			}
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, rec
}

func TestBucket_Upload(t *testing.T) {
	testCases := []struct {
		name     string
		opts     []BucketOption
		path     string
		data     []byte
		status   int
		body     string
		wantPath string
		wantKey  string
		wantURL  string
		wantErr  error
	}{
		{
			name:     "png",
			path:     "2024/photo 1.png",
			data:     pngHeader,
			status:   http.StatusOK,
			body:     `{"Key":"photos-bucket/2024/photo 1.png"}`,
			wantPath: "2024/photo 1.png",
			wantKey:  "photos-bucket/2024/photo 1.png",
			wantURL:  "/storage/v1/object/photos-bucket/2024/photo%201.png",
		},
		{
			name:     "allowed type",
			opts:     []BucketOption{WithAllowedMIMETypes("image/png", "image/jpeg")},
			path:     "a.png",
			data:     pngHeader,
			status:   http.StatusOK,
			wantPath: "a.png",
			wantURL:  "/storage/v1/object/photos-bucket/a.png",
		},
		{
			name:    "rejected type",
			opts:    []BucketOption{WithAllowedMIMETypes("image/png")},
			path:    "a.txt",
			data:    []byte("hello world"),
			wantErr: ErrValidation,
		},
		{
			name:    "too large",
			opts:    []BucketOption{WithMaxFileSize(4)},
			path:    "a.png",
			data:    pngHeader,
			wantErr: ErrValidation,
		},
		{
			name:    "escaping path",
			path:    "../secret",
			data:    pngHeader,
			wantErr: ErrValidation,
		},
		{
			name:    "empty path",
			path:    " ",
			data:    pngHeader,
			wantErr: ErrValidation,
		},
		{
			name:    "server refuses",
			path:    "a.png",
			data:    pngHeader,
			status:  http.StatusRequestEntityTooLarge,
			wantErr: ErrHTTPStatus,
			wantURL: "/storage/v1/object/photos-bucket/a.png",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			srv, rec := newUploadServer(t, tc.status, tc.body)
			db := newTestClient(t, srv.URL)
			bucket := db.Storage().From("photos-bucket", tc.opts...)
			res := bucket.Upload(context.Background(), tc.path, bytes.NewReader(tc.data))
			rec.mu.Lock()
			defer rec.mu.Unlock()
			assert.Equal(t, tc.wantURL, rec.path)
			if tc.wantErr != nil {
				assert.ErrorIs(t, res.Err(), tc.wantErr)
				assert.Nil(t, res.Data())
				return
			}
			require.NoError(t, res.Err())
			assert.Equal(t, tc.wantPath, res.Data().Path)
			assert.Equal(t, tc.wantKey, res.Data().Key)
			assert.Equal(t, tc.data, rec.data)
			assert.Equal(t, "image/png", rec.contentType)
			assert.True(t, strings.HasPrefix(rec.fileName, "file:"))
		})
	}
}

func TestBucket_Remove(t *testing.T) {
	t.Run("paths as json array", func(t *testing.T) {
		srv, rec := newRecordServer(t, http.StatusOK, `[{"name":"a.png"}]`)
		db := newTestClient(t, srv.URL)
		res := db.Storage().From("photos-bucket").Remove(context.Background(), "a.png", "/b/c.jpg")
		require.NoError(t, res.Err())
		assert.Equal(t, []FileObject{{Name: "a.png"}}, res.Data())
		got := rec.snapshot()
		assert.Equal(t, http.MethodDelete, got.method)
		assert.Equal(t, "/storage/v1/object/photos-bucket", got.path)
		assert.JSONEq(t, `["a.png","b/c.jpg"]`, string(got.body))
	})

	t.Run("empty body", func(t *testing.T) {
		srv, _ := newRecordServer(t, http.StatusOK, "")
		db := newTestClient(t, srv.URL)
		res := db.Storage().From("photos-bucket").Remove(context.Background(), "a.png")
		require.NoError(t, res.Err())
		assert.Equal(t, []FileObject{}, res.Data())
	})

	t.Run("no paths", func(t *testing.T) {
		srv, rec := newRecordServer(t, http.StatusOK, "")
		db := newTestClient(t, srv.URL)
		res := db.Storage().From("photos-bucket").Remove(context.Background())
		assert.ErrorIs(t, res.Err(), ErrValidation)
		assert.Equal(t, 0, rec.snapshot().calls)
	})
}

func TestBucket_PublicURL(t *testing.T) {
	db := memoryClient()
	b := db.Storage().From("photos-bucket")
	assert.Equal(t, "https://api.example/storage/v1/object/public/photos-bucket/2024/a.png", b.PublicURL("2024/a.png"))
	assert.Equal(t, "https://api.example/storage/v1/object/public/photos-bucket/a.png", b.PublicURL("/a.png"))
	// 和 Upload 一样按段转义
	assert.Equal(t, "https://api.example/storage/v1/object/public/photos-bucket/2024/a%20b.png", b.PublicURL("2024/a b.png"))
	assert.Equal(t, "https://api.example/storage/v1/object/public/photos-bucket/a%3Fb%23c.png", b.PublicURL("a?b#c.png"))
}

func ExampleBucket_PublicURL() {
	db, _ := Open("https://xyz.supabase.co", "anon-key")
	fmt.Println(db.Storage().From("photos-bucket").PublicURL("portraits/léa.jpg"))
	// Output:
	// https://xyz.supabase.co/storage/v1/object/public/photos-bucket/portraits/l%C3%A9a.jpg
}
