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

package main

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ecodeclub/erest"
	"github.com/ecodeclub/erest/resttest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const photosSchema = `CREATE TABLE photos (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	titre TEXT NOT NULL,
	categorie TEXT,
	visible BOOLEAN NOT NULL DEFAULT 1,
	created_at TEXT
)`

const categoriesSchema = `CREATE TABLE categories (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	nom TEXT NOT NULL
)`

// run 执行一次命令，返回 stdout
func run(t *testing.T, srv *resttest.Server, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(append([]string{"-q", "--url", srv.URL(), "--key", srv.APIKey()}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func seedPhotos(t *testing.T, srv *resttest.Server) {
	t.Helper()
	_, err := run(t, srv, "insert", "photos", `[
		{"titre":"a","categorie":"portrait","created_at":"2024-01-01T00:00:00Z"},
		{"titre":"b","categorie":"paysage","created_at":"2024-02-01T00:00:00Z"},
		{"titre":"c","categorie":"portrait","created_at":"2024-03-01T00:00:00Z","visible":false}
	]`, "--minimal")
	require.NoError(t, err)
}

func decodeRows(t *testing.T, out string) []map[string]any {
	t.Helper()
	var rows []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	return rows
}

func titles(rows []map[string]any) []string {
	res := make([]string, 0, len(rows))
	for _, r := range rows {
		res = append(res, r["titre"].(string))
	}
	return res
}

func TestSelect(t *testing.T) {
	testCases := []struct {
		name    string
		args    []string
		want    []string
		wantErr string
	}{
		{
			name: "order desc by default",
			args: []string{"--order", "created_at"},
			want: []string{"c", "b", "a"},
		},
		{
			name: "eq and order asc",
			args: []string{"--eq", "categorie=portrait", "--order", "created_at.asc"},
			want: []string{"a", "c"},
		},
		{
			name: "where",
			args: []string{"--where", "created_at=gt.2024-01-15T00:00:00Z", "--order", "titre.asc"},
			want: []string{"b", "c"},
		},
		{
			name: "in and visible",
			args: []string{"--where", "titre=in.(a,c)", "--eq", "visible=true"},
			want: []string{"a"},
		},
		{
			name: "limit offset",
			args: []string{"--order", "titre.asc", "--limit", "1", "--offset", "1"},
			want: []string{"b"},
		},
		{
			name:    "bad eq",
			args:    []string{"--eq", "categorie"},
			wantErr: "invalid --eq",
		},
		{
			name:    "bad operator",
			args:    []string{"--where", "titre=between.a"},
			wantErr: "unsupported operator",
		},
		{
			name:    "bad order",
			args:    []string{"--order", "titre.up"},
			wantErr: "invalid --order",
		},
	}
	srv := resttest.NewSQLite(t, photosSchema)
	seedPhotos(t, srv)
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := run(t, srv, append([]string{"select", "photos"}, tc.args...)...)
			if tc.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, titles(decodeRows(t, out)))
		})
	}
}

func TestSelect_Single(t *testing.T) {
	srv := resttest.NewSQLite(t, photosSchema)
	seedPhotos(t, srv)

	out, err := run(t, srv, "select", "photos", "--columns", "id,titre", "--eq", "titre=b", "--single")
	require.NoError(t, err)
	var row map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &row))
	assert.Equal(t, map[string]any{"id": float64(2), "titre": "b"}, row)

	out, err = run(t, srv, "select", "photos", "--eq", "titre=z", "--single")
	require.NoError(t, err)
	assert.Equal(t, "null", strings.TrimSpace(out))
}

func TestWrite(t *testing.T) {
	srv := resttest.NewSQLite(t, photosSchema)

	out, err := run(t, srv, "insert", "photos", `{"titre":"a","categorie":"portrait"}`)
	require.NoError(t, err)
	rows := decodeRows(t, out)
	require.Len(t, rows, 1)
	assert.Equal(t, "a", rows[0]["titre"])

	out, err = run(t, srv, "update", "photos", `{"categorie":"paysage"}`, "--eq", "titre=a")
	require.NoError(t, err)
	assert.Equal(t, "paysage", decodeRows(t, out)[0]["categorie"])

	_, err = run(t, srv, "delete", "photos")
	assert.ErrorIs(t, err, erest.ErrMissingFilter)

	out, err = run(t, srv, "delete", "photos", "--eq", "titre=a")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, titles(decodeRows(t, out)))

	_, err = run(t, srv, "update", "photos", `[{"titre":"x"},{"titre":"y"}]`, "--eq", "id=1")
	assert.EqualError(t, err, "update expects a single JSON object")

	_, err = run(t, srv, "insert", "photos", `{"titre":`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid JSON argument")

	_, err = run(t, srv, "insert", "albums", `{"titre":"x"}`)
	var se *erest.StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, 404, se.Code)
}

func TestRPC(t *testing.T) {
	srv := resttest.NewSQLite(t)
	srv.Register("add", func(ctx context.Context, db *sql.DB, params map[string]any) (any, error) {
		a, _ := params["a"].(int64)
		b, _ := params["b"].(int64)
		return map[string]any{"sum": a + b}, nil
	})

	out, err := run(t, srv, "rpc", "add", `{"a":1,"b":2}`)
	require.NoError(t, err)
	assert.JSONEq(t, `{"sum":3}`, out)

	_, err = run(t, srv, "rpc", "missing")
	assert.ErrorIs(t, err, erest.ErrHTTPStatus)
}

func TestStorage(t *testing.T) {
	srv := resttest.NewSQLite(t)
	png := append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 32)...)
	dir := t.TempDir()
	file := filepath.Join(dir, "a.png")
	require.NoError(t, os.WriteFile(file, png, 0o600))
	text := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(text, []byte("hello"), 0o600))

	out, err := run(t, srv, "upload", "photos-bucket", "2024/a.png", file)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"path": "2024/a.png",
		"public_url": "`+srv.URL()+`/storage/v1/object/public/photos-bucket/2024/a.png"
	}`, out)
	obj, ok := srv.Object("photos-bucket", "2024/a.png")
	require.True(t, ok)
	assert.Equal(t, png, obj.Data)

	_, err = run(t, srv, "upload", "photos-bucket", "a.txt", text)
	assert.ErrorIs(t, err, erest.ErrValidation)

	out, err = run(t, srv, "url", "photos-bucket", "2024/a.png")
	require.NoError(t, err)
	assert.Equal(t, srv.URL()+"/storage/v1/object/public/photos-bucket/2024/a.png\n", out)

	_, err = run(t, srv, "rm", "photos-bucket", "2024/a.png")
	require.NoError(t, err)
	_, ok = srv.Object("photos-bucket", "2024/a.png")
	assert.False(t, ok)
}

func TestPing(t *testing.T) {
	srv := resttest.NewSQLite(t, categoriesSchema)
	out, err := run(t, srv, "ping")
	require.NoError(t, err)
	assert.Equal(t, "ok\n", out)

	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"-q", "--url", srv.URL(), "--key", "wrong", "ping"})
	err = cmd.Execute()
	var se *erest.StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, 401, se.Code)
}

func TestMissingURL(t *testing.T) {
	t.Setenv("EREST_URL", "")
	t.Setenv("EREST_ANON_KEY", "")
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"-q", "select", "photos"})
	err := cmd.Execute()
	assert.ErrorIs(t, err, erest.ErrValidation)
}

func TestOpenBackend(t *testing.T) {
	dir := t.TempDir()
	schema := filepath.Join(dir, "schema.sql")
	require.NoError(t, os.WriteFile(schema, []byte(categoriesSchema+";\nINSERT INTO categories (nom) VALUES ('portrait');"), 0o600))

	h, db, err := openBackend(serveOptions{
		driver:  "sqlite3",
		dsn:     "file:" + filepath.Join(dir, "erest.db"),
		apiKey:  "local-key",
		schemas: []string{schema},
	}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)

	cmd := newRootCmd()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetArgs([]string{"-q", "--url", ts.URL, "--key", "local-key", "select", "categories", "--columns", "nom"})
	require.NoError(t, cmd.Execute())
	assert.JSONEq(t, `[{"nom":"portrait"}]`, out.String())

	_, _, err = openBackend(serveOptions{driver: "sqlite3", dsn: ":memory:", schemas: []string{filepath.Join(dir, "missing.sql")}}, zap.NewNop())
	assert.Error(t, err)

	_, _, err = openBackend(serveOptions{driver: "postgres", dsn: "x"}, zap.NewNop())
	assert.Error(t, err)
}
