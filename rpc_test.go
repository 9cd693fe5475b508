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
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type loginAttempts struct {
	Allowed bool `json:"allowed"`
	Left    int  `json:"left"`
}

func TestProcedure_Build(t *testing.T) {
	db := memoryClient()
	testCases := []struct {
		name     string
		builder  QueryBuilder
		wantURL  string
		wantBody string
		wantErr  error
	}{
		{
			name:     "no params",
			builder:  NewProcedure[int](db, "get_admin_stats"),
			wantURL:  "https://api.example/rest/v1/rpc/get_admin_stats",
			wantBody: `{}`,
		},
		{
			name:     "params",
			builder:  db.RPC("check_login_attempts", map[string]any{"p_email": "a@b.c"}),
			wantURL:  "https://api.example/rest/v1/rpc/check_login_attempts",
			wantBody: `{"p_email":"a@b.c"}`,
		},
		{
			name:    "invalid name",
			builder: db.RPC("../admins", nil),
			wantErr: ErrValidation,
		},
	}
	for _, tc := range testCases {
		c := tc
		t.Run(c.name, func(t *testing.T) {
			req, err := c.builder.Build()
			if c.wantErr != nil {
				assert.ErrorIs(t, err, c.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, http.MethodPost, req.Method)
			assert.Equal(t, c.wantURL, req.URL(db.BaseURL()))
			assert.JSONEq(t, c.wantBody, string(req.Body))
		})
	}
}

func TestProcedure_Exec(t *testing.T) {
	testCases := []struct {
		name     string
		status   int
		body     string
		wantData *loginAttempts
		wantErr  error
	}{
		{
			name:     "object",
			status:   http.StatusOK,
			body:     `{"allowed":true,"left":3}`,
			wantData: &loginAttempts{Allowed: true, Left: 3},
		},
		{
			name:   "no content",
			status: http.StatusNoContent,
		},
		{
			name:    "empty body",
			status:  http.StatusOK,
			wantErr: ErrEmptyBody,
		},
		{
			name:    "not json",
			status:  http.StatusOK,
			body:    `allowed`,
			wantErr: ErrDecode,
		},
		{
			name:    "missing function",
			status:  http.StatusNotFound,
			body:    `{"message":"function not found"}`,
			wantErr: ErrHTTPStatus,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			srv, rec := newRecordServer(t, tc.status, tc.body)
			db := newTestClient(t, srv.URL)
			res := NewProcedure[*loginAttempts](db, "check_login_attempts").
				Params(map[string]string{"p_email": "a@b.c"}).Exec(context.Background())
			if tc.wantErr != nil {
				assert.ErrorIs(t, res.Err(), tc.wantErr)
			} else {
				assert.NoError(t, res.Err())
			}
			assert.Equal(t, tc.wantData, res.Data())
			got := rec.snapshot()
			assert.Equal(t, "/rest/v1/rpc/check_login_attempts", got.path)
			assert.JSONEq(t, `{"p_email":"a@b.c"}`, string(got.body))
		})
	}
}

func ExampleClient_RPC() {
	db, _ := Open("https://api.example", "anon-key")
	req, _ := db.RPC("reset_login_attempts", map[string]any{"p_email": "a@b.c"}).Build()
	fmt.Printf("%s %s %s", req.Method, req.Path, req.Body)
	// Output:
	// POST /rest/v1/rpc/reset_login_attempts {"p_email":"a@b.c"}
}
