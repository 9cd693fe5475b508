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
)

// 操作类型，写入 QueryContext.Type
const (
	TypeSelect = "SELECT"
	TypeInsert = "INSERT"
	TypeUpdate = "UPDATE"
	TypeDelete = "DELETE"
	TypeRPC    = "RPC"
	TypeUpload = "UPLOAD"
	TypeRemove = "REMOVE"
)

type QueryContext struct {
	// Type 声明查询类型，例如 SELECT, UPDATE, UPLOAD
	Type string
	// Collection 是表名、函数名或者 bucket 名
	Collection string
	BaseURL    string

	Builder QueryBuilder
	req     *Request
}

// Request returns the built request, building it at most once.
func (qc *QueryContext) Request() (Request, error) {
	if qc.req != nil {
		return *qc.req, nil
	}
	req, err := qc.Builder.Build()
	if err != nil {
		return Request{}, err
	}
	qc.req = &req
	return req, nil
}

// URL is the absolute URL of the request, or "" if it cannot be built.
func (qc *QueryContext) URL() string {
	req, err := qc.Request()
	if err != nil {
		return ""
	}
	return req.URL(qc.BaseURL)
}

type QueryResult struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	Err        error
}

type Middleware func(next HandleFunc) HandleFunc

type HandleFunc func(ctx context.Context, qc *QueryContext) *QueryResult
