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

	"github.com/ecodeclub/erest/internal/errs"
)

var _ QueryBuilder = &Selector[any]{}

// Selector represents a read query. Every method returns a new Selector,
// the receiver is left untouched, so a Selector can be shared as the
// prefix of several queries.
type Selector[T any] struct {
	core
	q query
}

// NewSelector 创建一个 Selector
func NewSelector[T any](c *Client, collection string) *Selector[T] {
	return &Selector[T]{
		core: c.core,
		q:    query{collection: collection},
	}
}

// Select 指定查询的列，默认是 *
func (s *Selector[T]) Select(columns ...string) *Selector[T] {
	res := *s
	res.q = s.q.withColumns(columns)
	return &res
}

// Eq appends column=eq.value
func (s *Selector[T]) Eq(column string, val any) *Selector[T] {
	return s.Where(C(column).EQ(val))
}

// Where accepts predicates
func (s *Selector[T]) Where(predicates ...Predicate) *Selector[T] {
	res := *s
	res.q = s.q.withWhere(predicates...)
	return &res
}

// Order 指定排序。不传 opts 的时候是降序。
func (s *Selector[T]) Order(column string, opts ...OrderOptions) *Selector[T] {
	res := *s
	res.q = s.q.withOrder(column, opts)
	return &res
}

// Limit limits the size of result set
func (s *Selector[T]) Limit(limit int) *Selector[T] {
	res := *s
	res.q = s.q.withLimit(limit)
	return &res
}

func (s *Selector[T]) Offset(offset int) *Selector[T] {
	res := *s
	res.q = s.q.withOffset(offset)
	return &res
}

// Build returns the GET request without sending it
func (s *Selector[T]) Build() (Request, error) {
	if err := s.q.validate(); err != nil {
		return Request{}, errs.NewValidationError(err)
	}
	b := newBuilder()
	defer b.release()
	b.buildPredicates(s.q.where)
	b.buildRead(s.q)
	return s.newRequest(http.MethodGet, s.q.path(), b.String(), nil), nil
}

// Find 执行查询，返回所有行
func (s *Selector[T]) Find(ctx context.Context) Result[[]T] {
	req, err := s.Build()
	if err != nil {
		return Result[[]T]{data: []T{}, err: err}
	}
	res := s.execute(ctx, TypeSelect, s.q.collection, s, req)
	rows, err := decodeRows[T](res, false)
	return Result[[]T]{data: rows, err: err}
}

// Get 执行查询，期望最多一行：没有数据的时候返回 nil 且没有错误，
// 有多行的时候取第一行。
func (s *Selector[T]) Get(ctx context.Context) Result[*T] {
	rows, err := s.Find(ctx).Unwrap()
	if err != nil || len(rows) == 0 {
		return Result[*T]{err: err}
	}
	return Result[*T]{data: &rows[0]}
}
