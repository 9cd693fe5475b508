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
	"go.uber.org/multierr"
)

var _ QueryBuilder = &Deleter[any]{}

type Deleter[T any] struct {
	core
	q              query
	representation bool
}

func NewDeleter[T any](c *Client, collection string) *Deleter[T] {
	return &Deleter[T]{
		core: c.core,
		q:    query{collection: collection},
	}
}

func (d *Deleter[T]) Eq(column string, val any) *Deleter[T] {
	return d.Where(C(column).EQ(val))
}

func (d *Deleter[T]) Where(predicates ...Predicate) *Deleter[T] {
	res := *d
	res.q = d.q.withWhere(predicates...)
	return &res
}

// Select returns the removed rows in Result.Data.
func (d *Deleter[T]) Select() *Deleter[T] {
	res := *d
	res.representation = true
	return &res
}

func (d *Deleter[T]) Build() (Request, error) {
	err := d.q.validate()
	if len(d.q.where) == 0 {
		err = multierr.Append(err, errs.ErrMissingFilter)
	}
	if err != nil {
		return Request{}, errs.NewValidationError(err)
	}
	b := newBuilder()
	defer b.release()
	b.buildPredicates(d.q.where)
	req := d.newRequest(http.MethodDelete, d.q.path(), b.String(), nil)
	if d.representation {
		req.Header.Set(headerPrefer, preferRepresentation)
	}
	return req, nil
}

// Exec 执行删除。没有调用 Select 的时候只关心 Err。
func (d *Deleter[T]) Exec(ctx context.Context) Result[[]T] {
	req, err := d.Build()
	if err != nil {
		return Result[[]T]{data: []T{}, err: err}
	}
	res := d.execute(ctx, TypeDelete, d.q.collection, d, req)
	rows, err := decodeWritten[T](res, d.representation)
	return Result[[]T]{data: rows, err: err}
}
