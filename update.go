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

var _ QueryBuilder = &Updater[any]{}

// Updater builds a PATCH scoped by its filters.
type Updater[T any] struct {
	core
	q              query
	patch          any
	representation bool
}

func NewUpdater[T any](c *Client, collection string) *Updater[T] {
	return &Updater[T]{
		core: c.core,
		q:    query{collection: collection},
	}
}

// Set 指定要更新的字段，可以是 map 也可以是结构体
func (u *Updater[T]) Set(patch any) *Updater[T] {
	res := *u
	res.patch = patch
	return &res
}

func (u *Updater[T]) Eq(column string, val any) *Updater[T] {
	return u.Where(C(column).EQ(val))
}

func (u *Updater[T]) Where(predicates ...Predicate) *Updater[T] {
	res := *u
	res.q = u.q.withWhere(predicates...)
	return &res
}

func (u *Updater[T]) Select() *Updater[T] {
	res := *u
	res.representation = true
	return &res
}

func (u *Updater[T]) Build() (Request, error) {
	err := u.q.validate()
	if len(u.q.where) == 0 {
		err = multierr.Append(err, errs.ErrMissingFilter)
	}
	if u.patch == nil {
		err = multierr.Append(err, errs.ErrNoPatch)
	}
	if err != nil {
		return Request{}, errs.NewValidationError(err)
	}
	body, err := marshal(u.patch)
	if err != nil {
		return Request{}, err
	}
	b := newBuilder()
	defer b.release()
	b.buildPredicates(u.q.where)
	req := u.newRequest(http.MethodPatch, u.q.path(), b.String(), body)
	req.Header.Set(headerPrefer, prefer(u.representation))
	return req, nil
}

func (u *Updater[T]) Exec(ctx context.Context) Result[[]T] {
	req, err := u.Build()
	if err != nil {
		return Result[[]T]{data: []T{}, err: err}
	}
	res := u.execute(ctx, TypeUpdate, u.q.collection, u, req)
	rows, err := decodeWritten[T](res, u.representation)
	return Result[[]T]{data: rows, err: err}
}
