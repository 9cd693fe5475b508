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

var _ QueryBuilder = &Inserter[any]{}

// Inserter builds a POST. Records are always sent as a JSON array.
type Inserter[T any] struct {
	core
	collection     string
	values         []T
	representation bool
}

func NewInserter[T any](c *Client, collection string) *Inserter[T] {
	return &Inserter[T]{
		core:       c.core,
		collection: collection,
	}
}

func (i *Inserter[T]) Values(values ...T) *Inserter[T] {
	res := *i
	res.values = append(i.values[:len(i.values):len(i.values)], values...)
	return &res
}

// Select asks the server to send the inserted rows back.
func (i *Inserter[T]) Select() *Inserter[T] {
	res := *i
	res.representation = true
	return &res
}

func (i *Inserter[T]) Build() (Request, error) {
	var err error
	if !validIdentifier(i.collection) {
		err = multierr.Append(err, errs.NewInvalidCollectionError(i.collection))
	}
	if len(i.values) == 0 {
		err = multierr.Append(err, errs.ErrNoValues)
	}
	if err != nil {
		return Request{}, errs.NewValidationError(err)
	}
	body, err := marshal(i.values)
	if err != nil {
		return Request{}, err
	}
	req := i.newRequest(http.MethodPost, restPrefix+i.collection, "", body)
	req.Header.Set(headerPrefer, prefer(i.representation))
	return req, nil
}

// Exec 执行插入。只有调用过 Select 才会有数据返回。
func (i *Inserter[T]) Exec(ctx context.Context) Result[[]T] {
	req, err := i.Build()
	if err != nil {
		return Result[[]T]{data: []T{}, err: err}
	}
	res := i.execute(ctx, TypeInsert, i.collection, i, req)
	rows, err := decodeWritten[T](res, i.representation)
	return Result[[]T]{data: rows, err: err}
}

func prefer(representation bool) string {
	if representation {
		return preferRepresentation
	}
	return preferMinimal
}
