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
	"encoding/json"
	"net/http"

	"github.com/ecodeclub/erest/internal/errs"
)

var _ QueryBuilder = &Procedure[any]{}

// Procedure calls POST /rest/v1/rpc/<name>.
type Procedure[T any] struct {
	core
	name   string
	params any
}

func NewProcedure[T any](c *Client, name string) *Procedure[T] {
	return &Procedure[T]{
		core: c.core,
		name: name,
	}
}

// Params 指定参数，默认是 {}
func (p *Procedure[T]) Params(params any) *Procedure[T] {
	res := *p
	res.params = params
	return &res
}

func (p *Procedure[T]) Build() (Request, error) {
	if !validIdentifier(p.name) {
		return Request{}, errs.NewValidationError(errs.NewInvalidCollectionError(p.name))
	}
	var params any = map[string]any{}
	if p.params != nil {
		params = p.params
	}
	body, err := marshal(params)
	if err != nil {
		return Request{}, err
	}
	return p.newRequest(http.MethodPost, restPrefix+"rpc/"+p.name, "", body), nil
}

// Exec 执行调用。204 No Content 视为成功，Data 是零值。
func (p *Procedure[T]) Exec(ctx context.Context) Result[T] {
	var zero T
	req, err := p.Build()
	if err != nil {
		return Result[T]{err: err}
	}
	res := p.execute(ctx, TypeRPC, p.name, p, req)
	if res.Err != nil {
		return Result[T]{err: res.Err}
	}
	if res.StatusCode == http.StatusNoContent {
		return Result[T]{}
	}
	if len(bytes.TrimSpace(res.Body)) == 0 {
		return Result[T]{err: errs.NewDecodeError(errs.ErrEmptyBody)}
	}
	var data T
	if err = json.Unmarshal(res.Body, &data); err != nil {
		return Result[T]{data: zero, err: errs.NewDecodeError(err)}
	}
	return Result[T]{data: data}
}
