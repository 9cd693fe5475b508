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

import "github.com/ecodeclub/erest/internal/errs"

// 哨兵错误，或者说预定义错误，谨慎添加
var (
	// ErrTransport 请求没有拿到任何响应，例如连接失败、超时
	ErrTransport = errs.ErrTransport
	// ErrHTTPStatus 响应码不在 200-299
	ErrHTTPStatus = errs.ErrHTTPStatus
	// ErrDecode 响应体不是合法的 JSON，或者为空
	ErrDecode = errs.ErrDecode
	// ErrValidation 调用方传入的参数不合法，请求没有发出
	ErrValidation = errs.ErrValidation

	ErrEmptyBody     = errs.ErrEmptyBody
	ErrMissingFilter = errs.ErrMissingFilter
)

type (
	TransportError  = errs.TransportError
	StatusError     = errs.StatusError
	DecodeError     = errs.DecodeError
	ValidationError = errs.ValidationError
)
