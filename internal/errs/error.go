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

package errs

import (
	"errors"
	"fmt"
	"net/http"
)

// 错误种类，配合 errors.Is 使用
var (
	ErrTransport  = errors.New("erest: 网络错误")
	ErrHTTPStatus = errors.New("erest: 非 2xx 响应")
	ErrDecode     = errors.New("erest: 响应解析失败")
	ErrValidation = errors.New("erest: 参数错误")

	// ErrEmptyBody 读操作收到了空的响应体
	ErrEmptyBody = errors.New("erest: empty response body")
	// ErrMissingFilter UPDATE 和 DELETE 必须带上过滤条件
	ErrMissingFilter = errors.New("erest: update and delete require at least one filter")
	ErrNoValues      = errors.New("erest: insert requires at least one record")
	ErrNoPatch       = errors.New("erest: update requires a patch")
	ErrEmptyPath     = errors.New("erest: object path must not be empty")
	ErrMissingAPIKey = errors.New("erest: api key must not be empty")
)

// TransportError means the request never produced an HTTP response:
// dial failure, timeout, cancelled context.
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("erest: %s %s: %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}

// StatusError is returned for any status outside 200-299.
// The message never depends on the body.
type StatusError struct {
	Code int
	Text string
	Body []byte
}

func NewStatusError(code int, status string, body []byte) *StatusError {
	return &StatusError{Code: code, Text: StatusText(code, status), Body: body}
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.Code, e.Text)
}

func (e *StatusError) Is(target error) bool {
	return target == ErrHTTPStatus
}

// StatusText extracts the reason phrase from a net/http status line
// such as "404 Not Found", falling back to the canonical text.
func StatusText(code int, status string) string {
	prefix := fmt.Sprintf("%d ", code)
	if len(status) > len(prefix) && status[:len(prefix)] == prefix {
		return status[len(prefix):]
	}
	return http.StatusText(code)
}

// DecodeError wraps JSON failures and ErrEmptyBody.
type DecodeError struct {
	Err error
}

func NewDecodeError(err error) *DecodeError {
	return &DecodeError{Err: err}
}

func (e *DecodeError) Error() string {
	if errors.Is(e.Err, ErrEmptyBody) {
		return e.Err.Error()
	}
	return fmt.Sprintf("erest: decode response: %v", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

func (e *DecodeError) Is(target error) bool {
	return target == ErrDecode
}

// ValidationError is raised before any I/O. Err usually combines
// several problems through multierr.
type ValidationError struct {
	Err error
}

func NewValidationError(err error) *ValidationError {
	return &ValidationError{Err: err}
}

func (e *ValidationError) Error() string {
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func NewInvalidColumnError(column string) error {
	return fmt.Errorf("erest: invalid column %q", column)
}

func NewInvalidCollectionError(name string) error {
	return fmt.Errorf("erest: invalid collection %q", name)
}

func NewInvalidLimitError(limit int) error {
	return fmt.Errorf("erest: limit must not be negative, got %d", limit)
}

func NewInvalidOffsetError(offset int) error {
	return fmt.Errorf("erest: offset must not be negative, got %d", offset)
}

func NewInvalidBaseURLError(raw string, err error) error {
	if err != nil {
		return fmt.Errorf("erest: invalid base url %q: %w", raw, err)
	}
	return fmt.Errorf("erest: invalid base url %q", raw)
}

func NewInvalidObjectPathError(p string) error {
	return fmt.Errorf("erest: invalid object path %q", p)
}

func NewFileTooLargeError(size, limit int64) error {
	return fmt.Errorf("erest: file size %d exceeds limit %d", size, limit)
}

func NewUnsupportedMIMETypeError(mime string) error {
	return fmt.Errorf("erest: unsupported mime type %s", mime)
}

func NewUnsupportedDriverError(driver string) error {
	return fmt.Errorf("erest: 不支持的 driver %s", driver)
}
