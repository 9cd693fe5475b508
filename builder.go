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
	"net/http"
	"strconv"

	"github.com/valyala/bytebufferpool"
)

// QueryBuilder is used to build a request
type QueryBuilder interface {
	Build() (Request, error)
}

// Request 代表一次将要发出的 HTTP 请求
type Request struct {
	Method string
	// Path 不包含 base url，例如 /rest/v1/photos
	Path string
	// Query 是已经编码好的 query string，不带 '?'
	Query  string
	Header http.Header
	Body   []byte
}

// URL joins the request onto base.
func (r Request) URL(base string) string {
	if r.Query == "" {
		return base + r.Path
	}
	return base + r.Path + "?" + r.Query
}

type builder struct {
	buffer *bytebufferpool.ByteBuffer
	// params 记录已经写入的参数个数，用于决定是否需要 '&'
	params int
}

func newBuilder() builder {
	return builder{buffer: bytebufferpool.Get()}
}

func (b *builder) release() {
	bytebufferpool.Put(b.buffer)
	b.buffer = nil
}

func (b *builder) writeString(val string) {
	_, _ = b.buffer.WriteString(val)
}

func (b *builder) writeByte(c byte) {
	_ = b.buffer.WriteByte(c)
}

func (b *builder) comma() {
	b.writeByte(',')
}

// key starts a new key=value pair.
func (b *builder) key(name string) {
	if b.params > 0 {
		b.writeByte('&')
	}
	b.params++
	b.escape(name)
	b.writeByte('=')
}

func (b *builder) int(val int) {
	b.writeString(strconv.Itoa(val))
}

const upperhex = "0123456789ABCDEF"

// escape percent-encodes val. Unreserved characters stay as they are, and
// so do the separators the REST convention relies on: , * ( ) . :
func (b *builder) escape(val string) {
	for i := 0; i < len(val); i++ {
		c := val[i]
		if shouldKeep(c) {
			b.writeByte(c)
			continue
		}
		b.writeByte('%')
		b.writeByte(upperhex[c>>4])
		b.writeByte(upperhex[c&15])
	}
}

func (b *builder) String() string {
	return b.buffer.String()
}

func shouldKeep(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	switch c {
	case '-', '_', '.', '~', ',', '*', '(', ')', ':':
		return true
	}
	return false
}
