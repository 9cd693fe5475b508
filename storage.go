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
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"path"
	"strings"

	"github.com/ecodeclub/ekit/slice"
	"github.com/ecodeclub/erest/internal/errs"
	"go.uber.org/multierr"
)

const (
	storagePrefix = "/storage/v1/object/"
	publicPrefix  = storagePrefix + "public/"
)

// Storage is the binary object sub-client.
type Storage struct {
	core
}

type BucketOption func(b *Bucket)

// WithMaxFileSize rejects uploads larger than size bytes. 0 means no limit.
func WithMaxFileSize(size int64) BucketOption {
	return func(b *Bucket) {
		b.maxSize = size
	}
}

// WithAllowedMIMETypes restricts uploads to the sniffed content types.
func WithAllowedMIMETypes(types ...string) BucketOption {
	return func(b *Bucket) {
		b.mimeTypes = types
	}
}

func (s *Storage) From(bucket string, opts ...BucketOption) *Bucket {
	b := &Bucket{core: s.core, name: bucket}
	for _, o := range opts {
		o(b)
	}
	return b
}

type Bucket struct {
	core
	name      string
	maxSize   int64
	mimeTypes []string
}

type UploadInfo struct {
	Path string `json:"path"`
	Key  string `json:"Key,omitempty"`
}

type FileObject struct {
	Name string `json:"name"`
}

// Upload sends file as the "file" field of a multipart POST.
func (b *Bucket) Upload(ctx context.Context, objectPath string, file io.Reader) Result[*UploadInfo] {
	var src io.Reader = file
	if b.maxSize > 0 {
		src = io.LimitReader(file, b.maxSize+1)
	}
	data, err := io.ReadAll(src)
	if err != nil {
		return Result[*UploadInfo]{err: errs.NewValidationError(err)}
	}
	u := &uploader{bucket: b, path: objectPath, data: data}
	req, err := u.Build()
	if err != nil {
		return Result[*UploadInfo]{err: err}
	}
	res := b.execute(ctx, TypeUpload, b.name, u, req)
	if res.Err != nil {
		return Result[*UploadInfo]{err: res.Err}
	}
	info := &UploadInfo{Path: cleanObjectPath(objectPath)}
	if len(bytes.TrimSpace(res.Body)) > 0 {
		// 服务端的返回只用来补充 Key，解析失败不影响上传结果
		_ = json.Unmarshal(res.Body, info)
		info.Path = cleanObjectPath(objectPath)
	}
	return Result[*UploadInfo]{data: info}
}

// Remove deletes objects; the body is a JSON array of paths.
func (b *Bucket) Remove(ctx context.Context, paths ...string) Result[[]FileObject] {
	r := &remover{bucket: b, paths: paths}
	req, err := r.Build()
	if err != nil {
		return Result[[]FileObject]{data: []FileObject{}, err: err}
	}
	res := b.execute(ctx, TypeRemove, b.name, r, req)
	objs, err := decodeRows[FileObject](res, true)
	return Result[[]FileObject]{data: objs, err: err}
}

// PublicURL is pure string building, no request is sent. objectPath is
// the raw path passed to Upload; segments are escaped the same way.
func (b *Bucket) PublicURL(objectPath string) string {
	return b.baseURL + publicPrefix + b.name + "/" + escapeObjectPath(objectPath)
}

var _ QueryBuilder = &uploader{}

type uploader struct {
	bucket *Bucket
	path   string
	data   []byte
}

func (u *uploader) Build() (Request, error) {
	b := u.bucket
	err := validateObject(b.name, u.path)
	if b.maxSize > 0 && int64(len(u.data)) > b.maxSize {
		err = multierr.Append(err, errs.NewFileTooLargeError(int64(len(u.data)), b.maxSize))
	}
	mime := http.DetectContentType(u.data)
	if len(b.mimeTypes) > 0 && !slice.Contains[string](b.mimeTypes, baseMIME(mime)) {
		err = multierr.Append(err, errs.NewUnsupportedMIMETypeError(mime))
	}
	if err != nil {
		return Request{}, errs.NewValidationError(err)
	}

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="`+
		escapeQuotes(path.Base(cleanObjectPath(u.path)))+`"`)
	h.Set(headerContentType, mime)
	part, err := w.CreatePart(h)
	if err != nil {
		return Request{}, errs.NewValidationError(err)
	}
	if _, err = part.Write(u.data); err != nil {
		return Request{}, errs.NewValidationError(err)
	}
	if err = w.Close(); err != nil {
		return Request{}, errs.NewValidationError(err)
	}
	req := b.newRequest(http.MethodPost, storagePrefix+b.name+"/"+escapeObjectPath(u.path), "", body.Bytes())
	req.Header.Set(headerContentType, w.FormDataContentType())
	return req, nil
}

var _ QueryBuilder = &remover{}

type remover struct {
	bucket *Bucket
	paths  []string
}

func (r *remover) Build() (Request, error) {
	var err error
	if !validIdentifier(r.bucket.name) {
		err = multierr.Append(err, errs.NewInvalidCollectionError(r.bucket.name))
	}
	if len(r.paths) == 0 {
		err = multierr.Append(err, errs.ErrEmptyPath)
	}
	for _, p := range r.paths {
		if cleanObjectPath(p) == "" {
			err = multierr.Append(err, errs.ErrEmptyPath)
		}
	}
	if err != nil {
		return Request{}, errs.NewValidationError(err)
	}
	paths := slice.Map[string, string](r.paths, func(idx int, src string) string {
		return cleanObjectPath(src)
	})
	body, err := marshal(paths)
	if err != nil {
		return Request{}, err
	}
	return r.bucket.newRequest(http.MethodDelete, storagePrefix+r.bucket.name, "", body), nil
}

func validateObject(bucket, objectPath string) error {
	var err error
	if !validIdentifier(bucket) {
		err = multierr.Append(err, errs.NewInvalidCollectionError(bucket))
	}
	p := cleanObjectPath(objectPath)
	if p == "" {
		err = multierr.Append(err, errs.ErrEmptyPath)
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == ".." {
			err = multierr.Append(err, errs.NewInvalidObjectPathError(objectPath))
			break
		}
	}
	return err
}

func cleanObjectPath(p string) string {
	return strings.TrimLeft(strings.TrimSpace(p), "/")
}

func escapeObjectPath(p string) string {
	segs := strings.Split(cleanObjectPath(p), "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return strings.Join(segs, "/")
}

func baseMIME(mime string) string {
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		return strings.TrimSpace(mime[:i])
	}
	return mime
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
