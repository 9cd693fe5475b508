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

// Package portfolio is the data layer of the portfolio site: photos,
// categories, testimonials, services and blog articles.
package portfolio

import (
	"context"
	"errors"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/ecodeclub/erest"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	tablePhotos       = "photos"
	tableCategories   = "categories"
	tableTestimonials = "temoignages"
	tableServices     = "services"
	tableArticles     = "articles"

	DefaultBucket       = "photos-bucket"
	DefaultArticleLimit = 6
)

// ErrNotCreated 插入成功但是服务端没有返回数据
var ErrNotCreated = errors.New("portfolio: the backend did not return the created row")

type Option func(r *Repository)

// WithBucket replaces the default photo bucket, usually to carry upload
// restrictions.
func WithBucket(b *erest.Bucket) Option {
	return func(r *Repository) {
		r.bucket = b
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(r *Repository) {
		r.logger = l
	}
}

// Repository 所有的方法都可以并发调用
type Repository struct {
	client *erest.Client
	bucket *erest.Bucket
	logger *zap.Logger
	// 生成不带扩展名的文件名
	newName func() string
}

func NewRepository(c *erest.Client, opts ...Option) *Repository {
	r := &Repository{
		client:  c,
		bucket:  c.Storage().From(DefaultBucket),
		logger:  zap.NewNop(),
		newName: uuid.NewString,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// allCategories 是前端用来表示不过滤的值
func allCategories(category string) bool {
	switch strings.ToLower(strings.TrimSpace(category)) {
	case "", "tout", "all":
		return true
	}
	return false
}

// Photos returns the visible photos, newest first.
func (r *Repository) Photos(ctx context.Context, category string) ([]Photo, error) {
	s := erest.NewSelector[Photo](r.client, tablePhotos).Select().Eq("visible", true)
	if !allCategories(category) {
		s = s.Eq("categorie", category)
	}
	return s.Order("created_at").Find(ctx).Unwrap()
}

// Photo 不存在的时候返回 nil, nil
func (r *Repository) Photo(ctx context.Context, id int64) (*Photo, error) {
	return erest.NewSelector[Photo](r.client, tablePhotos).Eq("id", id).Get(ctx).Unwrap()
}

// AddPhoto uploads the image under a random name, then inserts the row
// pointing at its public URL. The image is removed again if the insert
// fails.
func (r *Repository) AddPhoto(ctx context.Context, in PhotoInput, file io.Reader, ext string) (*Photo, error) {
	name := r.newName()
	if ext = strings.ToLower(strings.TrimPrefix(ext, ".")); ext != "" {
		name += "." + ext
	}
	if err := r.bucket.Upload(ctx, name, file).Err(); err != nil {
		return nil, err
	}
	photo := Photo{
		Titre:       in.Titre,
		Description: in.Description,
		Categorie:   in.Categorie,
		AltText:     in.AltText,
		URLImage:    r.bucket.PublicURL(name),
	}
	rows, err := erest.NewInserter[Photo](r.client, tablePhotos).Values(photo).Select().Exec(ctx).Unwrap()
	if err == nil && len(rows) == 0 {
		err = ErrNotCreated
	}
	if err != nil {
		// 用新的 context，调用方取消之后也要清理
		if rerr := r.bucket.Remove(context.WithoutCancel(ctx), name).Err(); rerr != nil {
			r.logger.Warn("portfolio: remove orphan image",
				zap.String("name", name), zap.Error(rerr))
		}
		return nil, err
	}
	return &rows[0], nil
}

// DeletePhoto deletes the row first. A failure to remove the image is
// logged only, the photo is already gone for the site.
func (r *Repository) DeletePhoto(ctx context.Context, id int64, imageURL string) error {
	if err := erest.NewDeleter[Photo](r.client, tablePhotos).Eq("id", id).Exec(ctx).Err(); err != nil {
		return err
	}
	name := objectName(imageURL)
	if name == "" {
		return nil
	}
	if err := r.bucket.Remove(ctx, name).Err(); err != nil {
		r.logger.Warn("portfolio: remove image",
			zap.Int64("id", id), zap.String("name", name), zap.Error(err))
	}
	return nil
}

// objectName 取 URL 的最后一段作为对象名
func objectName(imageURL string) string {
	if imageURL == "" {
		return ""
	}
	p := imageURL
	if u, err := url.Parse(imageURL); err == nil {
		p = u.Path
	}
	name := path.Base(p)
	if name == "." || name == "/" {
		return ""
	}
	return name
}

func (r *Repository) Categories(ctx context.Context) ([]Category, error) {
	return erest.NewSelector[Category](r.client, tableCategories).Select().
		Order("nom", erest.OrderOptions{Ascending: true}).Find(ctx).Unwrap()
}

func (r *Repository) Testimonials(ctx context.Context) ([]Testimonial, error) {
	return erest.NewSelector[Testimonial](r.client, tableTestimonials).Select().
		Eq("visible", true).Order("created_at").Find(ctx).Unwrap()
}

func (r *Repository) AddTestimonial(ctx context.Context, t Testimonial) (*Testimonial, error) {
	rows, err := erest.NewInserter[Testimonial](r.client, tableTestimonials).Values(t).Select().Exec(ctx).Unwrap()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNotCreated
	}
	return &rows[0], nil
}

func (r *Repository) Services(ctx context.Context) ([]Service, error) {
	return erest.NewSelector[Service](r.client, tableServices).Select().
		Eq("visible", true).Order("ordre", erest.OrderOptions{Ascending: true}).Find(ctx).Unwrap()
}

// Articles returns the newest visible articles. limit <= 0 means
// DefaultArticleLimit.
func (r *Repository) Articles(ctx context.Context, limit int) ([]Article, error) {
	if limit <= 0 {
		limit = DefaultArticleLimit
	}
	return erest.NewSelector[Article](r.client, tableArticles).Select().
		Eq("visible", true).Order("created_at").Limit(limit).Find(ctx).Unwrap()
}

func (r *Repository) Article(ctx context.Context, id int64) (*Article, error) {
	return erest.NewSelector[Article](r.client, tableArticles).Eq("id", id).Get(ctx).Unwrap()
}

// Overview loads the home page sections concurrently. The first error
// cancels the other requests.
func (r *Repository) Overview(ctx context.Context) (*Overview, error) {
	var ov Overview
	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() (err error) {
		ov.Photos, err = r.Photos(ctx, "")
		return err
	})
	eg.Go(func() (err error) {
		ov.Testimonials, err = r.Testimonials(ctx)
		return err
	})
	eg.Go(func() (err error) {
		ov.Services, err = r.Services(ctx)
		return err
	})
	eg.Go(func() (err error) {
		ov.Articles, err = r.Articles(ctx, DefaultArticleLimit)
		return err
	})
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return &ov, nil
}

// CheckConnection sends the cheapest possible read.
func (r *Repository) CheckConnection(ctx context.Context) error {
	return r.client.From(tableCategories).Select("count").Limit(1).Find(ctx).Err()
}
