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

// Package resttest runs the REST, RPC and storage endpoints erest talks to
// in process, on top of database/sql. It is meant for tests and local
// development, not for production traffic.
package resttest

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/ecodeclub/erest"
	"github.com/ecodeclub/erest/internal/dialect"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

const DefaultAPIKey = "resttest-anon-key"

// Procedure 对应 /rest/v1/rpc/<name>。返回 nil 的时候响应 204
type Procedure func(ctx context.Context, db *sql.DB, params map[string]any) (any, error)

type Option func(h *Handler)

func WithAPIKey(key string) Option {
	return func(h *Handler) {
		h.apiKey = key
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(h *Handler) {
		h.logger = l
	}
}

func WithProcedure(name string, fn Procedure) Option {
	return func(h *Handler) {
		h.procs[name] = fn
	}
}

// Handler 是 http.Handler，可以挂到任何 http.Server 上
type Handler struct {
	db      *sql.DB
	dialect dialect.Dialect
	apiKey  string
	logger  *zap.Logger

	mu    sync.RWMutex
	procs map[string]Procedure

	store  *objectStore
	engine *gin.Engine
}

func NewHandler(db *sql.DB, driver string, opts ...Option) (*Handler, error) {
	dl, err := dialect.Of(driver)
	if err != nil {
		return nil, err
	}
	h := &Handler{
		db:      db,
		dialect: dl,
		apiKey:  DefaultAPIKey,
		logger:  zap.NewNop(),
		procs:   make(map[string]Procedure),
		store:   newObjectStore(),
	}
	for _, o := range opts {
		o(h)
	}
	h.engine = h.routes()
	return h, nil
}

func (h *Handler) routes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), h.logRequest)

	r.GET("/storage/v1/object/public/:bucket/*path", h.download)

	authed := r.Group("", h.requireAPIKey)
	rest := authed.Group("/rest/v1")
	rest.GET("/:table", h.selectRows)
	rest.POST("/:table", h.insertRows)
	rest.PATCH("/:table", h.updateRows)
	rest.DELETE("/:table", h.deleteRows)
	rest.POST("/:table/:fn", h.callProcedure)

	objects := authed.Group("/storage/v1/object")
	objects.POST("/:bucket/*path", h.upload)
	objects.DELETE("/:bucket", h.remove)
	return r
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.engine.ServeHTTP(w, r)
}

func (h *Handler) APIKey() string {
	return h.apiKey
}

// Register 添加或者替换一个 procedure
func (h *Handler) Register(name string, fn Procedure) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.procs[name] = fn
}

func (h *Handler) procedure(name string) (Procedure, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	fn, ok := h.procs[name]
	return fn, ok
}

// Object 返回存储的文件，测试用
func (h *Handler) Object(bucket, path string) (Object, bool) {
	return h.store.get(bucket, path)
}

func (h *Handler) logRequest(c *gin.Context) {
	start := time.Now()
	c.Next()
	h.logger.Debug("resttest",
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.String("query", c.Request.URL.RawQuery),
		zap.Int("status", c.Writer.Status()),
		zap.Duration("latency", time.Since(start)))
}

func (h *Handler) requireAPIKey(c *gin.Context) {
	if c.GetHeader("apikey") != h.apiKey {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Invalid API key"})
		return
	}
	c.Next()
}

// Server 是跑在 httptest.Server 上的 Handler
type Server struct {
	*Handler
	srv *httptest.Server
}

func NewServer(db *sql.DB, driver string, opts ...Option) (*Server, error) {
	h, err := NewHandler(db, driver, opts...)
	if err != nil {
		return nil, err
	}
	return &Server{Handler: h, srv: httptest.NewServer(h)}, nil
}

func (s *Server) URL() string {
	return s.srv.URL
}

func (s *Server) Close() {
	s.srv.Close()
}

// Client 打开一个指向这个 Server 的 erest.Client
func (s *Server) Client(opts ...erest.ClientOption) (*erest.Client, error) {
	return erest.Open(s.srv.URL, s.apiKey, opts...)
}

// NewSQLite 使用一个独立的内存 SQLite 数据库，执行 schema 之后启动 Server。
// 测试结束的时候 Server 和数据库都会被关闭
func NewSQLite(t testing.TB, schema ...string) *Server {
	t.Helper()
	db, err := sql.Open("sqlite3", "file:"+uuid.NewString()+"?mode=memory&cache=shared")
	if err != nil {
		t.Fatal(err)
	}
	// 共享缓存的内存库在并发写的时候会报 table is locked
	db.SetMaxOpenConns(1)
	for _, stmt := range schema {
		if _, err = db.Exec(stmt); err != nil {
			_ = db.Close()
			t.Fatal(err)
		}
	}
	s, err := NewServer(db, "sqlite3")
	if err != nil {
		_ = db.Close()
		t.Fatal(err)
	}
	t.Cleanup(func() {
		s.Close()
		_ = db.Close()
	})
	return s
}
