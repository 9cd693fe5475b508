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

package resttest

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
)

type Object struct {
	Data        []byte
	ContentType string
}

type objectStore struct {
	mu      sync.RWMutex
	buckets map[string]map[string]Object
}

func newObjectStore() *objectStore {
	return &objectStore{buckets: make(map[string]map[string]Object)}
}

func (s *objectStore) get(bucket, path string) (Object, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.buckets[bucket][path]
	return obj, ok
}

// put 在 upsert 为 false 并且对象已经存在的时候返回 false
func (s *objectStore) put(bucket, path string, obj Object, upsert bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.buckets[bucket]
	if !ok {
		b = make(map[string]Object)
		s.buckets[bucket] = b
	}
	if _, exists := b[path]; exists && !upsert {
		return false
	}
	b[path] = obj
	return true
}

func (s *objectStore) remove(bucket string, paths []string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := make([]string, 0, len(paths))
	b := s.buckets[bucket]
	for _, p := range paths {
		if _, ok := b[p]; ok {
			delete(b, p)
			removed = append(removed, p)
		}
	}
	return removed
}

// safeKey returns the object key from the path param and false if invalid.
func safeKey(pathParam string) (string, bool) {
	key := strings.TrimPrefix(strings.TrimSpace(pathParam), "/")
	if key == "" {
		return "", false
	}
	for _, seg := range strings.Split(key, "/") {
		if seg == ".." {
			return "", false
		}
	}
	return key, true
}

func validBucket(name string) bool {
	return sanitizeIdentifier(strings.ReplaceAll(name, "-", "_")) == nil
}

func (h *Handler) upload(c *gin.Context) {
	bucket := c.Param("bucket")
	key, ok := safeKey(c.Param("path"))
	if !ok || !validBucket(bucket) {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid or missing object path"})
		return
	}
	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	defer func() { _ = f.Close() }()
	data, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	ct := fh.Header.Get("Content-Type")
	if ct == "" || ct == "application/octet-stream" {
		ct = http.DetectContentType(data)
	}
	upsert := c.GetHeader("x-upsert") == "true"
	if !h.store.put(bucket, key, Object{Data: data, ContentType: ct}, upsert) {
		c.JSON(http.StatusConflict, gin.H{"message": "The resource already exists"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"Key": bucket + "/" + key})
}

type removeRequest struct {
	Prefixes []string `json:"prefixes"`
}

// remove 接受 ["a","b"] 或者 {"prefixes":["a","b"]}
func (h *Handler) remove(c *gin.Context) {
	bucket := c.Param("bucket")
	if !validBucket(bucket) {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid bucket"})
		return
	}
	data, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	data = bytes.TrimSpace(data)
	var paths []string
	if len(data) > 0 && data[0] == '{' {
		var req removeRequest
		err = json.Unmarshal(data, &req)
		paths = req.Prefixes
	} else {
		err = json.Unmarshal(data, &paths)
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	removed := h.store.remove(bucket, paths)
	res := make([]gin.H, 0, len(removed))
	for _, p := range removed {
		res = append(res, gin.H{"name": p, "bucket_id": bucket})
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) download(c *gin.Context) {
	key, ok := safeKey(c.Param("path"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid or missing object path"})
		return
	}
	obj, ok := h.store.get(c.Param("bucket"), key)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"message": "Object not found"})
		return
	}
	c.Data(http.StatusOK, obj.ContentType, obj.Data)
}
