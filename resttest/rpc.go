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
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Error 让 Procedure 指定响应码，其余错误按 400 处理
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func (h *Handler) callProcedure(c *gin.Context) {
	if c.Param("table") != "rpc" {
		c.JSON(http.StatusNotFound, gin.H{"message": "not found"})
		return
	}
	name := c.Param("fn")
	fn, ok := h.procedure(name)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"message": fmt.Sprintf("function %s not found", name)})
		return
	}
	params := map[string]any{}
	if c.Request.ContentLength != 0 {
		records, err := decodeRecords(c.Request.Body)
		if err == nil && len(records) != 1 {
			err = errors.New("rpc expects a single object")
		}
		if err != nil {
			h.fail(c, badRequest{err: err})
			return
		}
		params = records[0]
	}
	res, err := fn(c.Request.Context(), h.db, params)
	if err != nil {
		var re *Error
		if errors.As(err, &re) {
			c.JSON(re.Status, gin.H{"message": re.Message})
			return
		}
		h.fail(c, badRequest{err: err})
		return
	}
	if res == nil {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, res)
}
