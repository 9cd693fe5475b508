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

package dialect

import (
	"strings"

	"github.com/ecodeclub/erest/internal/errs"
)

// Dialect specify config or behavior of special SQL dialects
type Dialect struct {
	Name string
	// in MYSQL, it's "`"
	Quote byte
	// NoLimit 是只有 OFFSET 没有 LIMIT 的时候使用的 LIMIT 值
	NoLimit string
	// likeOp 是大小写敏感的 LIKE。SQLite 的 LIKE 默认不区分 ASCII 大小写
	likeOp string
}

var (
	MySQL = Dialect{
		Name:    "MySQL",
		Quote:   '`',
		NoLimit: "18446744073709551615",
		likeOp:  " LIKE BINARY ",
	}
	SQLite = Dialect{
		Name:    "SQLite",
		Quote:   '`',
		NoLimit: "-1",
		likeOp:  " GLOB ",
	}
)

func Of(driver string) (Dialect, error) {
	switch driver {
	case "sqlite3":
		return SQLite, nil
	case "mysql":
		return MySQL, nil
	default:
		return Dialect{}, errs.NewUnsupportedDriverError(driver)
	}
}

// QuoteIdent 调用方需要先校验 name
func (d Dialect) QuoteIdent(name string) string {
	q := string(d.Quote)
	return q + name + q
}

// Like 返回列表达式、操作符和转换之后的模式。
// pattern 使用 * 作为通配符
func (d Dialect) Like(column string, pattern string, insensitive bool) (string, string, string) {
	if insensitive {
		return "LOWER(" + column + ")", " LIKE ", strings.ToLower(strings.ReplaceAll(pattern, "*", "%"))
	}
	if d.likeOp == " GLOB " {
		return column, d.likeOp, pattern
	}
	return column, d.likeOp, strings.ReplaceAll(pattern, "*", "%")
}
