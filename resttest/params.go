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
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/ecodeclub/erest/internal/operator"
)

type filter struct {
	column string
	op     operator.Op
	value  string
}

// embed 是 select 里面的 rel(col,...)，按照 <rel 去掉 s>_id 关联 rel.id
type embed struct {
	name    string
	columns []string
}

func (e embed) foreignKey() string {
	return strings.TrimSuffix(e.name, "s") + "_id"
}

type orderBy struct {
	column string
	desc   bool
}

type readQuery struct {
	// columns 为空表示 *
	columns   []string
	count     bool
	embeds    []embed
	filters   []filter
	orders    []orderBy
	limit     int
	hasLimit  bool
	offset    int
	hasOffset bool
}

// 这些参数不是过滤条件
var reservedParams = map[string]bool{
	"select": true,
	"limit":  true,
	"offset": true,
	"order":  true,
}

func parseReadQuery(values url.Values) (readQuery, error) {
	var q readQuery
	var err error
	if sel := values.Get("select"); sel != "" {
		if err = q.parseSelect(sel); err != nil {
			return q, err
		}
	}
	if q.filters, err = parseFilters(values); err != nil {
		return q, err
	}
	if s := values.Get("limit"); s != "" {
		if q.limit, err = strconv.Atoi(s); err != nil || q.limit < 0 {
			return q, fmt.Errorf("invalid limit %q", s)
		}
		q.hasLimit = true
	}
	if s := values.Get("offset"); s != "" {
		if q.offset, err = strconv.Atoi(s); err != nil || q.offset < 0 {
			return q, fmt.Errorf("invalid offset %q", s)
		}
		q.hasOffset = true
	}
	if s := values.Get("order"); s != "" {
		if q.orders, err = parseOrder(s); err != nil {
			return q, err
		}
	}
	return q, nil
}

func (q *readQuery) parseSelect(sel string) error {
	items, err := splitTopLevel(sel)
	if err != nil {
		return err
	}
	all := false
	for _, item := range items {
		switch {
		case item == "*":
			all = true
		case item == "count" || item == "count()":
			q.count = true
		case strings.HasSuffix(item, ")"):
			open := strings.IndexByte(item, '(')
			e := embed{name: item[:open]}
			if err = sanitizeIdentifier(e.name); err != nil {
				return err
			}
			for _, col := range strings.Split(item[open+1:len(item)-1], ",") {
				if col == "*" {
					e.columns = nil
					break
				}
				if err = sanitizeIdentifier(col); err != nil {
					return err
				}
				e.columns = append(e.columns, col)
			}
			q.embeds = append(q.embeds, e)
		default:
			if err = sanitizeIdentifier(item); err != nil {
				return err
			}
			q.columns = append(q.columns, item)
		}
	}
	if all {
		q.columns = nil
	}
	return nil
}

// splitTopLevel 按照不在括号里的逗号切分
func splitTopLevel(s string) ([]string, error) {
	var res []string
	depth, start := 0, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return nil, fmt.Errorf("unbalanced parentheses in %q", s)
			}
		case ',':
			if depth == 0 {
				res = append(res, strings.TrimSpace(s[start:i]))
				start = i + 1
			}
		}
	}
	if depth != 0 {
		return nil, fmt.Errorf("unbalanced parentheses in %q", s)
	}
	res = append(res, strings.TrimSpace(s[start:]))
	return res, nil
}

func parseFilters(values url.Values) ([]filter, error) {
	keys := make([]string, 0, len(values))
	for k := range values {
		if !reservedParams[k] {
			keys = append(keys, k)
		}
	}
	// map 的顺序不固定，排序之后生成的 SQL 才稳定
	sort.Strings(keys)
	var res []filter
	for _, k := range keys {
		if err := sanitizeIdentifier(k); err != nil {
			return nil, err
		}
		for _, raw := range values[k] {
			dot := strings.IndexByte(raw, '.')
			if dot < 0 {
				return nil, fmt.Errorf("invalid filter %s=%s, expected operator.value", k, raw)
			}
			op, ok := operator.Of(raw[:dot])
			if !ok {
				return nil, fmt.Errorf("unsupported operator %q", raw[:dot])
			}
			res = append(res, filter{column: k, op: op, value: raw[dot+1:]})
		}
	}
	return res, nil
}

func parseOrder(s string) ([]orderBy, error) {
	var res []orderBy
	for _, item := range strings.Split(s, ",") {
		parts := strings.Split(item, ".")
		ob := orderBy{column: parts[0]}
		if err := sanitizeIdentifier(ob.column); err != nil {
			return nil, err
		}
		for _, p := range parts[1:] {
			switch p {
			case "asc":
				ob.desc = false
			case "desc":
				ob.desc = true
			case "nullsfirst", "nullslast":
			default:
				return nil, fmt.Errorf("invalid order direction %q", p)
			}
		}
		res = append(res, ob)
	}
	return res, nil
}

// parseList 解析 in.(a,"b,c") 的括号部分
func parseList(s string) ([]string, error) {
	if len(s) < 2 || s[0] != '(' || s[len(s)-1] != ')' {
		return nil, fmt.Errorf("invalid list %q", s)
	}
	s = s[1 : len(s)-1]
	var (
		res    []string
		sb     strings.Builder
		quoted bool
	)
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '\\' && quoted && i+1 < len(s):
			i++
			sb.WriteByte(s[i])
		case c == '"':
			quoted = !quoted
		case c == ',' && !quoted:
			res = append(res, sb.String())
			sb.Reset()
		default:
			sb.WriteByte(c)
		}
	}
	if quoted {
		return nil, fmt.Errorf("unterminated quote in %q", s)
	}
	if len(s) > 0 {
		res = append(res, sb.String())
	}
	return res, nil
}

// sanitizeIdentifier 只允许字母、数字和下划线，避免拼接 SQL 的时候被注入
func sanitizeIdentifier(name string) error {
	if name == "" {
		return fmt.Errorf("identifier cannot be empty")
	}
	for _, c := range name {
		if !((c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_') {
			return fmt.Errorf("invalid identifier %q", name)
		}
	}
	return nil
}
