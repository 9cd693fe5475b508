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
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ecodeclub/ekit/slice"
	"github.com/ecodeclub/erest/internal/operator"
)

// Column 代表一个列，用于构造过滤条件
type Column struct {
	name string
}

// C 指定列
func C(name string) Column {
	return Column{name: name}
}

// Predicate is a single filter, rendered as column=op.value.
// Predicates passed to Where are AND-combined.
type Predicate struct {
	column string
	op     operator.Op
	value  string
}

// EQ = column=eq.value
func (c Column) EQ(val any) Predicate {
	return c.predicate(operator.OpEQ, val)
}

// NEQ = column=neq.value
func (c Column) NEQ(val any) Predicate {
	return c.predicate(operator.OpNEQ, val)
}

// GT = column=gt.value
func (c Column) GT(val any) Predicate {
	return c.predicate(operator.OpGT, val)
}

// GTEQ = column=gte.value
func (c Column) GTEQ(val any) Predicate {
	return c.predicate(operator.OpGTEQ, val)
}

// LT = column=lt.value
func (c Column) LT(val any) Predicate {
	return c.predicate(operator.OpLT, val)
}

// LTEQ = column=lte.value
func (c Column) LTEQ(val any) Predicate {
	return c.predicate(operator.OpLTEQ, val)
}

// Like uses * as the wildcard, e.g. C("titre").Like("*mariage*")
func (c Column) Like(pattern string) Predicate {
	return c.predicate(operator.OpLike, pattern)
}

// ILike is the case-insensitive Like
func (c Column) ILike(pattern string) Predicate {
	return c.predicate(operator.OpILike, pattern)
}

// Is accepts nil, true or false
func (c Column) Is(val any) Predicate {
	return c.predicate(operator.OpIs, val)
}

// In = column=in.(a,b,c)
func (c Column) In(vals ...any) Predicate {
	items := slice.Map[any, string](vals, func(idx int, src any) string {
		return quoteListItem(formatValue(src))
	})
	return Predicate{
		column: c.name,
		op:     operator.OpIn,
		value:  "(" + strings.Join(items, ",") + ")",
	}
}

func (c Column) predicate(op operator.Op, val any) Predicate {
	return Predicate{
		column: c.name,
		op:     op,
		value:  formatValue(val),
	}
}

func formatValue(val any) string {
	switch v := val.(type) {
	case nil:
		return "null"
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case time.Time:
		return v.UTC().Format(time.RFC3339Nano)
	case *time.Time:
		if v == nil {
			return "null"
		}
		return v.UTC().Format(time.RFC3339Nano)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// quoteListItem wraps items that would break the in.(...) list.
func quoteListItem(item string) string {
	if !strings.ContainsAny(item, `,()"`) {
		return item
	}
	return `"` + strings.ReplaceAll(item, `"`, `\"`) + `"`
}
