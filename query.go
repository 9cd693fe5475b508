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
	"strings"

	"github.com/ecodeclub/erest/internal/errs"
	"go.uber.org/multierr"
)

const (
	restPrefix = "/rest/v1/"
	allColumns = "*"
)

// OrderBy 排序子句
type OrderBy struct {
	column    string
	ascending bool
}

// OrderOptions mirrors the options object of order(column, {ascending}).
// Leaving it out means descending.
type OrderOptions struct {
	Ascending bool
}

// query is the accumulated intent of a chain. Every setter returns a
// modified copy; slices are cut to their length before appending so two
// branches grown from the same prefix never share a backing array.
type query struct {
	collection string
	columns    string
	where      []Predicate
	orderBy    []OrderBy
	limit      int
	hasLimit   bool
	offset     int
	hasOffset  bool
}

func (q query) withColumns(columns []string) query {
	q.columns = cleanColumns(strings.Join(columns, ","))
	return q
}

func (q query) withWhere(ps ...Predicate) query {
	q.where = append(q.where[:len(q.where):len(q.where)], ps...)
	return q
}

func (q query) withOrder(column string, opts []OrderOptions) query {
	ob := OrderBy{column: column}
	// 不传 options 等价于 ascending: false
	if len(opts) > 0 {
		ob.ascending = opts[len(opts)-1].Ascending
	}
	q.orderBy = append(q.orderBy[:len(q.orderBy):len(q.orderBy)], ob)
	return q
}

func (q query) withLimit(limit int) query {
	q.limit, q.hasLimit = limit, true
	return q
}

func (q query) withOffset(offset int) query {
	q.offset, q.hasOffset = offset, true
	return q
}

func (q query) path() string {
	return restPrefix + q.collection
}

func (q query) validate() error {
	var err error
	if !validIdentifier(q.collection) {
		err = multierr.Append(err, errs.NewInvalidCollectionError(q.collection))
	}
	for _, p := range q.where {
		if strings.TrimSpace(p.column) == "" {
			err = multierr.Append(err, errs.NewInvalidColumnError(p.column))
		}
	}
	for _, ob := range q.orderBy {
		if strings.TrimSpace(ob.column) == "" {
			err = multierr.Append(err, errs.NewInvalidColumnError(ob.column))
		}
	}
	if q.hasLimit && q.limit < 0 {
		err = multierr.Append(err, errs.NewInvalidLimitError(q.limit))
	}
	if q.hasOffset && q.offset < 0 {
		err = multierr.Append(err, errs.NewInvalidOffsetError(q.offset))
	}
	return err
}

// buildPredicates writes column=op.value for every filter, in call order.
func (b *builder) buildPredicates(ps []Predicate) {
	for _, p := range ps {
		b.key(p.column)
		b.writeString(p.op.Symbol)
		b.writeByte('.')
		b.escape(p.value)
	}
}

// buildRead writes the read-only parameters. The order is fixed:
// select, limit, offset, order.
func (b *builder) buildRead(q query) {
	b.key("select")
	if q.columns == "" {
		b.escape(allColumns)
	} else {
		b.escape(q.columns)
	}
	if q.hasLimit {
		b.key("limit")
		b.int(q.limit)
	}
	if q.hasOffset {
		b.key("offset")
		b.int(q.offset)
	}
	if len(q.orderBy) > 0 {
		b.key("order")
		for i, ob := range q.orderBy {
			if i > 0 {
				b.comma()
			}
			b.escape(ob.column)
			if ob.ascending {
				b.writeString(".asc")
			} else {
				b.writeString(".desc")
			}
		}
	}
}

// cleanColumns drops whitespace outside double quotes so that a
// multi-line embedded select like "*, admins (id, email)" is accepted.
func cleanColumns(columns string) string {
	var sb strings.Builder
	quoted := false
	for _, r := range columns {
		switch {
		case r == '"':
			quoted = !quoted
		case !quoted && (r == ' ' || r == '\n' || r == '\t' || r == '\r'):
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

func validIdentifier(name string) bool {
	if name == "" {
		return false
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_' || c == '-') {
			return false
		}
	}
	return true
}
