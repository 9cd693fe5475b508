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
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/ecodeclub/ekit/slice"
	"github.com/ecodeclub/erest/internal/operator"
	"github.com/gin-gonic/gin"
	"github.com/go-sql-driver/mysql"
	"github.com/mattn/go-sqlite3"
	"github.com/valyala/bytebufferpool"
	"go.uber.org/zap"
)

// querier 是 *sql.DB 和 *sql.Tx 的公共部分
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// badRequest 标记调用方的错误，响应 400
type badRequest struct {
	err error
}

func (e badRequest) Error() string {
	return e.err.Error()
}

func (h *Handler) selectRows(c *gin.Context) {
	table := c.Param("table")
	q, err := parseReadQuery(c.Request.URL.Query())
	if err == nil {
		err = sanitizeIdentifier(table)
	}
	if err != nil {
		h.fail(c, badRequest{err: err})
		return
	}
	rows, err := h.read(c.Request.Context(), h.db, table, q)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (h *Handler) read(ctx context.Context, db querier, table string, q readQuery) ([]row, error) {
	query, args, extra, err := h.buildSelect(table, q)
	if err != nil {
		return nil, badRequest{err: err}
	}
	rs, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	rows, err := scanRows(rs)
	if err != nil {
		return nil, err
	}
	for _, e := range q.embeds {
		if err = h.resolveEmbed(ctx, db, rows, e); err != nil {
			return nil, err
		}
	}
	for _, r := range rows {
		for _, col := range extra {
			delete(r, col)
		}
	}
	return rows, nil
}

// buildSelect 返回 SQL、参数，以及只是为了关联查询而额外读出来的列
func (h *Handler) buildSelect(table string, q readQuery) (string, []any, []string, error) {
	b := bytebufferpool.Get()
	defer bytebufferpool.Put(b)
	_, _ = b.WriteString("SELECT ")
	var extra []string
	switch {
	case q.count:
		_, _ = b.WriteString("COUNT(*) AS ")
		_, _ = b.WriteString(h.dialect.QuoteIdent("count"))
	case len(q.columns) == 0:
		_ = b.WriteByte('*')
	default:
		cols := q.columns
		for _, e := range q.embeds {
			if fk := e.foreignKey(); !slice.Contains[string](cols, fk) {
				cols = append(cols[:len(cols):len(cols)], fk)
				extra = append(extra, fk)
			}
		}
		for i, col := range cols {
			if i > 0 {
				_ = b.WriteByte(',')
			}
			_, _ = b.WriteString(h.dialect.QuoteIdent(col))
		}
	}
	_, _ = b.WriteString(" FROM ")
	_, _ = b.WriteString(h.dialect.QuoteIdent(table))

	where, args, err := h.buildWhere(q.filters)
	if err != nil {
		return "", nil, nil, err
	}
	_, _ = b.WriteString(where)

	if len(q.orders) > 0 {
		_, _ = b.WriteString(" ORDER BY ")
		for i, ob := range q.orders {
			if i > 0 {
				_ = b.WriteByte(',')
			}
			_, _ = b.WriteString(h.dialect.QuoteIdent(ob.column))
			if ob.desc {
				_, _ = b.WriteString(" DESC")
			} else {
				_, _ = b.WriteString(" ASC")
			}
		}
	}
	switch {
	case q.hasLimit:
		_, _ = b.WriteString(" LIMIT ")
		_, _ = b.WriteString(strconv.Itoa(q.limit))
	case q.hasOffset:
		_, _ = b.WriteString(" LIMIT ")
		_, _ = b.WriteString(h.dialect.NoLimit)
	}
	if q.hasOffset {
		_, _ = b.WriteString(" OFFSET ")
		_, _ = b.WriteString(strconv.Itoa(q.offset))
	}
	return b.String(), args, extra, nil
}

func (h *Handler) buildWhere(filters []filter) (string, []any, error) {
	if len(filters) == 0 {
		return "", nil, nil
	}
	var (
		sb   strings.Builder
		args []any
	)
	sb.WriteString(" WHERE ")
	for i, f := range filters {
		if i > 0 {
			sb.WriteString(" AND ")
		}
		col := h.dialect.QuoteIdent(f.column)
		switch f.op {
		case operator.OpLike, operator.OpILike:
			expr, op, pattern := h.dialect.Like(col, f.value, f.op == operator.OpILike)
			sb.WriteString(expr)
			sb.WriteString(op)
			sb.WriteByte('?')
			args = append(args, pattern)
		case operator.OpIs:
			switch f.value {
			case "null":
				sb.WriteString(col)
				sb.WriteString(" IS NULL")
			case "true", "false":
				sb.WriteString(col)
				sb.WriteString(operator.OpEQ.Text)
				sb.WriteByte('?')
				args = append(args, f.value == "true")
			default:
				return "", nil, fmt.Errorf("invalid is value %q", f.value)
			}
		case operator.OpIn:
			items, err := parseList(f.value)
			if err != nil {
				return "", nil, err
			}
			if len(items) == 0 {
				// IN () 不是合法的 SQL，空集合什么都不匹配
				sb.WriteString("1 = 0")
				continue
			}
			sb.WriteString(col)
			sb.WriteString(f.op.Text)
			sb.WriteByte('(')
			for j, item := range items {
				if j > 0 {
					sb.WriteByte(',')
				}
				sb.WriteByte('?')
				args = append(args, filterValue(item))
			}
			sb.WriteByte(')')
		default:
			sb.WriteString(col)
			sb.WriteString(f.op.Text)
			sb.WriteByte('?')
			args = append(args, filterValue(f.value))
		}
	}
	return sb.String(), args, nil
}

func (h *Handler) resolveEmbed(ctx context.Context, db querier, rows []row, e embed) error {
	fk := e.foreignKey()
	for _, r := range rows {
		id, ok := r[fk]
		if !ok {
			return badRequest{err: fmt.Errorf("could not find a relationship between the table and %s", e.name)}
		}
		if id == nil {
			r[e.name] = nil
			continue
		}
		related, err := h.read(ctx, db, e.name, readQuery{
			columns:  e.columns,
			filters:  []filter{{column: "id", op: operator.OpEQ, value: fmt.Sprint(id)}},
			limit:    1,
			hasLimit: true,
		})
		if err != nil {
			return err
		}
		if len(related) == 0 {
			r[e.name] = nil
			continue
		}
		r[e.name] = related[0]
	}
	return nil
}

func (h *Handler) insertRows(c *gin.Context) {
	table := c.Param("table")
	if err := sanitizeIdentifier(table); err != nil {
		h.fail(c, badRequest{err: err})
		return
	}
	records, err := decodeRecords(c.Request.Body)
	if err != nil {
		h.fail(c, badRequest{err: err})
		return
	}
	representation := wantsRepresentation(c)
	var created []row
	err = h.inTx(c.Request.Context(), func(ctx context.Context, tx *sql.Tx) error {
		for _, r := range records {
			id, err := h.insertOne(ctx, tx, table, r)
			if err != nil {
				return err
			}
			if !representation {
				continue
			}
			rows, err := h.readByID(ctx, tx, table, id)
			if err != nil {
				return err
			}
			created = append(created, rows...)
		}
		return nil
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	if !representation {
		c.Status(http.StatusCreated)
		return
	}
	c.JSON(http.StatusCreated, nonNil(created))
}

func (h *Handler) insertOne(ctx context.Context, tx querier, table string, r row) (any, error) {
	cols := make([]string, 0, len(r))
	for k := range r {
		if err := sanitizeIdentifier(k); err != nil {
			return nil, badRequest{err: err}
		}
		cols = append(cols, k)
	}
	sort.Strings(cols)
	args := make([]any, 0, len(cols))
	var sb strings.Builder
	sb.WriteString("INSERT INTO ")
	sb.WriteString(h.dialect.QuoteIdent(table))
	sb.WriteString(" (")
	for i, col := range cols {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(h.dialect.QuoteIdent(col))
		args = append(args, r[col])
	}
	sb.WriteString(") VALUES (")
	sb.WriteString(strings.TrimSuffix(strings.Repeat("?,", len(cols)), ","))
	sb.WriteByte(')')
	res, err := tx.ExecContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	if id, ok := r["id"]; ok && id != nil {
		return id, nil
	}
	return res.LastInsertId()
}

func (h *Handler) readByID(ctx context.Context, db querier, table string, id any) ([]row, error) {
	return h.read(ctx, db, table, readQuery{
		filters: []filter{{column: "id", op: operator.OpEQ, value: fmt.Sprint(id)}},
	})
}

func (h *Handler) updateRows(c *gin.Context) {
	table := c.Param("table")
	filters, err := parseFilters(c.Request.URL.Query())
	if err == nil {
		err = sanitizeIdentifier(table)
	}
	if err != nil {
		h.fail(c, badRequest{err: err})
		return
	}
	records, err := decodeRecords(c.Request.Body)
	if err == nil && len(records) != 1 {
		err = errors.New("update expects a single object")
	}
	if err != nil {
		h.fail(c, badRequest{err: err})
		return
	}
	patch := records[0]
	representation := wantsRepresentation(c)
	var updated []row
	err = h.inTx(c.Request.Context(), func(ctx context.Context, tx *sql.Tx) error {
		var ids []any
		if representation {
			rows, err := h.read(ctx, tx, table, readQuery{columns: []string{"id"}, filters: filters})
			if err != nil {
				return err
			}
			ids = slice.Map[row, any](rows, func(idx int, src row) any {
				return src["id"]
			})
		}
		if err := h.update(ctx, tx, table, patch, filters); err != nil {
			return err
		}
		for _, id := range ids {
			rows, err := h.readByID(ctx, tx, table, id)
			if err != nil {
				return err
			}
			updated = append(updated, rows...)
		}
		return nil
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	if !representation {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, nonNil(updated))
}

func (h *Handler) update(ctx context.Context, tx querier, table string, patch row, filters []filter) error {
	cols := make([]string, 0, len(patch))
	for k := range patch {
		if err := sanitizeIdentifier(k); err != nil {
			return badRequest{err: err}
		}
		cols = append(cols, k)
	}
	if len(cols) == 0 {
		return badRequest{err: errors.New("empty patch")}
	}
	sort.Strings(cols)
	var sb strings.Builder
	args := make([]any, 0, len(cols)+len(filters))
	sb.WriteString("UPDATE ")
	sb.WriteString(h.dialect.QuoteIdent(table))
	sb.WriteString(" SET ")
	for i, col := range cols {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(h.dialect.QuoteIdent(col))
		sb.WriteString("=?")
		args = append(args, patch[col])
	}
	where, whereArgs, err := h.buildWhere(filters)
	if err != nil {
		return badRequest{err: err}
	}
	sb.WriteString(where)
	_, err = tx.ExecContext(ctx, sb.String(), append(args, whereArgs...)...)
	return err
}

func (h *Handler) deleteRows(c *gin.Context) {
	table := c.Param("table")
	filters, err := parseFilters(c.Request.URL.Query())
	if err == nil {
		err = sanitizeIdentifier(table)
	}
	if err != nil {
		h.fail(c, badRequest{err: err})
		return
	}
	representation := wantsRepresentation(c)
	var deleted []row
	err = h.inTx(c.Request.Context(), func(ctx context.Context, tx *sql.Tx) error {
		if representation {
			var err error
			if deleted, err = h.read(ctx, tx, table, readQuery{filters: filters}); err != nil {
				return err
			}
		}
		where, args, err := h.buildWhere(filters)
		if err != nil {
			return badRequest{err: err}
		}
		_, err = tx.ExecContext(ctx, "DELETE FROM "+h.dialect.QuoteIdent(table)+where, args...)
		return err
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	if !representation {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, nonNil(deleted))
}

func (h *Handler) inTx(ctx context.Context, fn func(ctx context.Context, tx *sql.Tx) error) error {
	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err = fn(ctx, tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func wantsRepresentation(c *gin.Context) bool {
	return strings.Contains(c.GetHeader("Prefer"), "return=representation")
}

func nonNil(rows []row) []row {
	if rows == nil {
		return []row{}
	}
	return rows
}

// fail 把错误映射成状态码：调用方错误 400，表不存在 404，约束冲突 409，其余 500
func (h *Handler) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	var (
		br     badRequest
		myErr  *mysql.MySQLError
		sqlErr sqlite3.Error
	)
	switch {
	case errors.As(err, &br):
		status = http.StatusBadRequest
	case errors.As(err, &myErr):
		switch myErr.Number {
		case 1146:
			status = http.StatusNotFound
		case 1062:
			status = http.StatusConflict
		}
	case errors.As(err, &sqlErr):
		switch {
		case sqlErr.Code == sqlite3.ErrConstraint:
			status = http.StatusConflict
		case strings.Contains(sqlErr.Error(), "no such table"):
			status = http.StatusNotFound
		}
	}
	if status == http.StatusInternalServerError {
		h.logger.Error("resttest: request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Error(err))
	}
	c.AbortWithStatusJSON(status, gin.H{"message": err.Error()})
}
