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

package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ecodeclub/erest"
	"github.com/spf13/cobra"
)

// filterFlags 是 select、update 和 delete 共用的过滤条件
type filterFlags struct {
	eq    []string
	where []string
}

func (f *filterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringArrayVar(&f.eq, "eq", nil, "equality filter column=value, repeatable")
	cmd.Flags().StringArrayVar(&f.where, "where", nil, "filter column=op.value (eq, neq, gt, gte, lt, lte, like, ilike, is, in), repeatable")
}

func (f *filterFlags) predicates() ([]erest.Predicate, error) {
	res := make([]erest.Predicate, 0, len(f.eq)+len(f.where))
	for _, raw := range f.eq {
		col, val, ok := strings.Cut(raw, "=")
		if !ok || col == "" {
			return nil, fmt.Errorf("invalid --eq %q, expected column=value", raw)
		}
		res = append(res, erest.C(col).EQ(val))
	}
	for _, raw := range f.where {
		p, err := parseWhere(raw)
		if err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, nil
}

// parseWhere 解析 column=op.value，和 URL 里面的写法一样
func parseWhere(raw string) (erest.Predicate, error) {
	col, rest, ok := strings.Cut(raw, "=")
	if !ok || col == "" {
		return erest.Predicate{}, fmt.Errorf("invalid --where %q, expected column=op.value", raw)
	}
	op, val, ok := strings.Cut(rest, ".")
	if !ok {
		return erest.Predicate{}, fmt.Errorf("invalid --where %q, expected column=op.value", raw)
	}
	c := erest.C(col)
	switch op {
	case "eq":
		return c.EQ(val), nil
	case "neq":
		return c.NEQ(val), nil
	case "gt":
		return c.GT(val), nil
	case "gte":
		return c.GTEQ(val), nil
	case "lt":
		return c.LT(val), nil
	case "lte":
		return c.LTEQ(val), nil
	case "like":
		return c.Like(val), nil
	case "ilike":
		return c.ILike(val), nil
	case "is":
		if val == "null" {
			return c.Is(nil), nil
		}
		return c.Is(val), nil
	case "in":
		items := strings.Split(strings.TrimSuffix(strings.TrimPrefix(val, "("), ")"), ",")
		vals := make([]any, 0, len(items))
		for _, it := range items {
			if it != "" {
				vals = append(vals, it)
			}
		}
		return c.In(vals...), nil
	default:
		return erest.Predicate{}, fmt.Errorf("unsupported operator %q in --where %q", op, raw)
	}
}

// parseOrder 接受 column、column.asc 或者 column.desc，默认降序
func parseOrder(raw string) (string, []erest.OrderOptions, error) {
	col, dir, _ := strings.Cut(raw, ".")
	switch dir {
	case "", "desc":
		return col, nil, nil
	case "asc":
		return col, []erest.OrderOptions{{Ascending: true}}, nil
	default:
		return "", nil, fmt.Errorf("invalid --order %q, expected column[.asc|.desc]", raw)
	}
}

// decodeJSONArg 把对象或者数组解析成行
func decodeJSONArg(arg string) ([]erest.Row, error) {
	data := bytes.TrimSpace([]byte(arg))
	if len(data) == 0 {
		return nil, errors.New("empty JSON argument")
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if data[0] == '[' {
		var rows []erest.Row
		if err := dec.Decode(&rows); err != nil {
			return nil, fmt.Errorf("invalid JSON argument: %w", err)
		}
		return rows, nil
	}
	var row erest.Row
	if err := dec.Decode(&row); err != nil {
		return nil, fmt.Errorf("invalid JSON argument: %w", err)
	}
	return []erest.Row{row}, nil
}

func (a *app) selectCmd() *cobra.Command {
	var (
		filters filterFlags
		columns string
		orders  []string
		limit   int
		offset  int
		single  bool
	)
	cmd := &cobra.Command{
		Use:   "select <collection>",
		Short: "Read rows from a collection",
		Example: `  erest select photos --columns id,titre --eq categorie=portrait --order created_at --limit 10
  erest select photos --where created_at=gt.2024-01-01 --order titre.asc
  erest select photos --eq id=3 --single`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ps, err := filters.predicates()
			if err != nil {
				return err
			}
			c, _, err := a.client()
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()

			s := c.From(args[0]).Select(columns).Where(ps...)
			for _, o := range orders {
				col, opts, err := parseOrder(o)
				if err != nil {
					return err
				}
				s = s.Order(col, opts...)
			}
			if cmd.Flags().Changed("limit") {
				s = s.Limit(limit)
			}
			if cmd.Flags().Changed("offset") {
				s = s.Offset(offset)
			}
			if single {
				row, err := s.Get(cmd.Context()).Unwrap()
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), row)
			}
			rows, err := s.Find(cmd.Context()).Unwrap()
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), rows)
		},
	}
	filters.register(cmd)
	cmd.Flags().StringVar(&columns, "columns", "*", "projection, for example \"id,titre\" or \"*, admins(id, email)\"")
	cmd.Flags().StringArrayVar(&orders, "order", nil, "order column[.asc|.desc], repeatable, descending by default")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of rows")
	cmd.Flags().IntVar(&offset, "offset", 0, "rows to skip")
	cmd.Flags().BoolVar(&single, "single", false, "print the first row only, null when there is none")
	return cmd
}

func (a *app) insertCmd() *cobra.Command {
	var minimal bool
	cmd := &cobra.Command{
		Use:     "insert <collection> <json>",
		Short:   "Insert one object or an array of objects",
		Example: `  erest insert temoignages '{"auteur":"Sarah M.","message":"Magnifique","note":5}'`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rows, err := decodeJSONArg(args[1])
			if err != nil {
				return err
			}
			c, _, err := a.client()
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()

			ins := c.From(args[0]).Insert(rows...)
			if !minimal {
				ins = ins.Select()
			}
			created, err := ins.Exec(cmd.Context()).Unwrap()
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), created)
		},
	}
	cmd.Flags().BoolVar(&minimal, "minimal", false, "do not ask for the created rows")
	return cmd
}

func (a *app) updateCmd() *cobra.Command {
	var filters filterFlags
	cmd := &cobra.Command{
		Use:     "update <collection> <json>",
		Short:   "Patch the rows matching the filters",
		Example: `  erest update services '{"visible":false}' --eq id=4`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rows, err := decodeJSONArg(args[1])
			if err != nil {
				return err
			}
			if len(rows) != 1 {
				return errors.New("update expects a single JSON object")
			}
			ps, err := filters.predicates()
			if err != nil {
				return err
			}
			c, _, err := a.client()
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()

			updated, err := c.From(args[0]).Update(rows[0]).Where(ps...).Select().Exec(cmd.Context()).Unwrap()
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), updated)
		},
	}
	filters.register(cmd)
	return cmd
}

func (a *app) deleteCmd() *cobra.Command {
	var filters filterFlags
	cmd := &cobra.Command{
		Use:     "delete <collection>",
		Short:   "Delete the rows matching the filters",
		Example: `  erest delete admin_sessions --where expires_at=lt.2024-01-01T00:00:00Z`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ps, err := filters.predicates()
			if err != nil {
				return err
			}
			c, _, err := a.client()
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()

			deleted, err := c.From(args[0]).Delete().Where(ps...).Select().Exec(cmd.Context()).Unwrap()
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), deleted)
		},
	}
	filters.register(cmd)
	return cmd
}

func (a *app) rpcCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "rpc <function> [json]",
		Short:   "Call a backend function",
		Example: `  erest rpc check_login_attempts '{"p_email":"admin@example.com"}'`,
		Args:    cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var params any
			if len(args) == 2 {
				rows, err := decodeJSONArg(args[1])
				if err != nil {
					return err
				}
				if len(rows) != 1 {
					return errors.New("rpc expects a single JSON object")
				}
				params = rows[0]
			}
			c, _, err := a.client()
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()

			res, err := c.RPC(args[0], params).Exec(cmd.Context()).Unwrap()
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
}
