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
	"net/url"
	"testing"

	"github.com/ecodeclub/erest/internal/dialect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildSelect(t *testing.T) {
	testCases := []struct {
		name      string
		dialect   dialect.Dialect
		rawQuery  string
		wantSQL   string
		wantArgs  []any
		wantExtra []string
		wantErr   bool
	}{
		{
			name:     "all",
			dialect:  dialect.SQLite,
			rawQuery: "select=*",
			wantSQL:  "SELECT * FROM `photos`",
		},
		{
			name:     "filters sorted by column",
			dialect:  dialect.SQLite,
			rawQuery: "visible=eq.true&categorie=eq.portrait&select=id,titre&limit=2&order=created_at.desc,id",
			wantSQL:  "SELECT `id`,`titre` FROM `photos` WHERE `categorie` = ? AND `visible` = ? ORDER BY `created_at` DESC,`id` ASC LIMIT 2",
			wantArgs: []any{"portrait", true},
		},
		{
			name:     "offset without limit on mysql",
			dialect:  dialect.MySQL,
			rawQuery: "offset=3",
			wantSQL:  "SELECT * FROM `photos` LIMIT 18446744073709551615 OFFSET 3",
		},
		{
			name:     "in and is",
			dialect:  dialect.SQLite,
			rawQuery: `id=in.(1,"a,b")&deleted_at=is.null`,
			wantSQL:  "SELECT * FROM `photos` WHERE `deleted_at` IS NULL AND `id` IN (?,?)",
			wantArgs: []any{"1", "a,b"},
		},
		{
			name:     "empty in",
			dialect:  dialect.SQLite,
			rawQuery: "id=in.()",
			wantSQL:  "SELECT * FROM `photos` WHERE 1 = 0",
		},
		{
			name:     "ilike",
			dialect:  dialect.MySQL,
			rawQuery: "titre=ilike.*Paul*",
			wantSQL:  "SELECT * FROM `photos` WHERE LOWER(`titre`) LIKE ?",
			wantArgs: []any{"%paul%"},
		},
		{
			name:      "embed adds foreign key",
			dialect:   dialect.SQLite,
			rawQuery:  "select=token,admins(id,email)",
			wantSQL:   "SELECT `token`,`admin_id` FROM `photos`",
			wantExtra: []string{"admin_id"},
		},
		{
			name:     "count",
			dialect:  dialect.SQLite,
			rawQuery: "select=count&limit=1",
			wantSQL:  "SELECT COUNT(*) AS `count` FROM `photos` LIMIT 1",
		},
		{
			name:     "unknown operator",
			dialect:  dialect.SQLite,
			rawQuery: "id=zz.1",
			wantErr:  true,
		},
		{
			name:     "injection in column",
			dialect:  dialect.SQLite,
			rawQuery: "select=id%20drop",
			wantErr:  true,
		},
		{
			name:     "bad direction",
			dialect:  dialect.SQLite,
			rawQuery: "order=id.sideways",
			wantErr:  true,
		},
		{
			name:     "negative limit",
			dialect:  dialect.SQLite,
			rawQuery: "limit=-1",
			wantErr:  true,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			values, err := url.ParseQuery(tc.rawQuery)
			require.NoError(t, err)
			h := &Handler{dialect: tc.dialect}
			q, err := parseReadQuery(values)
			if err == nil {
				var sql string
				var args []any
				var extra []string
				sql, args, extra, err = h.buildSelect("photos", q)
				if err == nil {
					assert.Equal(t, tc.wantSQL, sql)
					assert.Equal(t, tc.wantArgs, args)
					assert.Equal(t, tc.wantExtra, extra)
				}
			}
			assert.Equal(t, tc.wantErr, err != nil)
		})
	}
}

func TestParseList(t *testing.T) {
	testCases := []struct {
		input   string
		want    []string
		wantErr bool
	}{
		{input: "(a,b)", want: []string{"a", "b"}},
		{input: `("a,b",c)`, want: []string{"a,b", "c"}},
		{input: `("d\"e")`, want: []string{`d"e`}},
		{input: "()"},
		{input: "a,b", wantErr: true},
		{input: `("a)`, wantErr: true},
	}
	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			got, err := parseList(tc.input)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestSafeKey(t *testing.T) {
	testCases := []struct {
		input  string
		want   string
		wantOk bool
	}{
		{input: "/a/b.png", want: "a/b.png", wantOk: true},
		{input: "/a..b.png", want: "a..b.png", wantOk: true},
		{input: "/../etc/passwd"},
		{input: "/"},
	}
	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			got, ok := safeKey(tc.input)
			assert.Equal(t, tc.wantOk, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}
