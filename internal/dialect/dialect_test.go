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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOf(t *testing.T) {
	testCases := []struct {
		driver  string
		want    Dialect
		wantErr string
	}{
		{driver: "sqlite3", want: SQLite},
		{driver: "mysql", want: MySQL},
		{driver: "postgres", wantErr: "erest: 不支持的 driver postgres"},
	}
	for _, tc := range testCases {
		t.Run(tc.driver, func(t *testing.T) {
			d, err := Of(tc.driver)
			if tc.wantErr != "" {
				assert.EqualError(t, err, tc.wantErr)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.want, d)
		})
	}
}

func TestDialect_Like(t *testing.T) {
	testCases := []struct {
		name        string
		d           Dialect
		insensitive bool
		wantCol     string
		wantOp      string
		wantPattern string
	}{
		{name: "sqlite like", d: SQLite, wantCol: "`titre`", wantOp: " GLOB ", wantPattern: "Ma*"},
		{name: "mysql like", d: MySQL, wantCol: "`titre`", wantOp: " LIKE BINARY ", wantPattern: "Ma%"},
		{name: "ilike", d: SQLite, insensitive: true, wantCol: "LOWER(`titre`)", wantOp: " LIKE ", wantPattern: "ma%"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			col, op, pattern := tc.d.Like(tc.d.QuoteIdent("titre"), "Ma*", tc.insensitive)
			assert.Equal(t, tc.wantCol, col)
			assert.Equal(t, tc.wantOp, op)
			assert.Equal(t, tc.wantPattern, pattern)
		})
	}
}
