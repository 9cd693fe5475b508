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
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
)

type row = map[string]any

// scanRows 把结果集读成 map。MySQL 驱动把所有值都返回成 []byte，
// 这里按照列类型还原成数字
func scanRows(rows *sql.Rows) ([]row, error) {
	defer func() { _ = rows.Close() }()
	cts, err := rows.ColumnTypes()
	if err != nil {
		return nil, err
	}
	res := make([]row, 0, 8)
	for rows.Next() {
		vals := make([]any, len(cts))
		ptrs := make([]any, len(cts))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err = rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		r := make(row, len(cts))
		for i, ct := range cts {
			r[ct.Name()] = convertColumn(vals[i], ct.DatabaseTypeName())
		}
		res = append(res, r)
	}
	return res, rows.Err()
}

func convertColumn(val any, typ string) any {
	b, ok := val.([]byte)
	if !ok {
		return val
	}
	s := string(b)
	switch strings.ToUpper(typ) {
	case "INT", "INTEGER", "BIGINT", "SMALLINT", "MEDIUMINT", "TINYINT",
		"UNSIGNED INT", "UNSIGNED BIGINT", "UNSIGNED SMALLINT", "UNSIGNED TINYINT":
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n
		}
	case "FLOAT", "DOUBLE", "DECIMAL", "REAL":
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	case "BLOB", "BINARY", "VARBINARY", "LONGBLOB", "MEDIUMBLOB":
		return b
	}
	return s
}

// decodeRecords 接受一个对象或者对象数组
func decodeRecords(body io.Reader) ([]row, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("empty request body")
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var records []row
	if data[0] == '[' {
		err = dec.Decode(&records)
	} else {
		var r row
		err = dec.Decode(&r)
		records = []row{r}
	}
	if err != nil {
		return nil, err
	}
	for _, r := range records {
		for k, v := range r {
			if r[k], err = bindValue(v); err != nil {
				return nil, err
			}
		}
	}
	return records, nil
}

// bindValue 把 JSON 的值转换成 database/sql 能绑定的参数，
// 对象和数组按 JSON 文本存储
func bindValue(v any) (any, error) {
	switch val := v.(type) {
	case json.Number:
		if n, err := val.Int64(); err == nil {
			return n, nil
		}
		return val.Float64()
	case map[string]any, []any:
		data, err := json.Marshal(val)
		if err != nil {
			return nil, err
		}
		return string(data), nil
	default:
		return val, nil
	}
}

// filterValue 把 URL 里面的字符串转换成参数
func filterValue(s string) any {
	switch s {
	case "true":
		return true
	case "false":
		return false
	}
	return s
}
