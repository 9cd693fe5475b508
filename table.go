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

// Row 是无类型的一行数据
type Row = map[string]any

// Table is the untyped entry point returned by Client.From.
// Use NewSelector and friends when rows map onto a struct.
type Table struct {
	core
	name string
}

func (t *Table) Select(columns ...string) *Selector[Row] {
	s := &Selector[Row]{core: t.core, q: query{collection: t.name}}
	return s.Select(columns...)
}

func (t *Table) Insert(records ...Row) *Inserter[Row] {
	i := &Inserter[Row]{core: t.core, collection: t.name}
	return i.Values(records...)
}

func (t *Table) Update(patch any) *Updater[Row] {
	u := &Updater[Row]{core: t.core, q: query{collection: t.name}}
	return u.Set(patch)
}

func (t *Table) Delete() *Deleter[Row] {
	return &Deleter[Row]{core: t.core, q: query{collection: t.name}}
}
