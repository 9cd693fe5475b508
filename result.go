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

// Result 是所有终结方法的统一返回值。
// 出错的时候 Data 不会携带任何数据：多行查询是空切片，单行查询是 nil。
type Result[T any] struct {
	data T
	err  error
}

func (r Result[T]) Data() T {
	return r.data
}

func (r Result[T]) Err() error {
	return r.err
}

// Unwrap returns data and error in the usual Go order.
func (r Result[T]) Unwrap() (T, error) {
	return r.data, r.err
}
