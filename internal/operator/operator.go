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

package operator

// Op pairs the operator used on the wire (col=eq.v) with the SQL
// text the in-process backend translates it into.
type Op struct {
	Symbol string
	Text   string
}

var (
	OpEQ    = Op{Symbol: "eq", Text: " = "}
	OpNEQ   = Op{Symbol: "neq", Text: " <> "}
	OpGT    = Op{Symbol: "gt", Text: " > "}
	OpGTEQ  = Op{Symbol: "gte", Text: " >= "}
	OpLT    = Op{Symbol: "lt", Text: " < "}
	OpLTEQ  = Op{Symbol: "lte", Text: " <= "}
	OpLike  = Op{Symbol: "like", Text: " LIKE "}
	OpILike = Op{Symbol: "ilike", Text: " LIKE "}
	OpIs    = Op{Symbol: "is", Text: " IS "}
	OpIn    = Op{Symbol: "in", Text: " IN "}
)

var bySymbol = map[string]Op{
	OpEQ.Symbol:    OpEQ,
	OpNEQ.Symbol:   OpNEQ,
	OpGT.Symbol:    OpGT,
	OpGTEQ.Symbol:  OpGTEQ,
	OpLT.Symbol:    OpLT,
	OpLTEQ.Symbol:  OpLTEQ,
	OpLike.Symbol:  OpLike,
	OpILike.Symbol: OpILike,
	OpIs.Symbol:    OpIs,
	OpIn.Symbol:    OpIn,
}

// Of looks an operator up by its wire symbol.
func Of(symbol string) (Op, bool) {
	op, ok := bySymbol[symbol]
	return op, ok
}
