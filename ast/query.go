// Copyright 2020-2021 Dolthub, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ast

// SortDirection is the ordering direction of a Sort clause.
type SortDirection int

const (
	Asc SortDirection = iota
	Desc
)

// Sort is one ORDER BY term.
type Sort struct {
	Expr      Node
	Direction SortDirection
}

// Grouping is one GROUP BY term.
type Grouping struct {
	Expr Node
}

// GraphQuery is the top-level surface node: a subquery with an optional
// generator (WHERE-equivalent predicate tree) and ordered selector,
// grouper and sorter lists (§3.2's GraphExpr, at the surface level).
type GraphQuery struct {
	// Subject is the path/expression being selected from (e.g. `User`).
	Subject Node
	// Generator is the WHERE-clause predicate tree, or nil.
	Generator Node
	Selector  []Node
	Grouper   []Grouping
	Sorter    []Sort
}

func (*GraphQuery) astNode() {}
