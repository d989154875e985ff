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

package ir

import "github.com/pathql/pathql/schema"

// Node is any GIR node. Dispatch is by type switch throughout ir and
// compiler, the same "tagged-union sum type, no inheritance" shape the
// teacher uses for sql.Expression/sql.Node (see design notes §9: dynamic
// dispatch on ~20 variants is a visitor switch, not an OO hierarchy).
//
// Unlike the design notes' suggestion of an arena of nodes addressed by
// indices (aimed at languages without tracing GC), this implementation
// uses ordinary pointers for forward AND back edges: Go's garbage
// collector already handles the reference cycles (EntitySet.rlink <->
// EntityLink.source/target), so an index-based arena would only add
// indirection with no benefit here.
type Node interface {
	irNode()
}

// PathCombination is the common shape of Conjunction and Disjunction: an
// unordered, de-duplicated set of child GIR expressions composed under
// AND resp. OR semantics (§3.2).
type PathCombination interface {
	Node
	Children() []Node
	SetChildren([]Node)
}

// EntitySet is a node standing for a set of entities of some concept
// (§3.2).
type EntitySet struct {
	Concept schema.Concept
	ID      LinearPath
	Anchor  string // optional named binding, "" if none

	Filter        Node // boolean expression predicate over this set
	ConceptFilter []schema.Concept

	Conjunction *Conjunction // required outgoing paths
	Disjunction *Disjunction // optional outgoing paths

	AtomRefs []*AtomicRefSimple
	MetaRefs []*MetaRef

	Users []string // tags identifying which higher-level contexts reference this node

	Joins    []*EntitySet
	Backrefs []*EntitySet

	RLink *EntityLink // incoming link edge, if any
}

func (*EntitySet) irNode() {}

// EntityLink is a directed edge between two entity sets (§3.2).
type EntityLink struct {
	SourceSet *EntitySet
	TargetSet *EntitySet
	LinkProto schema.LinkProto

	Filter     LinkFilter
	PropFilter Node // predicate over link properties

	PropRefs []*LinkPropRefSimple
	Users    []string
	Anchor   string
}

func (*EntityLink) irNode() {}

// LinkFilter carries the labels and direction an EntityLink was reached
// through (§3.2's EntityLink.filter).
type LinkFilter struct {
	Labels    []string
	Direction Direction
}

func (a LinkFilter) Equal(b LinkFilter) bool {
	if a.Direction != b.Direction || len(a.Labels) != len(b.Labels) {
		return false
	}
	for i := range a.Labels {
		if a.Labels[i] != b.Labels[i] {
			return false
		}
	}
	return true
}

// Conjunction is a PathCombination composed under AND.
type Conjunction struct {
	members []Node
}

func NewConjunction(members ...Node) *Conjunction { return &Conjunction{members: members} }
func (c *Conjunction) irNode()                    {}
func (c *Conjunction) Children() []Node           { return c.members }
func (c *Conjunction) SetChildren(n []Node)       { c.members = n }
func (c *Conjunction) Empty() bool                { return c == nil || len(c.members) == 0 }

// Disjunction is a PathCombination composed under OR.
type Disjunction struct {
	members []Node
}

func NewDisjunction(members ...Node) *Disjunction { return &Disjunction{members: members} }
func (d *Disjunction) irNode()                    {}
func (d *Disjunction) Children() []Node           { return d.members }
func (d *Disjunction) SetChildren(n []Node)       { d.members = n }
func (d *Disjunction) Empty() bool                { return d == nil || len(d.members) == 0 }

// AtomicRefSimple is a reference to an atomic attribute of an EntitySet
// by name.
type AtomicRefSimple struct {
	Name string
	Ref  Node // *EntitySet, or *Disjunction of *EntitySet once ambiguous (§4.3)
}

func (*AtomicRefSimple) irNode() {}

// AtomicRefExpr is an expression whose net value is atomic, lifted onto
// an EntitySet's filter by merge_paths (§4.6) or produced directly by
// process_binop (§4.7).
type AtomicRefExpr struct {
	Expr Node
	Ref  *EntitySet
}

func (*AtomicRefExpr) irNode() {}

// MetaRef is a reference to a meta-attribute (e.g. id, the concept-type
// marker) of an EntitySet.
type MetaRef struct {
	Name string
	Ref  Node
}

func (*MetaRef) irNode() {}

// LinkPropRefSimple is a reference to a link property by name.
type LinkPropRefSimple struct {
	Name string
	Ref  *EntityLink
}

func (*LinkPropRefSimple) irNode() {}

// LinkPropRefExpr is analogous to AtomicRefExpr, for link properties.
type LinkPropRefExpr struct {
	Expr Node
	Ref  *EntityLink
}

func (*LinkPropRefExpr) irNode() {}

// InlineFilter is a predicate lifted onto an EntitySet's Filter slot,
// with a back-pointer to the EntitySet whose Filter holds it (§3.2).
type InlineFilter struct {
	Owner *EntitySet
}

func (*InlineFilter) irNode() {}

// InlinePropFilter is the EntityLink analogue of InlineFilter.
type InlinePropFilter struct {
	Owner *EntityLink
}

func (*InlinePropFilter) irNode() {}

// BinOp is a binary operator application over two GIR subexpressions.
type BinOp struct {
	Left, Right Node
	Op          schema.Op
	Aggregates  bool
}

func (*BinOp) irNode() {}

// UnaryOp is a unary operator application.
type UnaryOp struct {
	Operand    Node
	Op         schema.Op
	Aggregates bool
}

func (*UnaryOp) irNode() {}

// NoneTest is an `IS [NOT] NONE` test.
type NoneTest struct {
	Operand Node
	Negated bool
}

func (*NoneTest) irNode() {}

// TypeCast casts Operand to Type.
type TypeCast struct {
	Operand Node
	Type    string
}

func (*TypeCast) irNode() {}

// Constant is a literal scalar or scalar-array value.
type Constant struct {
	Value interface{}
	Type  string
}

func (*Constant) irNode() {}

// Sequence is a heterogeneous ordered tuple; positional order is
// significant and preserved (§3.2, §5 "Ordering").
type Sequence struct {
	Elements   []Node
	Aggregates bool
}

func (*Sequence) irNode() {}

// Record is a named tuple keyed to a concept's link names.
type Record struct {
	Concept    schema.Concept
	Fields     []RecordField
	Aggregates bool
}

func (*Record) irNode() {}

// RecordField is one named slot of a Record.
type RecordField struct {
	Name  string
	Value Node
}

// FunctionCall is a named call with ordered arguments; Aggregates is set
// iff any argument is aggregated, or the function itself is in the
// `agg.*` namespace (§4.8).
type FunctionCall struct {
	Name       string
	Args       []Node
	Aggregates bool
}

func (*FunctionCall) irNode() {}

// GraphExpr is a top-level subquery with an optional generator (WHERE
// predicate tree) and ordered selector/grouper/sorter lists (§3.2).
// Subqueries are deliberately opaque to prefix extraction (§4.2).
type GraphExpr struct {
	Generator Node
	Selector  []Node
	Grouper   []Node
	Sorter    []SortTerm
}

func (*GraphExpr) irNode() {}

// SortTerm is one ORDER BY term of a GraphExpr.
type SortTerm struct {
	Expr       Node
	Descending bool
}
