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

// Visitor is returned by itself to continue descending into a node's
// children, or nil to stop. This mirrors the teacher's sql/transform
// Visitor (see sql/transform/walk_test.go): Walk(v, n) calls v.Visit(n);
// if the result is non-nil, Walk recurses into n's children with that
// visitor, then calls Visit(nil) to signal "no more children".
type Visitor interface {
	Visit(Node) Visitor
}

type visitorFunc func(Node) Visitor

func (f visitorFunc) Visit(n Node) Visitor { return f(n) }

// Walk traverses the GIR rooted at n in a fixed but otherwise irrelevant
// child order (PathCombination children are a set; any deterministic
// order is fine since nothing depends on it). Constant and GraphExpr's
// nested subqueries are NOT descended into transparently as "just
// another node": GraphExpr is only entered via its own case below and
// its Selector/Grouper/Sorter are real children, matching §4.2's
// statement that subqueries are deliberately opaque to *prefix*
// extraction specifically, not to Walk in general. Each node is visited
// at most once per Walk, so the GIR's back-edges (a link's source, a
// set's rlink) do not make the traversal loop.
func Walk(v Visitor, n Node) {
	seen := map[Node]bool{}
	var walk func(v Visitor, n Node)
	walk = func(v Visitor, n Node) {
		if v == nil || n == nil || seen[n] {
			return
		}
		seen[n] = true
		v = v.Visit(n)
		if v == nil {
			return
		}
		for _, child := range children(n) {
			walk(v, child)
		}
		v.Visit(nil)
	}
	walk(v, n)
}

// Inspect is Walk with a plain predicate: return false from f to stop
// descending into that node's children.
func Inspect(n Node, f func(Node) bool) {
	var v visitorFunc
	v = func(n Node) Visitor {
		if n == nil || !f(n) {
			return nil
		}
		return v
	}
	Walk(v, n)
}

// children returns the direct GIR children of n, in the order the
// spec's §4.2 walk describes: rlink.source, operator subexpressions,
// function arguments, sequences/records, and atomic-ref targets.
func children(n Node) []Node {
	switch t := n.(type) {
	case *EntitySet:
		var out []Node
		if t.RLink != nil {
			out = append(out, t.RLink)
		}
		if t.Filter != nil {
			out = append(out, t.Filter)
		}
		if t.Conjunction != nil {
			out = append(out, t.Conjunction)
		}
		if t.Disjunction != nil {
			out = append(out, t.Disjunction)
		}
		return out
	case *EntityLink:
		var out []Node
		if t.SourceSet != nil {
			out = append(out, t.SourceSet)
		}
		if t.TargetSet != nil {
			out = append(out, t.TargetSet)
		}
		if t.PropFilter != nil {
			out = append(out, t.PropFilter)
		}
		return out
	case *Conjunction:
		return t.Children()
	case *Disjunction:
		return t.Children()
	case *AtomicRefSimple:
		if t.Ref != nil {
			return []Node{t.Ref}
		}
	case *AtomicRefExpr:
		out := []Node{t.Expr}
		if t.Ref != nil {
			out = append(out, t.Ref)
		}
		return out
	case *MetaRef:
		if t.Ref != nil {
			return []Node{t.Ref}
		}
	case *LinkPropRefSimple:
		if t.Ref != nil {
			return []Node{t.Ref}
		}
	case *LinkPropRefExpr:
		out := []Node{t.Expr}
		if t.Ref != nil {
			out = append(out, t.Ref)
		}
		return out
	case *InlineFilter:
		if t.Owner != nil {
			return []Node{t.Owner}
		}
	case *InlinePropFilter:
		if t.Owner != nil {
			return []Node{t.Owner}
		}
	case *BinOp:
		return []Node{t.Left, t.Right}
	case *UnaryOp:
		return []Node{t.Operand}
	case *NoneTest:
		return []Node{t.Operand}
	case *TypeCast:
		return []Node{t.Operand}
	case *Sequence:
		return t.Elements
	case *Record:
		out := make([]Node, len(t.Fields))
		for i, f := range t.Fields {
			out[i] = f.Value
		}
		return out
	case *FunctionCall:
		return t.Args
	case *GraphExpr:
		var out []Node
		if t.Generator != nil {
			out = append(out, t.Generator)
		}
		out = append(out, t.Selector...)
		out = append(out, t.Grouper...)
		for _, s := range t.Sorter {
			out = append(out, s.Expr)
		}
		return out
	case *Constant:
		return nil
	}
	return nil
}

// ExtractPrefixes recursively descends expr (C4) and, for each EntitySet
// or AtomicRefSimple found, inserts it into index under the key
// `anchor or id` (KeyFor), unioning under that key (§4.2's "Update
// semantics"). Constant and GraphExpr are terminal: GraphExpr is not
// descended into because subqueries are deliberately opaque to prefix
// extraction, even though Walk (above) does descend into a literal
// GraphExpr's own selector/generator when asked directly.
func ExtractPrefixes(expr Node, index *PathIndex) {
	extractPrefixes(expr, index, true)
}

func extractPrefixes(expr Node, index *PathIndex, topLevel bool) {
	if expr == nil {
		return
	}
	switch t := expr.(type) {
	case *Constant:
		return
	case *GraphExpr:
		if !topLevel {
			return // opaque subquery boundary
		}
		if t.Generator != nil {
			extractPrefixes(t.Generator, index, false)
		}
		for _, s := range t.Selector {
			extractPrefixes(s, index, false)
		}
		for _, g := range t.Grouper {
			extractPrefixes(g, index, false)
		}
		for _, s := range t.Sorter {
			extractPrefixes(s.Expr, index, false)
		}
		return
	case *EntitySet:
		key := KeyFor(t.ID, t.Anchor)
		if containsNode(index.Get(key), t) {
			return // already extracted; links make the GIR cyclic
		}
		index.Update(key, t)
		if t.RLink != nil && t.RLink.SourceSet != nil {
			extractPrefixes(t.RLink.SourceSet, index, false)
		}
		if t.Filter != nil {
			extractPrefixes(t.Filter, index, false)
		}
		if t.Conjunction != nil {
			extractPrefixes(t.Conjunction, index, false)
		}
		if t.Disjunction != nil {
			extractPrefixes(t.Disjunction, index, false)
		}
		return
	case *EntityLink:
		if t.SourceSet != nil {
			extractPrefixes(t.SourceSet, index, false)
		}
		if t.TargetSet != nil {
			extractPrefixes(t.TargetSet, index, false)
		}
		if t.PropFilter != nil {
			extractPrefixes(t.PropFilter, index, false)
		}
		return
	case *AtomicRefSimple:
		if t.Ref != nil {
			key := refKey(t.Ref)
			if key != "" {
				index.Update(key, t)
			}
			extractPrefixes(t.Ref, index, false)
		}
		return
	}
	for _, c := range children(expr) {
		extractPrefixes(c, index, false)
	}
}

// refKey returns the index key an AtomicRef's target should be filed
// under: the target EntitySet's own key, or "" if the target is
// something else (e.g. a Disjunction of entity sets, already ambiguous).
func refKey(ref Node) string {
	if es, ok := ref.(*EntitySet); ok {
		return KeyFor(es.ID, es.Anchor)
	}
	return ""
}
