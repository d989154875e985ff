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

package compiler

import "github.com/pathql/pathql/ir"

// PostProcess is C11, applied to the generator tree only: the
// "generator role rule" promotes an EntitySet whose Conjunction is
// empty and whose Disjunction holds exactly one member into one whose
// single outgoing link is required (moved into the Conjunction, leaving
// the Disjunction empty), since a generator predicate that names a link
// at all means that link must be present, not merely an option (§3.3
// invariant 4, §8 invariant 5). Selector/grouper/sorter trees keep an
// unreachable link truly optional and are never passed through
// PostProcess.
func (ctx *Context) PostProcess(n ir.Node) {
	visited := map[ir.Node]bool{}
	var walk func(ir.Node)
	walk = func(n ir.Node) {
		if n == nil || visited[n] {
			return
		}
		visited[n] = true
		switch t := n.(type) {
		case *ir.EntitySet:
			if t.Conjunction.Empty() && t.Disjunction != nil && len(t.Disjunction.Children()) == 1 {
				t.Conjunction = ir.NewConjunction(t.Disjunction.Children()[0])
				t.Disjunction = ir.NewDisjunction()
			}
			if t.Filter != nil {
				walk(t.Filter)
			}
			if t.Conjunction != nil {
				for _, c := range t.Conjunction.Children() {
					walk(c)
				}
			}
			if t.Disjunction != nil {
				for _, c := range t.Disjunction.Children() {
					walk(c)
				}
			}
		case *ir.EntityLink:
			walk(t.TargetSet)
			if t.PropFilter != nil {
				walk(t.PropFilter)
			}
		case *ir.Conjunction:
			for _, c := range t.Children() {
				walk(c)
			}
		case *ir.Disjunction:
			for _, c := range t.Children() {
				walk(c)
			}
		case *ir.BinOp:
			walk(t.Left)
			walk(t.Right)
		case *ir.UnaryOp:
			walk(t.Operand)
		case *ir.NoneTest:
			walk(t.Operand)
		case *ir.TypeCast:
			walk(t.Operand)
		case *ir.AtomicRefExpr:
			walk(t.Expr)
		case *ir.LinkPropRefExpr:
			walk(t.Expr)
		case *ir.InlineFilter:
			walk(t.Owner)
		case *ir.InlinePropFilter:
			walk(t.Owner)
		case *ir.Sequence:
			for _, e := range t.Elements {
				walk(e)
			}
		case *ir.Record:
			for _, f := range t.Fields {
				walk(f.Value)
			}
		case *ir.FunctionCall:
			for _, a := range t.Args {
				walk(a)
			}
		}
	}
	walk(n)
}
