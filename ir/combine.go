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

import (
	"github.com/pathql/pathql/schema"
	"github.com/sirupsen/logrus"
)

// identity extracts the canonical (id, anchor) pair match_prefixes
// compares (§4.4): an EntitySet's own id/anchor, or, for an EntityLink,
// its resolved target's id/anchor when the link has a target, else an
// id synthesized by extending the source's id with this link's own
// step (the "link with null target" case of §4.4).
func identity(n Node) (id LinearPath, anchor string, ok bool) {
	switch t := n.(type) {
	case *EntitySet:
		return t.ID, t.Anchor, true
	case *EntityLink:
		if t.TargetSet != nil {
			return t.TargetSet.ID, t.TargetSet.Anchor, true
		}
		if t.SourceSet != nil {
			return t.SourceSet.ID.Add(t.Filter.Direction, "", t.Filter.Labels...), "", true
		}
	}
	return LinearPath{}, "", false
}

func filterEmpty(n Node) bool { return n == nil }

// MatchPrefixes reports whether A and B can be unified and, if so,
// returns the reusable canonical node: B, the right operand, preferred
// as canonical per §4.4. Unless ignoreFilters, both sides must also
// have equal (empty, per invariant 3.3(5)) filters and conjunctions and
// equal concept filters; if A or B is a link, their link filters (label
// set + direction) must match too.
func MatchPrefixes(a, b Node, ignoreFilters bool) (Node, bool) {
	idA, anchorA, okA := identity(a)
	idB, anchorB, okB := identity(b)
	if !okA || !okB {
		return nil, false
	}
	if anchorA != anchorB {
		return nil, false
	}
	if !idA.CompatiblePrefix(idB) {
		return nil, false
	}
	if !ignoreFilters {
		esA, aIsSet := a.(*EntitySet)
		esB, bIsSet := b.(*EntitySet)
		if aIsSet && bIsSet {
			if !filterEmpty(esA.Filter) || !filterEmpty(esB.Filter) {
				return nil, false
			}
			if !esA.Conjunction.Empty() || !esB.Conjunction.Empty() {
				return nil, false
			}
			if len(esA.ConceptFilter) != len(esB.ConceptFilter) {
				return nil, false
			}
			names := map[string]bool{}
			for _, c := range esA.ConceptFilter {
				names[c.QualName()] = true
			}
			for _, c := range esB.ConceptFilter {
				if !names[c.QualName()] {
					return nil, false
				}
			}
		}
		linkA, aIsLink := a.(*EntityLink)
		linkB, bIsLink := b.(*EntityLink)
		if aIsLink && bIsLink && !linkA.Filter.Equal(linkB.Filter) {
			return nil, false
		}
	}
	return b, true
}

// AddSets is the scalar additive merge (§4.4 add_sets): if MatchPrefixes
// succeeds, the discarded operand's back-edges are rewired onto the
// canonical node, filters combine under AND iff mergeFilters, and the
// reference sets (atomrefs/metarefs/proprefs/users/joins/conceptfilter)
// union. If no match, the combination stays a Disjunction({A, B}).
func AddSets(a, b Node, mergeFilters bool) Node {
	canonical, ok := MatchPrefixes(a, b, false)
	if !ok {
		return NewDisjunction(a, b)
	}
	discarded := a
	if canonical == a {
		discarded = b
	}
	mergeEntityNodes(canonical, discarded, mergeFilters, true)
	return canonical
}

// IntersectSets is the scalar multiplicative merge (§4.4 intersect_sets):
// symmetric to AddSets but always ANDs filters and intersect-merges the
// conjunction subtrees. The disjunction subtrees are merged additively,
// exactly as in AddSets; they are not intersected. A disjunction left
// with a single member afterwards is collapsed back into the surviving
// node's conjunction.
func IntersectSets(a, b Node, mergeFilters bool) Node {
	canonical, ok := MatchPrefixes(a, b, true)
	if !ok {
		return NewConjunction(a, b)
	}
	discarded := a
	if canonical == a {
		discarded = b
	}
	mergeEntityNodes(canonical, discarded, true, false)
	if es, isSet := canonical.(*EntitySet); isSet {
		collapseSingletonDisjunction(es)
	}
	return canonical
}

func mergeEntityNodes(canonical, discarded Node, mergeFilters, additive bool) {
	cSet, cIsSet := canonical.(*EntitySet)
	dSet, dIsSet := discarded.(*EntitySet)
	if cIsSet && dIsSet {
		mergeEntitySets(cSet, dSet, mergeFilters, additive)
		return
	}
	cLink, cIsLink := canonical.(*EntityLink)
	dLink, dIsLink := discarded.(*EntityLink)
	if cIsLink && dIsLink {
		mergeEntityLinks(cLink, dLink, mergeFilters, additive)
	}
}

func mergeEntitySets(canonical, discarded *EntitySet, mergeFilters, additive bool) {
	FixupRefs(canonical, []Node{discarded}, canonical)
	for _, disjMember := range discardedCombination(discarded.Disjunction) {
		FixupRefs(disjMember, []Node{discarded}, canonical)
	}

	if mergeFilters {
		canonical.Filter = andNodes(canonical.Filter, discarded.Filter)
	}
	canonical.ConceptFilter = unionConcepts(canonical.ConceptFilter, discarded.ConceptFilter)

	for _, ref := range discarded.AtomRefs {
		ref.Ref = canonical
		RegisterAtomRef(canonical, ref)
	}
	for _, ref := range discarded.MetaRefs {
		ref.Ref = canonical
		RegisterMetaRef(canonical, ref)
	}
	canonical.Users = unionStrings(canonical.Users, discarded.Users)
	canonical.Joins = unionEntitySets(canonical.Joins, discarded.Joins)
	canonical.Backrefs = unionEntitySets(canonical.Backrefs, discarded.Backrefs)

	canonical.Disjunction = mergeDisjunctions(canonical.Disjunction, discarded.Disjunction)
	if mergeFilters {
		canonical.Conjunction = mergeConjunctions(canonical.Conjunction, discarded.Conjunction)
		reconcileConjunctionDisjunction(canonical)
	}
}

func mergeEntityLinks(canonical, discarded *EntityLink, mergeFilters, additive bool) {
	FixupRefs(canonical, []Node{discarded}, canonical)
	if mergeFilters {
		canonical.PropFilter = andNodes(canonical.PropFilter, discarded.PropFilter)
	}
	for _, ref := range discarded.PropRefs {
		ref.Ref = canonical
		RegisterPropRef(canonical, ref)
	}
	canonical.Users = unionStrings(canonical.Users, discarded.Users)
	if canonical.TargetSet != nil && discarded.TargetSet != nil && canonical.TargetSet != discarded.TargetSet {
		mergeEntitySets(canonical.TargetSet, discarded.TargetSet, mergeFilters, additive)
	}
}

// discardedCombination returns a Disjunction's members as a flat slice,
// tolerating a nil receiver (an EntitySet with no disjunction).
func discardedCombination(d *Disjunction) []Node {
	if d.Empty() {
		return nil
	}
	return d.Children()
}

func mergeDisjunctions(canonical, discarded *Disjunction) *Disjunction {
	if discarded.Empty() {
		if canonical == nil {
			return NewDisjunction()
		}
		return canonical
	}
	if canonical.Empty() {
		return discarded
	}
	merged := Flatten(AddPaths(canonical, discarded, false), true)
	if pc, ok := merged.(*Disjunction); ok {
		return pc
	}
	return NewDisjunction(merged)
}

func mergeConjunctions(canonical, discarded *Conjunction) *Conjunction {
	if discarded.Empty() {
		if canonical == nil {
			return NewConjunction()
		}
		return canonical
	}
	if canonical.Empty() {
		return discarded
	}
	merged := Flatten(IntersectPaths(canonical, discarded, true), true)
	if pc, ok := merged.(*Conjunction); ok {
		return pc
	}
	return NewConjunction(merged)
}

// reconcileConjunctionDisjunction implements the "any path that appears
// on both sides moves from disjunction to conjunction" rule of §4.4's
// add_sets, applied after an additive merge with merge_filters set.
func reconcileConjunctionDisjunction(es *EntitySet) {
	if es.Conjunction == nil || es.Disjunction == nil {
		return
	}
	conjKeys := map[string]bool{}
	for _, c := range es.Conjunction.Children() {
		if id, anchor, ok := identity(c); ok {
			conjKeys[KeyFor(id, anchor)] = true
		}
	}
	var kept []Node
	for _, d := range es.Disjunction.Children() {
		if id, anchor, ok := identity(d); ok && conjKeys[KeyFor(id, anchor)] {
			continue // already required via conjunction
		}
		kept = append(kept, d)
	}
	es.Disjunction.SetChildren(kept)
}

// collapseSingletonDisjunction folds a singleton disjunction back into
// the owning node's conjunction, the collapse intersect_sets performs
// after recursively intersecting disjunction subtrees (§4.4).
func collapseSingletonDisjunction(es *EntitySet) {
	if es.Disjunction == nil || len(es.Disjunction.Children()) != 1 {
		return
	}
	only := es.Disjunction.Children()[0]
	es.Disjunction.SetChildren(nil)
	if es.Conjunction == nil {
		es.Conjunction = NewConjunction(only)
		return
	}
	es.Conjunction.SetChildren(append(es.Conjunction.Children(), only))
}

func andNodes(a, b Node) Node {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return &BinOp{Left: a, Right: b, Op: "AND"}
}

func unionStrings(a, b []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(a)+len(b))
	for _, s := range a {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	for _, s := range b {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

func unionEntitySets(a, b []*EntitySet) []*EntitySet {
	out := make([]*EntitySet, 0, len(a)+len(b))
	out = append(out, a...)
	for _, s := range b {
		dup := false
		for _, existing := range a {
			if existing == s {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, s)
		}
	}
	return out
}

func unionConcepts(a, b []schema.Concept) []schema.Concept {
	if len(b) == 0 {
		return a
	}
	seen := map[string]bool{}
	out := make([]schema.Concept, 0, len(a)+len(b))
	for _, c := range a {
		if !seen[c.QualName()] {
			seen[c.QualName()] = true
			out = append(out, c)
		}
	}
	for _, c := range b {
		if !seen[c.QualName()] {
			seen[c.QualName()] = true
			out = append(out, c)
		}
	}
	return out
}

func isScalar(n Node) bool {
	switch n.(type) {
	case *EntitySet, *EntityLink:
		return true
	}
	return false
}

// AddPaths is the disjunctive composition of two GIR expressions (§4.4):
// dispatches to AddSets when both operands are scalar (EntitySet or
// EntityLink). Otherwise it builds a Disjunction, unwrapping an operand
// that is itself a Disjunction (same-kind nesting, invariant 3.3(7)) and
// keeping a Conjunction operand as one unit — the 4x4 dispatch table of
// §4.4 collapsed to "scalar+scalar merges, anything else just joins".
func AddPaths(l, r Node, mergeFilters bool) Node {
	if l == nil {
		return r
	}
	if r == nil {
		return l
	}
	if isScalar(l) && isScalar(r) {
		return AddSets(l, r, mergeFilters)
	}
	var members []Node
	if ld, ok := l.(*Disjunction); ok {
		members = append(members, ld.Children()...)
	} else {
		members = append(members, l)
	}
	if rd, ok := r.(*Disjunction); ok {
		members = append(members, rd.Children()...)
	} else {
		members = append(members, r)
	}
	return Flatten(NewDisjunction(members...), false)
}

// IntersectPaths is the conjunctive composition of two GIR expressions
// (§4.4): the Conjunction analogue of AddPaths.
func IntersectPaths(l, r Node, mergeFilters bool) Node {
	if l == nil {
		return r
	}
	if r == nil {
		return l
	}
	if isScalar(l) && isScalar(r) {
		return IntersectSets(l, r, mergeFilters)
	}
	var members []Node
	if lc, ok := l.(*Conjunction); ok {
		members = append(members, lc.Children()...)
	} else {
		members = append(members, l)
	}
	if rc, ok := r.(*Conjunction); ok {
		members = append(members, rc.Children()...)
	} else {
		members = append(members, r)
	}
	return Flatten(NewConjunction(members...), false)
}

// Flatten strips same-kind nesting (a Disjunction of Disjunctions
// becomes one Disjunction; likewise Conjunction of Conjunctions),
// restoring canonicality (invariant 3.3(7)) after every binary
// combination. When recursive is true, children are flattened first.
func Flatten(expr Node, recursive bool) Node {
	pc, ok := expr.(PathCombination)
	if !ok {
		return expr
	}
	_, isDisj := expr.(*Disjunction)
	var out []Node
	for _, c := range pc.Children() {
		if recursive {
			c = Flatten(c, true)
		}
		if childPC, ok := c.(PathCombination); ok {
			_, childIsDisj := c.(*Disjunction)
			if childIsDisj == isDisj {
				out = append(out, dedupeAppend(out, childPC.Children())...)
				continue
			}
		}
		out = append(out, dedupeAppend(out, []Node{c})...)
	}
	pc.SetChildren(out)
	return expr
}

func dedupeAppend(existing []Node, add []Node) []Node {
	out := existing
	for _, n := range add {
		dup := false
		for _, e := range existing {
			if e == n {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, n)
		}
	}
	return out[len(existing):]
}

// CombinationMode selects which operator UnifyPaths reduces a path set
// with.
type CombinationMode int

const (
	ModeDisjunction CombinationMode = iota
	ModeConjunction
)

// UnifyPaths reduces paths pairwise with AddPaths (ModeDisjunction) or
// IntersectPaths (ModeConjunction). Per §4.4/§8 invariant 2, the result
// does not depend on the input order: AddPaths/IntersectPaths always
// merge symmetrically (both operands' reference sets fully union
// regardless of which is picked canonical), so draining the set in any
// order converges to the same structural shape. reverse walks the
// reduction right-to-left instead of left-to-right; it never changes
// the result, only the order MatchPrefixes sees operands in.
func UnifyPaths(paths []Node, mode CombinationMode, reverse bool, mergeFilters bool) Node {
	if len(paths) == 0 {
		return nil
	}
	ordered := make([]Node, len(paths))
	copy(ordered, paths)
	if reverse {
		for i, j := 0, len(ordered)-1; i < j; i, j = i+1, j-1 {
			ordered[i], ordered[j] = ordered[j], ordered[i]
		}
	}
	acc := ordered[0]
	for _, p := range ordered[1:] {
		if mode == ModeConjunction {
			acc = IntersectPaths(acc, p, mergeFilters)
		} else {
			acc = AddPaths(acc, p, mergeFilters)
		}
	}
	logrus.WithField("count", len(paths)).Trace("unify_paths complete")
	return acc
}
