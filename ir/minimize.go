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

import "github.com/sirupsen/logrus"

// linkVariables collects the distinct *EntityLink operands appearing
// across a set of Conjunctions, ordered by first appearance (§4.5: "an
// ordered set of variables (distinct links, ordered by first
// appearance)").
func linkVariables(conjunctions []*Conjunction) []*EntityLink {
	var vars []*EntityLink
	seen := map[*EntityLink]bool{}
	for _, conj := range conjunctions {
		for _, c := range conj.Children() {
			if l, ok := c.(*EntityLink); ok && !seen[l] {
				seen[l] = true
				vars = append(vars, l)
			}
		}
	}
	return vars
}

// minterm returns the bitmask of vars present in conj.
func minterm(conj *Conjunction, vars []*EntityLink) int {
	mask := 0
	for _, c := range conj.Children() {
		l, ok := c.(*EntityLink)
		if !ok {
			continue
		}
		for i, v := range vars {
			if v == l {
				mask |= 1 << uint(i)
			}
		}
	}
	return mask
}

// MinimizeLinkDisjunction applies Quine-McCluskey-style minimization to
// a Disjunction all of whose members are Conjunctions of *EntityLink
// (§4.5). It is invoked only by IntersectDisjunctions after unrolling a
// cartesian product, which is where redundant terms concentrate.
//
// Each resulting prime-implicant term of >=2 literals becomes a
// Conjunction; singleton terms remain bare *EntityLink nodes.
func MinimizeLinkDisjunction(d *Disjunction) *Disjunction {
	var conjunctions []*Conjunction
	var bare []Node
	for _, c := range d.Children() {
		switch t := c.(type) {
		case *Conjunction:
			conjunctions = append(conjunctions, t)
		default:
			bare = append(bare, c)
		}
	}
	if len(conjunctions) == 0 {
		return d
	}
	vars := linkVariables(conjunctions)
	if len(vars) == 0 || len(vars) > 20 {
		// Too large (or degenerate) to minimize cheaply; leave as-is.
		return d
	}
	minterms := make([]int, 0, len(conjunctions))
	seen := map[int]bool{}
	for _, conj := range conjunctions {
		m := minterm(conj, vars)
		if !seen[m] {
			seen[m] = true
			minterms = append(minterms, m)
		}
	}
	terms := quineMcCluskey(minterms, len(vars))
	members := append([]Node{}, bare...)
	for _, term := range terms {
		members = append(members, termToNode(term, vars))
	}
	logrus.WithFields(logrus.Fields{
		"minterms_in": len(conjunctions),
		"terms_out":   len(terms),
		"variables":   len(vars),
	}).Trace("boolean minimization applied")
	return NewDisjunction(members...)
}

// qmTerm is a Quine-McCluskey implicant: bits holds a 0/1 per position,
// mask marks which bit positions have been eliminated ("don't care").
type qmTerm struct {
	bits, mask int
}

func (t qmTerm) covers(m int) bool {
	return m&^t.mask == t.bits&^t.mask
}

func (t qmTerm) combine(o qmTerm) (qmTerm, bool) {
	if t.mask != o.mask {
		return qmTerm{}, false
	}
	diff := (t.bits ^ o.bits) &^ t.mask
	if popcount(diff) != 1 {
		return qmTerm{}, false
	}
	return qmTerm{bits: t.bits &^ diff, mask: t.mask | diff}, true
}

func popcount(x int) int {
	n := 0
	for x != 0 {
		n += x & 1
		x >>= 1
	}
	return n
}

// quineMcCluskey returns the minimal set of prime implicants covering
// every minterm in ms over nvars boolean variables.
func quineMcCluskey(ms []int, nvars int) []qmTerm {
	terms := make([]qmTerm, len(ms))
	for i, m := range ms {
		terms[i] = qmTerm{bits: m, mask: 0}
	}

	var primes []qmTerm
	for len(terms) > 0 {
		combined := map[qmTerm]bool{}
		used := map[int]bool{}
		for i := 0; i < len(terms); i++ {
			for j := i + 1; j < len(terms); j++ {
				if merged, ok := terms[i].combine(terms[j]); ok {
					combined[merged] = true
					used[i] = true
					used[j] = true
				}
			}
		}
		for i, t := range terms {
			if !used[i] {
				primes = append(primes, t)
			}
		}
		if len(combined) == 0 {
			break
		}
		terms = terms[:0]
		for t := range combined {
			terms = append(terms, t)
		}
	}

	// Deduplicate prime implicants, then greedily select a cover: for
	// each minterm pick the first prime (by widest mask, i.e. fewest
	// literals) that still covers it. A full Petrick's-method essential/
	// cyclic-cover solver is unnecessary here: link-conjunction
	// disjunctions arising from a cartesian-product unroll (§4.5) are
	// small, and a greedy cover is sufficient and deterministic given a
	// fixed prime order.
	uniquePrimes := dedupeTerms(primes)
	sortByMaskWidth(uniquePrimes)

	covered := map[int]bool{}
	var selected []qmTerm
	for _, m := range ms {
		if covered[m] {
			continue
		}
		for _, p := range uniquePrimes {
			if p.covers(m) {
				selected = append(selected, p)
				for _, m2 := range ms {
					if p.covers(m2) {
						covered[m2] = true
					}
				}
				break
			}
		}
	}
	return dedupeTerms(selected)
}

func dedupeTerms(ts []qmTerm) []qmTerm {
	seen := map[qmTerm]bool{}
	var out []qmTerm
	for _, t := range ts {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}

func sortByMaskWidth(ts []qmTerm) {
	for i := 1; i < len(ts); i++ {
		for j := i; j > 0 && popcount(ts[j-1].mask) < popcount(ts[j].mask); j-- {
			ts[j-1], ts[j] = ts[j], ts[j-1]
		}
	}
}

func termToNode(t qmTerm, vars []*EntityLink) Node {
	var members []Node
	for i, v := range vars {
		bit := 1 << uint(i)
		if t.mask&bit != 0 {
			continue // eliminated variable: don't-care
		}
		if t.bits&bit != 0 {
			members = append(members, v)
		}
	}
	if len(members) == 1 {
		return members[0]
	}
	return NewConjunction(members...)
}

// IntersectDisjunctions unrolls the cartesian product of two
// Disjunctions of link conjunctions, e.g. (a∨b) ∧ (c∨d) -> ac∨ad∨bc∨bd,
// then minimizes the result (§4.5). This is the only call site that
// invokes boolean minimization, since this is where redundancy
// concentrates.
func IntersectDisjunctions(a, b *Disjunction, mergeFilters bool) *Disjunction {
	var members []Node
	for _, x := range a.Children() {
		for _, y := range b.Children() {
			members = append(members, IntersectPaths(x, y, mergeFilters))
		}
	}
	result := Flatten(NewDisjunction(members...), true)
	d, ok := result.(*Disjunction)
	if !ok {
		d = NewDisjunction(result)
	}
	return MinimizeLinkDisjunction(d)
}
