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

import (
	"github.com/sirupsen/logrus"

	"github.com/pathql/pathql/ast"
	"github.com/pathql/pathql/ir"
	"github.com/pathql/pathql/schema"
)

// Location is which clause of a GraphQuery a subtree is being lowered
// under. The generator/selector distinction governs two separate
// decisions: whether merge_paths inlines a ref onto a Filter (only in
// the generator, §4.6) and whether a singleton Disjunction is promoted
// to a Conjunction by post-processing (the "generator role rule", §4.9
// and §8 invariant 5).
type Location int

const (
	LocationSelector Location = iota
	LocationGenerator
)

// Context carries everything the lowering and normalization passes need
// that isn't itself part of the GIR tree. Design notes §9 is explicit
// that this state "must be passed explicitly down the recursion, not
// via global state" - so Context is threaded as a plain argument (or
// receiver) through every pass, the same way the teacher threads
// *sql.Context through its analyzer rules, never a package-level var.
type Context struct {
	Schema        schema.Schema
	ModuleAliases map[string]string
	Logger        *logrus.Entry

	location Location

	// origins caches the root EntitySet for a given concept-or-anchor
	// name so that two independent top-level references to the same
	// path (e.g. `User` in both the generator and the selector) share
	// a single node, matching invariant 1 (identity of equal paths)
	// without needing a second, whole-tree unification sweep for the
	// common case. The links cache below does the equivalent for
	// outbound hops off an already-shared EntitySet.
	origins map[string]*ir.EntitySet

	// links caches outbound hops off a known source set so repeated
	// references to the same step (e.g. two selector items both
	// reading `.friend.name`) land on the same *ir.EntityLink/EntitySet
	// pair instead of building parallel, unmerged chains.
	links map[linkCacheKey]*ir.EntityLink

	// groupPrefixes holds the LinearPath keys named by the enclosing
	// GROUP BY, consulted by aggregate analysis (C10) to decide whether
	// a non-aggregated atomic reference outside an aggregate function
	// is actually legal (it is, if it names a group prefix).
	groupPrefixes map[string]bool
}

type linkCacheKey struct {
	source *ir.EntitySet
	label  string
	dir    ir.Direction
	target string
}

// NewContext returns a fresh lowering context for one GraphQuery.
func NewContext(sch schema.Schema, moduleAliases map[string]string) *Context {
	if moduleAliases == nil {
		moduleAliases = map[string]string{}
	}
	return &Context{
		Schema:        sch,
		ModuleAliases: moduleAliases,
		Logger:        logrus.WithField("component", "compiler"),
		origins:       map[string]*ir.EntitySet{},
		links:         map[linkCacheKey]*ir.EntityLink{},
		groupPrefixes: map[string]bool{},
	}
}

// withLocation returns a shallow copy of ctx entered into loc; the
// caches (origins, links) are shared by reference on purpose, since
// sharing is exactly what lets the same path resolve to the same node
// whether it's read from the generator or a selector item.
func (ctx *Context) withLocation(loc Location) *Context {
	cp := *ctx
	cp.location = loc
	return &cp
}

func (ctx *Context) InGenerator() bool { return ctx.location == LocationGenerator }

func toIRDirection(d ast.Direction) ir.Direction {
	if d == ast.Inbound {
		return ir.Inbound
	}
	return ir.Outbound
}
