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

// Package compiler is the tree-to-graph lowering and algebraic
// normalization pipeline: expression merging (C8), binary-op lowering
// (C9), aggregate analysis (C10) and post-processing (C11), wired
// together behind the external entry points of spec.md §6 (Transform,
// NormalizeRefs, ExtractPaths, GetNodeReferences, GetExprType).
package compiler

import "gopkg.in/src-d/go-errors.v1"

// Error kinds (§7). Each is parametrized with the offending node/path
// name where possible, following the teacher's errors.v1 convention
// (see auth/auth.go: `errors.NewKind("...")` then `.New(args...)`).
var (
	// ErrReference is raised when a name cannot be resolved, or an
	// AtomicRefExpr evaluates to a non-local atom in a context that
	// demands one.
	ErrReference = errors.NewKind("could not resolve reference %q")

	// ErrTree is raised for structural violations: aggregate-mix,
	// unexpected node shape, or an unreachable dispatch branch reached.
	// ProcessBinOp's "try forward, then try swapped" retry does not use
	// this kind: it signals with its own internal sentinel
	// (errNoShapeMatched in binop.go), which callers never see.
	ErrTree = errors.NewKind("tree error at %s: %s")

	// ErrSearchConfiguration is raised when a SEARCH predicate or
	// search.* function call is applied to a concept with no
	// searchable links declared in the schema.
	ErrSearchConfiguration = errors.NewKind("concept %q has no searchable links configured for full-text search")
)
