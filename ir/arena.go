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

import uuid "github.com/satori/go.uuid"

// NewSyntheticAnchor returns a stable synthetic anchor id for an
// EntitySet the compiler introduces itself rather than one bound by the
// surface tree (e.g. an intermediate set produced while lowering a join,
// §4.7.2). It is only ever used as a PathIndex/Anchor key, never shown
// to the user, so a random v4 UUID is sufficient; it need not be
// reproducible across runs.
func NewSyntheticAnchor() string {
	return "$" + uuid.NewV4().String()
}
