/*
   Copyright 2025 The DIRPX Authors.

   Licensed under the Apache License, Version 2.0 (the "License");
   you may not use this file except in compliance with the License.
   You may obtain a copy of the License at

       http://www.apache.org/licenses/LICENSE-2.0

   Unless required by applicable law or agreed to in writing, software
   distributed under the License is distributed on an "AS IS" BASIS,
   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
   See the License for the specific language governing permissions and
   limitations under the License.
*/

package apis

import "reflect"

// Hook decides, during member collection, how every candidate member is
// dispatched.
type Hook interface {
	// ShouldIntercept returns the dispatch policy of m declared on source.
	// It must return a valid Policy; PolicyUnset fails generation.
	ShouldIntercept(source reflect.Type, m reflect.Method) Policy
	// NonProxyable is called for members that cannot be proxied (sealed or
	// inaccessible). They are skipped regardless of the hook's opinion.
	NonProxyable(source reflect.Type, m reflect.Method, reason error)
	// MethodsInspected is called once after every source was collected.
	MethodsInspected()
}

// Keyed lets a hook (or any shape-affecting option) provide its own cache
// identity. Two hooks with equal keys must make identical decisions.
type Keyed interface {
	CacheKey() string
}
