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

// Resolver turns interceptor references into live interceptors.
// Typical chain: Instance -> Func -> Registry -> Type -> Callback.
type Resolver interface {
	// Resolve resolves a single reference. Failures are *ResolutionError.
	Resolve(ref any) (Interceptor, error)
	// ResolveAll resolves refs in order and stops at the first failure.
	ResolveAll(refs ...any) ([]Interceptor, error)
}
