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

// Package apis holds the narrow contracts shared by every dpx layer:
// interceptors and invocations, generation hooks and selectors, the
// interceptor registry/resolver pair, configuration and typed errors.
//
// Nothing in this package depends on another dpx package, so any layer
// (collectors, contributors, the composer, the runtime) can import it.
package apis
