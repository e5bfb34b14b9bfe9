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

// Diagnostics is implemented by every proxy instance. The composer adds its
// members to every generated type as forwarding members, so tooling can
// reach them by name as well.
type Diagnostics interface {
	// ProxyTarget returns the current backing target, or nil for
	// target-omitted proxies.
	ProxyTarget() any
	// ProxyInterceptors returns a copy of the proxy's interceptors.
	ProxyInterceptors() []Interceptor
}

// StateExporter is added to generated types that support serialization.
// ProxyState returns the proxy's reconstruction state as JSON.
type StateExporter interface {
	ProxyState() ([]byte, error)
}
