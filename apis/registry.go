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

// Factory produces a live interceptor for a registry entry.
type Factory func() (Interceptor, error)

// Singleton returns a Factory that always yields ic.
func Singleton(ic Interceptor) Factory {
	return func() (Interceptor, error) { return ic, nil }
}

// Registry maps stable interceptor names to factories. Collaborators that
// name interceptors indirectly (configuration files, serialized proxies)
// resolve them through a Registry.
type Registry interface {
	// Register associates name with f. Re-registering a name fails.
	Register(name string, f Factory) error
	// Lookup returns the factory registered under name.
	Lookup(name string) (f Factory, ok bool)
	// Entries returns a snapshot for diagnostics/docs (order is unspecified).
	Entries() []Entry
	// Count returns the number of registered entries.
	Count() int
	// Reset clears all registered entries.
	Reset()
}

// Entry is a single (name, factory) association in a Registry snapshot.
type Entry struct {
	// Name is the registered name.
	Name string
	// Factory builds the interceptor.
	Factory Factory
}
