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

package invocation

import "dirpx.dev/dpx/apis"

// StandardInterceptor is a template for interceptors that run code around
// the rest of the chain. Nil hooks are skipped; a nil PerformProceed
// proceeds.
type StandardInterceptor struct {
	// PreProceed runs first. An error stops the call.
	PreProceed func(inv apis.Invocation) error
	// PerformProceed replaces the call to inv.Proceed.
	PerformProceed func(inv apis.Invocation) error
	// PostProceed runs last with the error of PerformProceed and returns
	// the error of the call.
	PostProceed func(inv apis.Invocation, err error) error
}

var _ apis.Interceptor = StandardInterceptor{}

// Intercept implements apis.Interceptor.
func (s StandardInterceptor) Intercept(inv apis.Invocation) error {
	if s.PreProceed != nil {
		if err := s.PreProceed(inv); err != nil {
			return err
		}
	}
	var err error
	if s.PerformProceed != nil {
		err = s.PerformProceed(inv)
	} else {
		err = inv.Proceed()
	}
	if s.PostProceed != nil {
		return s.PostProceed(inv, err)
	}
	return err
}
