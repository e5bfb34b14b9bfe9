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

package strategy

import (
	"fmt"
	"reflect"
	"sync"

	"dirpx.dev/dpx/apis"
)

// NewTypeStrategy creates an apis.Strategy that instantiates interceptor
// types given as reflect.Type.
func NewTypeStrategy() apis.Strategy {
	return typeStrategy{}
}

// typeStrategy allocates a zero value of the referenced type. For a
// pointer type *T it allocates a new T and uses its address; for a value
// type T whose pointer implements apis.Interceptor it does the same.
type typeStrategy struct{}

// Ensure typeStrategy implements apis.Strategy.
var _ apis.Strategy = (*typeStrategy)(nil)

type plan struct {
	elem reflect.Type
	addr bool
	ok   bool
}

var (
	interceptorType = reflect.TypeFor[apis.Interceptor]()
	// plans caches the instantiation plan per type.
	plans sync.Map // key: reflect.Type, val: plan
)

// TryResolve handles reflect.Type references.
func (typeStrategy) TryResolve(ref any) (apis.Interceptor, bool, error) {
	t, ok := ref.(reflect.Type)
	if !ok || t == nil {
		return nil, false, nil
	}
	p := planFor(t)
	if !p.ok {
		return nil, true, fmt.Errorf("%w: %v", apis.ErrNotInterceptor, t)
	}
	v := reflect.New(p.elem)
	if !p.addr {
		v = v.Elem()
	}
	return v.Interface().(apis.Interceptor), true, nil
}

func planFor(t reflect.Type) plan {
	if v, ok := plans.Load(t); ok {
		return v.(plan)
	}
	var p plan
	switch {
	case t.Kind() == reflect.Interface:
	case t.Kind() == reflect.Pointer && t.Implements(interceptorType):
		p = plan{elem: t.Elem(), addr: true, ok: true}
	case t.Kind() != reflect.Pointer && t.Implements(interceptorType):
		p = plan{elem: t, ok: true}
	case t.Kind() != reflect.Pointer && reflect.PointerTo(t).Implements(interceptorType):
		p = plan{elem: t, addr: true, ok: true}
	}
	plans.Store(t, p)
	return p
}
