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

package store

import (
	"context"
	"io"
	"time"
)

type Item struct {
	Key   string
	Value string
}

type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Put(key, value string) error
	Scan(prefix string, fn func(Item) bool) (n int, err error)
	Items(limit ...int) []*Item
	Copy(w io.Writer) (int64, error)
	Watch(ctx context.Context, every time.Duration) (<-chan Item, error)
	Close()
}

type Sizer interface {
	Len() int
}

type hidden interface {
	touch()
}
