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

package codegen_test

import (
	"context"
	"io"
	"reflect"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dirpx.dev/dpx/codegen"
)

type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Put(key, value string) error
	Len() int
	Keys(prefix string, limit ...int) []string
	Watch(ctx context.Context, every time.Duration) (<-chan string, error)
	Reset()
	Copy(dst io.Writer) (int64, error)
	Lookup(key string) (value string, ok bool, err error)
}

func golden(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir("testdata"),
		goldie.WithNameSuffix(".golden"),
	)
}

func TestRenderFromTypes(t *testing.T) {
	f, err := codegen.FromTypes("storeproxy", "", reflect.TypeFor[Store]())
	require.NoError(t, err)
	assert.Equal(t, []string{"context", "io", "time"}, f.Imports)

	src, err := codegen.Render(f)
	require.NoError(t, err)
	golden(t).Assert(t, "store_reflect", src)
}

func TestRenderFromSource(t *testing.T) {
	if testing.Short() {
		t.Skip("loads packages through the go command")
	}
	f, err := codegen.Load(context.Background(), codegen.LoadConfig{Dir: "testdata/store", Pattern: "."})
	require.NoError(t, err)
	require.Len(t, f.Interfaces, 2)
	assert.Equal(t, "store", f.Package)

	src, err := codegen.Render(f)
	require.NoError(t, err)
	golden(t).Assert(t, "store_source", src)

	_, err = codegen.Load(context.Background(), codegen.LoadConfig{Dir: "testdata/store", Pattern: ".", Names: []string{"Missing"}})
	assert.ErrorIs(t, err, codegen.ErrNotFound)
	_, err = codegen.Load(context.Background(), codegen.LoadConfig{Dir: "testdata/store", Pattern: ".", Names: []string{"Item"}})
	assert.ErrorIs(t, err, codegen.ErrNotInterface)
}

func TestQualifiedLocalTypes(t *testing.T) {
	type Local interface {
		Wrap(s Store) Store
	}
	local := reflect.TypeFor[Store]().PkgPath()

	f, err := codegen.FromTypes("codegen_test", local, reflect.TypeFor[Local]())
	require.NoError(t, err)
	require.Len(t, f.Interfaces[0].Methods, 1)
	m := f.Interfaces[0].Methods[0]
	assert.Equal(t, "Store", m.Params[0].Type)
	assert.Equal(t, "Store", m.Results[0].Type)

	f, err = codegen.FromTypes("other", "", reflect.TypeFor[Local]())
	require.NoError(t, err)
	assert.Equal(t, "codegen_test.Store", f.Interfaces[0].Methods[0].Params[0].Type)
	assert.Contains(t, f.Imports, local)
}

func TestMethodRendering(t *testing.T) {
	m := codegen.Method{
		Name:     "Send",
		Params:   []codegen.Param{{Name: "to", Type: "string"}, {Name: "body", Type: "[]byte"}},
		Results:  []codegen.Param{{Type: "error"}},
		Variadic: true,
	}
	assert.Equal(t, "to string, body ...byte", m.ParamList())
	assert.Equal(t, " error", m.ResultList())
	assert.Equal(t, []string{
		`_, err := w.px.Invoke(context.Background(), "Send", to, body)`,
		"return err",
	}, m.Body())
}

func TestNames(t *testing.T) {
	assert.Equal(t, "StoreProxy", codegen.WrapperName("store", ""))
	assert.Equal(t, "MyStoreFacade", codegen.WrapperName("myStore", "Facade"))
	assert.Equal(t, "mystore_dpx.go", codegen.FileName("MyStore"))
}

func TestErrors(t *testing.T) {
	_, err := codegen.FromTypes("p", "")
	assert.ErrorIs(t, err, codegen.ErrNoInterfaces)
	_, err = codegen.FromTypes("p", "", reflect.TypeFor[int]())
	assert.ErrorIs(t, err, codegen.ErrNotInterface)
	_, err = codegen.Render(&codegen.File{})
	assert.ErrorIs(t, err, codegen.ErrNoInterfaces)
	_, err = codegen.Render(&codegen.File{Interfaces: []codegen.Interface{{Name: "X"}}})
	assert.ErrorIs(t, err, codegen.ErrPackageName)
}
