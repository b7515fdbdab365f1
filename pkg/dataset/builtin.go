package dataset

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
)

//go:embed builtin/*.yaml
var builtinFS embed.FS

// Builtins returns the names of the datasets shipped with the binary, sorted.
func Builtins() []string {
	entries, err := fs.ReadDir(builtinFS, "builtin")
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), path.Ext(e.Name())))
	}
	sort.Strings(names)
	return names
}

// Builtin loads a dataset shipped with the binary by name.
func Builtin(name string, opts ...Option) (Batch, error) {
	data, err := builtinFS.ReadFile(path.Join("builtin", name+".yaml"))
	if err != nil {
		return Batch{}, fmt.Errorf("unknown built-in dataset %q (have %s)", name, strings.Join(Builtins(), ", "))
	}
	return Load(name, bytes.NewReader(data), opts...)
}
