package schema

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
)

// ErrNoDeclarations indicates a schema without classes or structs.
var ErrNoDeclarations = errors.New("schema: no classes or structs declared")

// LoadDir loads every CUE file of the package in dir.
func LoadDir(dir string) (*Schema, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("schema directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", dir)
	}

	files, err := FindCUEFiles(dir)
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", dir, err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no CUE files found in %s", dir)
	}

	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, fmt.Errorf("no CUE instances loaded from %s", dir)
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, formatCUEError(inst.Err)
	}
	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	return Compile(value)
}

// LoadFile loads a single CUE file.
func LoadFile(path string) (*Schema, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema: %w", err)
	}
	return LoadBytes(src, path)
}

// LoadBytes compiles CUE source. filename is used in error positions.
func LoadBytes(src []byte, filename string) (*Schema, error) {
	value := cuecontext.New().CompileBytes(src, cue.Filename(filename))
	if err := value.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	return Compile(value)
}

// Load loads a directory or a single file, depending on what path names.
func Load(path string) (*Schema, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("schema: %w", err)
	}
	if info.IsDir() {
		return LoadDir(path)
	}
	return LoadFile(path)
}

// Compile extracts the class: and struct: declarations of a root value.
func Compile(root cue.Value) (*Schema, error) {
	s := &Schema{}
	for _, group := range []struct {
		path    string
		isClass bool
		dst     *[]ClassSpec
	}{
		{"struct", false, &s.Structs},
		{"class", true, &s.Classes},
	} {
		val := root.LookupPath(cue.ParsePath(group.path))
		if !val.Exists() {
			continue
		}
		iter, err := val.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for iter.Next() {
			spec, err := compile(iter.Value(), !group.isClass)
			if err != nil {
				return nil, fmt.Errorf("%s.%s: %w", group.path, iter.Selector().Unquoted(), err)
			}
			*group.dst = append(*group.dst, *spec)
		}
	}
	if len(s.Classes) == 0 && len(s.Structs) == 0 {
		return nil, ErrNoDeclarations
	}
	sortSpecs(s.Structs)
	sortSpecs(s.Classes)
	return s, nil
}

// FindCUEFiles walks the directory and returns all .cue file paths.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}
