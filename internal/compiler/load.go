package compiler

import (
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"

	"github.com/roach88/bundlecore/internal/bundle"
)

// LoadDir loads the CUE package in dir and compiles every declaration under
// bundle, in name order.
func LoadDir(dir string) ([]*Declaration, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, &CompileError{Field: "load", Message: fmt.Sprintf("bundles directory: %v", err)}
	}
	if !info.IsDir() {
		return nil, &CompileError{Field: "load", Message: fmt.Sprintf("not a directory: %s", dir)}
	}

	files, err := FindCUEFiles(dir)
	if err != nil {
		return nil, &CompileError{Field: "load", Message: fmt.Sprintf("error scanning directory: %v", err)}
	}
	if len(files) == 0 {
		return nil, &CompileError{Field: "load", Message: fmt.Sprintf("no CUE files found in %s", dir)}
	}

	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, &CompileError{Field: "load", Message: "no CUE instances loaded"}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, formatCUEError(inst.Err)
	}

	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	return compileAll(value)
}

// LoadString compiles declarations from CUE source.
func LoadString(src, filename string) ([]*Declaration, error) {
	value := cuecontext.New().CompileString(src, cue.Filename(filename))
	if err := value.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	return compileAll(value)
}

func compileAll(value cue.Value) ([]*Declaration, error) {
	var decls []*Declaration
	err := fields(value, "bundle", func(_ string, bv cue.Value) error {
		d, err := CompileBundle(bv)
		if err != nil {
			return err
		}
		decls = append(decls, d)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(decls) == 0 {
		return nil, &CompileError{Field: "bundle", Message: "no bundle declarations found", Pos: value.Pos()}
	}
	return decls, nil
}

// Specs returns the bundle spec of every declaration.
func Specs(decls []*Declaration) []bundle.Spec {
	out := make([]bundle.Spec, len(decls))
	for i, d := range decls {
		out[i] = d.Spec()
	}
	return out
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
