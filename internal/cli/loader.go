package cli

import (
	"errors"
	"fmt"
	"os"

	"cuelang.org/go/cue/token"

	"github.com/roach88/bundlecore/internal/bundle"
	"github.com/roach88/bundlecore/internal/compiler"
)

// Load error codes.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // CUE load or compile failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeCacheFailed = "E006" // Cache could not be opened or read
	ErrCodeRunFailed   = "E007" // Store failed while running
)

// LoadResult contains the bundles loaded from a directory.
type LoadResult struct {
	Declarations []*compiler.Declaration
	FileCount    int

	// Invalid holds cross-declaration validation failures. Specs must not
	// be built while it is non-empty.
	Invalid []compiler.ValidationError
}

// Specs returns the bundle specs in declaration order.
func (r *LoadResult) Specs() []bundle.Spec {
	return compiler.Specs(r.Declarations)
}

// LoadError represents an error that occurred during bundle loading.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadBundles compiles and validates the CUE bundles in dir. Compile
// failures are returned as a *LoadError; validation failures are reported
// on the result.
func LoadBundles(dir string) (*LoadResult, error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("bundles directory not found: %s", dir)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing bundles directory: %v", err)}
	}
	if !info.IsDir() {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}
	}

	files, err := compiler.FindCUEFiles(dir)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}
	}
	if len(files) == 0 {
		return nil, &LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}
	}

	decls, err := compiler.LoadDir(dir)
	if err != nil {
		return nil, convertCompileError(err)
	}

	return &LoadResult{
		Declarations: decls,
		FileCount:    len(files),
		Invalid:      compiler.Validate(decls),
	}, nil
}

// convertCompileError keeps the CUE position of compile errors.
func convertCompileError(err error) *LoadError {
	var ce *compiler.CompileError
	if errors.As(err, &ce) {
		return &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("%s: %s", ce.Field, ce.Message), Pos: ce.Pos}
	}
	return &LoadError{Code: ErrCodeLoadFailed, Message: err.Error()}
}

// loadValid loads bundles and turns load and validation failures into exit
// errors, for commands that need a runnable composition.
func loadValid(dir string, f *OutputFormatter) (*LoadResult, error) {
	res, err := LoadBundles(dir)
	if err != nil {
		var le *LoadError
		if errors.As(err, &le) {
			_ = f.Error(le.Code, le.Error(), nil)
		}
		return nil, WrapExitError(ExitCommandError, "failed to load bundles", err)
	}
	if len(res.Invalid) > 0 {
		first := res.Invalid[0]
		_ = f.Error(first.Code, first.Error(), res.Invalid)
		return nil, NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(res.Invalid)))
	}
	return res, nil
}
