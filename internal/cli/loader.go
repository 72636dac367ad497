package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/roach88/kinda/internal/class"
	"github.com/roach88/kinda/internal/compiler"
	"github.com/roach88/kinda/internal/event"
	"github.com/roach88/kinda/internal/ir"
)

// LoadMode controls how errors are handled during manifest loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// LoadResult contains the class specs loaded from a directory.
type LoadResult struct {
	Classes   []ir.ClassSpec
	CUEValue  cue.Value
	FileCount int
}

// LoadError represents an error that occurred during manifest loading.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadClasses loads the CUE package in dir and compiles every entry under
// its top-level "class" field.
func LoadClasses(dir string, mode LoadMode) (*LoadResult, []error) {
	var errs []error

	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("manifest directory not found: %s", dir)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing manifest directory: %v", err)}}
	}
	if !info.IsDir() {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}}
	}

	cueFiles, err := FindCUEFiles(dir)
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}}
	}
	if len(cueFiles) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}}
	}

	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}}
	}

	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, []error{&LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}}
	}

	result := &LoadResult{
		Classes:   []ir.ClassSpec{},
		CUEValue:  value,
		FileCount: len(cueFiles),
	}

	classVal := value.LookupPath(cue.ParsePath("class"))
	if classVal.Exists() {
		iter, iterErr := classVal.Fields()
		if iterErr != nil {
			return result, []error{&LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("iterating classes: %v", iterErr)}}
		}
		for iter.Next() {
			spec, compileErr := compiler.CompileClass(iter.Value())
			if compileErr != nil {
				errs = append(errs, convertCompileError(compileErr, "class."+iter.Label()))
				if mode == LoadModeFailFast {
					return result, errs
				}
				continue
			}
			result.Classes = append(result.Classes, *spec)
		}
	}

	if len(result.Classes) == 0 && len(errs) == 0 {
		errs = append(errs, &LoadError{Code: ErrCodeNoClasses, Message: "no classes found in manifests"})
	}

	return result, errs
}

// FindCUEFiles returns the .cue files directly in dir. Subdirectories are
// separate CUE packages and are not loaded.
func FindCUEFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".cue" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	return files, nil
}

// convertCompileError converts a compiler error to a LoadError with position info.
func convertCompileError(err error, context string) *LoadError {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    MapFieldToErrorCode(compileErr.Field),
			Message: fmt.Sprintf("%s: %s", context, compileErr.Message),
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{
		Code:    ErrCodeGeneric,
		Message: fmt.Sprintf("%s: %v", context, err),
	}
}

// defineClasses validates specs and defines them in a fresh registry.
// Validation failures are returned as a single error listing every problem.
func defineClasses(specs []ir.ClassSpec, logger *slog.Logger) (*class.Registry, []*class.Class, error) {
	if verrs := compiler.Validate(specs); len(verrs) > 0 {
		msgs := make([]string, len(verrs))
		for i, e := range verrs {
			msgs[i] = e.Error()
		}
		return nil, nil, &LoadError{Code: verrs[0].Code, Message: strings.Join(msgs, "; ")}
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	registry := class.NewRegistry(
		class.WithSession(event.NewSession(event.WithSessionLogger(logger))),
		class.WithLogger(logger),
	)
	classes, err := registry.Define(specs)
	if err != nil {
		return nil, nil, &LoadError{Code: ErrCodeDefineFailed, Message: err.Error()}
	}
	return registry, classes, nil
}

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric      = "E001" // Generic/unknown error
	ErrCodeScanError    = "E002" // Directory scan error
	ErrCodeNoFiles      = "E003" // No CUE files found
	ErrCodeLoadFailed   = "E004" // CUE load failed
	ErrCodeNotFound     = "E005" // Path not found
	ErrCodeBuildFailed  = "E006" // CUE build failed
	ErrCodeWriteFailed  = "E007" // File write error
	ErrCodeNoClasses    = "E008" // Manifest declares no classes
	ErrCodeDefineFailed = "E009" // Registry rejected the classes
	ErrCodeOpenFailed   = "E010" // Trace database could not be opened

	// Class field errors share the compiler's validation codes.
	ErrCodeInvalidValue = "E110" // values/statics entry is not a plain value
)

// MapFieldToErrorCode maps a compiler error field to an error code.
func MapFieldToErrorCode(field string) string {
	switch {
	case field == "name":
		return compiler.ErrClassNameInvalid
	case field == "version":
		return compiler.ErrInvalidVersion
	case field == "extends", field == "includes":
		return compiler.ErrInvalidReference
	case strings.HasPrefix(field, "values"), strings.HasPrefix(field, "statics"):
		return ErrCodeInvalidValue
	default:
		return ErrCodeGeneric
	}
}
