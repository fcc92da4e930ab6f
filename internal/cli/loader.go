package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/roach88/branchpoll/internal/compiler"
	"github.com/roach88/branchpoll/internal/ir"
)

// LoadMode controls how errors are handled during definition loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// LoadResult contains the polls loaded from a definitions directory.
type LoadResult struct {
	Polls     []ir.Poll
	FileCount int // Number of .cue, .yaml and .yml files found
}

// LoadError represents an error that occurred during definition loading.
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

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric      = "E001" // Generic/unknown error
	ErrCodeScanError    = "E002" // Directory scan error
	ErrCodeNoFiles      = "E003" // No definition files found
	ErrCodeLoadFailed   = "E004" // CUE load failed
	ErrCodeNotFound     = "E005" // Path not found
	ErrCodeBuildFailed  = "E006" // CUE build failed
	ErrCodeYAMLFailed   = "E007" // YAML decode failed
	ErrCodeDuplicate    = "E008" // Same poll id defined twice
	ErrCodeDatabase     = "E009" // Database open/read/write failed
	ErrCodeBadArgument  = "E010" // Malformed flag value (answers JSON, etc.)
	ErrCodeUnknownPoll  = "E011" // Poll not published
	ErrCodeTampered     = "E012" // Stored submission ids do not match content
	ErrCodeTestFailed   = "E013" // One or more scenarios failed
	ErrCodeInvalidPolls = "E014" // Definitions fail validation
)

// LoadPolls reads every poll definition in dir: the CUE package formed by
// the directory's .cue files, plus each .yaml/.yml file. Subdirectories are
// not read.
//
// If mode is LoadModeFailFast, returns on first error.
// If mode is LoadModeCollectAll, collects all errors.
// A nil result means the directory itself could not be used.
func LoadPolls(dir string, mode LoadMode) (*LoadResult, []error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("definitions directory not found: %s", dir)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing definitions directory: %v", err)}}
	}
	if !info.IsDir() {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}}
	}

	cueFiles, yamlFiles, err := FindPollFiles(dir)
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}}
	}
	if len(cueFiles)+len(yamlFiles) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no .cue or .yaml files found in %s", dir)}}
	}

	result := &LoadResult{FileCount: len(cueFiles) + len(yamlFiles)}
	var errs []error
	seen := make(map[string]string)

	add := func(p ir.Poll, source string) bool {
		if prev, dup := seen[p.ID]; dup {
			errs = append(errs, &LoadError{
				Code:    ErrCodeDuplicate,
				Message: fmt.Sprintf("poll %q defined in both %s and %s", p.ID, prev, source),
			})
			return mode == LoadModeCollectAll
		}
		seen[p.ID] = source
		result.Polls = append(result.Polls, p)
		return true
	}

	if len(cueFiles) > 0 {
		polls, cueErrs := loadCUEPackage(dir, mode)
		errs = append(errs, cueErrs...)
		if len(cueErrs) > 0 && mode == LoadModeFailFast {
			return result, errs
		}
		for _, p := range polls {
			if !add(p, "CUE package") {
				return result, errs
			}
		}
	}

	for _, path := range yamlFiles {
		data, err := os.ReadFile(path)
		if err != nil {
			errs = append(errs, &LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("reading %s: %v", path, err)})
			if mode == LoadModeFailFast {
				return result, errs
			}
			continue
		}
		polls, err := compiler.ParsePollYAML(data)
		if err != nil {
			errs = append(errs, &LoadError{Code: ErrCodeYAMLFailed, Message: fmt.Sprintf("%s: %v", filepath.Base(path), err)})
			if mode == LoadModeFailFast {
				return result, errs
			}
			continue
		}
		for _, p := range polls {
			if !add(p, filepath.Base(path)) {
				return result, errs
			}
		}
	}

	if len(result.Polls) == 0 && len(errs) == 0 {
		errs = append(errs, &LoadError{Code: ErrCodeGeneric, Message: "no polls found in definitions"})
	}

	return result, errs
}

// loadCUEPackage builds the CUE package in dir and compiles each field of
// its top-level poll struct.
func loadCUEPackage(dir string, mode LoadMode) ([]ir.Poll, []error) {
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

	pollsVal := value.LookupPath(cue.ParsePath("poll"))
	if !pollsVal.Exists() {
		return nil, nil
	}
	iter, err := pollsVal.Fields()
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("iterating polls: %v", err)}}
	}

	var polls []ir.Poll
	var errs []error
	for iter.Next() {
		p, err := compiler.CompilePoll(iter.Value())
		if err != nil {
			errs = append(errs, convertCompileError(err, "poll."+iter.Selector().String()))
			if mode == LoadModeFailFast {
				return polls, errs
			}
			continue
		}
		polls = append(polls, *p)
	}
	return polls, errs
}

// FindPollFiles lists the .cue and the .yaml/.yml files directly in dir,
// each sorted by name.
func FindPollFiles(dir string) (cueFiles, yamlFiles []string, err error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, err
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(dir, e.Name())
		switch filepath.Ext(e.Name()) {
		case ".cue":
			cueFiles = append(cueFiles, path)
		case ".yaml", ".yml":
			yamlFiles = append(yamlFiles, path)
		}
	}
	slices.Sort(cueFiles)
	slices.Sort(yamlFiles)
	return cueFiles, yamlFiles, nil
}

// convertCompileError converts a compiler error to a LoadError with position info.
func convertCompileError(err error, context string) *LoadError {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    ErrCodeBuildFailed,
			Message: fmt.Sprintf("%s: %s: %s", context, compileErr.Field, compileErr.Message),
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{
		Code:    ErrCodeGeneric,
		Message: fmt.Sprintf("%s: %v", context, err),
	}
}

// firstLoadError renders the first error of a failed load as (code, message).
func firstLoadError(errs []error) (string, string) {
	var loadErr *LoadError
	if errors.As(errs[0], &loadErr) {
		return loadErr.Code, loadErr.Message
	}
	return ErrCodeGeneric, errs[0].Error()
}
