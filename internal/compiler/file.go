package compiler

import (
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/branchpoll/internal/ir"
)

// CompileCUE compiles every poll declared under the top-level poll field of
// a CUE value, in label order:
//
//	poll: car: { title: "Cars", questions: [...] }
func CompileCUE(v cue.Value) ([]ir.Poll, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	pollsVal := v.LookupPath(cue.ParsePath("poll"))
	if !pollsVal.Exists() {
		return []ir.Poll{}, nil
	}
	iter, err := pollsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var polls []ir.Poll
	for iter.Next() {
		p, err := CompilePoll(iter.Value())
		if err != nil {
			return nil, fmt.Errorf("poll.%s: %w", selectorName(iter.Selector()), err)
		}
		polls = append(polls, *p)
	}
	return polls, nil
}

// LoadFile reads poll definitions from a single .cue, .yaml or .yml file.
func LoadFile(path string) ([]ir.Poll, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	switch filepath.Ext(path) {
	case ".cue":
		v := cuecontext.New().CompileBytes(data, cue.Filename(path))
		return CompileCUE(v)
	case ".yaml", ".yml":
		return ParsePollYAML(data)
	default:
		return nil, fmt.Errorf("%s: unsupported definition file type", path)
	}
}
