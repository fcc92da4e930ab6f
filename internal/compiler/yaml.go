package compiler

import (
	"bytes"
	"fmt"

	"cuelang.org/go/cue/token"
	"gopkg.in/yaml.v3"

	"github.com/roach88/branchpoll/internal/ir"
)

// UnmarshalYAML accepts a bare string or a {id, text} mapping.
func (c *choiceDef) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		c.Text = node.Value
		return nil
	}
	type plain choiceDef
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	*c = choiceDef(p)
	return nil
}

// pollFile is a YAML definitions file: either one poll at the top level or
// a list under polls.
type pollFile struct {
	Polls []pollDef `yaml:"polls"`
}

// ParsePollYAML decodes poll definitions from YAML. The document is either a
// single poll or {polls: [...]}. As with CompilePoll, only decoding and
// defaults happen here; run Validate on the result.
func ParsePollYAML(data []byte) ([]ir.Poll, error) {
	var probe map[string]yaml.Node
	if err := yaml.Unmarshal(data, &probe); err != nil {
		return nil, yamlError(err)
	}

	var defs []pollDef
	if _, ok := probe["polls"]; ok {
		var file pollFile
		if err := decodeStrict(data, &file); err != nil {
			return nil, err
		}
		defs = file.Polls
	} else {
		var def pollDef
		if err := decodeStrict(data, &def); err != nil {
			return nil, err
		}
		defs = []pollDef{def}
	}

	polls := make([]ir.Poll, 0, len(defs))
	for i, def := range defs {
		if def.ID == "" {
			return nil, &CompileError{
				Field:   fmt.Sprintf("polls[%d].id", i),
				Message: "poll id is required in YAML definitions",
			}
		}
		poll, err := def.toPoll(token.NoPos)
		if err != nil {
			return nil, err
		}
		polls = append(polls, *poll)
	}
	return polls, nil
}

// ParsePollDefinition decodes exactly one poll in the authoring shape, as
// sent to the HTTP API. JSON input works since JSON is valid YAML. A missing
// id becomes defaultID. Run Validate on the result.
func ParsePollDefinition(data []byte, defaultID string) (ir.Poll, error) {
	var def pollDef
	if err := decodeStrict(data, &def); err != nil {
		return ir.Poll{}, err
	}
	if def.ID == "" {
		def.ID = defaultID
	}
	poll, err := def.toPoll(token.NoPos)
	if err != nil {
		return ir.Poll{}, err
	}
	return *poll, nil
}

func decodeStrict(data []byte, out any) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil {
		return yamlError(err)
	}
	return nil
}

func yamlError(err error) error {
	return &CompileError{Field: "yaml", Message: err.Error()}
}
