package installsys

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.starlark.net/starlark"
	"mvdan.cc/sh/v3/syntax"
)

// Step contains a single install command and the directory it runs in.
//
// A relative Dir is resolved against the directory the previous step ran in, so a plan
// moves through a checkout the same way a shell user would with cd. Exactly one of Cmd
// (a plain argument vector) and Script (a shell snippet) must be set.
type Step struct {
	Name   string
	Dir    string
	Cmd    []string
	Script string
	Env    map[string]string
}

// shellNodes converts the step's command into runnable shell syntax nodes.
func (s *Step) shellNodes(parser *syntax.Parser) ([]syntax.Node, error) {
	if len(s.Cmd) > 0 && s.Script != "" {
		return nil, eris.Errorf("step %s declares both cmd and script", s.Name)
	}

	if s.Script != "" {
		result, err := parser.Parse(strings.NewReader(s.Script), s.Name)
		if err != nil {
			return nil, eris.Wrapf(err, "failed to parse the script of step %s", s.Name)
		}

		nodes := make([]syntax.Node, len(result.Stmts))
		for idx, stmt := range result.Stmts {
			nodes[idx] = stmt
		}
		return nodes, nil
	}

	if len(s.Cmd) == 0 {
		return nil, eris.Errorf("step %s has no command", s.Name)
	}

	call, err := processCmdParts(s.Cmd, parser)
	if err != nil {
		return nil, eris.Wrapf(err, "failed to process the command of step %s", s.Name)
	}

	return []syntax.Node{call}, nil
}

// Summary returns a single line describing what the step executes, meant for listings.
func (s *Step) Summary() string {
	if len(s.Cmd) > 0 {
		return strings.Join(s.Cmd, " ")
	}

	line := strings.TrimSpace(s.Script)
	if idx := strings.IndexByte(line, '\n'); idx > -1 {
		line = strings.TrimSpace(line[:idx]) + " ..."
	}
	return line
}

// processCmdParts builds a shell call from an argument vector. Leading NAME=VALUE items
// become assignments for the call, everything else is passed through as a single word.
func processCmdParts(parts []string, parser *syntax.Parser) (*syntax.CallExpr, error) {
	envVars := make([]string, 0, len(parts))
	for _, part := range parts {
		if !strings.Contains(part, "=") {
			break
		}
		envVars = append(envVars, part)
	}

	var cmd *syntax.CallExpr
	if len(envVars) > 0 {
		joinedEnvVars := strings.Join(envVars, " ")
		result, err := parser.Parse(strings.NewReader(joinedEnvVars), "env vars")
		if err != nil {
			return nil, eris.Wrapf(err, "failed to parse command vars %s", joinedEnvVars)
		}

		if len(result.Stmts) != 1 || result.Stmts[0].Cmd == nil {
			return nil, eris.Errorf("malformed env vars %s", joinedEnvVars)
		}

		var ok bool
		cmd, ok = result.Stmts[0].Cmd.(*syntax.CallExpr)
		if !ok || cmd.Assigns == nil {
			return nil, eris.Errorf("malformed env vars %s", joinedEnvVars)
		}
	} else {
		cmd = new(syntax.CallExpr)
	}

	args := parts[len(envVars):]
	cmd.Args = make([]*syntax.Word, len(args))
	for a, arg := range args {
		var wordPart syntax.WordPart

		if strings.ContainsAny(arg, " $'") {
			node := new(syntax.SglQuoted)
			node.Left = syntax.Pos{}
			node.Right = syntax.Pos{}
			node.Value = arg

			wordPart = syntax.WordPart(node)
		} else {
			node := new(syntax.Lit)
			node.ValuePos = syntax.Pos{}
			node.ValueEnd = syntax.Pos{}
			node.Value = arg

			wordPart = syntax.WordPart(node)
		}

		cmd.Args[a] = new(syntax.Word)
		cmd.Args[a].Parts = []syntax.WordPart{wordPart}
	}

	return cmd, nil
}

// Plan is an ordered list of install steps, executed first to last.
type Plan struct {
	Name  string
	Desc  string
	Steps []*Step
}

// PlanList maps plan names to the declared plans
type PlanList map[string]*Plan

// Implement starlark.Value for *Step

// String returns a string representation of the step
func (s *Step) String() string {
	return fmt.Sprintf("<Step %s>", s.Name)
}

// Type always returns "step" to indicate this type
func (s *Step) Type() string {
	return "step"
}

// Freeze doesn't do anything since steps are immutable anyway
func (s *Step) Freeze() {}

// Truth always returns true since a step can't be nil or None
func (s *Step) Truth() starlark.Bool {
	return starlark.True
}

// Hash always returns an error since step is not a hashable type
func (s *Step) Hash() (uint32, error) {
	return 0, eris.New("step is not a hashable type")
}

// Implement starlark.Value for *Plan

// String returns a string representation of the plan
func (p *Plan) String() string {
	return fmt.Sprintf("<Plan %s: %s>", p.Name, p.Desc)
}

// Type always returns "plan" to indicate this type
func (p *Plan) Type() string {
	return "plan"
}

// Freeze doesn't do anything since plans are immutable anyway
func (p *Plan) Freeze() {}

// Truth always returns true since a plan can't be nil or None
func (p *Plan) Truth() starlark.Bool {
	return starlark.True
}

// Hash always returns an error since plan is not a hashable type
func (p *Plan) Hash() (uint32, error) {
	return 0, eris.New("plan is not a hashable type")
}
