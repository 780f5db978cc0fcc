package installsys

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"
)

// Runner executes install plans step by step.
//
// The zero value runs plans relative to the current working directory and passes command
// output through to the process's own streams. Apart from the options below a Runner only
// tracks the directory the executed steps have moved it to; everything else lives in the
// shell interpreter of the step that's currently running.
type Runner struct {
	// Start is the directory the first step's Dir is resolved against. Defaults to the
	// current working directory.
	Start string

	// DryRun only logs the commands that would run instead of executing them. Directory
	// checks are skipped as well since earlier steps usually create the directories that
	// later steps run in.
	DryRun bool

	// Stdout and Stderr receive the output of the executed commands. Both default to the
	// process's own streams.
	Stdout io.Writer
	Stderr io.Writer

	dir string
}

// Dir returns the directory the most recent step ran in.
func (r *Runner) Dir() string {
	return r.dir
}

func stepEnv(step *Step) expand.Environ {
	envVars := os.Environ()

	for name, value := range step.Env {
		envVars = append(envVars, fmt.Sprintf("%s=%s", name, value))
	}

	return expand.ListEnviron(envVars...)
}

func resolveDir(current, dir string) string {
	if dir == "" {
		return current
	}

	if filepath.IsAbs(dir) {
		return filepath.Clean(dir)
	}

	return filepath.Join(current, dir)
}

// Run executes the plan's steps in order and stops at the first failure.
//
// Each step's directory is resolved against the directory left behind by the step before
// it (Start for the first step). The returned error is a *DirError if a step's directory
// is missing and a *StepError if the step itself failed; ExitCode translates both into
// process exit codes. A plan without steps succeeds without touching anything.
func (r *Runner) Run(ctx context.Context, plan *Plan) error {
	start := r.Start
	if start == "" {
		start = "."
	}

	start, err := filepath.Abs(start)
	if err != nil {
		return eris.Wrapf(err, "failed to resolve the start directory %s", r.Start)
	}
	r.dir = start

	parser := syntax.NewParser()
	printer := syntax.NewPrinter(
		syntax.Minify(true),
	)

	for _, step := range plan.Steps {
		if err := ctx.Err(); err != nil {
			return err
		}

		dir := resolveDir(r.dir, step.Dir)
		if !r.DryRun {
			info, err := os.Stat(dir)
			if err != nil {
				return &DirError{Plan: plan.Name, Step: step.Name, Dir: dir, Err: err}
			}
			if !info.IsDir() {
				return &DirError{Plan: plan.Name, Step: step.Name, Dir: dir, Err: eris.New("not a directory")}
			}
		}

		r.dir = dir
		err := r.runStep(ctx, plan, step, dir, parser, printer)
		if err != nil {
			return err
		}
	}

	log(ctx).Debug().
		Str("plan", plan.Name).
		Msgf("finished in %s", r.dir)
	return nil
}

func (r *Runner) runStep(ctx context.Context, plan *Plan, step *Step, dir string, parser *syntax.Parser, printer *syntax.Printer) error {
	nodes, err := step.shellNodes(parser)
	if err != nil {
		return &StepError{Plan: plan.Name, Step: step.Name, Dir: dir, Code: RunnerFailureCode, Err: err}
	}

	var runner *interp.Runner
	if !r.DryRun {
		stdout := r.Stdout
		if stdout == nil {
			stdout = os.Stdout
		}
		stderr := r.Stderr
		if stderr == nil {
			stderr = os.Stderr
		}

		runner, err = interp.New(
			interp.Dir(dir),
			interp.Env(stepEnv(step)),
			interp.StdIO(nil, stdout, stderr),
			interp.Params("-e"),
		)
		if err != nil {
			return &StepError{
				Plan: plan.Name,
				Step: step.Name,
				Dir:  dir,
				Code: RunnerFailureCode,
				Err:  eris.Wrap(err, "failed to initialize the shell runtime"),
			}
		}
	}

	strBuffer := strings.Builder{}
	for _, node := range nodes {
		strBuffer.Reset()
		printer.Print(&strBuffer, node)
		log(ctx).Info().
			Str("plan", plan.Name).
			Str("step", step.Name).
			Bool("command", true).
			Msg(strBuffer.String())

		if r.DryRun {
			continue
		}

		err = runner.Run(ctx, node)
		if err != nil {
			if status, ok := interp.IsExitStatus(err); ok {
				return &StepError{Plan: plan.Name, Step: step.Name, Dir: dir, Code: int(status)}
			}

			return &StepError{Plan: plan.Name, Step: step.Name, Dir: dir, Code: RunnerFailureCode, Err: err}
		}

		if runner.Exited() {
			break
		}

		if err = ctx.Err(); err != nil {
			return err
		}
	}

	return nil
}
