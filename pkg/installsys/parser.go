package installsys

import (
	"context"
	"fmt"
	"os"
	"runtime"

	"github.com/aidarkhanov/nanoid"
	"github.com/rotisserie/eris"
	"go.starlark.net/starlark"
)

type parserCtx struct {
	ctx      context.Context
	filepath string
	plans    []*Plan
}

// * Helpers

func getCtx(thread *starlark.Thread) *parserCtx {
	return thread.Local("parserCtx").(*parserCtx)
}

type starlarkIterable interface {
	Len() int
	Iterate() starlark.Iterator
}

func starlarkIterable2stringSlice(input starlarkIterable, field string) ([]string, error) {
	if value, ok := input.(*starlark.List); ok && value == nil {
		return []string{}, nil
	}

	result := make([]string, 0, input.Len())
	iter := input.Iterate()
	defer iter.Done()

	var item starlark.Value
	for iter.Next(&item) {
		switch value := item.(type) {
		case starlark.String:
			result = append(result, value.GoString())
		default:
			return nil, eris.Errorf("expected all items in %s to be strings but found %s", field, item.Type())
		}
	}
	return result, nil
}

func info(thread *starlark.Thread, msg string, args ...interface{}) {
	ctx := getCtx(thread)
	pos := thread.CallFrame(1).Pos

	log(ctx.ctx).Info().
		Msgf("%s:%d:%d: %s", ctx.filepath, pos.Line, pos.Col, fmt.Sprintf(msg, args...))
}

func warn(thread *starlark.Thread, msg string, args ...interface{}) {
	ctx := getCtx(thread)
	pos := thread.CallFrame(1).Pos

	log(ctx.ctx).Warn().
		Msgf("%s:%d:%d: %s", ctx.filepath, pos.Line, pos.Col, fmt.Sprintf(msg, args...))
}

// * Builtin functions

func starInfo(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var message string

	err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 1, &message)
	if err != nil {
		return nil, err
	}

	info(thread, message)
	return starlark.None, nil
}

func starWarn(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var message string

	err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 1, &message)
	if err != nil {
		return nil, err
	}

	warn(thread, message)
	return starlark.None, nil
}

func starError(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var message string

	err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 1, &message)
	if err != nil {
		return nil, err
	}

	return nil, eris.New(message)
}

func getenv(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var key string

	err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 1, &key)
	if err != nil {
		return nil, err
	}

	return starlark.String(os.Getenv(key)), nil
}

func step(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var cmd *starlark.List
	var env *starlark.Dict

	step := new(Step)

	err := starlark.UnpackArgs(fn.Name(), args, kwargs, "name?", &step.Name, "dir?", &step.Dir,
		"cmd?", &cmd, "script?", &step.Script, "env?", &env)
	if err != nil {
		return nil, err
	}

	if step.Name == "" {
		step.Name = "auto#" + nanoid.New()
	}

	if cmd != nil && step.Script != "" {
		return nil, eris.Errorf("step %s declares both cmd and script", step.Name)
	}
	if cmd == nil && step.Script == "" {
		return nil, eris.Errorf("step %s declares neither cmd nor script", step.Name)
	}

	if cmd != nil {
		step.Cmd, err = starlarkIterable2stringSlice(cmd, "cmd")
		if err != nil {
			return nil, err
		}

		if len(step.Cmd) == 0 {
			return nil, eris.Errorf("step %s has an empty cmd list", step.Name)
		}
	}

	step.Env = map[string]string{}

	if env != nil {
		for _, rawKey := range env.Keys() {
			var key string

			switch value := rawKey.(type) {
			case starlark.String:
				key = value.GoString()
			default:
				return nil, eris.Errorf("found key type %s in env map but only strings are supported", rawKey.Type())
			}

			rawValue, _, err := env.Get(rawKey)
			if err != nil {
				return nil, err
			}
			switch value := rawValue.(type) {
			case starlark.String:
				step.Env[key] = value.GoString()
			default:
				return nil, eris.Errorf("found value of type %s for key %s but only strings are supported", rawValue.Type(), key)
			}
		}
	}

	return step, nil
}

func plan(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var steps *starlark.List

	plan := new(Plan)

	err := starlark.UnpackArgs(fn.Name(), args, kwargs, "name", &plan.Name, "desc?", &plan.Desc, "steps?", &steps)
	if err != nil {
		return nil, err
	}

	if plan.Name == "" {
		return nil, eris.New("plans need a name")
	}

	if steps != nil {
		iter := steps.Iterate()
		defer iter.Done()

		var item starlark.Value
		for iter.Next(&item) {
			switch value := item.(type) {
			case *Step:
				plan.Steps = append(plan.Steps, value)
			default:
				return nil, eris.Errorf("%s: unexpected type %s, only step() values are valid", fn.Name(), item.Type())
			}
		}
	}

	ctx := getCtx(thread)
	ctx.plans = append(ctx.plans, plan)
	return plan, nil
}

// ParsePlanFile executes a Starlark plan file and returns the plans it declared.
//
// Plan files see the builtins step() and plan() next to a few helpers (info, warn, error,
// getenv) and the constants OS and ARCH. Declaring two plans with the same name is an
// error.
func ParsePlanFile(ctx context.Context, filename string) (PlanList, error) {
	builtins := starlark.StringDict{
		"OS":     starlark.String(runtime.GOOS),
		"ARCH":   starlark.String(runtime.GOARCH),
		"info":   starlark.NewBuiltin("info", starInfo),
		"warn":   starlark.NewBuiltin("warn", starWarn),
		"error":  starlark.NewBuiltin("error", starError),
		"getenv": starlark.NewBuiltin("getenv", getenv),
		"step":   starlark.NewBuiltin("step", step),
		"plan":   starlark.NewBuiltin("plan", plan),
	}

	thread := &starlark.Thread{
		Name: "main",
		Print: func(thread *starlark.Thread, msg string) {
			log(ctx).Info().Str("thread", thread.Name).Msg(msg)
		},
	}
	threadCtx := parserCtx{
		ctx:      ctx,
		filepath: filename,
		plans:    make([]*Plan, 0),
	}
	thread.SetLocal("parserCtx", &threadCtx)

	script, err := os.ReadFile(filename)
	if err != nil {
		return nil, eris.Wrapf(err, "failed to read %s", filename)
	}

	_, err = starlark.ExecFile(thread, filename, script, builtins)
	if err != nil {
		if evalError, ok := err.(*starlark.EvalError); ok {
			return nil, eris.Errorf("failed to execute %s:\n%s", filename, evalError.Backtrace())
		}
		return nil, eris.Wrapf(err, "failed to execute %s", filename)
	}

	plans := PlanList{}
	for _, item := range threadCtx.plans {
		_, present := plans[item.Name]
		if present {
			return nil, eris.Errorf("%s declares plan %s more than once", filename, item.Name)
		}
		plans[item.Name] = item
	}

	return plans, nil
}
