// Package engine evaluates scene scripts. A scene script is a zygomys Lisp
// program, run in a sandbox, that builds an oriented point cloud from
// reference clouds or sampled implicit solids and names the ball radius to
// reconstruct it with.
package engine

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"

	zygo "github.com/glycerine/zygomys/zygo"

	"github.com/chazu/ballpivot/pkg/kernel"
	"github.com/chazu/ballpivot/pkg/pivot"
)

// DefaultSampleSpacing is the surface spacing used by (sample ...) when the
// script gives none.
const DefaultSampleSpacing = 0.1

// EvalError represents a non-fatal error encountered during evaluation,
// such as a parse error or a runtime error in user code.
type EvalError struct {
	Line    int
	Col     int
	Message string
}

func (e EvalError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// Scene is what a script produced.
type Scene struct {
	// Points is the cloud handed to (reconstruct ...), or the script's final
	// value when it is a cloud and reconstruct was never called.
	Points []pivot.Point
	// Radius is the ball radius named by (reconstruct ... :radius r), or
	// zero when the script left it to the caller.
	Radius float64
}

// Engine runs scene scripts. It is safe for concurrent use; each call to
// Evaluate creates a fresh sandboxed environment.
type Engine struct {
	kernel  kernel.Kernel
	spacing float64

	mu         sync.Mutex
	generation uint64
}

// NewEngine returns an Engine whose solids are built by k. A nil kernel
// leaves the solid builtins reporting errors. spacing is the default for
// (sample ...); zero or less selects DefaultSampleSpacing.
func NewEngine(k kernel.Kernel, spacing float64) *Engine {
	if spacing <= 0 {
		spacing = DefaultSampleSpacing
	}
	return &Engine{kernel: k, spacing: spacing}
}

// Evaluate runs source and returns the scene it built.
//
// Return semantics:
//   - On success: returns scene + nil errors + nil error
//   - On parse/eval failure: returns nil scene + eval errors + nil error
//   - On fatal failure (timeout, panic): returns nil + nil + error
func (e *Engine) Evaluate(source string) (*Scene, []EvalError, error) {
	e.mu.Lock()
	e.generation++
	gen := e.generation
	e.mu.Unlock()

	ch := make(chan evalResult, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- evalResult{err: fmt.Errorf("panic during evaluation: %v", r)}
			}
		}()

		sc, evalErrs, err := e.evaluate(source)
		ch <- evalResult{scene: sc, errors: evalErrs, err: err}
	}()

	return waitWithTimeout(ch, gen, &e.mu, &e.generation)
}

// evaluate performs the actual zygomys evaluation in a fresh sandbox.
func (e *Engine) evaluate(source string) (*Scene, []EvalError, error) {
	sc := &Scene{}
	if strings.TrimSpace(source) == "" {
		return sc, nil, nil
	}

	// Sandbox mode keeps scripts away from the filesystem and syscalls.
	env := zygo.NewZlispSandbox()
	defer env.Stop()

	b := &builtinEnv{kernel: e.kernel, spacing: e.spacing, scene: sc}
	registerBuiltins(env, b)

	if err := env.LoadString(preprocessSource(source)); err != nil {
		return nil, parseZygomysError(err), nil
	}

	last, err := env.Run()
	if err != nil {
		return nil, parseZygomysError(err), nil
	}

	if !b.reconstructed {
		if c, ok := last.(*sexpCloud); ok {
			sc.Points = c.points
		}
	}
	return sc, nil, nil
}

// linePattern matches zygomys error messages that include "Error on line N: ..."
var linePattern = regexp.MustCompile(`(?i)(?:error )?on line (\d+):\s*(.*)`)

// linePatternShort matches simpler "line N: ..." patterns.
var linePatternShort = regexp.MustCompile(`(?i)^line (\d+):\s*(.*)`)

// parseZygomysError converts a zygomys error into one or more EvalError values,
// extracting the line number when the message carries one.
func parseZygomysError(err error) []EvalError {
	msg := err.Error()

	// zygomys formats parse errors as "Error on line N: <details>\n"
	for _, p := range []*regexp.Regexp{linePattern, linePatternShort} {
		if m := p.FindStringSubmatch(msg); m != nil {
			line, _ := strconv.Atoi(m[1])
			return []EvalError{{
				Line:    line,
				Message: strings.TrimSpace(m[2]),
			}}
		}
	}

	return []EvalError{{Message: strings.TrimSpace(msg)}}
}
