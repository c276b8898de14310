// Package engine provides the Lisp evaluation engine for surface scripts.
// It wraps zygomys in a sandboxed environment and produces a Program (a set
// of atoms plus the isosurfaces to compute over them) from user source.
package engine

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/chazu/isosurf/pkg/atoms"
	"github.com/chazu/isosurf/pkg/config"
	"github.com/chazu/isosurf/pkg/surface"
	zygo "github.com/glycerine/zygomys/zygo"
)

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

// EvalWarning represents a non-fatal warning produced while computing a
// surface, such as cells skipped for undefined field values.
type EvalWarning struct {
	Line    int
	Col     int
	Message string
	Surface string
}

// Request is one isosurface a script asked for.
type Request struct {
	Name   string
	Params surface.Params
}

// Program is the result of evaluating a script. Requests appear in the
// order the script declared them; every request shares Atoms.
type Program struct {
	Atoms    *atoms.Set
	Requests []Request
}

// Engine wraps the zygomys interpreter for surface scripts.
// It is safe for concurrent use; each call to Evaluate creates a fresh
// sandboxed environment for determinism.
type Engine struct {
	cfg     *config.Config
	timeout time.Duration

	mu         sync.Mutex
	generation uint64
}

// NewEngine creates an Engine whose isosurface defaults and evaluation
// timeout come from cfg. A nil cfg means defaults.
func NewEngine(cfg *config.Config) *Engine {
	if cfg == nil {
		cfg = config.Default()
	}
	timeout := time.Duration(cfg.GetEvalTimeoutMs()) * time.Millisecond
	if timeout <= 0 {
		timeout = EvalTimeout
	}
	return &Engine{cfg: cfg, timeout: timeout}
}

// Evaluate takes Lisp source code and produces a new Program.
// Each call creates a fresh zygomys sandbox for deterministic evaluation.
//
// Return semantics:
//   - On success: returns program + nil errors + nil error
//   - On parse/eval failure: returns nil program + eval errors + nil error
//   - On fatal failure (timeout, panic): returns nil + nil + error
func (e *Engine) Evaluate(source string) (*Program, []EvalError, error) {
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

		p, evalErrs, err := e.evaluate(source)
		ch <- evalResult{program: p, errors: evalErrs, err: err}
	}()

	return waitWithTimeout(ch, gen, &e.mu, &e.generation, e.timeout)
}

// evaluate performs the actual zygomys evaluation in a fresh sandbox.
func (e *Engine) evaluate(source string) (*Program, []EvalError, error) {
	// Empty source is a valid program with nothing to compute.
	if strings.TrimSpace(source) == "" {
		return &Program{Atoms: atoms.NewSet()}, nil, nil
	}

	// Sandbox mode prevents user code from accessing the filesystem or syscalls.
	env := zygo.NewZlispSandbox()
	defer env.Stop()

	b := newBuilder(e.cfg)
	registerBuiltins(env, b)

	if err := env.LoadString(preprocessSource(source)); err != nil {
		return nil, parseZygomysError(err), nil
	}
	if _, err := env.Run(); err != nil {
		return nil, parseZygomysError(err), nil
	}
	return b.program(), nil, nil
}

// linePattern matches zygomys error messages that include "Error on line N: ..."
var linePattern = regexp.MustCompile(`(?i)(?:error )?on line (\d+):\s*(.*)`)

// linePatternShort matches simpler "line N: ..." patterns.
var linePatternShort = regexp.MustCompile(`(?i)^line (\d+):\s*(.*)`)

// parseZygomysError converts a zygomys error into one or more EvalError values.
// It attempts to extract line number information from the error message.
func parseZygomysError(err error) []EvalError {
	msg := err.Error()

	// zygomys formats parse errors as "Error on line N: <details>\n"
	for _, re := range []*regexp.Regexp{linePattern, linePatternShort} {
		if m := re.FindStringSubmatch(msg); m != nil {
			line, _ := strconv.Atoi(m[1])
			return []EvalError{{Line: line, Message: strings.TrimSpace(m[2])}}
		}
	}

	return []EvalError{{Message: strings.TrimSpace(msg)}}
}
