package engine

import (
	"strings"
	"sync"
	"testing"
	"time"
)

func TestEvaluateEmptySource(t *testing.T) {
	eng := NewEngine(nil, 0)

	for _, src := range []string{"", "   \n\t  \n  "} {
		sc, evalErrs, err := eng.Evaluate(src)
		if err != nil {
			t.Fatalf("Evaluate(%q): unexpected fatal error: %v", src, err)
		}
		if len(evalErrs) > 0 {
			t.Fatalf("Evaluate(%q): unexpected eval errors: %v", src, evalErrs)
		}
		if sc == nil {
			t.Fatalf("Evaluate(%q): expected non-nil scene", src)
		}
		if len(sc.Points) != 0 || sc.Radius != 0 {
			t.Errorf("Evaluate(%q) = %+v, want empty scene", src, sc)
		}
	}
}

func TestEvaluatePlainLisp(t *testing.T) {
	eng := NewEngine(nil, 0)

	source := `
(def x 10)
(def y 20)
(+ x y)
`
	sc, evalErrs, err := eng.Evaluate(source)
	if err != nil {
		t.Fatalf("unexpected fatal error: %v", err)
	}
	if len(evalErrs) > 0 {
		t.Fatalf("unexpected eval errors: %v", evalErrs)
	}
	if sc == nil {
		t.Fatal("expected non-nil scene")
	}
	if len(sc.Points) != 0 {
		t.Errorf("expected no points from plain arithmetic, got %d", len(sc.Points))
	}
}

func TestEvaluateSyntaxError(t *testing.T) {
	eng := NewEngine(nil, 0)

	sc, evalErrs, err := eng.Evaluate("(+ 1 2")
	if err != nil {
		t.Fatalf("expected non-fatal eval error, got fatal: %v", err)
	}
	if sc != nil {
		t.Fatal("expected nil scene on syntax error")
	}
	if len(evalErrs) == 0 {
		t.Fatal("expected at least one eval error for syntax error")
	}
	if evalErrs[0].Message == "" {
		t.Error("eval error message should not be empty")
	}
}

func TestEvaluateUndefinedSymbol(t *testing.T) {
	eng := NewEngine(nil, 0)

	sc, evalErrs, err := eng.Evaluate("(+ 1 undefined-symbol)")
	if err != nil {
		t.Fatalf("expected non-fatal eval error, got fatal: %v", err)
	}
	if sc != nil {
		t.Fatal("expected nil scene on eval error")
	}
	if len(evalErrs) == 0 {
		t.Fatal("expected at least one eval error for undefined symbol")
	}
}

func TestEvalErrorImplementsError(t *testing.T) {
	e := EvalError{Line: 5, Message: "something went wrong"}
	s := e.Error()
	if !strings.Contains(s, "line 5") {
		t.Errorf("Error() should contain line info, got: %s", s)
	}
	if !strings.Contains(s, "something went wrong") {
		t.Errorf("Error() should contain message, got: %s", s)
	}

	e2 := EvalError{Message: "no location"}
	if s2 := e2.Error(); strings.Contains(s2, "line") {
		t.Errorf("Error() with no line should not contain 'line', got: %s", s2)
	}
}

func TestNewEngineDefaultSpacing(t *testing.T) {
	tests := []struct {
		spacing float64
		want    float64
	}{
		{0, DefaultSampleSpacing},
		{-1, DefaultSampleSpacing},
		{0.25, 0.25},
	}
	for _, tt := range tests {
		if got := NewEngine(nil, tt.spacing).spacing; got != tt.want {
			t.Errorf("NewEngine(nil, %g).spacing = %g, want %g", tt.spacing, got, tt.want)
		}
	}
}

func TestWaitTimesOut(t *testing.T) {
	var mu sync.Mutex
	gen := uint64(1)
	ch := make(chan evalResult) // never sends

	start := time.Now()
	_, _, err := waitFor(ch, 1, &mu, &gen, 20*time.Millisecond)
	if err == nil {
		t.Fatal("expected timeout error, got nil")
	}
	if !strings.Contains(err.Error(), "timed out") {
		t.Errorf("expected timeout error message, got: %v", err)
	}
	if time.Since(start) > EvalTimeout {
		t.Errorf("waitFor ignored its limit")
	}
}

func TestWaitDiscardsStaleGeneration(t *testing.T) {
	var mu sync.Mutex
	gen := uint64(2)

	ch := make(chan evalResult, 1)
	ch <- evalResult{scene: &Scene{}}

	_, _, err := waitWithTimeout(ch, 1, &mu, &gen)
	if err == nil {
		t.Fatal("expected error for stale generation")
	}
	if !strings.Contains(err.Error(), "superseded") {
		t.Errorf("expected superseded error, got: %v", err)
	}
}

func TestWaitReturnsCurrentResult(t *testing.T) {
	var mu sync.Mutex
	gen := uint64(3)

	want := &Scene{Radius: 0.5}
	ch := make(chan evalResult, 1)
	ch <- evalResult{scene: want}

	got, evalErrs, err := waitWithTimeout(ch, 3, &mu, &gen)
	if err != nil || len(evalErrs) > 0 {
		t.Fatalf("waitWithTimeout: %v %v", evalErrs, err)
	}
	if got != want {
		t.Errorf("waitWithTimeout returned %p, want %p", got, want)
	}
}

func TestParseZygomysError(t *testing.T) {
	tests := []struct {
		name     string
		msg      string
		wantLine int
		wantMsg  string
	}{
		{
			name:     "error on line format",
			msg:      "Error on line 5: unexpected token\n",
			wantLine: 5,
			wantMsg:  "unexpected token",
		},
		{
			name:     "no line info",
			msg:      "some generic error",
			wantLine: 0,
			wantMsg:  "some generic error",
		},
		{
			name:     "line format lowercase",
			msg:      "error on line 12: missing paren",
			wantLine: 12,
			wantMsg:  "missing paren",
		},
		{
			name:     "short line format",
			msg:      "line 3: sample: spacing must be a positive number",
			wantLine: 3,
			wantMsg:  "sample: spacing",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := parseZygomysError(errString(tt.msg))
			if len(errs) == 0 {
				t.Fatal("expected at least one error")
			}
			e := errs[0]
			if e.Line != tt.wantLine {
				t.Errorf("line = %d, want %d", e.Line, tt.wantLine)
			}
			if !strings.Contains(e.Message, tt.wantMsg) {
				t.Errorf("message = %q, want containing %q", e.Message, tt.wantMsg)
			}
		})
	}
}

// errString is a simple error type for testing.
type errString string

func (e errString) Error() string { return string(e) }
