package cloud

import (
	"fmt"
	"math"
	"strings"

	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/ballpivot/pkg/pivot"
)

// normalTolerance is how far a normal's length may stray from 1 before it is
// reported.
const normalTolerance = 1e-3

// Severity indicates whether a finding blocks reconstruction or is merely
// informational.
type Severity int

const (
	SeverityError   Severity = iota // blocks reconstruction
	SeverityWarning                 // informational
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("Severity(%d)", int(s))
	}
}

// Finding describes a single validation result.
type Finding struct {
	Index    int // offending point, or -1 for cloud-level findings
	Message  string
	Severity Severity
}

func (f Finding) Error() string {
	if f.Index < 0 {
		return fmt.Sprintf("[%s] %s", f.Severity, f.Message)
	}
	return fmt.Sprintf("[%s] point %d: %s", f.Severity, f.Index, f.Message)
}

// Report bundles blocking errors and advisory warnings.
type Report struct {
	Errors   []Finding
	Warnings []Finding
}

// OK reports whether the cloud can be reconstructed.
func (r Report) OK() bool {
	return len(r.Errors) == 0
}

// Err joins the blocking findings into one error, or returns nil.
func (r Report) Err() error {
	if r.OK() {
		return nil
	}
	msgs := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		msgs[i] = e.Error()
	}
	return fmt.Errorf("invalid point cloud: %s", strings.Join(msgs, "; "))
}

// Validate checks a cloud and radius against the reconstructor's
// preconditions. It never mutates points.
func Validate(points []pivot.Point, radius float64) Report {
	var r Report
	add := func(f Finding) {
		if f.Severity == SeverityError {
			r.Errors = append(r.Errors, f)
		} else {
			r.Warnings = append(r.Warnings, f)
		}
	}

	if len(points) == 0 {
		add(Finding{Index: -1, Message: "cloud is empty", Severity: SeverityError})
	}
	if !(radius > 0) || math.IsInf(radius, 0) {
		add(Finding{Index: -1, Message: fmt.Sprintf("radius %v is not a positive finite number", radius), Severity: SeverityError})
	}

	seen := make(map[v3.Vec]int, len(points))
	for i, p := range points {
		if !finite(p.Pos) {
			add(Finding{Index: i, Message: fmt.Sprintf("non-finite position %v", p.Pos), Severity: SeverityError})
			continue
		}
		if !finite(p.Normal) {
			add(Finding{Index: i, Message: fmt.Sprintf("non-finite normal %v", p.Normal), Severity: SeverityError})
			continue
		}
		switch l := p.Normal.Length(); {
		case l == 0:
			add(Finding{Index: i, Message: "zero normal", Severity: SeverityWarning})
		case math.Abs(l-1) > normalTolerance:
			add(Finding{Index: i, Message: fmt.Sprintf("normal length %.4f is not unit", l), Severity: SeverityWarning})
		}
		if first, dup := seen[p.Pos]; dup {
			add(Finding{Index: i, Message: fmt.Sprintf("duplicates the position of point %d", first), Severity: SeverityWarning})
		} else {
			seen[p.Pos] = i
		}
	}
	return r
}

func finite(v v3.Vec) bool {
	for _, c := range []float64{v.X, v.Y, v.Z} {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}
