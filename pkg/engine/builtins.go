package engine

import (
	"fmt"
	"math"
	"strings"

	v3 "github.com/deadsy/sdfx/vec/v3"
	zygo "github.com/glycerine/zygomys/zygo"

	"github.com/chazu/ballpivot/pkg/cloud"
	"github.com/chazu/ballpivot/pkg/kernel"
	"github.com/chazu/ballpivot/pkg/pivot"
)

// ---------------------------------------------------------------------------
// Custom Sexp types for passing Go values through the zygomys environment
// ---------------------------------------------------------------------------

// sexpVec3 wraps a v3.Vec.
type sexpVec3 struct {
	vec v3.Vec
}

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %g %g %g)", v.vec.X, v.vec.Y, v.vec.Z)
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

// sexpCloud wraps an oriented point cloud.
type sexpCloud struct {
	points []pivot.Point
}

func (c *sexpCloud) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(cloud %d points)", len(c.points))
}
func (c *sexpCloud) Type() *zygo.RegisteredType { return nil }

// sexpSolid wraps a kernel solid so it can be combined and sampled.
type sexpSolid struct {
	solid kernel.Solid
	desc  string
}

func (s *sexpSolid) SexpString(ps *zygo.PrintState) string {
	return "(" + s.desc + ")"
}
func (s *sexpSolid) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// isKW checks if a Sexp is a preprocessed keyword string.
// Returns the keyword name (without prefix) and true if it is.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], true
	}
	return "", false
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments.
// A keyword at the end of the list gets SexpNull as its value.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	for i := 0; i < len(args); i++ {
		name, ok := isKW(args[i])
		if !ok {
			result.positional = append(result.positional, args[i])
			continue
		}
		if i+1 < len(args) {
			result.kw[name] = args[i+1]
			i++
		} else {
			result.kw[name] = zygo.SexpNull
		}
	}
	return result
}

// floatArg returns keyword name as a float, or def when it is absent.
func (a kwArgs) floatArg(name string, def float64) (float64, error) {
	v, ok := a.kw[name]
	if !ok {
		return def, nil
	}
	f, err := toFloat64(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	return f, nil
}

// intArg returns keyword name as an integer, or def when it is absent.
func (a kwArgs) intArg(name string, def int) (int, error) {
	v, ok := a.kw[name]
	if !ok {
		return def, nil
	}
	n, ok := v.(*zygo.SexpInt)
	if !ok {
		return 0, fmt.Errorf("%s: expected integer, got %T (%s)", name, v, v.SexpString(nil))
	}
	return int(n.Val), nil
}

// vecArg returns keyword name as a vector, or def when it is absent.
func (a kwArgs) vecArg(name string, def v3.Vec) (v3.Vec, error) {
	v, ok := a.kw[name]
	if !ok {
		return def, nil
	}
	vec, err := toVec3(v)
	if err != nil {
		return v3.Vec{}, fmt.Errorf("%s: %w", name, err)
	}
	return vec, nil
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// toVec3 extracts a vector from a sexpVec3.
func toVec3(s zygo.Sexp) (v3.Vec, error) {
	if v, ok := s.(*sexpVec3); ok {
		return v.vec, nil
	}
	return v3.Vec{}, fmt.Errorf("expected vec3, got %T (%s)", s, s.SexpString(nil))
}

// toCloud extracts the points of a sexpCloud.
func toCloud(s zygo.Sexp) ([]pivot.Point, error) {
	if c, ok := s.(*sexpCloud); ok {
		return c.points, nil
	}
	return nil, fmt.Errorf("expected cloud, got %T (%s)", s, s.SexpString(nil))
}

// toSolid extracts the kernel solid of a sexpSolid.
func toSolid(s zygo.Sexp) (*sexpSolid, error) {
	if sol, ok := s.(*sexpSolid); ok {
		return sol, nil
	}
	return nil, fmt.Errorf("expected solid, got %T (%s)", s, s.SexpString(nil))
}

// sexpListToSlice converts a SexpPair (Lisp list) or SexpArray to a Go slice.
func sexpListToSlice(s zygo.Sexp) ([]zygo.Sexp, error) {
	switch v := s.(type) {
	case *zygo.SexpPair:
		return zygo.ListToArray(v)
	case *zygo.SexpArray:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("expected list or array, got %T", s)
}

func positive(name string, f float64) error {
	if !(f > 0) || math.IsInf(f, 1) {
		return fmt.Errorf("%s must be a positive number, got %g", name, f)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// builtinEnv is the state one evaluation's builtins share.
type builtinEnv struct {
	kernel        kernel.Kernel
	spacing       float64
	scene         *Scene
	reconstructed bool
}

// solids returns the kernel, or an error naming the builtin when the engine
// was built without one.
func (b *builtinEnv) solids(fn string) (kernel.Kernel, error) {
	if b.kernel == nil {
		return nil, fmt.Errorf("%s: no solid kernel available", fn)
	}
	return b.kernel, nil
}

type builtin = func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error)

// registerBuiltins installs the scene builtins into a zygomys environment.
//
// Source code must be preprocessed with preprocessSource() before evaluation so
// that :keyword tokens are converted to recognizable string literals.
func registerBuiltins(env *zygo.Zlisp, b *builtinEnv) {
	fns := map[string]builtin{
		"vec3":         b.vec3,
		"point":        b.point,
		"cloud":        b.cloud,
		"cloud_size":   b.cloudSize,
		"uv_sphere":    b.uvSphere,
		"tetrahedron":  b.tetrahedron,
		"cube":         b.cube,
		"scale":        b.scale,
		"translate":    b.translate,
		"rotate":       b.rotate,
		"sphere":       b.sphere,
		"box":          b.box,
		"cylinder":     b.cylinder,
		"union":        b.boolean("union"),
		"difference":   b.boolean("difference"),
		"intersection": b.boolean("intersection"),
		"sample":       b.sample,
		"reconstruct":  b.reconstruct,
	}
	for name, fn := range fns {
		env.AddFunction(name, fn)
	}
}

// (vec3 1 2 3)
func (b *builtinEnv) vec3(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
	if len(args) != 3 {
		return zygo.SexpNull, fmt.Errorf("vec3 requires exactly 3 arguments, got %d", len(args))
	}
	var c [3]float64
	for i, axis := range []string{"x", "y", "z"} {
		f, err := toFloat64(args[i])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("vec3: %s: %w", axis, err)
		}
		c[i] = f
	}
	return &sexpVec3{vec: v3.Vec{X: c[0], Y: c[1], Z: c[2]}}, nil
}

// (point :at (vec3 0 0 1) :normal (vec3 0 0 1))
//
// The normal is normalized; a one-point cloud is returned.
func (b *builtinEnv) point(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
	pa := parseArgs(args)
	if _, ok := pa.kw["at"]; !ok {
		return zygo.SexpNull, fmt.Errorf("point requires :at")
	}
	if _, ok := pa.kw["normal"]; !ok {
		return zygo.SexpNull, fmt.Errorf("point requires :normal")
	}
	at, err := pa.vecArg("at", v3.Vec{})
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("point: %w", err)
	}
	n, err := pa.vecArg("normal", v3.Vec{})
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("point: %w", err)
	}
	if n.Length() == 0 {
		return zygo.SexpNull, fmt.Errorf("point: normal must be non-zero")
	}
	return &sexpCloud{points: []pivot.Point{{Pos: at, Normal: n.Normalize()}}}, nil
}

// (cloud c1 c2 ...) or (cloud (list c1 c2 ...))
//
// Concatenates clouds in argument order.
func (b *builtinEnv) cloud(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
	var out []pivot.Point
	for i, a := range args {
		if pts, err := toCloud(a); err == nil {
			out = append(out, pts...)
			continue
		}
		items, err := sexpListToSlice(a)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("cloud: argument %d: expected cloud or list of clouds, got %T", i+1, a)
		}
		for _, item := range items {
			pts, err := toCloud(item)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("cloud: argument %d: %w", i+1, err)
			}
			out = append(out, pts...)
		}
	}
	return &sexpCloud{points: out}, nil
}

// (cloud-size c)
func (b *builtinEnv) cloudSize(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
	if len(args) != 1 {
		return zygo.SexpNull, fmt.Errorf("cloud-size requires one cloud")
	}
	pts, err := toCloud(args[0])
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("cloud-size: %w", err)
	}
	return &zygo.SexpInt{Val: int64(len(pts))}, nil
}

// (uv-sphere :slices 36 :stacks 18 :radius 1 :center (vec3 0 0 0))
func (b *builtinEnv) uvSphere(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
	pa := parseArgs(args)
	slices, err := pa.intArg("slices", 36)
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("uv-sphere: %w", err)
	}
	stacks, err := pa.intArg("stacks", 18)
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("uv-sphere: %w", err)
	}
	if slices < 3 || stacks < 2 {
		return zygo.SexpNull, fmt.Errorf("uv-sphere: need at least 3 slices and 2 stacks, got %d and %d", slices, stacks)
	}
	r, err := pa.floatArg("radius", 1)
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("uv-sphere: %w", err)
	}
	if err := positive("radius", r); err != nil {
		return zygo.SexpNull, fmt.Errorf("uv-sphere: %w", err)
	}
	center, err := pa.vecArg("center", v3.Vec{})
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("uv-sphere: %w", err)
	}
	pts := cloud.Translate(cloud.Scale(cloud.UVSphere(slices, stacks), r), center)
	return &sexpCloud{points: pts}, nil
}

// (tetrahedron)
func (b *builtinEnv) tetrahedron(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
	return &sexpCloud{points: cloud.Tetrahedron()}, nil
}

// (cube)
func (b *builtinEnv) cube(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
	return &sexpCloud{points: cloud.Cube()}, nil
}

// (scale c 2.5)
func (b *builtinEnv) scale(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
	if len(args) != 2 {
		return zygo.SexpNull, fmt.Errorf("scale requires a cloud and a factor")
	}
	pts, err := toCloud(args[0])
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("scale: %w", err)
	}
	f, err := toFloat64(args[1])
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("scale: factor: %w", err)
	}
	if err := positive("factor", f); err != nil {
		return zygo.SexpNull, fmt.Errorf("scale: %w", err)
	}
	return &sexpCloud{points: cloud.Scale(pts, f)}, nil
}

// (translate x (vec3 1 0 0))
//
// x may be a cloud or a solid.
func (b *builtinEnv) translate(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
	if len(args) != 2 {
		return zygo.SexpNull, fmt.Errorf("translate requires a cloud or solid and an offset")
	}
	d, err := toVec3(args[1])
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("translate: offset: %w", err)
	}
	switch v := args[0].(type) {
	case *sexpCloud:
		return &sexpCloud{points: cloud.Translate(v.points, d)}, nil
	case *sexpSolid:
		k, err := b.solids("translate")
		if err != nil {
			return zygo.SexpNull, err
		}
		return &sexpSolid{
			solid: k.Translate(v.solid, d.X, d.Y, d.Z),
			desc:  fmt.Sprintf("translate %s", v.desc),
		}, nil
	}
	return zygo.SexpNull, fmt.Errorf("translate: expected cloud or solid, got %T (%s)", args[0], args[0].SexpString(nil))
}

// (rotate s (vec3 0 0 45))
//
// Euler angles in degrees.
func (b *builtinEnv) rotate(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
	if len(args) != 2 {
		return zygo.SexpNull, fmt.Errorf("rotate requires a solid and angles")
	}
	s, err := toSolid(args[0])
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("rotate: %w", err)
	}
	a, err := toVec3(args[1])
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("rotate: angles: %w", err)
	}
	k, err := b.solids("rotate")
	if err != nil {
		return zygo.SexpNull, err
	}
	return &sexpSolid{solid: k.Rotate(s.solid, a.X, a.Y, a.Z), desc: "rotate " + s.desc}, nil
}

// (sphere :radius 1)
func (b *builtinEnv) sphere(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
	k, err := b.solids("sphere")
	if err != nil {
		return zygo.SexpNull, err
	}
	r, err := parseArgs(args).floatArg("radius", 1)
	if err == nil {
		err = positive("radius", r)
	}
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("sphere: %w", err)
	}
	return &sexpSolid{solid: k.Sphere(r), desc: fmt.Sprintf("sphere %g", r)}, nil
}

// (box :size (vec3 2 1 1))
func (b *builtinEnv) box(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
	k, err := b.solids("box")
	if err != nil {
		return zygo.SexpNull, err
	}
	size, err := parseArgs(args).vecArg("size", v3.Vec{X: 1, Y: 1, Z: 1})
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("box: %w", err)
	}
	for _, f := range []float64{size.X, size.Y, size.Z} {
		if err := positive("size", f); err != nil {
			return zygo.SexpNull, fmt.Errorf("box: %w", err)
		}
	}
	return &sexpSolid{
		solid: k.Box(size.X, size.Y, size.Z),
		desc:  fmt.Sprintf("box %gx%gx%g", size.X, size.Y, size.Z),
	}, nil
}

// (cylinder :height 2 :radius 0.5)
func (b *builtinEnv) cylinder(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
	k, err := b.solids("cylinder")
	if err != nil {
		return zygo.SexpNull, err
	}
	pa := parseArgs(args)
	h, err := pa.floatArg("height", 1)
	if err == nil {
		err = positive("height", h)
	}
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("cylinder: %w", err)
	}
	r, err := pa.floatArg("radius", 0.5)
	if err == nil {
		err = positive("radius", r)
	}
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("cylinder: %w", err)
	}
	return &sexpSolid{solid: k.Cylinder(h, r), desc: fmt.Sprintf("cylinder %gx%g", h, r)}, nil
}

// (union a b ...), (difference a b ...), (intersection a b ...)
//
// Folds left over two or more solids.
func (b *builtinEnv) boolean(op string) builtin {
	return func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		k, err := b.solids(op)
		if err != nil {
			return zygo.SexpNull, err
		}
		if len(args) < 2 {
			return zygo.SexpNull, fmt.Errorf("%s requires at least two solids, got %d", op, len(args))
		}
		acc, err := toSolid(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("%s: argument 1: %w", op, err)
		}
		s := acc.solid
		for i, a := range args[1:] {
			next, err := toSolid(a)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: argument %d: %w", op, i+2, err)
			}
			switch op {
			case "union":
				s = k.Union(s, next.solid)
			case "difference":
				s = k.Difference(s, next.solid)
			default:
				s = k.Intersection(s, next.solid)
			}
		}
		return &sexpSolid{solid: s, desc: fmt.Sprintf("%s of %d", op, len(args))}, nil
	}
}

// (sample s :spacing 0.05)
//
// Samples the solid's surface into an oriented cloud.
func (b *builtinEnv) sample(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
	k, err := b.solids("sample")
	if err != nil {
		return zygo.SexpNull, err
	}
	pa := parseArgs(args)
	if len(pa.positional) != 1 {
		return zygo.SexpNull, fmt.Errorf("sample requires one solid")
	}
	s, err := toSolid(pa.positional[0])
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("sample: %w", err)
	}
	spacing, err := pa.floatArg("spacing", b.spacing)
	if err == nil {
		err = positive("spacing", spacing)
	}
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("sample: %w", err)
	}
	pts, err := k.Sample(s.solid, spacing)
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("sample: %w", err)
	}
	return &sexpCloud{points: pts}, nil
}

// (reconstruct c :radius 0.3)
//
// Names c as the scene's cloud and, when given, the ball radius. The last
// call wins. Returns c.
func (b *builtinEnv) reconstruct(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
	pa := parseArgs(args)
	if len(pa.positional) != 1 {
		return zygo.SexpNull, fmt.Errorf("reconstruct requires one cloud")
	}
	pts, err := toCloud(pa.positional[0])
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("reconstruct: %w", err)
	}
	if len(pts) == 0 {
		return zygo.SexpNull, fmt.Errorf("reconstruct: cloud is empty")
	}
	r, err := pa.floatArg("radius", 0)
	if err == nil && r != 0 {
		err = positive("radius", r)
	}
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("reconstruct: %w", err)
	}
	b.scene.Points = pts
	b.scene.Radius = r
	b.reconstructed = true
	return pa.positional[0], nil
}
