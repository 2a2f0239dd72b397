package pivot

import (
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/chazu/ballpivot/pkg/logging"
)

// iterationsPerPoint scales the default iteration cap with the cloud size.
const iterationsPerPoint = 64

// Stats summarizes a reconstruction run.
type Stats struct {
	Points            int
	SeedCandidates    int    // faces tested during seed search
	Iterations        int    // active edges processed
	Pivots            int    // pivots that produced a triangle
	BoundaryEdges     int    // edges retired as boundary
	Glues             [4]int // glue calls per case: loop, forward, backward, general
	IterationLimitHit bool
}

// Result is the outcome of a successful reconstruction.
type Result struct {
	Triangles []Triangle // emission order; the first is the seed
	Boundary  []Segment  // edges around which no empty ball pivots
	Stats     Stats
}

// Option configures a Reconstructor.
type Option func(*Reconstructor)

// WithLogger sets the logger used for run summaries and pivot tracing. The
// default logger only reports warnings.
func WithLogger(l *log.Logger) Option {
	return func(r *Reconstructor) {
		r.log = l
	}
}

// WithMaxIterations caps the number of active edges processed. Zero selects
// a cap proportional to the cloud size.
func WithMaxIterations(n int) Option {
	return func(r *Reconstructor) {
		r.maxIterations = n
	}
}

// WithFrontChecks makes every join and glue verify the front's linkage and
// panic on the first inconsistency.
func WithFrontChecks(enabled bool) Option {
	return func(r *Reconstructor) {
		r.checkFront = enabled
	}
}

// Reconstructor runs ball-pivoting reconstructions with a fixed radius.
type Reconstructor struct {
	radius        float64
	maxIterations int
	checkFront    bool
	log           *log.Logger
}

// New returns a Reconstructor for the given ball radius.
func New(radius float64, opts ...Option) *Reconstructor {
	r := &Reconstructor{radius: radius}
	for _, o := range opts {
		o(r)
	}
	if r.log == nil {
		r.log = logging.New("pivot", log.WarnLevel)
	}
	return r
}

// Radius returns the ball radius.
func (r *Reconstructor) Radius() float64 {
	return r.radius
}

// Reconstruct meshes points with a ball of the given radius. It reports false
// when no seed triangle exists. It panics if points is empty or radius is not
// a positive finite number.
func Reconstruct(points []Point, radius float64) ([]Triangle, bool) {
	res, ok := New(radius).Run(points)
	if !ok {
		return nil, false
	}
	return res.Triangles, true
}

// state is the mutable working set of one reconstruction.
type state struct {
	radius    float64
	grid      *grid
	front     []*meshEdge // stack; the top is the next edge to pivot
	edges     []*meshEdge // every edge ever created
	triangles []Triangle
	stats     Stats
	check     bool
	log       *log.Logger
}

// Run reconstructs a mesh from points. It reports false when no seed
// triangle exists.
func (r *Reconstructor) Run(points []Point) (*Result, bool) {
	s := &state{
		radius: r.radius,
		grid:   newGrid(points, r.radius),
		check:  r.checkFront,
		log:    r.log,
	}
	s.stats.Points = len(points)

	sd, ok := s.findSeedTriangle()
	if !ok {
		r.log.Info("no seed triangle", "points", len(points), "radius", r.radius,
			"candidates", s.stats.SeedCandidates)
		return nil, false
	}
	s.start(sd)

	limit := r.maxIterations
	if limit <= 0 {
		limit = iterationsPerPoint*len(points) + 1024
	}
	s.grow(limit)

	res := &Result{Triangles: s.triangles, Stats: s.stats}
	for _, e := range s.edges {
		if e.status == Boundary {
			res.Boundary = append(res.Boundary, e.segment())
		}
	}
	r.log.Info("reconstructed", "points", len(points), "radius", r.radius,
		"triangles", len(res.Triangles), "boundary", len(res.Boundary),
		"iterations", s.stats.Iterations)
	return res, true
}

// start emits the seed triangle and links its three edges into a loop.
func (s *state) start(sd seed) {
	p0, p1, p2 := sd.face[0], sd.face[1], sd.face[2]
	s.emit(p0, p1, p2)

	e0 := s.newEdge(p0, p1, p2, sd.center)
	e1 := s.newEdge(p1, p2, p0, sd.center)
	e2 := s.newEdge(p2, p0, p1, sd.center)

	e0.prev, e0.next = e2, e1
	e1.prev, e1.next = e0, e2
	e2.prev, e2.next = e1, e0

	p0.edges = append(p0.edges, e0, e2)
	p1.edges = append(p1.edges, e0, e1)
	p2.edges = append(p2.edges, e1, e2)

	s.log.Debug("seed", "a", p0.index, "b", p1.index, "c", p2.index)
}

// grow advances the front until no active edge remains or limit edges have
// been processed.
func (s *state) grow(limit int) {
	for {
		e := s.activeEdge()
		if e == nil {
			return
		}
		if s.stats.Iterations >= limit {
			s.retire(limit)
			return
		}
		s.stats.Iterations++

		k, center, ok := s.ballPivot(e)
		if !ok || (k.used && !k.onFront()) {
			e.status = Boundary
			s.stats.BoundaryEdges++
			continue
		}

		s.stats.Pivots++
		s.emit(e.a, k, e.b)
		eik, ekj := s.join(e, k, center)
		s.verify("join")

		if r := findReverseEdge(eik); r != nil {
			s.glue(eik, r)
			s.verify("glue")
		}
		if r := findReverseEdge(ekj); r != nil {
			s.glue(ekj, r)
			s.verify("glue")
		}
	}
}

// retire marks every remaining active edge as boundary.
func (s *state) retire(limit int) {
	s.stats.IterationLimitHit = true
	for _, e := range s.edges {
		if e.status == Active {
			e.status = Boundary
			s.stats.BoundaryEdges++
		}
	}
	s.front = s.front[:0]
	s.log.Warn("iteration limit reached", "limit", limit, "triangles", len(s.triangles))
}

func (s *state) emit(a, b, c *meshPoint) {
	s.triangles = append(s.triangles, Triangle{a.pos, b.pos, c.pos})
}

func (s *state) verify(op string) {
	if !s.check {
		return
	}
	if err := checkFront(s.edges); err != nil {
		panic(fmt.Sprintf("pivot: front corrupted after %s: %v", op, err))
	}
}
