package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/chazu/ballpivot/pkg/cloud"
	"github.com/chazu/ballpivot/pkg/config"
	"github.com/chazu/ballpivot/pkg/engine"
	"github.com/chazu/ballpivot/pkg/kernel/sdfx"
	"github.com/chazu/ballpivot/pkg/meshio"
	"github.com/chazu/ballpivot/pkg/pivot"
)

// maxWarnings caps how many cloud warnings one run logs individually.
const maxWarnings = 10

// runner reconstructs one configuration, as often as asked.
type runner struct {
	cfg    config.Config
	engine *engine.Engine
	log    *log.Logger
}

func newRunner(cfg config.Config, l *log.Logger) *runner {
	return &runner{
		cfg:    cfg,
		engine: engine.NewEngine(sdfx.New(), cfg.Sample.Spacing),
		log:    l,
	}
}

// report logs the outcome of a watched run.
func (r *runner) report(err error) {
	if err != nil {
		r.log.Error("reconstruction failed", "err", err)
	}
}

// run loads or builds the cloud, validates it, reconstructs it and writes the
// mesh. Nothing is written when any step fails.
func (r *runner) run() error {
	id := uuid.New()
	l := r.log.With("run", id.String()[:8])
	start := time.Now()

	points, radius, err := r.cloud()
	if err != nil {
		return err
	}

	report := cloud.Validate(points, radius)
	for i, w := range report.Warnings {
		if i == maxWarnings {
			l.Warn("more cloud warnings suppressed", "count", len(report.Warnings)-maxWarnings)
			break
		}
		l.Warn(w.Error())
	}
	if err := report.Err(); err != nil {
		return err
	}

	if r.cfg.CloudOutput != "" {
		if err := meshio.SaveCloud(r.cfg.CloudOutput, points); err != nil {
			return err
		}
		l.Info("wrote cloud", "path", r.cfg.CloudOutput, "points", len(points))
	}

	rec := pivot.New(radius,
		pivot.WithLogger(l),
		pivot.WithMaxIterations(r.cfg.MaxIterations))
	res, ok := rec.Run(points)
	if !ok {
		return errors.Errorf("no seed triangle: radius %g finds no empty ball among %d points", radius, len(points))
	}

	out := r.cfg.OutputPath()
	if err := meshio.SaveMesh(out, r.cfg.MeshFormat(), "bpa run "+id.String(), res.Triangles); err != nil {
		return err
	}
	l.Info("wrote mesh", "path", out, "triangles", len(res.Triangles),
		"elapsed", time.Since(start).Round(time.Millisecond))
	return nil
}

// cloud returns the points to mesh and the radius to mesh them with. A
// configured radius wins over one named by a script.
func (r *runner) cloud() ([]pivot.Point, float64, error) {
	if r.cfg.Script == "" {
		points, err := meshio.LoadCloud(r.cfg.Input)
		return points, r.cfg.Radius, err
	}

	src, err := os.ReadFile(r.cfg.Script)
	if err != nil {
		return nil, 0, errors.Wrap(err, "read script")
	}
	scene, evalErrs, err := r.engine.Evaluate(string(src))
	if err != nil {
		return nil, 0, errors.Wrapf(err, "script %s", r.cfg.Script)
	}
	if len(evalErrs) > 0 {
		msgs := make([]string, len(evalErrs))
		for i, e := range evalErrs {
			msgs[i] = e.Error()
		}
		return nil, 0, fmt.Errorf("script %s: %s", r.cfg.Script, strings.Join(msgs, "; "))
	}
	if len(scene.Points) == 0 {
		return nil, 0, errors.Errorf("script %s built no cloud", r.cfg.Script)
	}

	radius := r.cfg.Radius
	if radius == 0 {
		radius = scene.Radius
	}
	if radius == 0 {
		return nil, 0, errors.Wrapf(config.ErrInvalidRadius, "script %s names no radius", r.cfg.Script)
	}
	return scene.Points, radius, nil
}
