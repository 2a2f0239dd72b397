// Command bpa reconstructs a triangle mesh from an oriented point cloud with
// the ball-pivoting algorithm.
//
//	bpa -i cloud.xyz -r 0.3 [-o out.stl]
//	bpa -script scene.lisp -format ply
//	bpa -config run.toml -watch
//
// The cloud comes from an .xyz or .ply file, or from a scene script that
// builds one. Flags override values read from -config. On failure nothing is
// written and the exit status is 1.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/unixpickle/essentials"

	"github.com/chazu/ballpivot/pkg/config"
	"github.com/chazu/ballpivot/pkg/logging"
)

func main() {
	os.Exit(realMain(os.Args[1:], os.Stderr))
}

func realMain(args []string, stderr io.Writer) int {
	cfg, err := parseArgs(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintln(stderr, "bpa:", err)
		return 2
	}
	logging.SetOutput(stderr)
	essentials.Must(logging.SetLevel(cfg.LogLevel))

	r := newRunner(cfg, logging.Logger())
	if !cfg.Watch {
		if err := r.run(); err != nil {
			r.log.Error("reconstruction failed", "err", err)
			return 1
		}
		return 0
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		<-sigCh
		cancel()
	}()

	if err := watch(ctx, r, r.report); err != nil {
		r.log.Error("watch failed", "err", err)
		return 1
	}
	return 0
}

// flagValues receives the command line before it is laid over the config.
type flagValues struct {
	config        string
	input         string
	script        string
	output        string
	cloudOutput   string
	format        string
	radius        float64
	spacing       float64
	maxIterations int
	verbose       bool
	watch         bool
}

// parseArgs builds the run configuration: defaults, then the -config file,
// then every flag that was given explicitly.
func parseArgs(args []string, stderr io.Writer) (config.Config, error) {
	var fv flagValues
	fs := flag.NewFlagSet("bpa", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&fv.config, "config", "", "TOML run configuration")
	fs.StringVar(&fv.input, "i", "", "input cloud (.xyz or .ply)")
	fs.StringVar(&fv.input, "input", "", "input cloud (.xyz or .ply)")
	fs.StringVar(&fv.script, "script", "", "scene script that builds the cloud")
	fs.Float64Var(&fv.radius, "r", 0, "ball radius")
	fs.Float64Var(&fv.radius, "radius", 0, "ball radius")
	fs.StringVar(&fv.output, "o", "", "output mesh (default: source path with the format's extension)")
	fs.StringVar(&fv.output, "output", "", "output mesh (default: source path with the format's extension)")
	fs.StringVar(&fv.cloudOutput, "cloud-out", "", "also write the meshed cloud (.xyz or .ply)")
	fs.StringVar(&fv.format, "format", "", "mesh format: stl, stl-ascii or ply")
	fs.Float64Var(&fv.spacing, "spacing", 0, "default surface spacing for (sample ...) in scripts")
	fs.IntVar(&fv.maxIterations, "max-iterations", 0, "cap on pivoted edges (0: proportional to the cloud)")
	fs.BoolVar(&fv.verbose, "v", false, "log every pivot")
	fs.BoolVar(&fv.watch, "watch", false, "rerun whenever the input or script changes")
	if err := fs.Parse(args); err != nil {
		return config.Config{}, err
	}
	if fs.NArg() > 0 {
		return config.Config{}, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	cfg := config.Default()
	if fv.config != "" {
		var err error
		if cfg, err = config.Load(fv.config); err != nil {
			return config.Config{}, err
		}
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "i", "input":
			cfg.Input = fv.input
		case "script":
			cfg.Script = fv.script
		case "r", "radius":
			cfg.Radius = fv.radius
		case "o", "output":
			cfg.Output = fv.output
		case "cloud-out":
			cfg.CloudOutput = fv.cloudOutput
		case "format":
			cfg.Format = fv.format
		case "spacing":
			cfg.Sample.Spacing = fv.spacing
		case "max-iterations":
			cfg.MaxIterations = fv.maxIterations
		case "v":
			if fv.verbose {
				cfg.LogLevel = "debug"
			}
		case "watch":
			cfg.Watch = fv.watch
		}
	})

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}
