package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/chazu/glyphgraph/internal/config"
	"github.com/chazu/glyphgraph/pkg/engine"
	"github.com/chazu/glyphgraph/pkg/eval"
	"github.com/chazu/glyphgraph/pkg/fragment"
	"github.com/chazu/glyphgraph/pkg/graph"
	"github.com/chazu/glyphgraph/pkg/ops"
	"github.com/chazu/glyphgraph/pkg/raster"
	"github.com/chazu/glyphgraph/pkg/raster/oksvg"
)

// ErrNoTarget is returned when neither the request nor the loaded graph
// names a node to render.
var ErrNoTarget = errors.New("no target node: pass --target or set an output")

// ErrUnsupportedFile is returned for graph files with an unknown extension.
var ErrUnsupportedFile = errors.New("unsupported graph file")

// ScriptError carries the evaluation errors of a graph script.
type ScriptError struct {
	File   string
	Errors []engine.EvalError
}

func (e *ScriptError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, err := range e.Errors {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("%s: %s", e.File, strings.Join(msgs, "; "))
}

// Loaded is a graph read from a document or a script, with its default
// output node.
type Loaded struct {
	Graph  *graph.Graph
	Output graph.NodeID
}

// RenderOptions selects what Render draws.
type RenderOptions struct {
	Target     graph.NodeID
	Cutoff     graph.NodeID
	Resolution int
	Format     string
}

// App ties the script engine, the evaluator and the rasterizer together
// for one CLI invocation.
type App struct {
	cfg     *config.Config
	engine  *engine.Engine
	raster  raster.Rasterizer
	eval    *eval.Evaluator
	session *eval.Session
}

// NewApp creates an App with a fresh engine and the oksvg rasterizer.
func NewApp(cfg *config.Config) *App {
	r := oksvg.New()
	e := eval.New(r, eval.WithCacheCapacity(cfg.CacheCapacity))
	return &App{
		cfg:     cfg,
		engine:  engine.NewEngine(),
		raster:  r,
		eval:    e,
		session: eval.NewSession(e),
	}
}

// Evaluator returns the evaluator shared by every render of this App.
func (a *App) Evaluator() *eval.Evaluator { return a.eval }

// Load reads a graph from path. .yaml, .yml and .json files are graph
// documents; .lisp and .zy files are scripts.
func (a *App) Load(path string) (*Loaded, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read graph: %w", err)
	}
	return a.LoadSource(path, data)
}

// LoadSource parses data as the graph file named name.
func (a *App) LoadSource(name string, data []byte) (*Loaded, error) {
	var l *Loaded
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml", ".json":
		g, out, err := graph.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		l = &Loaded{Graph: g, Output: out}
	case ".lisp", ".zy":
		s, evalErrs, err := a.engine.Evaluate(string(data))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		if len(evalErrs) > 0 {
			return nil, &ScriptError{File: name, Errors: evalErrs}
		}
		l = &Loaded{Graph: s.Graph, Output: s.Output}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFile, name)
	}
	a.applyDefaults(l.Graph)
	return l, nil
}

// applyDefaults sets the configured trace fidelity on trace nodes that do
// not choose their own.
func (a *App) applyDefaults(g *graph.Graph) {
	for _, n := range g.Nodes() {
		if n.Kind != ops.KindTrace {
			continue
		}
		if _, ok := n.Params["fidelity"]; ok {
			continue
		}
		_ = g.SetParam(n.ID, "fidelity", a.cfg.Fidelity)
	}
}

func (a *App) request(l *Loaded, opts RenderOptions) (eval.Request, error) {
	req := eval.Request{Target: opts.Target, Cutoff: opts.Cutoff, Resolution: opts.Resolution}
	if req.Target.IsZero() {
		req.Target = l.Output
	}
	if req.Resolution == 0 {
		req.Resolution = a.cfg.Resolution
	}
	if req.Target.IsZero() && req.Cutoff.IsZero() {
		return req, ErrNoTarget
	}
	return req, nil
}

// Render evaluates l and encodes the result as an SVG document or a PNG.
func (a *App) Render(ctx context.Context, l *Loaded, opts RenderOptions) ([]byte, error) {
	req, err := a.request(l, opts)
	if err != nil {
		return nil, err
	}
	f, err := a.session.Render(ctx, l.Graph, req)
	if err != nil {
		return nil, err
	}

	format := opts.Format
	if format == "" {
		format = a.cfg.Format
	}
	switch format {
	case config.FormatSVG:
		return []byte(fragment.Document(f, req.Resolution)), nil
	case config.FormatPNG:
		return a.encodePNG(ctx, f, req.Resolution)
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}
}

func (a *App) encodePNG(ctx context.Context, f fragment.Fragment, res int) ([]byte, error) {
	img, err := a.raster.Rasterize(ctx, raster.Request{
		Markup:   f.Markup,
		Defs:     f.Defs,
		Width:    res,
		Height:   res,
		Viewport: res,
	})
	if err != nil {
		return nil, fmt.Errorf("rasterize document: %w", err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
