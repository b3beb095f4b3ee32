// moosetool is a CLI utility for MOOSE ontology containers and deformable GLB models.
package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	moose "github.com/flywave/go-moose"
	"github.com/flywave/go-moose/internal/config"
	"github.com/flywave/go-moose/internal/logger"
)

var errUsage = errors.New("usage")

func main() {
	err := run(os.Args[1:], os.Stdout)
	logger.Sync()
	if err != nil {
		if !errors.Is(err, errUsage) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	if len(args) < 1 {
		printUsage(os.Stderr)
		return errUsage
	}

	command := args[0]
	args = args[1:]

	switch command {
	case "schema-write":
		return cmdSchemaWrite(args, out)
	case "schema-read":
		return cmdSchemaRead(args, out)
	case "inspect", "info":
		return cmdInspect(args, out)
	case "primitive", "prim":
		return cmdPrimitive(args, out)
	case "deform":
		return cmdDeform(args, out)
	case "help", "-h", "--help":
		printUsage(out)
		return nil
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage(os.Stderr)
		return errUsage
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `moosetool - MOOSE ontology container and model utility

Usage:
  moosetool <command> [options]

Commands:
  schema-write <schema.json|yaml> <out.glb>  Pack an ontology document into a GLB container
  schema-read <file.glb>                     Print the ontology document of a container
  inspect <file.glb>                         Classify a GLB and summarize its contents
  primitive [-type box] <out.glb>            Generate a primitive, apply modifiers, export GLB
  deform [-twist y:1.5] <in.glb> <out.glb>   Apply modifiers to every node of a model

Shared options:
  -config <file>   YAML config (defaults < file < flags)
  -debug           Enable debug logging
  -log-file <file> Also write JSON logs to a rotated file
  -padding <n>     Pad exported GLB files to a multiple of n bytes

Examples:
  moosetool schema-write ontology.yaml scene.glb
  moosetool primitive -type torusKnot -twist z:3.14 knot.glb
  moosetool deform -bend y:1.57 -osc oscillators.json -t 2.5 in.glb out.glb`)
}

// setup parses the subcommand flags, loads the config and starts the logger.
func setup(fs *flag.FlagSet, args []string) (*config.Config, error) {
	flags := config.RegisterFlags(fs)
	if err := fs.Parse(args); err != nil {
		return nil, errUsage
	}
	cfg, err := config.Load(flags)
	if err != nil {
		return nil, err
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		return nil, err
	}
	return cfg, nil
}

func readSchemaSource(path string) (*moose.OntologicalSchema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	schema := &moose.OntologicalSchema{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, schema)
	default:
		err = json.Unmarshal(data, schema)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return schema, nil
}

func cmdSchemaWrite(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("schema-write", flag.ContinueOnError)
	strict := fs.Bool("strict", false, "Reject relationship matrices that are not square")
	if _, err := setup(fs, args); err != nil {
		return err
	}
	if fs.NArg() < 2 {
		fmt.Fprintln(os.Stderr, "Usage: moosetool schema-write <schema.json|yaml> <out.glb>")
		return errUsage
	}

	schema, err := readSchemaSource(fs.Arg(0))
	if err != nil {
		return err
	}
	if err := schema.RelationshipMatrix.Validate(); err != nil {
		if *strict {
			return err
		}
		logger.Warn("relationship matrix is not square", zap.Error(err))
	}

	if err := moose.WriteContainerTo(fs.Arg(1), schema); err != nil {
		return err
	}
	logger.Info("container written",
		zap.String("path", fs.Arg(1)),
		zap.Int("concepts", len(schema.RelationshipMatrix.Concepts())),
		zap.Int("scripts", len(schema.CustomScripts)))
	fmt.Fprintf(out, "Wrote %s\n", fs.Arg(1))
	return nil
}

func cmdSchemaRead(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("schema-read", flag.ContinueOnError)
	asYAML := fs.Bool("yaml", false, "Print YAML instead of JSON")
	if _, err := setup(fs, args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: moosetool schema-read <file.glb>")
		return errUsage
	}

	schema, err := moose.ReadContainerFrom(fs.Arg(0))
	if err != nil {
		return err
	}
	logger.Debug("container read", zap.String("path", fs.Arg(0)))

	if *asYAML {
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(schema)
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(schema)
}

func cmdInspect(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("inspect", flag.ContinueOnError)
	if _, err := setup(fs, args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: moosetool inspect <file.glb>")
		return errUsage
	}

	path := fs.Arg(0)
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	kind := moose.ClassifyContainer(data)
	fmt.Fprintf(out, "File: %s\n", path)
	fmt.Fprintf(out, "Size: %d bytes\n", len(data))
	fmt.Fprintf(out, "Kind: %s\n", kind)

	switch kind {
	case moose.KindOntology:
		schema, err := moose.ReadContainer(data)
		if err != nil {
			return err
		}
		concepts := schema.RelationshipMatrix.Concepts()
		fmt.Fprintf(out, "Concepts: %d\n", len(concepts))
		for _, c := range concepts {
			fmt.Fprintf(out, "  %s\n", c)
		}
		names := make([]string, 0, len(schema.CustomScripts))
		for name := range schema.CustomScripts {
			names = append(names, name)
		}
		sort.Strings(names)
		fmt.Fprintf(out, "Scripts: %d\n", len(names))
		for _, n := range names {
			fmt.Fprintf(out, "  %s (%d bytes)\n", n, len(schema.CustomScripts[n]))
		}
	case moose.KindModel:
		mesh, err := moose.DecodeGltf(bytes.NewReader(data))
		if err != nil {
			return err
		}
		printMesh(out, mesh)
	default:
		_, err := moose.ReadContainer(data)
		return err
	}
	return nil
}

func printMesh(out io.Writer, mesh *moose.Mesh) {
	fmt.Fprintf(out, "Nodes: %d\n", mesh.NodeCount())
	fmt.Fprintf(out, "Materials: %d\n", mesh.MaterialCount())
	for i, nd := range mesh.Nodes {
		verts, tris := 0, 0
		if nd.Geometry != nil {
			verts = nd.Geometry.VertexCount()
			tris = nd.Geometry.TriangleCount()
		}
		fmt.Fprintf(out, "  [%d] %-16s %6d vertices %6d triangles\n", i, nd.Name, verts, tris)
		for _, p := range moose.OntologicalParameters(nd.Props) {
			fmt.Fprintf(out, "      %s / %s = %v\n", p.Concept, p.DisplayName, p.Value)
		}
	}
	if mesh.NodeCount() > 0 {
		bb := mesh.ComputeBBox()
		fmt.Fprintf(out, "Bounds: [%.3f %.3f %.3f] - [%.3f %.3f %.3f]\n",
			bb.Min[0], bb.Min[1], bb.Min[2], bb.Max[0], bb.Max[1], bb.Max[2])
	}
}

// modifierFlags binds -twist, -bend and -taper, each taking "axis:value".
type modifierFlags struct {
	twist, bend, taper string
}

func registerModifierFlags(fs *flag.FlagSet) *modifierFlags {
	m := &modifierFlags{}
	fs.StringVar(&m.twist, "twist", "", "Twist as axis:radians, e.g. y:1.57")
	fs.StringVar(&m.bend, "bend", "", "Bend as axis:radians, e.g. y:3.14")
	fs.StringVar(&m.taper, "taper", "", "Taper as axis:factor, e.g. y:0.5")
	return m
}

func parseAxisValue(s string) (moose.Axis, float64, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return "", 0, fmt.Errorf("expected axis:value, got %q", s)
	}
	axis, err := moose.ParseAxis(strings.ToLower(strings.TrimSpace(parts[0])))
	if err != nil {
		return "", 0, err
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return "", 0, fmt.Errorf("bad value in %q: %w", s, err)
	}
	return axis, v, nil
}

// apply overrides the configured modifiers with the ones given on the command line.
func (m *modifierFlags) apply(state moose.ModifiersState) (moose.ModifiersState, error) {
	out := state.Clone()
	if m.twist != "" {
		axis, v, err := parseAxisValue(m.twist)
		if err != nil {
			return out, fmt.Errorf("-twist: %w", err)
		}
		out.Twist = &moose.TwistModifier{Enabled: true, Axis: axis, Angle: v}
	}
	if m.bend != "" {
		axis, v, err := parseAxisValue(m.bend)
		if err != nil {
			return out, fmt.Errorf("-bend: %w", err)
		}
		out.Bend = &moose.BendModifier{Enabled: true, Axis: axis, Angle: v}
	}
	if m.taper != "" {
		axis, v, err := parseAxisValue(m.taper)
		if err != nil {
			return out, fmt.Errorf("-taper: %w", err)
		}
		out.Taper = &moose.TaperModifier{Enabled: true, Axis: axis, Factor: v}
	}
	return out, nil
}

func cmdPrimitive(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("primitive", flag.ContinueOnError)
	typ := fs.String("type", "", "Primitive type (box, sphere, cylinder, cone, torus, plane, torusKnot, ...)")
	name := fs.String("name", "", "Node name")
	mods := registerModifierFlags(fs)
	cfg, err := setup(fs, args)
	if err != nil {
		return err
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: moosetool primitive [-type box] <out.glb>")
		return errUsage
	}

	tp := cfg.Export.Primitive
	if *typ != "" {
		tp = moose.PrimitiveType(*typ)
	}
	geom, err := moose.NewPrimitive(tp, cfg.Export.Params)
	if err != nil {
		return err
	}
	state, err := mods.apply(cfg.Modifiers)
	if err != nil {
		return err
	}

	nodeName := *name
	if nodeName == "" {
		nodeName = string(tp)
	}
	mesh := moose.NewMesh()
	mesh.Materials = append(mesh.Materials, moose.DefaultMaterial())
	mesh.AddNode(&moose.MeshNode{
		Name:      nodeName,
		Geometry:  geom,
		Transform: moose.IdentityTransform(),
		Modifiers: &state,
	})
	logger.Debug("primitive generated",
		zap.String("type", string(tp)),
		zap.Int("vertices", geom.VertexCount()),
		zap.Bool("modifiers", state.Enabled()))

	target := outputPath(cfg, fs.Arg(0))
	if err := moose.WriteGlbTo(target, mesh, cfg.Export.PaddingUnit); err != nil {
		return err
	}
	logger.Info("model exported", zap.String("path", target))
	fmt.Fprintf(out, "Wrote %s (%d vertices)\n", target, geom.VertexCount())
	return nil
}

func outputPath(cfg *config.Config, name string) string {
	if filepath.IsAbs(name) || cfg.Export.OutputDir == "" {
		return name
	}
	return filepath.Join(cfg.Export.OutputDir, name)
}

func readOscillators(path string) ([]moose.Oscillator, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var oscs []moose.Oscillator
	if err := json.Unmarshal(data, &oscs); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return oscs, nil
}

func cmdDeform(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("deform", flag.ContinueOnError)
	oscPath := fs.String("osc", "", "JSON file with oscillators driving modifier values")
	elapsed := fs.Float64("t", 0, "Elapsed seconds used to evaluate oscillators")
	mods := registerModifierFlags(fs)
	cfg, err := setup(fs, args)
	if err != nil {
		return err
	}
	if fs.NArg() < 2 {
		fmt.Fprintln(os.Stderr, "Usage: moosetool deform [options] <in.glb> <out.glb>")
		return errUsage
	}

	mesh, err := moose.MeshReadFromGltf(fs.Arg(0))
	if err != nil {
		return err
	}
	state, err := mods.apply(cfg.Modifiers)
	if err != nil {
		return err
	}
	if *oscPath != "" {
		oscs, err := readOscillators(*oscPath)
		if err != nil {
			return err
		}
		var changed bool
		state, changed, err = moose.ApplyOscillators(state, oscs, *elapsed)
		if err != nil {
			return err
		}
		logger.Debug("oscillators evaluated", zap.Int("count", len(oscs)), zap.Bool("changed", changed), zap.Float64("t", *elapsed))
	}
	if err := state.Validate(); err != nil {
		return err
	}

	for _, nd := range mesh.Nodes {
		s := state.Clone()
		nd.Modifiers = &s
	}

	target := outputPath(cfg, fs.Arg(1))
	if err := moose.WriteGlbTo(target, mesh, cfg.Export.PaddingUnit); err != nil {
		return err
	}
	logger.Info("model deformed", zap.String("in", fs.Arg(0)), zap.String("out", target), zap.Int("nodes", mesh.NodeCount()))
	fmt.Fprintf(out, "Wrote %s (%d nodes)\n", target, mesh.NodeCount())
	return nil
}
