package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/db47h/pldc/internal/ast"
	"github.com/db47h/pldc/internal/diag"
	"github.com/db47h/pldc/internal/ir"
	"github.com/db47h/pldc/internal/sema"
	"github.com/db47h/pldc/internal/target"

	_ "github.com/db47h/pldc/internal/target/arm32"
	_ "github.com/db47h/pldc/internal/target/arm64"
	_ "github.com/db47h/pldc/internal/target/msp430"
	_ "github.com/db47h/pldc/internal/target/x86_64"
)

var (
	targetName  string
	outFileName string
	debug       bool
)

func atExit(err error) {
	if err == nil {
		return
	}
	if !debug {
		fmt.Fprintf(os.Stderr, "\n%v\n", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "\n%+v\n", err)
	os.Exit(1)
}

// loadProgram reads a JSON-encoded parse tree from path. The grammar-driven
// parser that would normally produce this tree from source text is an
// external collaborator (internal/ast's own doc comment): this CLI consumes
// its output directly rather than re-implementing it.
func loadProgram(path string) (*ast.Node, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening source")
	}
	defer f.Close()
	var prog ast.Node
	if err := json.NewDecoder(f).Decode(&prog); err != nil {
		return nil, errors.Wrap(err, "decoding parse tree")
	}
	return &prog, nil
}

func openOutput(name string) (io.Writer, func() error, error) {
	if name == "" {
		return os.Stdout, func() error { return nil }, nil
	}
	f, err := os.Create(name)
	if err != nil {
		return nil, nil, errors.Wrap(err, "creating output")
	}
	return f, f.Close, nil
}

// compile runs the full pipeline: semantic analysis, IR construction, then
// backend lowering. Internal compiler bugs (a nil dereference from a
// malformed tree, an unresolved operand) panic deep in the passes below and
// are recovered here, exactly mirroring vm.Instance.Run's recover-to-error
// pattern in the teacher.
func compile(srcPath string, backend target.Backend, w io.Writer) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("internal compiler error: %v", r)
		}
	}()

	log := logrus.WithField("target", backend.Name())

	t0 := time.Now()
	prog, err := loadProgram(srcPath)
	if err != nil {
		return err
	}
	log.WithField("elapsed", time.Since(t0)).Debug("parse tree loaded")

	printer := diag.NewPrinter(os.Stderr)

	t0 = time.Now()
	diags, err := sema.New().Analyze(prog)
	for _, d := range diags {
		printer.Print(d)
	}
	log.WithField("elapsed", time.Since(t0)).Debug("semantic analysis complete")
	if err != nil {
		printer.PrintError(err)
		return errors.New("semantic analysis failed")
	}

	t0 = time.Now()
	ctx := ir.NewContext()
	cfgs, err := ir.NewBuilder(ctx).BuildProgram(prog)
	if err != nil {
		printer.PrintError(err)
		return errors.New("IR construction failed")
	}
	log.WithField("elapsed", time.Since(t0)).WithField("functions", len(cfgs)).Debug("IR built")

	t0 = time.Now()
	if err := backend.Emit(w, ctx, cfgs); err != nil {
		return errors.Wrap(err, "emitting assembly")
	}
	log.WithField("elapsed", time.Since(t0)).Debug("assembly emitted")
	return nil
}

func main() {
	var err error
	defer func() { atExit(err) }()

	flag.StringVar(&targetName, "target", "x86-64", fmt.Sprintf("target architecture, one of %v", target.Names()))
	flag.StringVar(&outFileName, "o", "", "output `filename` for the assembly listing (default stdout)")
	flag.BoolVar(&debug, "debug", false, "enable debug diagnostics")
	flag.Parse()

	if debug {
		logrus.SetLevel(logrus.DebugLevel)
	} else {
		logrus.SetLevel(logrus.WarnLevel)
	}

	if flag.NArg() != 1 {
		err = errors.New("usage: pldc [flags] source.json")
		return
	}

	var backend target.Backend
	backend, err = target.Select(targetName)
	if err != nil {
		return
	}

	var w io.Writer
	var closeFn func() error
	w, closeFn, err = openOutput(outFileName)
	if err != nil {
		return
	}
	defer func() {
		if cerr := closeFn(); err == nil {
			err = cerr
		}
	}()

	err = compile(flag.Arg(0), backend, w)
}
