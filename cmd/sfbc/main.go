// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"maps"
	"os"

	"go.uber.org/zap"

	"github.com/ezrec/sfbc/asm"
	"github.com/ezrec/sfbc/bytecode"
	"github.com/ezrec/sfbc/dump"
)

// parseArgs parses the command line, loading the configuration file if one
// is named. Flags given on the command line override the file.
func parseArgs(args []string) (cfg *Config, path string, output string, err error) {
	fs := flag.NewFlagSet("sfbc", flag.ContinueOnError)

	var configPath string
	var format dump.Format
	var listing bool
	var verbose bool
	var stackSize uint
	equates := equateFlag{}

	fs.StringVar(&output, "o", "", "Container to write; for container input, the dump output file")
	fs.TextVar(&format, "f", dump.FORMAT_TEXT, "Dump format: text, json or cbor")
	fs.BoolVar(&listing, "l", false, "Add disassembly listings to dumps, or print the assembly listing with -o")
	fs.Var(equates, "D", "Predefine an equate, as NAME=VALUE")
	fs.StringVar(&configPath, "config", "", "TOML configuration file")
	fs.UintVar(&stackSize, "stack", 0, "Stack size of frames without a .stack directive")
	fs.BoolVar(&verbose, "v", false, "Verbose mode")

	err = fs.Parse(args)
	if err != nil {
		return
	}

	if fs.NArg() != 1 {
		err = fmt.Errorf("expected one input file, got %v", fs.Args())
		return
	}
	path = fs.Arg(0)

	cfg = &Config{}
	if len(configPath) != 0 {
		cfg, err = LoadConfig(configPath)
		if err != nil {
			return
		}
	}

	fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "f":
			cfg.Format = format
		case "l":
			cfg.Listing = listing
		case "v":
			cfg.Verbose = verbose
		case "stack":
			cfg.StackSize = uint32(stackSize)
		}
	})

	if cfg.Equates == nil {
		cfg.Equates = make(map[string]string, len(equates))
	}
	maps.Copy(cfg.Equates, equates)

	return
}

// newLogger builds a console logger. Debug output is only enabled when
// verbose.
func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	cfg.DisableStacktrace = true
	cfg.EncoderConfig.TimeKey = ""
	if !verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	return cfg.Build()
}

// createOutput opens the dump destination; stdout unless a path is given.
func createOutput(path string, stdout io.Writer) (w io.Writer, done func() error, err error) {
	if len(path) == 0 {
		return stdout, func() error { return nil }, nil
	}

	ouf, err := os.Create(path)
	if err != nil {
		return
	}

	return ouf, ouf.Close, nil
}

// run decodes and dumps a container, or assembles a source file. The
// input kind is chosen by the container magic.
func run(cfg *Config, path string, output string, stdout io.Writer, logger *zap.Logger) (err error) {
	inf, err := os.Open(path)
	if err != nil {
		return
	}
	defer inf.Close()

	var magic [4]byte
	n, err := io.ReadFull(inf, magic[:])
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return
	}

	_, err = inf.Seek(0, io.SeekStart)
	if err != nil {
		return
	}

	dm := &dump.Dumper{Format: cfg.Format, Listing: cfg.Listing}

	if bytecode.HasMagic(magic[:n]) {
		logger.Debug("decode", zap.String("path", path))

		var ct *bytecode.Container
		ct, err = bytecode.Decode(inf)
		if err != nil {
			return
		}

		var w io.Writer
		var done func() error
		w, done, err = createOutput(output, stdout)
		if err != nil {
			return
		}

		err = dm.Container(w, ct)
		if cerr := done(); err == nil {
			err = cerr
		}
		return
	}

	logger.Debug("assemble", zap.String("path", path))

	assembler := &asm.Assembler{
		Verbose:   cfg.Verbose,
		Logger:    logger,
		StackSize: cfg.StackSize,
	}
	for name, value := range cfg.Equates {
		assembler.Predefine(name, value)
	}

	prog, err := assembler.Parse(inf)
	if err != nil {
		return
	}

	if len(output) == 0 {
		err = dm.Code(stdout, prog.Code())
		return
	}

	err = bytecode.Save(output, path, prog.Code())
	if err != nil {
		return
	}

	logger.Info("wrote", zap.String("path", output), zap.Int("frames", len(prog.Frames)))

	if cfg.Listing {
		err = prog.WriteListing(stdout)
	}

	return
}

func main() {
	cfg, path, output, err := parseArgs(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		log.Printf("%v: %v", os.Args[0], err)
		os.Exit(2)
	}

	logger, err := newLogger(cfg.Verbose)
	if err != nil {
		log.Fatalf("%v: %v", os.Args[0], err)
	}
	defer logger.Sync()

	err = run(cfg, path, output, os.Stdout, logger)
	if err != nil {
		logger.Fatal("failed", zap.String("path", path), zap.Error(err))
	}
}
