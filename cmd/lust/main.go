// lust - interpreter for a small Lua dialect
//
// Usage:
//   lust script.lua                # compile and run
//   lust -disasm script.lua       # print bytecode listing, don't run
//   lust -trace script.lua        # dump each instruction while running
//   lust -cache script.lua        # reuse compiled chunks across runs
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tliron/commonlog"

	"github.com/eatonphil/lust/cache"
	"github.com/eatonphil/lust/compiler"
	"github.com/eatonphil/lust/manifest"
	"github.com/eatonphil/lust/pkg/bytecode"

	_ "github.com/tliron/commonlog/simple"
)

var (
	disasm    = flag.Bool("disasm", false, "Print the compiled bytecode listing and exit")
	trace     = flag.Bool("trace", false, "Dump each instruction to stderr while running")
	useCache  = flag.Bool("cache", false, "Cache compiled chunks in SQLite")
	noConfig  = flag.Bool("no-config", false, "Ignore any lust.toml in scope")
	maxFrames = flag.Int("max-frames", 0, "Call depth limit (overrides lust.toml)")
	verbosity = flag.Int("v", 0, "Log verbosity (0 = quiet)")
)

var log = commonlog.GetLogger("lust")

func main() {
	flag.Parse()
	commonlog.Configure(*verbosity, nil)

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: lust [flags] script.lua")
		flag.PrintDefaults()
		os.Exit(2)
	}
	if err := run(flag.Arg(0)); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	source := string(data)

	m, err := loadManifest(path)
	if err != nil {
		return err
	}

	chunk, err := compile(path, source, m)
	if err != nil {
		return err
	}

	if *disasm {
		fmt.Print(chunk.Disassemble())
		return nil
	}

	vm := bytecode.NewVM()
	vm.SetMaxFrames(m.Limits.FrameDepth)
	vm.SetStackSize(m.Limits.StackSize)
	if *maxFrames > 0 {
		vm.SetMaxFrames(*maxFrames)
	}
	if *trace || m.Trace.Instructions {
		vm.Trace = true
	}

	_, err = vm.Interpret(chunk)
	return err
}

func loadManifest(scriptPath string) (*manifest.Manifest, error) {
	if *noConfig {
		return manifest.Default(), nil
	}
	m, err := manifest.FindAndLoad(filepath.Dir(scriptPath))
	if err != nil {
		return nil, err
	}
	if m == nil {
		return manifest.Default(), nil
	}
	log.Debugf("using manifest in %s", m.Dir)
	return m, nil
}

// compile turns source text into a chunk, consulting the chunk cache
// when enabled. Lex and parse failures render a caret diagnostic
// pointing into the source.
func compile(path, source string, m *manifest.Manifest) (*bytecode.Chunk, error) {
	store := openCache(m)
	if store != nil {
		defer store.Close()
		if chunk, err := store.Get(source); err == nil {
			return chunk, nil
		} else if !errors.Is(err, cache.ErrMiss) {
			log.Errorf("cache lookup: %v", err)
		}
	}

	program, err := compiler.Parse(source)
	if err != nil {
		return nil, diagnose(path, source, err)
	}
	chunk, err := bytecode.Compile(program)
	if err != nil {
		return nil, err
	}

	if store != nil {
		if err := store.Put(source, chunk); err != nil {
			log.Errorf("cache store: %v", err)
		}
	}
	return chunk, nil
}

func openCache(m *manifest.Manifest) *cache.Store {
	if !*useCache && !m.Cache.Enabled {
		return nil
	}

	var store *cache.Store
	var err error
	if path := m.CachePath(); path != "" {
		store, err = cache.Open(path)
	} else {
		store, err = cache.OpenDefault()
	}
	if err != nil {
		// The cache is an optimization; run without it.
		log.Errorf("opening cache: %v", err)
		return nil
	}
	return store
}

// diagnose wraps a lex or parse error with a caret pointing at the
// offending source position.
func diagnose(path, source string, err error) error {
	var lexErr *compiler.LexError
	if errors.As(err, &lexErr) {
		return fmt.Errorf("%s: %v\n%s", path, err, compiler.Annotate(source, lexErr.Pos, lexErr.Msg))
	}
	var parseErr *compiler.ParseError
	if errors.As(err, &parseErr) {
		return fmt.Errorf("%s: %v\n%s", path, err, compiler.Annotate(source, parseErr.Got.Pos, "unexpected token"))
	}
	return fmt.Errorf("%s: %v", path, err)
}
