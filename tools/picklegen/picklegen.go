// Copyright 2025 picklegen project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// picklegen generates structurally valid Python pickle bytecode for fuzzing.
// Single-file mode writes one sample to the given file; batch mode (-dir)
// writes -samples files named <index>.pkl.
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"path/filepath"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/picklegen/picklegen/pickle"
	"github.com/picklegen/picklegen/pickle/mutators"
	"github.com/picklegen/picklegen/pkg/genconfig"
	"github.com/picklegen/picklegen/pkg/log"
	"github.com/picklegen/picklegen/pkg/osutil"
	"github.com/picklegen/picklegen/pkg/stat"
	"github.com/picklegen/picklegen/pkg/tool"
)

var (
	flagConfig       = flag.String("config", "", "YAML config file (flags override config values)")
	flagProtocol     = flag.Int("protocol", -1, "pickle protocol version (0-5), -1 selects automatically")
	flagSeed         = flag.Int64("seed", -1, "prng seed for reproducible generation, -1 for random")
	flagMinOpcodes   = flag.Int("min_opcodes", pickle.DefaultMinOpcodes, "minimum number of opcodes per sample")
	flagMaxOpcodes   = flag.Int("max_opcodes", pickle.DefaultMaxOpcodes, "maximum number of opcodes per sample")
	flagMutators     = flag.String("mutators", "", "comma-separated mutation strategies (or 'all')")
	flagMutationRate = flag.Float64("mutation_rate", 0.1, "probability of applying a mutation to a value")
	flagUnsafe       = flag.Bool("unsafe_mutations", false, "allow mutations that may produce invalid pickles")
	flagAllowExt     = flag.Bool("allow_ext", false, "allow EXT* opcodes (need an extension registry to unpickle)")
	flagAllowBuffer  = flag.Bool("allow_buffer", false, "allow buffer opcodes (need out-of-band buffers to unpickle)")
	flagSamples      = flag.Int("samples", 10000, "number of samples in batch mode")
	flagDir          = flag.String("dir", "", "output directory for batch mode")
)

var (
	statGenerated = stat.New("generated", "Generated samples", stat.Rate{}, stat.Prometheus("picklegen_generated_total"))
	statBytes     = stat.New("sample bytes", "Sample size distribution", stat.Distribution{})
	statFailed    = stat.New("failed", "Failed generation attempts", stat.Prometheus("picklegen_failed_total"))
)

func main() {
	flag.Parse()
	cfg := loadConfig()

	ms, err := mutators.Parse(joinNames(cfg.Mutators), cfg.Unsafe)
	if err != nil {
		tool.Fail(err)
	}

	if cfg.Dir != "" {
		runBatch(cfg, ms)
		return
	}

	if flag.NArg() != 1 {
		tool.Failf("usage: picklegen [flags] output.pkl (or -dir for batch mode)")
	}
	data, err := generateOne(cfg, ms)
	if err != nil {
		tool.Fail(err)
	}
	file := flag.Arg(0)
	if err := osutil.WriteFile(file, data); err != nil {
		tool.Fail(err)
	}
	fmt.Printf("generated %v bytes to %v\n", len(data), file)
}

// loadConfig merges the optional config file with command line flags.
// A flag that was set explicitly wins over the config value.
func loadConfig() *genconfig.Config {
	cfg := genconfig.Default()
	if *flagConfig != "" {
		var err error
		if cfg, err = genconfig.Load(*flagConfig); err != nil {
			tool.Fail(err)
		}
	}
	set := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
	if set["protocol"] {
		cfg.Protocol = flagProtocol
	}
	if set["seed"] {
		cfg.Seed = flagSeed
	}
	if set["min_opcodes"] {
		cfg.MinOpcodes = *flagMinOpcodes
	}
	if set["max_opcodes"] {
		cfg.MaxOpcodes = *flagMaxOpcodes
	}
	if set["mutators"] {
		cfg.Mutators = []string{*flagMutators}
	}
	if set["mutation_rate"] {
		cfg.MutationRate = *flagMutationRate
	}
	if set["unsafe_mutations"] {
		cfg.Unsafe = *flagUnsafe
	}
	if set["allow_ext"] {
		cfg.AllowExt = *flagAllowExt
	}
	if set["allow_buffer"] {
		cfg.AllowBuffer = *flagAllowBuffer
	}
	if set["samples"] {
		cfg.Samples = *flagSamples
	}
	if set["dir"] {
		cfg.Dir = *flagDir
	}
	if err := cfg.Validate(); err != nil {
		tool.Fail(err)
	}
	return cfg
}

// chooseVersion resolves the protocol: an explicit protocol wins, a fixed
// seed derives the version from the seed so runs stay reproducible, and
// otherwise the version is random.
func chooseVersion(cfg *genconfig.Config) int {
	if cfg.Protocol != nil && *cfg.Protocol >= 0 {
		return *cfg.Protocol
	}
	if cfg.Seed != nil && *cfg.Seed >= 0 {
		return int(*cfg.Seed % pickle.NumVersions)
	}
	return rand.Intn(pickle.NumVersions)
}

func newGenerator(cfg *genconfig.Config, ms []pickle.Mutator) (*pickle.Generator, error) {
	g, err := pickle.NewGenerator(chooseVersion(cfg))
	if err != nil {
		return nil, err
	}
	g.WithOpcodeRange(cfg.MinOpcodes, cfg.MaxOpcodes).
		WithExtOpcodes(cfg.AllowExt).
		WithBufferOpcodes(cfg.AllowBuffer)
	if cfg.Seed != nil && *cfg.Seed >= 0 {
		g.WithSeed(*cfg.Seed)
	}
	if len(ms) != 0 {
		g.WithMutators(ms).
			WithMutationRate(cfg.MutationRate).
			WithUnsafeMutations(cfg.Unsafe)
	}
	return g, nil
}

func generateOne(cfg *genconfig.Config, ms []pickle.Mutator) ([]byte, error) {
	g, err := newGenerator(cfg, ms)
	if err != nil {
		return nil, err
	}
	return g.Generate()
}

func runBatch(cfg *genconfig.Config, ms []pickle.Mutator) {
	if err := osutil.MkdirAll(cfg.Dir); err != nil {
		tool.Fail(err)
	}
	start := time.Now()
	var eg errgroup.Group
	eg.SetLimit(runtime.GOMAXPROCS(0))
	for idx := 0; idx < cfg.Samples; idx++ {
		idx := idx
		eg.Go(func() error {
			data, err := generateOne(cfg, ms)
			if err != nil {
				statFailed.Add(1)
				return fmt.Errorf("sample %v: %w", idx, err)
			}
			file := filepath.Join(cfg.Dir, fmt.Sprintf("%v.pkl", idx))
			if err := osutil.WriteFile(file, data); err != nil {
				statFailed.Add(1)
				return fmt.Errorf("sample %v: %w", idx, err)
			}
			statGenerated.Add(1)
			statBytes.Add(len(data))
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		log.Errorf("%v", err)
		tool.Failf("generated %v out of %v samples", statGenerated.Val(), cfg.Samples)
	}
	for _, ui := range stat.Collect() {
		log.Logf(1, "stat %v: %v", ui.Name, ui.Value)
	}
	fmt.Printf("generated %v pickle files to %v in %v\n",
		cfg.Samples, cfg.Dir, time.Since(start).Round(time.Millisecond))
}

// joinNames flattens config mutator entries into the comma list Parse takes.
func joinNames(names []string) string {
	list := ""
	for _, name := range names {
		if list != "" {
			list += ","
		}
		list += name
	}
	return list
}
