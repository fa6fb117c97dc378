// Package cmd implements the CLI application to run portfolio simulations.
package cmd

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/google/subcommands"
	"github.com/planwise/portsim"
	"github.com/rs/zerolog"
)

// Register the subcommands.
// A main package will call Register() to allow subcommands, and Execute() on the user-selected one.
func Register(c *subcommands.Commander) {
	c.Register(&investCmd{}, "operations")
	c.Register(&investToCmd{}, "operations")
	c.Register(&transferCmd{}, "operations")
	c.Register(&rebalanceCmd{}, "operations")

	c.Register(&stateCmd{}, "reports")
	c.Register(&tradesCmd{}, "reports")
	c.Register(&simulateCmd{}, "reports")
}

// as a CLI application, it has a very short lived lifecycle, so it is ok to use global variables.

var planFile = flag.String("plan-file", "plan.json", "Path to the allocation plan file (JSON)")
var configFile = flag.String("config-file", "psim.json", "Path to the configuration file (JSON)")
var journalFile = flag.String("journal-file", "operations.jsonl", "Path to the operation journal (JSONL format)")
var verbose = flag.Bool("v", false, "Enable debug logging")

// appLogger builds the application logger. Debug level with -v.
func appLogger() zerolog.Logger {
	level := zerolog.InfoLevel
	if *verbose {
		level = zerolog.DebugLevel
	}
	w := zerolog.ConsoleWriter{Out: os.Stderr}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// appConfig loads the configuration file, falling back to defaults when it
// does not exist. PSIM_TARGET_CURRENCY and PSIM_CACHE_PATH environment
// variables override the file.
func appConfig() (portsim.Config, error) {
	cfg, err := portsim.LoadConfig(*configFile)
	if errors.Is(err, fs.ErrNotExist) {
		cfg, err = portsim.DefaultConfig(), nil
	}
	if err != nil {
		return cfg, err
	}
	if v := os.Getenv("PSIM_TARGET_CURRENCY"); v != "" {
		cfg.TargetCurrency = v
	}
	if v := os.Getenv("PSIM_CACHE_PATH"); v != "" {
		cfg.CachePath = v
	}
	return cfg, nil
}

// loadPlan reads the allocation plan file.
func loadPlan() (portsim.Plan, error) {
	f, err := os.Open(*planFile)
	if err != nil {
		return nil, fmt.Errorf("cannot open plan file %q: %w", *planFile, err)
	}
	defer f.Close()
	return portsim.DecodePlan(f)
}

// openPortfolio builds the portfolio from the plan and config files, fetches
// and reconciles market data, and replays the operation journal. The
// returned closer releases the price cache, when one is configured.
func openPortfolio(log zerolog.Logger) (p *portsim.Portfolio, closer func(), err error) {
	cfg, err := appConfig()
	if err != nil {
		return nil, nil, err
	}
	plan, err := loadPlan()
	if err != nil {
		return nil, nil, err
	}

	var provider portsim.MarketDataProvider = portsim.NewYahooProvider(log)
	closer = func() {}
	if cfg.CachePath != "" {
		cache, err := portsim.OpenCache(cfg.CachePath, provider, log)
		if err != nil {
			return nil, nil, err
		}
		provider, closer = cache, func() { cache.Close() }
	}

	p, err = portsim.New(provider, plan, cfg, log)
	if err != nil {
		closer()
		return nil, nil, err
	}

	ops, err := loadJournal()
	if err != nil {
		closer()
		return nil, nil, err
	}
	if err := p.Replay(ops); err != nil {
		closer()
		return nil, nil, err
	}
	return p, closer, nil
}

// loadJournal reads the operation journal. A missing journal is an empty one.
func loadJournal() ([]portsim.Operation, error) {
	f, err := os.Open(*journalFile)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cannot open journal %q: %w", *journalFile, err)
	}
	defer f.Close()
	return portsim.DecodeOperations(f)
}

// appendOperation appends a single operation to the journal file.
func appendOperation(op portsim.Operation) subcommands.ExitStatus {
	filename := *journalFile
	// Open the file in append mode, creating it if it doesn't exist.
	f, err := os.OpenFile(filename, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening journal file %q: %v\n", filename, err)
		return subcommands.ExitFailure
	}
	defer f.Close()

	if err := portsim.EncodeOperations(f, op); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing to journal file %q: %v\n", filename, err)
		return subcommands.ExitFailure
	}

	fmt.Printf("Successfully appended operation to %s\n", filename)
	return subcommands.ExitSuccess
}

// printMarkdown renders a markdown document to stdout, falling back to the
// raw text when terminal rendering fails.
func printMarkdown(doc string) {
	out, err := glamour.Render(doc, "auto")
	if err != nil {
		fmt.Print(doc)
		return
	}
	fmt.Print(out)
}
