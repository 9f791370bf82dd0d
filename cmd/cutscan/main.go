// Command cutscan finds the classifier-score threshold that maximises
// S/sqrt(S+B) and renders the score distributions and significance curve.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/banshee-data/cutscan/internal/version"
)

func main() {
	err := run(context.Background(), os.Args[1:], os.Stdout)
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run dispatches args to a subcommand. Without a command name, or when the
// first argument is a flag, the arguments go to scan.
func run(ctx context.Context, args []string, out io.Writer) error {
	command := "scan"
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		command, args = args[0], args[1:]
	}

	switch command {
	case "scan":
		return handleScan(ctx, args, out)
	case "import":
		return handleImport(ctx, args, out)
	case "samples":
		return handleSamples(ctx, args, out)
	case "remove":
		return handleRemove(ctx, args, out)
	case "version":
		fmt.Fprintf(out, "cutscan version %s\n", version.String())
		return nil
	case "help":
		printUsage(out)
		return nil
	default:
		printUsage(os.Stderr)
		return fmt.Errorf("unknown command: %s", command)
	}
}

func printUsage(out io.Writer) {
	fmt.Fprintln(out, `cutscan - BDT cut optimisation for signal/background samples

Usage: cutscan [command] [options]

Commands:
  scan       Scan the cut grid, print the optimum and write plots (default)
  import     Import a CSV sample into an event database
  samples    List the samples stored in an event database
  remove     Delete a sample from an event database
  version    Show cutscan version
  help       Show this help message

Scan Flags:
  --config <file>         JSON scan configuration
  --signal <label=path>   Signal sample (CSV path, or a label with --db)
  --background <...>      Background sample, repeatable
  --db <file>             Read samples from an event database
  --cuts <n>              Number of grid bins (default 50)
  --cut-min, --cut-max    Grid range (default -1, 1)
  --column <name>         Score column in CSV inputs (default BDT_score)
  --out <dir>             Output directory (default plots)
  --reference-cut <x>     Threshold marked on the stacked plot (default 0.4)
  --stack-at-optimum      Mark the optimal cut on the stacked plot instead
  --preload               Read database samples into memory before scanning
  --run-id <id>           Name of the run directory (default: random UUID)

Command-line flags override values from --config.

Examples:
  # Scan three CSV files
  cutscan --signal ww=ww.csv --background ttbar=ttbar.csv --background tw=tw.csv

  # Store samples once, then scan from the database
  cutscan import --db events.db --role signal ww.csv
  cutscan import --db events.db --role background ttbar.csv
  cutscan scan --db events.db --cuts 100`)
}
