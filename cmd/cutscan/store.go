package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"path/filepath"
	"text/tabwriter"

	"github.com/segmentio/encoding/json"

	"github.com/banshee-data/cutscan/internal/config"
	"github.com/banshee-data/cutscan/internal/eventdb"
	"github.com/banshee-data/cutscan/internal/events"
)

const defaultEventDB = "events.db"

func handleImport(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	dbPath := fs.String("db", defaultEventDB, "Event database")
	configPath := fs.String("config", "", "Import every sample with a path in this scan configuration")
	label := fs.String("label", "", "Sample label (default: file name)")
	roleName := fs.String("role", "", "Sample role: signal or background")
	title := fs.String("title", "", "Legend title")
	column := fs.String("column", events.DefaultScoreColumn, "Score column")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var samples []config.SampleConfig
	switch {
	case *configPath != "":
		cfg, err := config.LoadScanConfig(*configPath)
		if err != nil {
			return err
		}
		for _, s := range cfg.Samples {
			if s.Path != "" {
				samples = append(samples, s)
			}
		}
		*column = cfg.GetScoreColumn()
	case fs.NArg() == 1:
		role, err := events.ParseRole(*roleName)
		if err != nil {
			return err
		}
		path := fs.Arg(0)
		l := *label
		if l == "" {
			l = labelFromPath(path)
		}
		samples = append(samples, config.SampleConfig{Label: l, Role: role, Path: path, Title: *title})
	default:
		return fmt.Errorf("import needs exactly one CSV file or --config")
	}
	if len(samples) == 0 {
		return fmt.Errorf("nothing to import")
	}

	store, err := eventdb.Open(*dbPath)
	if err != nil {
		return err
	}
	defer store.Close()
	return importSamples(ctx, store, samples, *column, out)
}

func importSamples(ctx context.Context, store *eventdb.Store, samples []config.SampleConfig, column string, out io.Writer) error {
	for _, sc := range samples {
		sample, err := events.LoadCSV(sc.Path, sc.Label, column)
		if err != nil {
			return err
		}
		abs, err := filepath.Abs(sc.Path)
		if err != nil {
			abs = sc.Path
		}
		meta := eventdb.SampleMeta{Label: sc.Label, Role: sc.Role, Title: sc.Title, SourcePath: abs}
		if _, err := store.ImportSample(ctx, meta, sample); err != nil {
			return err
		}
		n, err := sample.Total()
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Imported %s (%s): %d events\n", sc.Label, sc.Role, n)
	}
	return nil
}

func handleSamples(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("samples", flag.ContinueOnError)
	dbPath := fs.String("db", defaultEventDB, "Event database")
	asJSON := fs.Bool("json", false, "Print JSON instead of a table")
	if err := fs.Parse(args); err != nil {
		return err
	}

	store, err := eventdb.Open(*dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	metas, err := store.ListSamples(ctx)
	if err != nil {
		return err
	}
	return printSamples(out, metas, *asJSON)
}

func printSamples(out io.Writer, metas []eventdb.SampleMeta, asJSON bool) error {
	if asJSON {
		if metas == nil {
			metas = []eventdb.SampleMeta{}
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(metas)
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "LABEL\tROLE\tEVENTS\tTITLE\tIMPORTED")
	for _, m := range metas {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", m.Label, m.Role, m.Events, m.Title, m.ImportedAt.Format("2006-01-02 15:04"))
	}
	return tw.Flush()
}

func handleRemove(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("remove", flag.ContinueOnError)
	dbPath := fs.String("db", defaultEventDB, "Event database")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("remove needs at least one sample label")
	}

	store, err := eventdb.Open(*dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	for _, label := range fs.Args() {
		if err := store.DeleteSample(ctx, label); err != nil {
			return err
		}
		fmt.Fprintf(out, "Removed %s\n", label)
	}
	return nil
}
