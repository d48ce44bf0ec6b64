// Command landmark-audit reports how the landmark names stored in a kick
// database map onto the tracked joint vocabulary.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"

	"github.com/jessevdk/go-flags"
	"github.com/mdobak/go-xerrors"

	"github.com/urdof7/penalty-kick-prediction/internal/features"
	"github.com/urdof7/penalty-kick-prediction/internal/logging"
	"github.com/urdof7/penalty-kick-prediction/internal/pose"
	"github.com/urdof7/penalty-kick-prediction/internal/store"
)

type options struct {
	Database string `short:"d" long:"db" description:"Kick database (SQLite)" required:"true"`
	Schema   string `short:"s" long:"schema" description:"Feature schema to check joint coverage against" default:"seq-v1"`
	JSON     bool   `short:"j" long:"json" description:"Print the report as JSON"`
	Strict   bool   `long:"strict" description:"Exit with status 2 when unknown names are found"`
}

// Report is the outcome of a landmark name audit.
type Report struct {
	Schema    string            `json:"schema"`
	Rows      int               `json:"rows"`
	Mapped    map[string]int    `json:"mapped"`
	Aliases   map[string]string `json:"aliases"`
	Untracked map[string]int    `json:"untracked"`
	Unknown   map[string]int    `json:"unknown"`
	Missing   []string          `json:"missing"`
}

// Audit classifies stored landmark name counts. Mapped counts are keyed by
// canonical joint, Aliases records which raw names produced each joint, and
// Missing lists the joints the schema reads that no row provides.
func Audit(names map[string]int, schema *features.Schema) Report {
	r := Report{
		Schema:    schema.Version,
		Mapped:    make(map[string]int),
		Aliases:   make(map[string]string),
		Untracked: make(map[string]int),
		Unknown:   make(map[string]int),
	}
	for raw, n := range names {
		r.Rows += n
		joint, err := pose.ParseLandmarkName(raw)
		switch {
		case err == nil:
			r.Mapped[string(joint)] += n
			r.Aliases[raw] = string(joint)
		case errors.Is(err, pose.ErrUntrackedLandmark):
			r.Untracked[raw] += n
		default:
			r.Unknown[raw] += n
		}
	}

	needed := make(map[string]bool)
	for _, col := range schema.Columns {
		for _, j := range col.Joints() {
			needed[string(j)] = true
		}
	}
	for j := range needed {
		if pose.Joint(j) == pose.MidHip {
			if r.Mapped[string(pose.HipLeft)] > 0 && r.Mapped[string(pose.HipRight)] > 0 {
				continue
			}
		}
		if r.Mapped[j] == 0 {
			r.Missing = append(r.Missing, j)
		}
	}
	sort.Strings(r.Missing)
	return r
}

func main() {
	var opts options
	if _, err := flags.Parse(&opts); err != nil {
		var ferr *flags.Error
		if errors.As(err, &ferr) && ferr.Type == flags.ErrHelp {
			return
		}
		os.Exit(1)
	}

	logger, _ := logging.New(logging.Config{})
	ctx := context.Background()

	report, err := run(ctx, opts)
	if err != nil {
		err := xerrors.New(err)
		logger.ErrorContext(ctx, "landmark audit failed", slog.Any("error", err))
		os.Exit(1)
	}

	if opts.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			os.Exit(1)
		}
	} else {
		printReport(os.Stdout, report)
	}

	if opts.Strict && len(report.Unknown) > 0 {
		os.Exit(2)
	}
}

func run(ctx context.Context, opts options) (Report, error) {
	schema, err := features.Lookup(opts.Schema)
	if err != nil {
		return Report{}, err
	}
	if _, err := os.Stat(opts.Database); err != nil {
		return Report{}, fmt.Errorf("database: %w", err)
	}

	st, err := store.New(opts.Database)
	if err != nil {
		return Report{}, err
	}
	defer st.Close()

	names, err := st.Poses().LandmarkNames(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("failed to count landmark names: %w", err)
	}
	return Audit(names, schema), nil
}

func printReport(w io.Writer, r Report) {
	fmt.Fprintf(w, "%d landmark rows, schema %s\n", r.Rows, r.Schema)

	fmt.Fprintln(w, "\nmapped:")
	for _, raw := range sortedKeys(r.Aliases) {
		fmt.Fprintf(w, "  %-20s -> %s\n", raw, r.Aliases[raw])
	}
	printCounts(w, "untracked", r.Untracked)
	printCounts(w, "unknown", r.Unknown)

	if len(r.Missing) > 0 {
		fmt.Fprintln(w, "\nmissing joints:")
		for _, j := range r.Missing {
			fmt.Fprintf(w, "  %s\n", j)
		}
	}
}

func printCounts(w io.Writer, title string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s:\n", title)
	for _, name := range sortedKeys(counts) {
		fmt.Fprintf(w, "  %-20s %d\n", name, counts[name])
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
