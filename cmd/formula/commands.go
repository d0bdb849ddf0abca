package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/sandrolain/goformula"
	"github.com/sandrolain/goformula/pkg/record"
	"github.com/sandrolain/goformula/pkg/schema"
	"github.com/sandrolain/goformula/pkg/types"
)

// assignment is one name=value command-line pair.
type assignment struct {
	name  string
	value string
}

// assignments collects repeated -set flags.
type assignments []assignment

func (a *assignments) String() string {
	parts := make([]string, len(*a))
	for i, kv := range *a {
		parts[i] = kv.name + "=" + kv.value
	}
	return strings.Join(parts, ",")
}

func (a *assignments) Set(s string) error {
	kv, err := parseAssignment(s)
	if err != nil {
		return err
	}
	*a = append(*a, kv)
	return nil
}

func parseAssignment(s string) (assignment, error) {
	name, value, ok := strings.Cut(s, "=")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return assignment{}, usageErrorf("expected name=value, got %q", s)
	}
	return assignment{name: name, value: value}, nil
}

func newFlagSet(a *app, name string) *flag.FlagSet {
	fs := flag.NewFlagSet("formula "+name, flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	return fs
}

// parseFlags parses args and wraps flag errors as usage errors.
func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return fmt.Errorf("%w: %w", errUsage, err)
	}
	return nil
}

// loadValues reads field values from a YAML (or JSON) mapping.
func loadValues(path string) (map[string]any, error) {
	values := make(map[string]any)
	if path == "" {
		return values, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("parsing values %s: %w", path, err)
	}
	if values == nil {
		values = make(map[string]any)
	}
	return values, nil
}

// parseNow reads the -now flag. Empty means the wall clock.
func parseNow(s string) (func() time.Time, error) {
	if s == "" {
		return time.Now, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		var ok bool
		if t, ok = schema.ParseDate(s); !ok {
			return nil, usageErrorf("cannot read -now %q as a time", s)
		}
	}
	return func() time.Time { return t }, nil
}

// printResult writes the display form of r. A failed result is also
// returned as an error so that the command exits non-zero.
func printResult(a *app, r types.Result) error {
	fmt.Fprintln(a.stdout, r.String())
	if !r.OK() {
		return fmt.Errorf("%s: %s", r.Kind(), r.Message())
	}
	return nil
}

func runEval(_ context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "eval")
	var sets assignments
	fs.Var(&sets, "set", "Field value as name=value (repeatable)")
	valuesFile := fs.String("values", "", "YAML or JSON file of field values")
	now := fs.String("now", "", "Fixed current time (RFC3339 or a date)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return usageErrorf("eval needs exactly one formula")
	}

	clock, err := parseNow(*now)
	if err != nil {
		return err
	}
	values, err := loadValues(*valuesFile)
	if err != nil {
		return err
	}
	for _, kv := range sets {
		values[kv.name] = kv.value
	}

	engine := goformula.New(goformula.WithLogger(a.logger), goformula.WithClock(clock))
	r, err := engine.Evaluate(fs.Arg(0), values)
	if err != nil {
		return err
	}
	return printResult(a, r)
}

func runInspect(_ context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "inspect")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return usageErrorf("inspect needs exactly one formula")
	}

	f, err := goformula.Parse(fs.Arg(0))
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "fields: %s\n", strings.Join(f.Fields(), ", "))
	fmt.Fprintf(a.stdout, "functions: %s\n", strings.Join(f.Functions(), ", "))
	fmt.Fprintf(a.stdout, "tree: %s\n", f.Root())
	return nil
}

func runValidate(_ context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "validate")
	schemaPath := fs.String("schema", "", "Schema file (YAML)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if *schemaPath == "" || fs.NArg() != 1 {
		return usageErrorf("validate needs -schema and exactly one formula")
	}

	s, err := schema.LoadFile(*schemaPath)
	if err != nil {
		return err
	}
	engine := goformula.New(goformula.WithLogger(a.logger))
	r, err := engine.Validate(fs.Arg(0), s)
	if err != nil {
		return err
	}
	if !r.OK() {
		return printResult(a, r)
	}
	fmt.Fprintln(a.stdout, "ok")
	return nil
}

// storeFlags are shared by the record commands.
type storeFlags struct {
	schema *string
	db     *string
}

func addStoreFlags(fs *flag.FlagSet) storeFlags {
	return storeFlags{
		schema: fs.String("schema", "", "Schema file (YAML)"),
		db:     fs.String("db", defaultDBPath(), "SQLite database path"),
	}
}

func (sf storeFlags) open(ctx context.Context) (*schema.Schema, *record.SQLite, error) {
	if *sf.schema == "" {
		return nil, nil, usageErrorf("-schema is required")
	}
	s, err := schema.LoadFile(*sf.schema)
	if err != nil {
		return nil, nil, err
	}
	if *sf.db != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(*sf.db), 0o750); err != nil {
			return nil, nil, fmt.Errorf("creating database directory: %w", err)
		}
	}
	store, err := record.NewSQLite(ctx, *sf.db)
	if err != nil {
		return nil, nil, err
	}
	return s, store, nil
}

// getThing loads a thing and checks that it belongs to s.
func getThing(ctx context.Context, store record.Store, s *schema.Schema, rawID string) (*record.Thing, error) {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return nil, usageErrorf("invalid id %q", rawID)
	}
	th, err := store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", id, err)
	}
	if th.SchemaName != s.Name {
		return nil, fmt.Errorf("%s belongs to schema %q, not %q", id, th.SchemaName, s.Name)
	}
	return th, nil
}

func runPut(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "put")
	sf := addStoreFlags(fs)
	id := fs.String("id", "", "Existing record ID to update")
	name := fs.String("name", "", "Record display name")
	valuesFile := fs.String("values", "", "YAML or JSON file of field values")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	s, store, err := sf.open(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	values, err := loadValues(*valuesFile)
	if err != nil {
		return err
	}
	// Arguments override the values file; "name=" unsets a field.
	for _, arg := range fs.Args() {
		kv, err := parseAssignment(arg)
		if err != nil {
			return err
		}
		if kv.value == "" {
			values[kv.name] = nil
		} else {
			values[kv.name] = kv.value
		}
	}

	now := time.Now()
	var th *record.Thing
	if *id != "" {
		if th, err = getThing(ctx, store, s, *id); err != nil {
			return err
		}
	} else if th, err = record.New(s, *name, now); err != nil {
		return err
	}
	if *name != "" {
		th.Name = *name
	}
	for field, v := range values {
		if err := th.Set(s, field, v); err != nil {
			return err
		}
	}
	if err := th.Validate(s); err != nil {
		return err
	}
	th.Modified = now

	if err := store.Put(ctx, th); err != nil {
		return err
	}
	a.logger.Info("record stored", "id", th.ID, "schema", s.Name)
	fmt.Fprintln(a.stdout, th.ID)
	return nil
}

func runShow(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "show")
	sf := addStoreFlags(fs)
	now := fs.String("now", "", "Fixed current time (RFC3339 or a date)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return usageErrorf("show needs exactly one record ID")
	}
	clock, err := parseNow(*now)
	if err != nil {
		return err
	}

	s, store, err := sf.open(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	th, err := getThing(ctx, store, s, fs.Arg(0))
	if err != nil {
		return err
	}

	engine := goformula.New(goformula.WithLogger(a.logger), goformula.WithClock(clock))
	computed := engine.Compute(s, th)

	w := tabwriter.NewWriter(a.stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "ID\t%s\n", th.ID)
	fmt.Fprintf(w, "Name\t%s\n", th.Name)
	fmt.Fprintf(w, "Created\t%s\n", types.FormatValue(th.Created))
	fmt.Fprintf(w, "LastModified\t%s\n", types.FormatValue(th.Modified))
	for _, f := range s.Fields() {
		if f.Type == schema.TypeFormula {
			fmt.Fprintf(w, "%s\t%s\n", f.Name, computed[f.Name])
			continue
		}
		v, _ := th.Property(f.Name)
		fmt.Fprintf(w, "%s\t%s\n", f.Name, types.FormatValue(v))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	th.Touch(clock())
	return store.Put(ctx, th)
}

func runList(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "list")
	sf := addStoreFlags(fs)
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	s, store, err := sf.open(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	things, err := store.List(ctx, s.Name)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(a.stdout, 0, 0, 2, ' ', 0)
	for _, th := range things {
		fmt.Fprintf(w, "%s\t%s\t%s\n", th.ID, th.Name, types.FormatValue(th.Created))
	}
	return w.Flush()
}
