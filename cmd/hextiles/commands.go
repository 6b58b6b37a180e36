package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/banshee-data/hextiles/internal/api"
	"github.com/banshee-data/hextiles/internal/config"
	"github.com/banshee-data/hextiles/internal/db"
	"github.com/banshee-data/hextiles/internal/hexbin"
	"github.com/banshee-data/hextiles/internal/monitoring"
	"github.com/banshee-data/hextiles/internal/render"
)

// input is a parsed sample file with its settings.
type input struct {
	cfg     *config.TilesConfig
	samples hexbin.Samples
	// frames holds one key per sample, or nil when the file has no frame
	// column.
	frames []string
}

func (a *app) newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	return fs
}

// load resolves settings and reads the positional input file.
func (a *app) load(fs *flag.FlagSet, tf *tileFlags) (*input, error) {
	path, err := inputArg(fs)
	if err != nil {
		return nil, err
	}
	cfg, err := tf.settings(a, fs)
	if err != nil {
		return nil, err
	}

	var s hexbin.Samples
	var frames []string
	if path == "-" {
		s, frames, err = readSamples(a.stdin, tf.csvColumns())
	} else {
		f, oerr := a.fs.Open(path)
		if oerr != nil {
			return nil, fmt.Errorf("open input: %w", oerr)
		}
		defer f.Close()
		s, frames, err = readSamples(f, tf.csvColumns())
	}
	if err != nil {
		return nil, err
	}
	monitoring.Debugf("read %d samples from %s (vdims=%v, frames=%t)", s.Len(), path, s.VDims, frames != nil)
	return &input{cfg: cfg, samples: s, frames: frames}, nil
}

// stack reports whether the input splits into frames.
func (in *input) stack() bool { return in.frames != nil }

func (in *input) bin() (*hexbin.Table, error) {
	hc, err := in.cfg.HexbinConfig()
	if err != nil {
		return nil, err
	}
	return hexbin.Bin(in.samples, hc)
}

func (in *input) binStack() ([]hexbin.StackFrame, error) {
	hc, err := in.cfg.HexbinConfig()
	if err != nil {
		return nil, err
	}
	frames, err := hexbin.SplitFrames(in.samples, in.frames)
	if err != nil {
		return nil, err
	}
	return hexbin.BinStack(frames, hc)
}

func (in *input) renderOptions(tf *tileFlags) render.Options {
	o := in.cfg.RenderOptions()
	o.XLabel, o.YLabel = tf.xCol, tf.yCol
	return o
}

type frameJSON struct {
	Key   string        `json:"key"`
	Table api.TableJSON `json:"table"`
}

func (a *app) cmdBin(args []string) error {
	fs := a.newFlagSet("bin")
	var tf tileFlags
	tf.register(fs)
	asJSON := fs.Bool("json", false, "print the table as JSON")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	in, err := a.load(fs, &tf)
	if err != nil {
		return err
	}

	if !in.stack() {
		t, err := in.bin()
		if err != nil {
			return err
		}
		if *asJSON {
			return a.encodeJSON(api.NewTableJSON(t))
		}
		w := csv.NewWriter(a.stdout)
		if err := writeTableCSV(w, t, "", true); err != nil {
			return err
		}
		w.Flush()
		return w.Error()
	}

	stack, err := in.binStack()
	if err != nil {
		return err
	}
	if *asJSON {
		out := make([]frameJSON, len(stack))
		for i, fr := range stack {
			out[i] = frameJSON{Key: fr.Key, Table: api.NewTableJSON(fr.Table)}
		}
		return a.encodeJSON(out)
	}
	w := csv.NewWriter(a.stdout)
	for i, fr := range stack {
		if err := writeTableCSV(w, fr.Table, fr.Key, i == 0); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func (a *app) encodeJSON(v interface{}) error {
	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (a *app) cmdPlot(args []string) error {
	fs := a.newFlagSet("plot")
	var tf tileFlags
	tf.register(fs)
	out := fs.String("o", "hextiles.png", "output file; stacks write one file per frame")
	format := fs.String("format", "", "png, svg or pdf (default from the -o extension)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	ff := *format
	if ff == "" {
		ff = filepath.Ext(*out)
	}
	f, err := render.ParseFormat(ff)
	if err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	in, err := a.load(fs, &tf)
	if err != nil {
		return err
	}
	o := in.renderOptions(&tf)

	if in.stack() {
		stack, err := in.binStack()
		if err != nil {
			return err
		}
		paths, err := render.WriteFrames(a.fs, *out, stack, o, f)
		if err != nil {
			return err
		}
		for _, p := range paths {
			fmt.Fprintln(a.stdout, p)
		}
		return nil
	}

	t, err := in.bin()
	if err != nil {
		return err
	}
	if err := render.WriteFile(a.fs, *out, t, o, f); err != nil {
		return err
	}
	fmt.Fprintln(a.stdout, *out)
	return nil
}

func (a *app) cmdHTML(args []string) error {
	fs := a.newFlagSet("html")
	var tf tileFlags
	tf.register(fs)
	out := fs.String("o", "hextiles.html", "output file")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	in, err := a.load(fs, &tf)
	if err != nil {
		return err
	}
	o := in.renderOptions(&tf)

	var write func(w io.Writer) error
	if in.stack() {
		stack, err := in.binStack()
		if err != nil {
			return err
		}
		write = func(w io.Writer) error { return render.WriteStackHTML(w, stack, o) }
	} else {
		t, err := in.bin()
		if err != nil {
			return err
		}
		write = func(w io.Writer) error { return render.WriteHTML(w, t, o) }
	}

	w, err := a.fs.Create(*out)
	if err != nil {
		return fmt.Errorf("create %s: %w", *out, err)
	}
	err = write(w)
	if cerr := w.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(a.stdout, *out)
	return nil
}

// datasetName defaults to the input file's stem.
func datasetName(name, path string) string {
	if name != "" {
		return name
	}
	if path == "-" {
		return "stdin"
	}
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func (a *app) cmdImport(args []string) error {
	fs := a.newFlagSet("import")
	var tf tileFlags
	tf.registerInput(fs)
	dbPath := fs.String("db", "", "database file (default from config, else hextiles.db)")
	name := fs.String("name", "", "dataset name (default: input file name)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	in, err := a.load(fs, &tf)
	if err != nil {
		return err
	}
	path := *dbPath
	if path == "" {
		path = in.cfg.GetDBPath()
	}

	store, err := db.NewDB(path)
	if err != nil {
		return err
	}
	defer store.Close()

	d := &db.Dataset{Name: datasetName(*name, fs.Arg(0)), XLabel: tf.xCol, YLabel: tf.yCol}
	id, err := store.CreateDataset(context.Background(), d, in.samples, in.frames)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.stdout, id)
	return nil
}

func (a *app) cmdPush(args []string) error {
	fs := a.newFlagSet("push")
	var tf tileFlags
	tf.registerInput(fs)
	server := fs.String("server", "http://localhost:8080", "base URL of a hextiles server")
	name := fs.String("name", "", "dataset name (default: input file name)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	in, err := a.load(fs, &tf)
	if err != nil {
		return err
	}

	client := api.NewClient(*server)
	if a.http != nil {
		client.HTTP = a.http
	}
	req := api.NewCreateDatasetRequest(datasetName(*name, fs.Arg(0)), in.samples, in.frames)
	req.XLabel, req.YLabel = tf.xCol, tf.yCol
	d, err := client.CreateDataset(context.Background(), req)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.stdout, d.ID)
	return nil
}

func (a *app) cmdServe(args []string) error {
	fs := a.newFlagSet("serve")
	configPath := fs.String("config", "", "JSON settings file")
	dbPath := fs.String("db", "", "database file (default from config, else hextiles.db)")
	listen := fs.String("listen", "", "listen address (default from config, else :8080)")
	exportDir := fs.String("export-dir", "", "directory for exported figures (default from config, else exports)")
	debug := fs.Bool("debug", false, "enable debug logging")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if fs.NArg() != 0 {
		return fmt.Errorf("%w: unexpected arguments %v", errUsage, fs.Args())
	}

	tf := tileFlags{configPath: *configPath, debug: *debug}
	cfg, err := tf.settings(a, fs)
	if err != nil {
		return err
	}
	if *dbPath != "" {
		cfg.DBPath = dbPath
	}
	if *listen != "" {
		cfg.Listen = listen
	}
	if *exportDir != "" {
		cfg.ExportDir = exportDir
	}

	store, err := db.NewDB(cfg.GetDBPath())
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return api.NewServer(store, cfg).Start(ctx, cfg.GetListen())
}

func (a *app) cmdMigrate(args []string) error {
	fs := a.newFlagSet("migrate")
	dbPath := fs.String("db", "hextiles.db", "database file")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("%w: expected up, down, version or force <n>", errUsage)
	}

	store, err := db.OpenDB(*dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	switch action := fs.Arg(0); action {
	case "up":
		if err := store.MigrateUp(); err != nil {
			return err
		}
	case "down":
		if err := store.MigrateDown(); err != nil {
			return err
		}
	case "force":
		if fs.NArg() != 2 {
			return fmt.Errorf("%w: force needs a version", errUsage)
		}
		v, err := strconv.Atoi(fs.Arg(1))
		if err != nil {
			return fmt.Errorf("%w: invalid version %q", errUsage, fs.Arg(1))
		}
		if err := store.MigrateForce(v); err != nil {
			return err
		}
	case "version":
	default:
		return fmt.Errorf("%w: unknown migrate action %q", errUsage, action)
	}

	v, dirty, err := store.MigrateVersion()
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "schema version %d", v)
	if dirty {
		fmt.Fprint(a.stdout, " (dirty)")
	}
	fmt.Fprintln(a.stdout)
	return nil
}
