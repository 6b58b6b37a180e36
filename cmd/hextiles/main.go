// Command hextiles bins (x, y) samples into hexagonal tiles and renders,
// stores or serves the result.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/banshee-data/hextiles/internal/fsutil"
	"github.com/banshee-data/hextiles/internal/httputil"
	"github.com/banshee-data/hextiles/internal/version"
)

// app carries the process environment so commands can run in tests.
type app struct {
	fs     fsutil.FileSystem
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	// http is used by push. Nil means http.DefaultClient.
	http httputil.HTTPClient
}

func main() {
	a := &app{fs: fsutil.OSFileSystem{}, stdin: os.Stdin, stdout: os.Stdout, stderr: os.Stderr}
	os.Exit(a.run(os.Args[1:]))
}

// run dispatches to a subcommand and returns the process exit code.
func (a *app) run(args []string) int {
	if len(args) < 1 {
		a.printUsage()
		return 2
	}

	command, rest := args[0], args[1:]
	var err error
	switch command {
	case "bin":
		err = a.cmdBin(rest)
	case "plot":
		err = a.cmdPlot(rest)
	case "html":
		err = a.cmdHTML(rest)
	case "import":
		err = a.cmdImport(rest)
	case "push":
		err = a.cmdPush(rest)
	case "serve":
		err = a.cmdServe(rest)
	case "migrate":
		err = a.cmdMigrate(rest)
	case "version":
		fmt.Fprintln(a.stdout, version.String())
	case "help", "-h", "--help":
		a.printUsage()
	default:
		fmt.Fprintf(a.stderr, "Unknown command: %s\n\n", command)
		a.printUsage()
		return 2
	}

	switch {
	case err == nil:
		return 0
	case errors.Is(err, flag.ErrHelp):
		return 0
	case errors.Is(err, errUsage):
		fmt.Fprintf(a.stderr, "hextiles %s: %v\n", command, err)
		return 2
	default:
		fmt.Fprintf(a.stderr, "hextiles %s: %v\n", command, err)
		return 1
	}
}

func (a *app) printUsage() {
	fmt.Fprint(a.stdout, `hextiles - hexagonal binning of scattered points

Usage: hextiles <command> [options] [input.csv]

Commands:
  bin        Aggregate samples and print the table as CSV (or -json)
  plot       Render a static figure (png, svg or pdf); stacks write one file per frame
  html       Render an interactive HTML chart
  import     Store a CSV file in the dataset database
  push       Upload a CSV file to a running server
  serve      Serve stored datasets over HTTP
  migrate    Manage the database schema (up, down, version, force N)
  version    Show version information
  help       Show this help message

Common Flags:
  -config <file>         JSON settings file (default config/hextiles.defaults.json if present)
  -gridsize <n>          Bins along x (and y unless -gridsize-y is given)
  -gridsize-y <n>        Bins along y
  -orientation <o>       pointy or flat
  -aggregator <name>     count, sum, mean, median, min, max, std, var
  -min-count <v>         Drop tiles whose first value is below v (applied when v > 1)
  -vdims <a,b>           Value columns to aggregate (default: every column but x, y and frame)
  -x, -y <name>          Coordinate column names (default x and y)
  -frame-column <name>   Stack frame column (default frame)
  -colormap <name>       Colour map for plot and html
  -size-index <col>      Value column scaling each tile, up to -max-scale
  -title <text>          Figure title
  -debug                 Verbose logging

Input is CSV with a header row, read from stdin when the file is "-".
Columns x and y are required, a "frame" column splits the samples into
a stack. Empty cells are missing values.

Examples:
  hextiles bin -gridsize 20 points.csv
  hextiles plot -aggregator mean -vdims weight -o tiles.png points.csv
  hextiles serve -db hextiles.db -listen :8080
`)
}
