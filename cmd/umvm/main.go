// Package main provides the CLI entry point for UMVM.
//
// Usage:
//
//	umvm run program.um            # Execute a program image
//	umvm run -trace program.um     # Execute with instruction tracing
//	umvm asm program.uma           # Assemble source to an image (.um)
//	umvm dis program.um            # Disassemble an image
//	umvm profile program.um        # Execute and report opcode statistics
//	umvm program.um                # Legacy front end, same as run
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	dataframe "github.com/rocketlaunchr/dataframe-go"
	"github.com/rocketlaunchr/dataframe-go/exports"
	"go.uber.org/zap"

	"github.com/akhildatla/umvm/pkg/asm"
	"github.com/akhildatla/umvm/pkg/loader"
	"github.com/akhildatla/umvm/pkg/vm"
)

// Version info set by GoReleaser via ldflags
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	if len(os.Args) < 2 {
		// The original front end printed usage and exited clean when
		// the program argument was missing; kept for compatibility.
		printUsage(os.Stderr)
		return 0
	}

	cmd := os.Args[1]

	switch cmd {
	case "run":
		return runCommand(os.Args[2:])
	case "asm":
		return asmCommand(os.Args[2:])
	case "dis":
		return disCommand(os.Args[2:])
	case "profile":
		return profileCommand(os.Args[2:])
	case "version":
		fmt.Printf("umvm version %s\n", version)
		if commit != "none" {
			fmt.Printf("  commit: %s\n", commit)
		}
		if date != "unknown" {
			fmt.Printf("  built:  %s\n", date)
		}
		return 0
	case "help", "-h", "--help":
		printUsage(os.Stdout)
		return 0
	default:
		if !strings.HasPrefix(cmd, "-") {
			// Legacy invocation: umvm <program.um>
			return runCommand(os.Args[1:])
		}
		fmt.Fprintf(os.Stderr, "error: unknown command: %s\n", cmd)
		return 1
	}
}

// execute loads path into a fresh VM and runs it, reporting any fault
// as its stable exit code.
func execute(path string, trace bool, maxSteps int64, stats bool) (*vm.VM, int) {
	words, err := loader.LoadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return nil, 1
	}

	v := vm.New()
	if trace {
		logger, err := zap.NewDevelopment()
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return nil, 1
		}
		defer logger.Sync()
		v.SetLogger(logger)
	}
	if maxSteps > 0 {
		v.SetMaxSteps(maxSteps)
	}
	if stats {
		v.EnableStats()
	}
	v.SetContext(context.Background())

	if err := v.Load(words); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return nil, 1
	}
	if err := v.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return v, vm.FaultCode(err)
	}
	return v, 0
}

func runCommand(args []string) int {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	trace := fs.Bool("trace", false, "log every executed instruction")
	maxSteps := fs.Int64("max-steps", 0, "abort after N instructions (0 = unlimited)")

	if err := fs.Parse(args); err != nil {
		return 1
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "usage: umvm run <program.um>")
		return 1
	}

	_, code := execute(fs.Arg(0), *trace, *maxSteps, false)
	return code
}

func profileCommand(args []string) int {
	fs := flag.NewFlagSet("profile", flag.ExitOnError)
	output := fs.String("o", "", "write opcode statistics as CSV (default: print table)")
	maxSteps := fs.Int64("max-steps", 0, "abort after N instructions (0 = unlimited)")

	if err := fs.Parse(args); err != nil {
		return 1
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "usage: umvm profile [-o stats.csv] <program.um>")
		return 1
	}

	v, code := execute(fs.Arg(0), false, *maxSteps, true)
	if v == nil {
		return code
	}

	// Report statistics even when the program faulted; the partial
	// profile is usually what is being investigated.
	stats := v.Stats()
	df := statsFrame(stats)

	if *output != "" {
		f, err := os.Create(*output)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return 1
		}
		defer f.Close()
		if err := exports.ExportToCSV(context.Background(), f, df); err != nil {
			fmt.Fprintf(os.Stderr, "error: exporting CSV: %v\n", err)
			return 1
		}
	} else {
		fmt.Println(df.Table())
	}

	fmt.Printf("steps: %d  time: %.3fms  arrays: %d allocated, %d freed (peak %d)  io: %d in, %d out\n",
		stats.StepsExecuted,
		float64(stats.ExecutionTimeNs)/1e6,
		stats.ArraysAllocated, stats.ArraysFreed, stats.PeakActiveArrays,
		stats.BytesRead, stats.BytesWritten)

	return code
}

// statsFrame aggregates per-opcode execution counts into a frame
// sorted by count, descending.
func statsFrame(stats *vm.ExecutionStats) *dataframe.DataFrame {
	type row struct {
		op    string
		count int
	}
	rows := make([]row, 0, len(stats.OpCounts))
	for op, n := range stats.OpCounts {
		rows = append(rows, row{op, n})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].count != rows[j].count {
			return rows[i].count > rows[j].count
		}
		return rows[i].op < rows[j].op
	})

	total := stats.StepsExecuted
	ops := make([]interface{}, len(rows))
	counts := make([]interface{}, len(rows))
	shares := make([]interface{}, len(rows))
	for i, r := range rows {
		ops[i] = r.op
		counts[i] = int64(r.count)
		share := 0.0
		if total > 0 {
			share = float64(r.count) / float64(total)
		}
		shares[i] = share
	}

	return dataframe.NewDataFrame(
		dataframe.NewSeriesString("opcode", nil, ops...),
		dataframe.NewSeriesInt64("count", nil, counts...),
		dataframe.NewSeriesFloat64("share", nil, shares...),
	)
}

func asmCommand(args []string) int {
	fs := flag.NewFlagSet("asm", flag.ExitOnError)
	output := fs.String("o", "", "output file (default: input with .um extension)")

	if err := fs.Parse(args); err != nil {
		return 1
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "usage: umvm asm [-o output.um] <program.uma>")
		return 1
	}

	inputPath := fs.Arg(0)
	outputPath := *output
	if outputPath == "" {
		ext := filepath.Ext(inputPath)
		outputPath = strings.TrimSuffix(inputPath, ext) + ".um"
	}

	source, err := os.ReadFile(inputPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: reading source: %v\n", err)
		return 1
	}

	words, err := asm.Assemble(string(source))
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	if err := loader.WriteFile(outputPath, words); err != nil {
		fmt.Fprintf(os.Stderr, "error: writing image: %v\n", err)
		return 1
	}

	fmt.Printf("Assembled: %s (%d words)\n", outputPath, len(words))
	return 0
}

func disCommand(args []string) int {
	fs := flag.NewFlagSet("dis", flag.ExitOnError)
	output := fs.String("o", "", "output file (default: stdout)")

	if err := fs.Parse(args); err != nil {
		return 1
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "usage: umvm dis [-o output.uma] <program.um>")
		return 1
	}

	words, err := loader.LoadFile(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	text := vm.Disassemble(words)
	if *output != "" {
		if err := os.WriteFile(*output, []byte(text), 0644); err != nil {
			fmt.Fprintf(os.Stderr, "error: writing output: %v\n", err)
			return 1
		}
		fmt.Printf("Disassembled to: %s\n", *output)
	} else {
		fmt.Print(text)
	}
	return 0
}

func printUsage(w *os.File) {
	fmt.Fprintln(w, `UMVM - a register-based 32-bit virtual machine

Usage:
  umvm <command> [arguments]
  umvm <program.um>        Shorthand for "umvm run <program.um>"

Commands:
  run <program.um>      Execute a program image
  asm <program.uma>     Assemble source to a program image
  dis <program.um>      Disassemble a program image
  profile <program.um>  Execute and report opcode statistics
  version               Print version information
  help                  Show this help message

Run Options:
  -trace                Log every executed instruction to stderr
  -max-steps N          Abort after N instructions (0 = unlimited)

Asm Options:
  -o <file>             Output file (default: input with .um extension)

Dis Options:
  -o <file>             Output file (default: stdout)

Profile Options:
  -o <file>             Write opcode statistics as CSV
  -max-steps N          Abort after N instructions (0 = unlimited)

Exit status is 0 after a clean halt; machine faults exit with a stable
per-fault code (1-7) and one diagnostic line on stderr.`)
}
