package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/handiism/sra-downloader/internal/config"
	"github.com/handiism/sra-downloader/internal/console"
	"github.com/handiism/sra-downloader/internal/download"
	"github.com/handiism/sra-downloader/internal/runinfo"
)

const (
	exitOK      = 0
	exitFailure = 1
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle interrupts
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nInterrupted, cancelling...")
		cancel()
	}()

	printer := func(verbose bool) *console.Printer { return console.New(os.Stderr, verbose) }
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr, printer))
}

func usage(fs *flag.FlagSet, w io.Writer) func() {
	return func() {
		fmt.Fprintln(w, "SRA Downloader - Download the raw reads of a BioProject")
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Usage:")
		fmt.Fprintln(w, "  sra-dl -project <ACCESSION> [options]")
		fmt.Fprintln(w, "  sra-dl [options] <ACCESSION>")
		fmt.Fprintln(w, "  sra-dl -manifest <runinfo.csv> [options]")
		fmt.Fprintln(w)
		fmt.Fprintln(w, "For interactive mode, use: sra-tui")
		fmt.Fprintln(w)
		fs.PrintDefaults()
	}
}

// run executes the command and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer, newPrinter func(verbose bool) *console.Printer) int {
	fs := flag.NewFlagSet("sra-dl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = usage(fs, stderr)

	// Command line flags
	var (
		projectFlag  = fs.String("project", "", "BioProject accession to download")
		dirFlag      = fs.String("dir", "", "Target directory (default \".\")")
		manifestFlag = fs.String("manifest", "", "Runinfo manifest to use instead of querying NCBI (path, \"-\" for stdin, or bucket URL)")
		parallelFlag = fs.Int("parallel", 0, "Number of concurrent jobs (default 10)")
		mergeFlag    = fs.Bool("merge", false, "Merge the runs of samples that have several")
		skipFlag     = fs.Bool("skip-existing", false, "Skip runs whose files already exist")
		configFlag   = fs.String("config", "", "Path to config file")
		dryRunFlag   = fs.Bool("dry-run", false, "Show the samples and runs without downloading")
		verboseFlag  = fs.Bool("verbose", false, "Show verbose output")
	)

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitFailure
	}

	project := *projectFlag
	if project == "" && fs.NArg() > 0 {
		project = fs.Arg(0)
	}
	if fs.NArg() > 1 || (*projectFlag != "" && fs.NArg() > 0) {
		fmt.Fprintf(stderr, "Unexpected arguments: %s\n\n", strings.Join(fs.Args(), " "))
		fs.Usage()
		return exitFailure
	}
	if project == "" && *manifestFlag == "" {
		fmt.Fprintln(stderr, "A project accession or a manifest file is required.")
		fmt.Fprintln(stderr)
		fs.Usage()
		return exitFailure
	}

	// Load config
	settings := config.DefaultSettings()
	if *configFlag != "" {
		var err error
		settings, err = config.Load(*configFlag)
		if err != nil {
			fmt.Fprintf(stderr, "Error loading config: %v\n", err)
			return exitFailure
		}
	}

	// Apply flags
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "dir":
			settings.TargetDir = *dirFlag
		case "parallel":
			settings.Parallelism = *parallelFlag
		case "merge":
			settings.Merge = *mergeFlag
		case "skip-existing":
			settings.SkipExisting = *skipFlag
		}
	})

	if err := settings.Validate(); err != nil {
		fmt.Fprintf(stderr, "Invalid settings: %v\n", err)
		return exitFailure
	}

	printer := newPrinter(*verboseFlag)
	defer printer.Finish()

	manager := download.NewManager(settings, printer.Handle)

	if err := manager.Initialize(ctx, project, *manifestFlag); err != nil {
		if errors.Is(err, runinfo.ErrProjectNotFound) {
			printer.Infof("No runs found: %v", err)
			return exitOK
		}
		printer.Errorf("%v", err)
		return exitFailure
	}

	if *dryRunFlag {
		for _, sample := range manager.Samples() {
			accessions := make([]string, len(sample.Runs))
			for i, r := range sample.Runs {
				accessions[i] = r.Accession
			}
			fmt.Fprintf(stdout, "%s\t%s\n", sample.Name, strings.Join(accessions, ","))
		}
		return exitOK
	}

	if err := manager.Run(ctx); err != nil {
		printer.Finish()
		var phaseErr *download.PhaseError
		switch {
		case ctx.Err() != nil:
			printer.Errorf("Download cancelled")
		case errors.As(err, &phaseErr):
			for _, line := range phaseErr.Failures {
				fmt.Fprintln(stderr, "  "+line)
			}
			printer.Errorf("%v", err)
		case errors.Is(err, download.ErrMultiRunSample):
			printer.Errorf("%v (use -merge)", err)
		default:
			printer.Errorf("%v", err)
		}
		return exitFailure
	}

	return exitOK
}
