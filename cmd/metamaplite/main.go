// Command metamaplite annotates biomedical text with concepts and writes the
// result in one of several listing formats.
package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"

	"github.com/cognicore/medlite/internal/logging"
	"github.com/cognicore/medlite/pkg/medlite"
	"github.com/cognicore/medlite/pkg/medlite/config"
	"github.com/cognicore/medlite/pkg/medlite/document"
	"github.com/cognicore/medlite/pkg/medlite/internalerr"
	"github.com/cognicore/medlite/pkg/medlite/resultformats"
)

// CLI defines the command-line interface for metamaplite.
type CLI struct {
	Inputs []string `arg:"" name:"input" help:"Input files to annotate."`

	// Input formats
	FreeText     bool `name:"freetext" xor:"input" group:"Input format" help:"Free text, one document per file (default)."`
	ChemDNER     bool `name:"chemdner" xor:"input" group:"Input format" help:"CHEMDNER: id TAB title TAB abstract."`
	ChemDNERSLDI bool `name:"chemdnersldi" xor:"input" group:"Input format" help:"CHEMDNER SLDI: id|title TAB abstract."`
	NCBICorpus   bool `name:"ncbicorpus" xor:"input" group:"Input format" help:"NCBI disease corpus with inline category markup."`
	SLI          bool `name:"sli" xor:"input" group:"Input format" help:"Single line input: id|text per line."`

	// Output formats
	MMI  bool `name:"mmi" aliases:"mmilike" xor:"output" group:"Output format" help:"Fielded MMI listing (default)."`
	BRAT bool `name:"brat" aliases:"BRAT" xor:"output" group:"Output format" help:"BRAT standoff annotations."`
	BC   bool `name:"bc" aliases:"bc-evaluate,cdi" xor:"output" group:"Output format" help:"BioCreative evaluation listing."`
	BioC bool `name:"bioc" xor:"output" group:"Output format" help:"BioC XML collection."`

	ResultLength int    `name:"luceneresultlen" placeholder:"N" help:"Maximum concepts reported per matched span."`
	Config       string `name:"config" env:"METAMAPLITE_PROPERTY_FILE" type:"path" help:"Properties file (default config/metamaplite.properties)."`
	Workers      int    `name:"workers" help:"Documents processed concurrently (overrides metamaplite.workers)."`
	LogLevel     string `name:"log-level" help:"debug, info, warn or error (overrides metamaplite.log.level)."`
	Output       string `name:"output" short:"o" type:"path" help:"Write results to this file, or into this directory, instead of stdout."`
	Stats        bool   `name:"stats" help:"Log run statistics after processing."`
	StatsJSON    string `name:"stats-json" type:"path" help:"Write run statistics as JSON to this file."`
}

func main() {
	_ = godotenv.Load()

	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("metamaplite"),
		kong.Description("Annotate biomedical text with concepts."),
		kong.UsageOnError(),
		// Usage, whether requested or caused by bad arguments, exits 1.
		kong.Exit(func(int) { os.Exit(1) }),
		kong.ConfigureHelp(kong.HelpOptions{Compact: true}),
	)
	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}

// Run annotates the inputs and writes the results.
func (c *CLI) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return c.run(ctx, os.Stdout)
}

func (c *CLI) run(ctx context.Context, stdout io.Writer) (err error) {
	ctx = logging.WithRunID(ctx, logging.NewRunID())

	cfg, err := config.LoadFile(config.ResolvePath(c.Config, config.DefaultPropertyFile, config.PipelinePropertyFile))
	if err != nil {
		return err
	}
	if err := c.applyOverrides(cfg); err != nil {
		return err
	}

	level := c.LogLevel
	if level == "" {
		level = cfg.String(config.KeyLogLevel, "info")
	}
	logging.InitLogger(logging.ParseLevel(level), logging.ParseFormat(cfg.String(config.KeyLogFormat, "text")), os.Stderr)
	log := logging.FromContext(ctx, nil)

	inFormat := c.inputFormat(cfg)
	if _, err := document.LoaderFor(inFormat); err != nil {
		return err
	}
	outFormat, err := resultformats.Canonical(c.outputFormat(cfg))
	if err != nil {
		return err
	}

	engine, err := medlite.New(ctx, medlite.Options{Config: cfg, Logger: log})
	if err != nil {
		return err
	}
	defer func() {
		if cerr := engine.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	start := time.Now()
	result, err := engine.ProcessFiles(ctx, inFormat, c.Inputs...)
	if err != nil {
		return err
	}

	w := stdout
	outPath := c.outputPath(cfg, outFormat)
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return &internalerr.IOError{Op: "create", Path: outPath, Err: err}
		}
		defer f.Close()
		w = f
	}
	if err := resultformats.Write(outFormat, w, result); err != nil {
		return &internalerr.IOError{Op: "write", Path: outputName(outPath), Err: err}
	}

	log.Info("run complete",
		"input_format", inFormat,
		"output_format", outFormat,
		"output", outputName(outPath),
		"documents", len(result.Documents),
		"elapsed", time.Since(start).Round(time.Millisecond).String())

	if c.Stats || c.StatsJSON != "" {
		rep := buildReport(result)
		if c.Stats {
			logReport(log, rep)
		}
		if c.StatsJSON != "" {
			if err := writeReport(c.StatsJSON, rep); err != nil {
				return err
			}
		}
	}
	return nil
}

// applyOverrides copies command-line settings into the configuration
// before the engine reads it.
func (c *CLI) applyOverrides(cfg *config.Config) error {
	if c.ResultLength > 0 {
		if err := cfg.Set(config.KeyResultLength, strconv.Itoa(c.ResultLength)); err != nil {
			return err
		}
	}
	if c.Workers > 0 {
		if err := cfg.Set(config.KeyWorkers, strconv.Itoa(c.Workers)); err != nil {
			return err
		}
	}
	return nil
}

func (c *CLI) inputFormat(cfg *config.Config) string {
	switch {
	case c.FreeText:
		return document.FreeText
	case c.ChemDNER:
		return document.ChemDNER
	case c.ChemDNERSLDI:
		return document.ChemDNERSLDI
	case c.NCBICorpus:
		return document.NCBICorpus
	case c.SLI:
		return document.SLI
	default:
		return cfg.String(config.KeyInputType, document.FreeText)
	}
}

func (c *CLI) outputFormat(cfg *config.Config) string {
	switch {
	case c.MMI:
		return resultformats.MMI
	case c.BRAT:
		return resultformats.BRAT
	case c.BC:
		return resultformats.BC
	case c.BioC:
		return resultformats.BioC
	default:
		return cfg.String(config.KeyOutputFormat, resultformats.MMI)
	}
}

// outputPath names the result file. When --output is a directory the file
// is named after the first input with the configured extension, or the
// format's own extension.
func (c *CLI) outputPath(cfg *config.Config, format string) string {
	if c.Output == "" {
		return ""
	}
	if fi, err := os.Stat(c.Output); err != nil || !fi.IsDir() {
		return c.Output
	}
	ext := cfg.String(config.KeyOutputExtension, resultformats.Extension(format))
	base := filepath.Base(c.Inputs[0])
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(c.Output, base+ext)
}

func outputName(path string) string {
	if path == "" {
		return "stdout"
	}
	return path
}
