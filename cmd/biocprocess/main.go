// Command biocprocess reads a BioC XML collection, annotates every document
// with the configured pipelines and writes the result as BioC XML.
package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"

	"github.com/cognicore/medlite/internal/logging"
	"github.com/cognicore/medlite/pkg/medlite"
	"github.com/cognicore/medlite/pkg/medlite/biocxml"
	"github.com/cognicore/medlite/pkg/medlite/config"
	"github.com/cognicore/medlite/pkg/medlite/document"
)

// CLI defines the command-line interface for biocprocess.
type CLI struct {
	Input    string `arg:"" name:"input" type:"existingfile" help:"BioC XML collection to annotate."`
	Output   string `arg:"" name:"output" type:"path" help:"Where to write the annotated collection."`
	Config   string `name:"config" env:"METAMAPLITE_PROPERTY_FILE" type:"path" help:"Properties file (default config/metamaplite.properties)."`
	Workers  int    `name:"workers" help:"Documents processed concurrently."`
	LogLevel string `name:"log-level" help:"debug, info, warn or error."`
}

var exit = os.Exit

func main() {
	_ = godotenv.Load()

	var cli CLI
	ctx := kong.Parse(&cli, options()...)
	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}

func options() []kong.Option {
	return []kong.Option{
		kong.Name("biocprocess"),
		kong.Description("Annotate a BioC XML collection."),
		kong.UsageOnError(),
		// Usage, whether requested or caused by bad arguments, exits 1.
		kong.Exit(func(int) { exit(1) }),
		kong.ConfigureHelp(kong.HelpOptions{Compact: true}),
	}
}

// Run processes the input collection.
func (c *CLI) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return c.run(ctx)
}

func (c *CLI) run(ctx context.Context) (err error) {
	ctx = logging.WithRunID(ctx, logging.NewRunID())

	cfg, err := config.LoadFile(config.ResolvePath(c.Config, config.DefaultPropertyFile, config.PipelinePropertyFile))
	if err != nil {
		return err
	}
	if c.Workers > 0 {
		if err := cfg.Set(config.KeyWorkers, strconv.Itoa(c.Workers)); err != nil {
			return err
		}
	}
	level := c.LogLevel
	if level == "" {
		level = cfg.String(config.KeyLogLevel, "info")
	}
	logging.InitLogger(logging.ParseLevel(level), logging.ParseFormat(cfg.String(config.KeyLogFormat, "text")), os.Stderr)
	log := logging.FromContext(ctx, nil)

	engine, err := medlite.New(ctx, medlite.Options{Config: cfg, Logger: log})
	if err != nil {
		return err
	}
	defer func() {
		if cerr := engine.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	in, err := document.LoadCollection(document.BioC, c.Input)
	if err != nil {
		return err
	}

	start := time.Now()
	out, err := engine.ProcessCollection(ctx, in)
	if err != nil {
		return err
	}
	if err := biocxml.WriteFile(c.Output, out); err != nil {
		return err
	}

	log.Info("collection written",
		"input", c.Input,
		"output", c.Output,
		"documents", len(out.Documents),
		"elapsed", time.Since(start).Round(time.Millisecond).String())
	return nil
}
