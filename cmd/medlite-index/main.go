// Command medlite-index builds a SQLite concept index from a YAML concept
// dictionary. Point metamaplite.concept.index at the result.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"

	"github.com/cognicore/medlite/internal/logging"
	"github.com/cognicore/medlite/pkg/medlite/config"
	"github.com/cognicore/medlite/pkg/medlite/internalerr"
	"github.com/cognicore/medlite/pkg/medlite/store"
	"github.com/cognicore/medlite/pkg/medlite/store/memstore"
	"github.com/cognicore/medlite/pkg/medlite/store/sqlite"
)

// CLI defines the command-line interface for medlite-index.
type CLI struct {
	Dictionary string `name:"dictionary" required:"" type:"existingfile" help:"YAML concept dictionary."`
	Index      string `name:"index" required:"" type:"path" help:"SQLite index to create or update."`
	Replace    bool   `name:"replace" help:"Remove an existing index before importing."`
	LogLevel   string `name:"log-level" default:"info" help:"debug, info, warn or error."`
}

func main() {
	_ = godotenv.Load()

	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("medlite-index"),
		kong.Description("Build a SQLite concept index from a YAML dictionary."),
		kong.UsageOnError(),
	)
	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}

// Run imports the dictionary.
func (c *CLI) Run() error {
	logging.InitLogger(logging.ParseLevel(c.LogLevel), logging.FormatText, os.Stderr)
	return c.run(context.Background())
}

func (c *CLI) run(ctx context.Context) (err error) {
	log := logging.GetLogger()
	start := time.Now()

	dict, err := config.LoadConceptDictionary(c.Dictionary)
	if err != nil {
		return &internalerr.ConfigurationError{Key: config.KeyConceptDictionary, Message: "load " + c.Dictionary, Err: err}
	}
	concepts := make([]store.Concept, 0, len(dict.Concepts))
	for _, e := range dict.Concepts {
		concepts = append(concepts, memstore.FromEntry(e))
	}

	if c.Replace {
		if err := os.Remove(c.Index); err != nil && !os.IsNotExist(err) {
			return &internalerr.IOError{Op: "remove", Path: c.Index, Err: err}
		}
	}

	idx, err := sqlite.OpenSQLite(ctx, c.Index)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := idx.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	if err := idx.Import(ctx, concepts); err != nil {
		return fmt.Errorf("import %s: %w", c.Dictionary, err)
	}

	log.Info("index built",
		"dictionary", c.Dictionary,
		"index", c.Index,
		"concepts", idx.Len(),
		"max_term_words", idx.MaxTermLength(),
		"elapsed", time.Since(start).Round(time.Millisecond).String())
	return nil
}
