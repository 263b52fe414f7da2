// Command errbridge inspects error domains, catalogs and code registry
// configuration.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/kong"
	"github.com/sirupsen/logrus"
)

// Globals is bound into every command's Run method.
type Globals struct {
	Logger logrus.FieldLogger
	Out    io.Writer
}

// CLI is the root command line.
type CLI struct {
	Verbose   bool   `short:"v" help:"Enable debug logging"`
	LogFormat string `name:"log-format" enum:"text,json" default:"text" help:"Log output format (text, json)"`

	FormatCode     FormatCodeCmd     `cmd:"" name:"format-code" help:"Render an error code the way a domain would"`
	CheckCatalog   CheckCatalogCmd   `cmd:"" name:"check-catalog" help:"Validate and register a domain catalog"`
	CheckMapConfig CheckMapConfigCmd `cmd:"" name:"check-map-config" help:"Load and validate a code registry configuration"`
	Roundtrip      RoundtripCmd      `cmd:"" help:"Send a demo error through a code registry and print it"`
}

func (c *CLI) logger(w io.Writer) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(w)
	if c.Verbose {
		logger.SetLevel(logrus.DebugLevel)
	}
	if c.LogFormat == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	}
	return logger
}

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "errbridge:", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	var cli CLI
	parser, err := kong.New(&cli,
		kong.Name("errbridge"),
		kong.Description("Inspect error domains, catalogs and code registries."),
		kong.UsageOnError(),
		kong.Writers(stdout, stderr),
	)
	if err != nil {
		return err
	}
	ctx, err := parser.Parse(args)
	if err != nil {
		return err
	}
	logger := cli.logger(stderr)
	logger.WithField("command", ctx.Command()).Debug("running")
	return ctx.Run(&Globals{Logger: logger, Out: stdout})
}
