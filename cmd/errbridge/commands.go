package main

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/shiwano/errbridge"
	"github.com/shiwano/errbridge/catalog"
	"github.com/shiwano/errbridge/codemap"
)

// FormatCodeCmd implements the 'format-code' command.
type FormatCodeCmd struct {
	Domain string `required:"" help:"Domain name"`
	Format string `required:"" help:"Code format flags, e.g. I32|Hex32"`
	Code   string `arg:"" help:"Code in decimal, or hex with a 0x prefix"`
}

func (c *FormatCodeCmd) Run(g *Globals) error {
	f, err := errbridge.ParseCodeFormat(c.Format)
	if err != nil {
		return err
	}
	code, err := parseCode(c.Code)
	if err != nil {
		return err
	}
	d, err := ensureDomain(c.Domain, f)
	if err != nil {
		return err
	}
	g.Logger.WithField("domain", d.Name()).WithField("format", d.Format().String()).Debug("formatting code")
	_, err = fmt.Fprintln(g.Out, d.FormatCode(code))
	return err
}

// CheckCatalogCmd implements the 'check-catalog' command.
type CheckCatalogCmd struct {
	File string `arg:"" type:"existingfile" help:"Catalog YAML file"`
}

func (c *CheckCatalogCmd) Run(g *Globals) error {
	cat, err := catalog.Load(c.File)
	if err != nil {
		return err
	}
	if rerr := cat.Register(); rerr != nil {
		g.Logger.WithField("file", c.File).Errorf("%+v", rerr)
		return rerr.Err()
	}
	g.Logger.WithField("domains", len(cat.Domains)).Info("catalog registered")

	w := tabwriter.NewWriter(g.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tFORMAT\tDESCRIPTION")
	for _, e := range cat.Domains {
		fmt.Fprintf(w, "%s\t%s\t%s\n", e.Name, e.CodeFormat(), e.Description)
	}
	return w.Flush()
}

// CheckMapConfigCmd implements the 'check-map-config' command.
type CheckMapConfigCmd struct {
	ConfigPath string `name:"config-path" default:"./configs" help:"Directory holding the config file"`
	ConfigName string `name:"config-name" default:"codemap" help:"Config file name without extension"`
}

func (c *CheckMapConfigCmd) Run(g *Globals) error {
	cfg, err := codemap.LoadConfig(codemap.LoadOptions{
		ConfigPath: c.ConfigPath,
		ConfigName: c.ConfigName,
	})
	if err != nil {
		return err
	}
	g.Logger.WithField("range_size", cfg.RangeSize()).Info("config is valid")

	out, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	_, err = g.Out.Write(out)
	return err
}

// RoundtripCmd implements the 'roundtrip' command.
type RoundtripCmd struct {
	ConfigPath string `name:"config-path" default:"./configs" help:"Directory holding an optional codemap config file"`
}

const roundtripDomain = "errbridge.roundtrip"

func (c *RoundtripCmd) Run(g *Globals) error {
	cfg, err := codemap.LoadConfig(codemap.LoadOptions{
		ConfigPath:    c.ConfigPath,
		AllowNoConfig: true,
	})
	if err != nil {
		return err
	}
	reg, rerr := codemap.New(cfg, codemap.WithLogger(g.Logger))
	if rerr != nil {
		return rerr.Err()
	}
	defer reg.Close()

	if _, err := ensureDomain(roundtripDomain, errbridge.FormatI32|errbridge.FormatHex32); err != nil {
		return err
	}

	info := errbridge.NewInfoMap()
	info.SetString("path", "/var/lib/demo/document.txt")
	info.SetI64("attempt", 3)
	cause := errbridge.NewWithCode(roundtripDomain, 28, "No space left on device")
	sent := errbridge.WrapWithInfo(cause, roundtripDomain, 1001, info, "Cannot save document")

	ctx := codemap.ContextWithThread(context.Background())
	code := reg.Register(ctx, sent)
	fmt.Fprintf(g.Out, "code: %d\n", code)

	got := reg.Retrieve(ctx, code)
	defer got.Destroy()
	_, err = fmt.Fprintf(g.Out, "%+v\n", got)
	return err
}

// ensureDomain registers name with format, or returns the domain already
// registered under name when its format matches.
func ensureDomain(name string, format errbridge.CodeFormat) (*errbridge.Domain, error) {
	rerr := errbridge.RegisterDomain(name, format)
	if rerr == nil {
		d, _ := errbridge.LookupDomain(name)
		return d, nil
	}
	if rerr.Code() == errbridge.CodeDomainAlreadyExists {
		if d, ok := errbridge.LookupDomain(name); ok && d.Format() == format {
			rerr.Destroy()
			return d, nil
		}
	}
	return nil, rerr.Err()
}

func parseCode(s string) (int32, error) {
	v, err := strconv.ParseInt(s, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid code %q: %w", s, err)
	}
	if v < math.MinInt32 || v > math.MaxUint32 {
		return 0, fmt.Errorf("code %q does not fit in 32 bits", s)
	}
	return int32(uint32(v)), nil
}
