package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"git.unix.lgbt/diamondburned/sigview"
	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

func main() {
	var (
		configPath string
		dbPath     string
		backend    string
		jobs       = 4
		age        = sigview.Duration(7 * 24 * time.Hour)
	)

	flag.Usage = func() {
		fmt.Fprintln(flag.CommandLine.Output(),
			"Usage:")
		fmt.Fprintln(flag.CommandLine.Output(),
			"  "+filepath.Base(os.Args[0]), "-db path [flags...]", "import <url|file>...")
		fmt.Fprintln(flag.CommandLine.Output(),
			"  "+filepath.Base(os.Args[0]), "-db path [flags...]", "list")
		fmt.Fprintln(flag.CommandLine.Output(),
			"  "+filepath.Base(os.Args[0]), "-db path [-age 7d]", "gc")
		fmt.Fprintln(flag.CommandLine.Output(),
			"")
		fmt.Fprintln(flag.CommandLine.Output(),
			"Flags:")
		flag.PrintDefaults()
	}

	flag.StringVar(&configPath, "config", configPath, "YAML config file")
	flag.StringVar(&dbPath, "db", dbPath, "blob cache path")
	flag.StringVar(&backend, "backend", backend, "blob cache backend (badger or bolt)")
	flag.IntVar(&jobs, "j", jobs, "number of blobs to import at once")
	flag.Var(&age, "age", "delete blobs fetched longer than this ago, e.g. 7d")
	flag.Parse()

	cfg, err := sigview.LoadConfig(configPath)
	if err != nil {
		log.Fatalln("failed to load config:", err)
	}

	if dbPath != "" {
		cfg.Cache.Path = dbPath
	}
	if backend != "" {
		cfg.Cache.Backend = backend
	}

	if cfg.Cache.Path == "" {
		log.Fatalln("missing -db flag; refer to -h.")
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalln("invalid flags:", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	switch cmd := flag.Arg(0); cmd {
	case "import":
		err = importBlobs(ctx, cfg, flag.Args()[1:], jobs)
	case "list":
		err = list(cfg)
	case "gc":
		err = gc(cfg, time.Duration(age))
	default:
		flag.Usage()
		os.Exit(2)
	}

	if err != nil {
		log.Fatalln("unexpected error:", err)
	}
}

func importBlobs(ctx context.Context, cfg sigview.Config, urls []string, jobs int) error {
	if len(urls) == 0 {
		return errors.New("nothing to import")
	}

	c, err := sigview.OpenCache(cfg.Cache, true)
	if err != nil {
		return errors.Wrap(err, "failed to open cache")
	}
	defer c.Close()

	l := sigview.NewLoader(cfg, c)
	l.AllowFiles = true

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)

	for _, url := range urls {
		url := sigview.ParseArgs(url).URL

		g.Go(func() error {
			e, err := l.Refresh(ctx, url)
			if err != nil {
				return errors.Wrapf(err, "failed to import %s", url)
			}

			log.Printf("imported %s: %d traces, %s", url, len(e.Set.Traces), humanize.Bytes(uint64(e.Size)))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	if err := c.Close(); err != nil {
		return errors.Wrap(err, "failed to close")
	}

	return nil
}

func list(cfg sigview.Config) error {
	c, err := sigview.OpenCache(cfg.Cache, false)
	if err != nil {
		return errors.Wrap(err, "failed to open cache")
	}
	defer c.Close()

	entries, err := c.Entries()
	if err != nil {
		return errors.Wrap(err, "failed to list")
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"URL", "Group", "Traces", "Size", "Fetched"})

	for _, e := range entries {
		t.AppendRow(table.Row{
			e.URL,
			e.Set.Group,
			len(e.Set.Traces),
			humanize.Bytes(uint64(e.Size)),
			humanize.Time(e.FetchedAt()),
		})
	}

	t.AppendFooter(table.Row{"", "", "", "", fmt.Sprintf("%d blobs", len(entries))})
	t.Render()

	return nil
}

func gc(cfg sigview.Config, age time.Duration) error {
	c, err := sigview.OpenCache(cfg.Cache, true)
	if err != nil {
		return errors.Wrap(err, "failed to open cache")
	}
	defer c.Close()

	n, err := c.GC(age)
	if err != nil {
		return errors.Wrap(err, "failed to GC")
	}

	log.Printf("deleted %d blobs older than %v", n, age)

	if err := c.Close(); err != nil {
		return errors.Wrap(err, "failed to close")
	}

	return nil
}
