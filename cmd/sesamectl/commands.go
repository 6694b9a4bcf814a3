package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/samvad-hq/sesame-client/internal/app"
	"github.com/samvad-hq/sesame-client/internal/loader"
	"github.com/samvad-hq/sesame-client/internal/storage"
	"github.com/samvad-hq/sesame-client/pkg/sesame"
)

func runRepos(c *cli, args []string) error {
	fs := c.flagSet("repos", "")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, cancel := c.requestContext()
	defer cancel()
	res, err := c.client.ListRepositories(ctx)
	if err != nil {
		return err
	}
	return c.printResult(res)
}

func runQuery(c *cli, args []string) error {
	fs := c.flagSet("query", "[options] <sparql|@file|->")
	lang := fs.StringP("lang", "l", string(sesame.LanguageSPARQL), "Query language: sparql|serql")
	format := fs.StringP("format", "f", string(sesame.ResultSPARQLXML), "Result format")
	infer := fs.Bool("infer", true, "Include inferred statements")
	if err := fs.Parse(args); err != nil {
		return err
	}

	query, err := c.queryArg(fs.Args())
	if err != nil {
		return err
	}

	ctx, cancel := c.requestContext()
	defer cancel()
	res, err := c.client.Query(ctx, query, sesame.ResultFormat(*format), sesame.QueryLanguage(*lang), *infer)
	if err != nil {
		return err
	}
	return c.printResult(res)
}

func runAsk(c *cli, args []string) error {
	fs := c.flagSet("ask", "[options] <sparql|@file|->")
	lang := fs.StringP("lang", "l", string(sesame.LanguageSPARQL), "Query language: sparql|serql")
	if err := fs.Parse(args); err != nil {
		return err
	}

	query, err := c.queryArg(fs.Args())
	if err != nil {
		return err
	}

	ctx, cancel := c.requestContext()
	defer cancel()
	answer, err := c.client.Ask(ctx, query, sesame.QueryLanguage(*lang))
	if err != nil {
		return err
	}
	return c.printValue("answer", answer)
}

func runAppend(c *cli, args []string) error {
	return c.sendStatements("append", args)
}

func runOverwrite(c *cli, args []string) error {
	return c.sendStatements("overwrite", args)
}

// sendStatements uploads a file, URL or stdin ("-") with the append or overwrite verb.
func (c *cli) sendStatements(verb string, args []string) error {
	fs := c.flagSet(verb, "[options] <file|url|->")
	graph := fs.StringP("context", "c", sesame.NullContext, "Target context (IRI or null)")
	formatName := fs.StringP("format", "f", "", "Input format name, extension or MIME type (default: from extension)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return usagef("%s expects exactly one source argument", verb)
	}
	source := fs.Arg(0)

	format, err := resolveFormat(*formatName, source)
	if err != nil {
		return err
	}

	ctx, cancel := c.requestContext()
	defer cancel()

	if source == "-" {
		data, err := io.ReadAll(c.stdin)
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		if verb == "overwrite" {
			err = c.client.Overwrite(ctx, string(data), *graph, format)
		} else {
			err = c.client.Append(ctx, string(data), *graph, format)
		}
		if err != nil {
			return err
		}
	} else {
		if verb == "overwrite" {
			err = c.client.OverwriteFile(ctx, source, *graph, format)
		} else {
			err = c.client.AppendFile(ctx, source, *graph, format)
		}
		if err != nil {
			return err
		}
	}
	return c.printValue("status", verb+" ok")
}

func resolveFormat(name, source string) (sesame.InputFormat, error) {
	if name != "" {
		if f, ok := sesame.ParseInputFormat(name); ok {
			return f, nil
		}
		return sesame.InputFormat(name), nil
	}
	if f, ok := sesame.InputFormatForPath(source); ok {
		return f, nil
	}
	return "", usagef("cannot infer input format of %q; pass --format", source)
}

func runSize(c *cli, args []string) error {
	fs := c.flagSet("size", "[options]")
	graph := fs.StringP("context", "c", sesame.NullContext, "Context to count (IRI or null)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, cancel := c.requestContext()
	defer cancel()
	n, err := c.client.Size(ctx, *graph)
	if err != nil {
		return err
	}
	return c.printValue("size", n)
}

func runContexts(c *cli, args []string) error {
	fs := c.flagSet("contexts", "[options]")
	format := fs.StringP("format", "f", string(sesame.ResultSPARQLXML), "Result format")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, cancel := c.requestContext()
	defer cancel()
	res, err := c.client.Contexts(ctx, sesame.ResultFormat(*format))
	if err != nil {
		return err
	}
	return c.printResult(res)
}

func runClear(c *cli, args []string) error {
	fs := c.flagSet("clear", "--yes [options]")
	yes := fs.Bool("yes", false, "Confirm deleting every statement")
	forget := fs.Bool("forget-uploads", false, "Also drop the repository from the local upload ledger")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if !*yes {
		return usagef("clear deletes every statement in %q; rerun with --yes", c.client.Repository())
	}

	ctx, cancel := c.requestContext()
	defer cancel()
	if err := c.client.Clear(ctx); err != nil {
		return err
	}

	if *forget {
		store, err := storage.NewStore(c.cfg.StorageType, c.cfg.BBoltPath, storage.Options{
			UploadTTL:       c.cfg.StorageTTL,
			CleanupInterval: c.cfg.StorageCleanupInterval,
		})
		if err != nil {
			return fmt.Errorf("open upload ledger: %w", err)
		}
		defer store.Close()
		if _, err := store.ForgetPrefix(loader.LedgerPrefix(c.client.Repository())); err != nil {
			return fmt.Errorf("forget uploads: %w", err)
		}
	}
	return c.printValue("status", "cleared")
}

func runNamespace(c *cli, args []string) error {
	if len(args) == 0 {
		return usagef("ns expects a subcommand: get, set, delete or list")
	}

	ctx, cancel := c.requestContext()
	defer cancel()

	sub, rest := args[0], args[1:]
	switch sub {
	case "get":
		if len(rest) != 1 {
			return usagef("ns get expects <prefix>")
		}
		ns, err := c.client.GetNamespace(ctx, rest[0])
		if err != nil {
			return err
		}
		return c.printValue("namespace", ns)
	case "set":
		if len(rest) != 2 {
			return usagef("ns set expects <prefix> <namespace>")
		}
		if err := c.client.SetNamespace(ctx, rest[0], rest[1]); err != nil {
			return err
		}
		return c.printValue("status", "namespace set")
	case "delete":
		if len(rest) != 1 {
			return usagef("ns delete expects <prefix>")
		}
		if err := c.client.DeleteNamespace(ctx, rest[0]); err != nil {
			return err
		}
		return c.printValue("status", "namespace deleted")
	case "list":
		list, err := c.client.NamespaceList(ctx)
		if err != nil {
			return err
		}
		return c.printNamespaces(list)
	default:
		return usagef("unknown ns subcommand %q", sub)
	}
}

func runSync(c *cli, args []string) error {
	fs := c.flagSet("sync", "[options]")
	datasetsFile := fs.String("datasets", c.cfg.DatasetsFile, "Datasets manifest (YAML or JSON)")
	publishersFile := fs.String("publishers", c.cfg.PublishersFile, "Publishers file; empty disables load events")
	interval := fs.Duration("interval", c.cfg.SyncInterval, "Repeat every interval; 0 runs a single pass")
	metricsAddr := fs.String("metrics-addr", c.cfg.MetricsAddr, "Serve Prometheus metrics on this address")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *interval < 0 {
		return usagef("--interval must not be negative")
	}

	cfg := *c.cfg
	cfg.DatasetsFile = *datasetsFile
	cfg.PublishersFile = *publishersFile
	cfg.SyncInterval = *interval

	app.ServeMetrics(c.ctx, *metricsAddr, c.log)

	syncer, err := app.NewSyncer(c.ctx, &cfg, c.log)
	if err != nil {
		return err
	}
	if err := syncer.Run(c.ctx); err != nil {
		return err
	}
	return c.printValue("status", "sync complete")
}

// queryArg reads the query text from the argument, a file (@path) or stdin (-).
func (c *cli) queryArg(args []string) (string, error) {
	if len(args) != 1 {
		return "", usagef("expected exactly one query argument")
	}
	arg := args[0]
	switch {
	case arg == "-":
		raw, err := io.ReadAll(c.stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(raw), nil
	case strings.HasPrefix(arg, "@"):
		raw, err := os.ReadFile(strings.TrimPrefix(arg, "@"))
		if err != nil {
			return "", fmt.Errorf("read query file: %w", err)
		}
		return string(raw), nil
	}
	return arg, nil
}
