package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	flag "github.com/spf13/pflag"

	"github.com/samvad-hq/sesame-client/internal/config"
	"github.com/samvad-hq/sesame-client/internal/logger"
	"github.com/samvad-hq/sesame-client/pkg/httpclient"
	"github.com/samvad-hq/sesame-client/pkg/sesame"
)

const usage = `sesamectl - command line client for Sesame RDF repositories

Usage:
  sesamectl [global options] <command> [options]

Commands:
  repos                          List repositories on the server
  query <sparql|@file|->         Run a query and print the bindings
  ask <sparql|@file|->           Run an ASK query and print true/false
  append <file|url|->            Add statements to a context
  overwrite <file|url|->         Replace the statements of a context
  size                           Count statements in a context
  contexts                       List context identifiers
  clear                          Delete every statement in the repository
  ns get|set|delete|list         Manage namespace prefixes
  sync                           Load the datasets manifest (see SYNC_INTERVAL)

Global Options:
`

// exitCodes per failure class.
const (
	exitOK         = 0
	exitFailure    = 1
	exitValidation = 2
)

type cli struct {
	ctx    context.Context
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	cfg     *config.Config
	client  *sesame.Client
	output  string
	log     logger.Logger
	errText *color.Color
	header  *color.Color
}

type command func(c *cli, args []string) error

var commands = map[string]command{
	"repos":     runRepos,
	"query":     runQuery,
	"ask":       runAsk,
	"append":    runAppend,
	"overwrite": runOverwrite,
	"size":      runSize,
	"contexts":  runContexts,
	"clear":     runClear,
	"ns":        runNamespace,
	"sync":      runSync,
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	c := &cli{
		ctx:     ctx,
		stdin:   stdin,
		stdout:  stdout,
		stderr:  stderr,
		log:     logger.NopLogger{},
		errText: color.New(color.FgRed, color.Bold),
		header:  color.New(color.FgCyan, color.Bold),
	}

	cfg, err := config.Load()
	if err != nil {
		c.fail(err)
		return exitFailure
	}
	c.cfg = cfg

	fs := flag.NewFlagSet("sesamectl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.SetInterspersed(false)
	url := fs.String("url", cfg.SesameURL, "Sesame server URL")
	repo := fs.StringP("repo", "r", cfg.SesameRepository, "Repository id")
	timeout := fs.Duration("timeout", cfg.HTTPTimeout, "Request timeout")
	output := fs.StringP("output", "o", "table", "Output format: table|json|yaml")
	noColor := fs.Bool("no-color", false, "Disable colored output")
	verbose := fs.BoolP("verbose", "v", false, "Log requests as JSON to stderr")
	fs.Usage = func() {
		fmt.Fprint(stderr, usage)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitValidation
	}
	if *noColor {
		color.NoColor = true
	}

	switch strings.ToLower(*output) {
	case "table", "json", "yaml":
		c.output = strings.ToLower(*output)
	default:
		c.fail(fmt.Errorf("unsupported output %q (expected table, json or yaml)", *output))
		return exitValidation
	}

	if *verbose {
		cfg.LogLevel = "debug"
		log, err := logger.Init(cfg)
		if err != nil {
			c.fail(err)
			return exitFailure
		}
		defer logger.Close()
		c.log = log
	}

	if fs.NArg() == 0 {
		fs.Usage()
		return exitValidation
	}

	cfg.SesameURL = *url
	cfg.SesameRepository = strings.TrimSpace(*repo)
	cfg.HTTPTimeout = *timeout
	client, err := sesame.NewFromConfig(cfg.Sesame(),
		sesame.WithHTTPClient(httpclient.NewInstrumented(httpclient.NewRestyClient(*timeout))),
		sesame.WithLogger(c.log),
	)
	if err != nil {
		c.fail(err)
		return exitValidation
	}
	c.client = client

	name, rest := fs.Arg(0), fs.Args()[1:]
	cmd, ok := commands[name]
	if !ok {
		c.fail(fmt.Errorf("unknown command %q", name))
		fs.Usage()
		return exitValidation
	}

	if err := cmd(c, rest); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		c.fail(err)
		return exitCode(err)
	}
	return exitOK
}

// exitCode maps validation failures (bad input, missing selection) to exitValidation.
func exitCode(err error) int {
	var usageErr usageError
	if errors.As(err, &usageErr) {
		return exitValidation
	}
	kind := sesame.KindOf(err)
	if kind.Validation() || kind == sesame.KindNoRepository || kind == sesame.KindInvalidConfig {
		return exitValidation
	}
	return exitFailure
}

type usageError struct {
	msg string
}

func (e usageError) Error() string { return e.msg }

func usagef(format string, args ...any) error {
	return usageError{msg: fmt.Sprintf(format, args...)}
}

func (c *cli) fail(err error) {
	c.errText.Fprint(c.stderr, "error: ")
	fmt.Fprintln(c.stderr, err)
}

// flagSet returns a subcommand flag set writing to stderr.
func (c *cli) flagSet(name, args string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	fs.Usage = func() {
		fmt.Fprintf(c.stderr, "Usage: sesamectl %s %s\n\nOptions:\n", name, args)
		fs.PrintDefaults()
	}
	return fs
}

// requestContext bounds a single command by the client timeout.
func (c *cli) requestContext() (context.Context, context.CancelFunc) {
	if c.cfg.HTTPTimeout <= 0 {
		return context.WithCancel(c.ctx)
	}
	return context.WithTimeout(c.ctx, c.cfg.HTTPTimeout+time.Second)
}
