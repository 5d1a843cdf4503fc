package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/urfave/cli"

	"neorpc/internal/client"
	"neorpc/internal/config"
	"neorpc/internal/result"
)

func main() {
	os.Exit(run(newApp(), os.Args))
}

// run executes the app and returns the process exit code
func run(ctl *cli.App, args []string) int {
	if err := ctl.Run(args); err != nil {
		fmt.Fprintln(ctl.ErrWriter, err)
		return 1
	}
	return 0
}

func newApp() *cli.App {
	ctl := cli.NewApp()
	ctl.Name = "neorpc"
	ctl.Usage = "Neo N3 JSON-RPC client"
	ctl.ErrWriter = os.Stderr
	ctl.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "config, c",
			Usage: "path to JSON or YAML config file",
		},
		cli.StringFlag{
			Name:  "endpoint, r",
			Usage: "RPC node address, overrides the config file",
		},
		cli.StringFlag{
			Name:  "log-level",
			Usage: "log level: debug, info, warn, error",
		},
		cli.DurationFlag{
			Name:  "timeout, t",
			Usage: "timeout for the whole command",
			Value: 30 * time.Second,
		},
	}
	ctl.Commands = []cli.Command{
		{
			Name:      "call",
			Usage:     "send a raw JSON-RPC request",
			UsageText: "neorpc call <method> [param...]",
			Action:    callMethod,
		},
		{
			Name:   "blockcount",
			Usage:  "print the current block count",
			Action: blockCount,
		},
		{
			Name:      "block",
			Usage:     "print a block by index or hash",
			UsageText: "neorpc block <index|hash>",
			Action:    getBlock,
		},
		{
			Name:   "health",
			Usage:  "check that the node answers",
			Action: health,
		},
		{
			Name:   "stats",
			Usage:  "run a health check and print client statistics",
			Action: stats,
		},
	}
	return ctl
}

// loadConfig reads the config file if given, otherwise defaults, and applies flags
func loadConfig(ctx *cli.Context) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if path := ctx.GlobalString("config"); path != "" {
		cfg, err = config.Load(path)
	} else {
		cfg, err = config.FromEnv()
	}
	if err != nil {
		return nil, err
	}
	if endpoint := ctx.GlobalString("endpoint"); endpoint != "" {
		cfg.Endpoint = endpoint
	}
	if level := ctx.GlobalString("log-level"); level != "" {
		cfg.LogLevel = level
	}
	return cfg, nil
}

// withClient runs fn with a client built from the command line
func withClient(ctx *cli.Context, fn func(context.Context, *client.Client) error) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return cli.NewExitError(fmt.Sprintf("failed to load config: %s", err), 1)
	}

	logger := setupLogger(cfg.LogLevel)
	c, err := client.New(cfg, logger)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	defer c.Close()

	gctx, cancel := context.WithTimeout(context.Background(), ctx.GlobalDuration("timeout"))
	defer cancel()

	if err := fn(gctx, c); err != nil {
		return cli.NewExitError(err, 1)
	}
	return nil
}

func printJSON(ctx *cli.Context, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(ctx.App.Writer, string(data))
	return nil
}

// parseParams decodes every argument as JSON, arguments that are not valid
// JSON are sent as strings. Numbers keep their text so big values are not rounded.
func parseParams(args []string) []any {
	params := make([]any, 0, len(args))
	for _, arg := range args {
		params = append(params, parseParam(arg))
	}
	return params
}

func parseParam(arg string) any {
	dec := json.NewDecoder(strings.NewReader(arg))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return arg
	}
	if _, err := dec.Token(); err != io.EOF {
		return arg
	}
	return v
}

func callMethod(ctx *cli.Context) error {
	args := ctx.Args()
	if len(args) == 0 {
		return cli.NewExitError("method is missing", 1)
	}
	return withClient(ctx, func(gctx context.Context, c *client.Client) error {
		res, err := c.Call(gctx, args.First(), parseParams(args.Tail())...)
		if err != nil {
			return err
		}
		return printJSON(ctx, res)
	})
}

func blockCount(ctx *cli.Context) error {
	return withClient(ctx, func(gctx context.Context, c *client.Client) error {
		n, err := c.GetBlockCount(gctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(ctx.App.Writer, n)
		return nil
	})
}

func getBlock(ctx *cli.Context) error {
	args := ctx.Args()
	if len(args) == 0 {
		return cli.NewExitError("block index or hash is missing", 1)
	}
	id, err := result.ParseBlockID(args.First())
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	return withClient(ctx, func(gctx context.Context, c *client.Client) error {
		b, err := c.GetBlock(gctx, id)
		if err != nil {
			return err
		}
		return printJSON(ctx, b)
	})
}

func health(ctx *cli.Context) error {
	return withClient(ctx, func(gctx context.Context, c *client.Client) error {
		h := c.HealthCheck(gctx)
		if err := printJSON(ctx, h); err != nil {
			return err
		}
		if !h.Healthy {
			return fmt.Errorf("node %s is unhealthy", c.Endpoint())
		}
		return nil
	})
}

func stats(ctx *cli.Context) error {
	return withClient(ctx, func(gctx context.Context, c *client.Client) error {
		c.HealthCheck(gctx)
		return printJSON(ctx, c.Stats())
	})
}

// setupLogger configures the zerolog logger
func setupLogger(level string) zerolog.Logger {
	var logLevel zerolog.Level
	switch level {
	case "debug":
		logLevel = zerolog.DebugLevel
	case "info":
		logLevel = zerolog.InfoLevel
	case "warn":
		logLevel = zerolog.WarnLevel
	case "error":
		logLevel = zerolog.ErrorLevel
	default:
		logLevel = zerolog.InfoLevel
	}

	zerolog.SetGlobalLevel(logLevel)

	// stdout carries command output
	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}

	return zerolog.New(output).With().Timestamp().Logger()
}
