package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

func main() {
	app := cli.NewApp()
	app.Name = "runpre"
	app.Usage = "locate pre-patch sections inside a running program image"
	app.Action = func(c *cli.Context) error {
		cli.ShowAppHelp(c)
		return nil
	}
	app.Flags = []cli.Flag{
		&cli.IntFlag{Name: "debug", Usage: "verbosity 0-3, overrides config file"},
		&cli.IntFlag{Name: "restart-limit", Usage: "bound on restarts after passes that matched new sections, overrides config file"},
		&cli.IntFlag{Name: "max-stage", Usage: "search escalation bound, overrides config file"},
		&cli.StringFlag{Name: "config", Usage: "path to a YAML config file"},
	}
	app.Commands = []*cli.Command{
		matchCommand(),
		serveCommand(),
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "runpre:", err)
		os.Exit(1)
	}
}
