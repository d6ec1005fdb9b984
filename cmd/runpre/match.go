package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/arnoldjb/runpre/internal/audit"
	"github.com/arnoldjb/runpre/internal/config"
	"github.com/arnoldjb/runpre/internal/fixture"
	"github.com/arnoldjb/runpre/internal/logx"
	"github.com/arnoldjb/runpre/internal/matcher"
)

func matchCommand() *cli.Command {
	return &cli.Command{
		Name:      "match",
		Usage:     "run the matcher against a fixture describing a pre-image and a running image",
		ArgsUsage: "fixture.yaml",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "audit-db", Value: "runpre-audit.db", Usage: "SQLite audit log path"},
		},
		Action: func(c *cli.Context) error {
			if c.Args().Len() < 1 {
				return cli.Exit("fixture file required", 1)
			}
			return runMatch(c, c.Args().First())
		},
	}
}

func runMatch(c *cli.Context, fixturePath string) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return cli.Exit(fmt.Sprintf("loading config: %v", err), 1)
	}
	if c.IsSet("debug") {
		cfg.Debug = c.Int("debug")
	}
	if c.IsSet("restart-limit") {
		cfg.RestartLimit = c.Int("restart-limit")
	}
	if c.IsSet("max-stage") {
		cfg.MaxStage = c.Int("max-stage")
	}

	f, err := fixture.Load(fixturePath)
	if err != nil {
		return cli.Exit(fmt.Sprintf("loading fixture: %v", err), 1)
	}
	pre, run, mods, sections, relocs, bindings, err := f.Build()
	if err != nil {
		return cli.Exit(fmt.Sprintf("building fixture: %v", err), 1)
	}

	log := logx.New(os.Stdout, cfg.Debug)
	m := matcher.New(run, pre, mods, relocs, bindings,
		matcher.WithDebug(cfg.Debug),
		matcher.WithRestartLimit(cfg.RestartLimit),
		matcher.WithMaxStage(cfg.MaxStage),
		matcher.WithSelfExclusion(cfg.SelfModulePrefix, cfg.HelperSuffix),
		matcher.WithLogger(log),
	)

	started := time.Now()
	runErr := m.Run(sections)

	matchedAt := m.MatchedSections()
	matched := 0
	for _, s := range sections {
		if _, ok := matchedAt[s.Name]; ok || s.Size == 0 {
			matched++
		}
	}

	if store, openErr := audit.Open(c.String("audit-db")); openErr == nil {
		defer store.Close()
		rec := audit.Run{
			PatchName:     fixturePath,
			StartedAt:     started,
			Succeeded:     runErr == nil,
			SectionsTotal: len(sections),
			SectionsMatch: matched,
			SafetyRecords: len(m.SafetyRecords()),
		}
		if runErr != nil {
			rec.FailureMessage = runErr.Error()
		}
		_, _ = store.Record(context.Background(), rec)
	}

	fmt.Printf("%-24s %-12s %s\n", "SECTION", "STATUS", "RUN ADDRESS")
	for _, s := range sections {
		if addr, ok := matchedAt[s.Name]; ok {
			fmt.Printf("%-24s %-12s %#08x\n", s.Name, "matched", addr)
		} else if s.Size == 0 {
			fmt.Printf("%-24s %-12s %s\n", s.Name, "trivial", "-")
		} else {
			fmt.Printf("%-24s %-12s %s\n", s.Name, "unmatched", "-")
		}
	}
	fmt.Printf("\nsafety records: %d\n", len(m.SafetyRecords()))

	if runErr != nil {
		return cli.Exit(runErr.Error(), 1)
	}
	return nil
}
