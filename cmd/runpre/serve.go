package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/arnoldjb/runpre/internal/api"
	"github.com/arnoldjb/runpre/internal/audit"
)

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "serve the read-only match-history control plane API",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Value: ":8080", Usage: "listen address"},
			&cli.StringFlag{Name: "audit-db", Value: "runpre-audit.db", Usage: "SQLite audit log path"},
			&cli.StringFlag{Name: "jwt-secret", EnvVars: []string{"RUNPRE_JWT_SECRET"}, Usage: "HS256 shared secret; auth disabled if empty"},
		},
		Action: func(c *cli.Context) error {
			store, err := audit.Open(c.String("audit-db"))
			if err != nil {
				return cli.Exit(fmt.Sprintf("opening audit db: %v", err), 1)
			}
			defer store.Close()

			var verifier api.TokenVerifier
			if secret := c.String("jwt-secret"); secret != "" {
				verifier = api.NewHMACVerifier([]byte(secret))
			}

			srv := api.NewServer(store, nil, verifier)
			fmt.Fprintf(os.Stdout, "runpre: serving control plane on %s\n", c.String("addr"))
			return http.ListenAndServe(c.String("addr"), srv)
		},
	}
}
