// Package main writes a development CA and a server certificate signed by
// it into a directory, ready for the server's -tls-cert/-tls-key flags and
// the client's --ca flag.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/atinyakov/JobTracker/internal/certgen"
	"github.com/urfave/cli/v3"
)

func main() {
	app := &cli.Command{
		Name:  "certgen",
		Usage: "generate development TLS certificates for the job tracker API",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "dir", Usage: "output directory", Value: "certs"},
			&cli.StringSliceFlag{Name: "host", Usage: "server host name or IP", Value: []string{"localhost", "127.0.0.1"}},
			&cli.BoolFlag{Name: "reuse-ca", Usage: "sign with the existing ca.crt/ca.key in dir"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return generate(cmd.String("dir"), cmd.StringSlice("host"), cmd.Bool("reuse-ca"))
		},
	}
	if err := app.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func generate(dir string, hosts []string, reuseCA bool) error {
	var (
		ca  certgen.Pair
		err error
	)
	if reuseCA {
		ca, err = certgen.LoadCA(filepath.Join(dir, "ca.crt"), filepath.Join(dir, "ca.key"))
	} else {
		ca, err = certgen.GenerateCA("Job Tracker Dev CA")
		if err == nil {
			err = ca.Write(dir, "ca")
		}
	}
	if err != nil {
		return err
	}

	srv, err := certgen.GenerateServerCertificate(hosts, ca)
	if err != nil {
		return err
	}
	if err := srv.Write(dir, "server"); err != nil {
		return err
	}
	fmt.Printf("Certificates generated into %s\n", dir)
	return nil
}
