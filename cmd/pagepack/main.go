package main

import (
	"context"

	"github.com/alecthomas/kong"
	"github.com/wolfeidau/pagepack/cmd/pagepack/internal/commands"
)

var (
	version = "dev"
	cli     struct {
		Build   commands.BuildCmd  `cmd:"" help:"Build the site into the output directory"`
		Serve   commands.ServeCmd  `cmd:"" help:"Build, watch and serve the site"`
		Config  commands.ConfigCmd `cmd:"" help:"Print the resolved build configuration"`
		Debug   bool               `help:"Enable debug mode."`
		Tracing bool               `help:"Export traces and metrics over OTLP." env:"PAGEPACK_TRACING"`
		Version kong.VersionFlag
	}
)

func main() {
	ctx := context.Background()
	cmd := kong.Parse(&cli,
		kong.Name("pagepack"),
		kong.Description("Multi page front-end site builder."),
		kong.Vars{
			"version": version,
		},
		kong.BindTo(ctx, (*context.Context)(nil)))
	err := cmd.Run(&commands.Globals{Debug: cli.Debug, Tracing: cli.Tracing, Version: version})
	cmd.FatalIfErrorf(err)
}
