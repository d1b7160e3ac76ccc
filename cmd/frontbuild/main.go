package main

import (
	"context"
	"os"

	"github.com/alecthomas/kong"
	"github.com/wolfeidau/frontbuild/cmd/frontbuild/internal/commands"
)

var (
	version = "dev"
	cli     struct {
		Debug      bool   `help:"Enable debug mode."`
		ConfigFile string `name:"config" help:"Path to the config file." default:"frontbuild.yaml" env:"FRONTBUILD_CONFIG" type:"path"`
		Mode       string `help:"Override the build mode (production or development)." env:"FRONTBUILD_MODE"`
		Tracing    bool   `help:"Export traces and metrics over OTLP." env:"FRONTBUILD_TRACING"`
		Version    kong.VersionFlag

		Build   commands.BuildCmd   `cmd:"" help:"Build the configured entries once."`
		Serve   commands.ServeCmd   `cmd:"" help:"Watch sources and serve the output directory."`
		Inspect commands.InspectCmd `cmd:"" help:"Explain how files and imports are handled."`
		Config  commands.ConfigCmd  `cmd:"" help:"Print or create the config file."`
	}
)

func main() {
	ctx := context.Background()
	cmd := kong.Parse(&cli,
		kong.Name("frontbuild"),
		kong.Description("Bundle browser entries with esbuild using webpack style module rules."),
		kong.Vars{
			"version": version,
		},
		kong.BindTo(ctx, (*context.Context)(nil)))
	err := cmd.Run(&commands.Globals{
		Debug:   cli.Debug,
		Config:  cli.ConfigFile,
		Mode:    cli.Mode,
		Tracing: cli.Tracing,
		Version: version,
		Stdout:  os.Stdout,
	})
	cmd.FatalIfErrorf(err)
}
