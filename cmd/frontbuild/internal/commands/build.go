package commands

import (
	"context"

	"github.com/wolfeidau/frontbuild/internal/assets"
	"github.com/wolfeidau/frontbuild/internal/logger"
)

type BuildCmd struct {
	Clean bool `help:"Remove the output directory before building." default:"false"`
}

func (c *BuildCmd) Run(ctx context.Context, globals *Globals) error {
	log := logger.Setup(globals.Debug)
	defer globals.startTelemetry(ctx, log)()

	cfg, err := globals.loadConfig()
	if err != nil {
		return err
	}
	if c.Clean {
		cfg.Output.Clean = true
	}

	pipeline, err := assets.New(cfg)
	if err != nil {
		return err
	}

	res, err := pipeline.Build(ctx)
	if err != nil {
		return err
	}

	for _, out := range res.Outputs {
		printf(globals.stdout(), "%s\n", out)
	}
	log.Info().
		Str("version", globals.Version).
		Str("out_dir", pipeline.OutDir()).
		Dur("duration", res.Duration).
		Int("warnings", len(res.Warnings)).
		Msg("build finished")

	return nil
}
