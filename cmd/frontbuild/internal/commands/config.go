package commands

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/wolfeidau/frontbuild/internal/config"
)

var ErrConfigExists = errors.New("config file already exists")

type ConfigCmd struct {
	Print ConfigPrintCmd `cmd:"" help:"Print the effective config as YAML."`
	Init  ConfigInitCmd  `cmd:"" help:"Write the default config file."`
}

type ConfigPrintCmd struct{}

func (c *ConfigPrintCmd) Run(globals *Globals) error {
	cfg, err := globals.loadConfig()
	if err != nil {
		return err
	}

	data, err := cfg.Marshal()
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	_, err = globals.stdout().Write(data)
	return err
}

type ConfigInitCmd struct {
	Force bool `help:"Overwrite an existing config file." default:"false"`
}

func (c *ConfigInitCmd) Run(globals *Globals) error {
	if _, err := os.Stat(globals.Config); err == nil && !c.Force {
		return fmt.Errorf("%w: %s", ErrConfigExists, globals.Config)
	} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	data, err := config.Default().Marshal()
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := os.WriteFile(globals.Config, data, 0o644); err != nil { //nolint:gosec
		return fmt.Errorf("failed to write config: %w", err)
	}

	printf(globals.stdout(), "wrote %s\n", globals.Config)
	return nil
}
