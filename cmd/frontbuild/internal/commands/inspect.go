package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/wolfeidau/frontbuild/internal/plugins"
	"github.com/wolfeidau/frontbuild/internal/postcss"
	"github.com/wolfeidau/frontbuild/internal/resolve"
	"github.com/wolfeidau/frontbuild/internal/rules"
)

type InspectCmd struct {
	Match   InspectMatchCmd   `cmd:"" help:"Show the rule and loaders that handle a file."`
	Resolve InspectResolveCmd `cmd:"" help:"Resolve an import request with the configured extensions."`
	Plugins InspectPluginsCmd `cmd:"" help:"List build plugins and stylesheet processors."`
}

type InspectMatchCmd struct {
	File string `arg:"" help:"File to match, relative to the project context."`
}

func (c *InspectMatchCmd) Run(globals *Globals) error {
	cfg, err := globals.loadConfig()
	if err != nil {
		return err
	}

	set, err := rules.Compile(cfg)
	if err != nil {
		return err
	}

	path, err := filepath.Abs(cfg.Path(c.File))
	if err != nil {
		return err
	}

	rule, ok := set.Match(path)
	if !ok {
		return fmt.Errorf("%w: %s", rules.ErrNoRule, c.File)
	}

	size := 0
	if info, err := os.Stat(path); err == nil {
		size = int(info.Size())
	}

	ruleType := rule.Rule.Type
	if ruleType == "" {
		ruleType = "-"
	}

	w := globals.stdout()
	printf(w, "file:    %s\n", path)
	printf(w, "rule:    %d (test %s)\n", rule.Index, rule.Rule.Test)
	printf(w, "type:    %s\n", ruleType)
	printf(w, "loaders: %s\n", joinOrDash(rule.Loaders()))
	printf(w, "esbuild: %s\n", rule.Describe(path, size))
	if procs := rule.PostCSSPlugins(); procs != nil {
		printf(w, "postcss: %s\n", joinOrDash(procs))
	}
	if rule.Targets != nil {
		printf(w, "targets: %s\n", rule.Targets.String())
	}

	return nil
}

type InspectResolveCmd struct {
	Request string `arg:"" help:"Import request, e.g. ./util or a package name."`
	From    string `help:"Directory the import is made from, relative to the project context." default:"."`
}

func (c *InspectResolveCmd) Run(globals *Globals) error {
	cfg, err := globals.loadConfig()
	if err != nil {
		return err
	}

	root := cfg.Path(".")
	resolver := resolve.New(os.DirFS(root), cfg.ResolveExtensions())

	from := filepath.ToSlash(filepath.Clean(c.From))
	resolved, err := resolver.Resolve(from, c.Request)
	if err != nil {
		return fmt.Errorf("%w (extensions %s)", err, strings.Join(resolver.Extensions(), " "))
	}

	printf(globals.stdout(), "%s\n", filepath.Join(root, filepath.FromSlash(resolved)))
	return nil
}

type InspectPluginsCmd struct{}

func (c *InspectPluginsCmd) Run(globals *Globals) error {
	cfg, err := globals.loadConfig()
	if err != nil {
		return err
	}

	enabled := cfg.Plugins.Names()
	w := globals.stdout()

	printf(w, "build plugins:\n")
	for _, name := range plugins.Names() {
		if slices.Contains(enabled, name) {
			printf(w, "  %s (enabled)\n", name)
			continue
		}
		printf(w, "  %s\n", name)
	}

	used := map[string][]string{}
	for i, rule := range cfg.Module.Rules {
		for _, use := range rule.Use {
			if use.Options.PostCSSOptions == nil {
				continue
			}
			for _, name := range use.Options.PostCSSOptions.Plugins.Names() {
				used[name] = append(used[name], strconv.Itoa(i))
			}
		}
	}

	printf(w, "postcss processors:\n")
	for _, name := range postcss.Available() {
		if rules, ok := used[name]; ok {
			printf(w, "  %s (rule %s)\n", name, strings.Join(rules, ", "))
			continue
		}
		printf(w, "  %s\n", name)
	}

	return nil
}

func joinOrDash(values []string) string {
	if len(values) == 0 {
		return "-"
	}
	return strings.Join(values, ", ")
}
