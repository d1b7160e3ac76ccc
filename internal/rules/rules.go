// Package rules compiles the module rule list and dispatches files to the
// first rule that claims them.
package rules

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/wolfeidau/frontbuild/internal/config"
	"github.com/wolfeidau/frontbuild/internal/postcss"
	"github.com/wolfeidau/frontbuild/internal/targets"
)

// Compiled is a rule with its patterns compiled and its loader steps
// instantiated.
type Compiled struct {
	Index int
	Rule  config.Rule

	// Targets is the baseline for script steps, or nil when the rule has none.
	Targets targets.Targets

	test    *regexp.Regexp
	include *regexp.Regexp
	exclude *regexp.Regexp

	styles *postcss.Pipeline
}

// Filter returns the esbuild plugin filter for the rule.
func (c *Compiled) Filter() string {
	return c.test.String()
}

// Matches reports whether the rule claims path.
func (c *Compiled) Matches(path string) bool {
	path = filepath.ToSlash(path)
	if !c.test.MatchString(path) {
		return false
	}
	if c.include != nil && !c.include.MatchString(path) {
		return false
	}
	if c.exclude != nil && c.exclude.MatchString(path) {
		return false
	}
	return true
}

// Loaders returns the names of the rule's use steps in declared order.
func (c *Compiled) Loaders() []string {
	names := make([]string, 0, len(c.Rule.Use))
	for _, use := range c.Rule.Use {
		names = append(names, use.Loader)
	}
	return names
}

// PostCSSPlugins returns the stylesheet processors of the rule, if any.
func (c *Compiled) PostCSSPlugins() []string {
	if c.styles == nil {
		return nil
	}
	return c.styles.Names()
}

// Set is the ordered list of compiled rules for one configuration.
type Set struct {
	rules     []*Compiled
	targets   targets.Targets
	scanner   *postcss.Scanner
	sourcemap bool
}

// Compile compiles cfg's rules in order.
func Compile(cfg *config.Config) (*Set, error) {
	root := cfg.Path(".")
	s := &Set{
		scanner:   postcss.NewScanner(root),
		sourcemap: cfg.SourceMaps() != config.DevtoolNone,
	}

	for i, rule := range cfg.Module.Rules {
		c, err := compileRule(i, rule)
		if err != nil {
			return nil, fmt.Errorf("rule %d: %w", i, err)
		}
		s.rules = append(s.rules, c)
	}

	tgts, err := buildTargets(cfg, s.rules)
	if err != nil {
		return nil, err
	}
	s.targets = tgts

	content := defaultContent(cfg)
	for _, c := range s.rules {
		for _, use := range c.Rule.Use {
			if use.Loader != config.LoaderPostCSS {
				continue
			}
			var plugins config.PluginList
			if opts := use.Options.PostCSSOptions; opts != nil {
				plugins = opts.Plugins
			}
			styles, err := postcss.NewPipeline(plugins, postcss.Options{
				Root:           root,
				DefaultContent: content,
				Targets:        s.targets,
				Scanner:        s.scanner,
			})
			if err != nil {
				return nil, fmt.Errorf("rule %d: %w", c.Index, err)
			}
			c.styles = styles
		}
	}

	return s, nil
}

func compileRule(index int, rule config.Rule) (*Compiled, error) {
	c := &Compiled{Index: index, Rule: rule}

	var err error
	if c.test, err = config.CompilePattern(rule.Test); err != nil {
		return nil, err
	}
	if rule.Include != "" {
		if c.include, err = config.CompilePattern(rule.Include); err != nil {
			return nil, err
		}
	}
	if rule.Exclude != "" {
		if c.exclude, err = config.CompilePattern(rule.Exclude); err != nil {
			return nil, err
		}
	}

	for _, use := range rule.Use {
		if use.Options.Env == nil || len(use.Options.Env.Targets) == 0 {
			continue
		}
		tgts, err := targets.Parse(use.Options.Env.Targets)
		if err != nil {
			return nil, err
		}
		c.Targets = targets.Merge(c.Targets, tgts)
	}

	return c, nil
}

// buildTargets returns the explicit top-level targets when set, otherwise the
// merge of every rule baseline, falling back to the default baseline.
func buildTargets(cfg *config.Config, rules []*Compiled) (targets.Targets, error) {
	if len(cfg.Targets) > 0 {
		return targets.Parse(cfg.Targets)
	}
	var sets []targets.Targets
	for _, c := range rules {
		if c.Targets != nil {
			sets = append(sets, c.Targets)
		}
	}
	if len(sets) == 0 {
		return targets.MustParse(config.Baseline), nil
	}
	return targets.Merge(sets...), nil
}

// defaultContent globs every html, js and ts file under the entry directories.
func defaultContent(cfg *config.Config) []string {
	var globs []string
	seen := map[string]bool{}
	for _, entry := range cfg.Entry {
		dir := filepath.ToSlash(filepath.Dir(entry.Import))
		dir = strings.TrimPrefix(dir, "./")
		glob := "**/*.{html,js,ts}"
		if dir != "." && dir != "" {
			glob = dir + "/" + glob
		}
		if !seen[glob] {
			seen[glob] = true
			globs = append(globs, glob)
		}
	}
	return append(globs, "*.html")
}

// Rules returns the compiled rules in order.
func (s *Set) Rules() []*Compiled {
	return s.rules
}

// Targets returns the build-wide engine baseline.
func (s *Set) Targets() targets.Targets {
	return s.targets
}

// Match returns the first rule that claims path.
func (s *Set) Match(path string) (*Compiled, bool) {
	for _, c := range s.rules {
		if c.Matches(path) {
			return c, true
		}
	}
	return nil, false
}

// Plugin returns an esbuild plugin with one load callback per rule, registered
// in rule order. A callback that doesn't claim a file returns an empty result
// and esbuild moves on to the next rule.
func (s *Set) Plugin() api.Plugin {
	return api.Plugin{
		Name: "frontbuild-rules",
		Setup: func(build api.PluginBuild) {
			build.OnStart(func() (api.OnStartResult, error) {
				s.scanner.Reset()
				return api.OnStartResult{}, nil
			})

			for _, c := range s.rules {
				build.OnLoad(api.OnLoadOptions{Filter: c.Filter(), Namespace: "file"},
					func(args api.OnLoadArgs) (api.OnLoadResult, error) {
						if !c.Matches(args.Path) {
							return api.OnLoadResult{}, nil
						}
						return s.load(c, args.Path)
					})
			}
		},
	}
}
