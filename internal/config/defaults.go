package config

// DefaultExtensions is the list substituted for the "..." sentinel.
var DefaultExtensions = []string{".js", ".json", ".wasm"}

// Baseline is the browser baseline every script rule compiles down to.
var Baseline = []string{"chrome >= 87", "edge >= 88", "firefox >= 78", "safari >= 14"}

const (
	DefaultOutputPath    = "dist"
	DefaultPublicPath    = "/"
	DefaultFilename      = "[name]"
	DefaultAssetFilename = "assets/[name]-[hash]"
	DefaultDevHost       = "localhost"
	DefaultDevPort       = 8080
)

// Default returns the project's build configuration: a single "main" entry,
// the default extensions followed by .ts, and the svg, js, ts and css rules
// in that order.
func Default() *Config {
	cfg := &Config{
		Mode: ModeProduction,
		Entry: Entries{
			{Name: "main", Import: "./src/index.ts"},
		},
		Resolve: Resolve{
			Extensions: []string{ExtensionsSentinel, ".ts"},
		},
		Module: Module{
			Rules: []Rule{
				{
					Test: `\.svg$`,
					Type: TypeAsset,
				},
				{
					Test: `\.js$`,
					Use:  []UseEntry{swcLoader(SyntaxECMAScript)},
				},
				{
					Test: `\.ts$`,
					Use:  []UseEntry{swcLoader(SyntaxTypeScript)},
				},
				{
					Test: `\.css$`,
					Use: []UseEntry{
						{
							Loader: LoaderPostCSS,
							Options: LoaderOptions{
								PostCSSOptions: &PostCSSOptions{
									Plugins: PluginList{
										{Name: "tailwindcss"},
										{Name: "autoprefixer"},
									},
								},
							},
						},
					},
					Type: TypeCSS,
				},
			},
		},
		Plugins: PluginList{},
		Experiments: Experiments{
			CSS: true,
		},
	}
	cfg.applyDefaults()
	return cfg
}

func swcLoader(syntax string) UseEntry {
	return UseEntry{
		Loader: LoaderSWC,
		Options: LoaderOptions{
			JSC: &JSCOptions{
				Parser: ParserOptions{Syntax: syntax},
			},
			Env: &EnvOptions{
				Targets: append([]string(nil), Baseline...),
			},
		},
	}
}

// applyDefaults fills in fields a config file may leave unset.
func (c *Config) applyDefaults() {
	if c.Mode == "" {
		c.Mode = ModeProduction
	}
	if c.Output.Path == "" {
		c.Output.Path = DefaultOutputPath
	}
	if c.Output.PublicPath == "" {
		c.Output.PublicPath = DefaultPublicPath
	}
	if c.Output.Filename == "" {
		c.Output.Filename = DefaultFilename
	}
	if c.Output.AssetFilename == "" {
		c.Output.AssetFilename = DefaultAssetFilename
	}
	if c.DevServer.Host == "" {
		c.DevServer.Host = DefaultDevHost
	}
	if c.DevServer.Port == 0 {
		c.DevServer.Port = DefaultDevPort
	}
}
