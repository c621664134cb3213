package config

// Loader names understood by the bundler engine. Stages in a rule run last to first.
const (
	LoaderStyle   = "style"
	LoaderExtract = "extract"
	LoaderCSS     = "css"
	LoaderPostCSS = "postcss"
	LoaderSass    = "sass"
	LoaderBabel   = "babel"
	LoaderFile    = "file"
)

// Test patterns for the module rules.
const (
	TestJS    = `\.js$`
	TestCSS   = `\.css$`
	TestSCSS  = `\.scss$`
	TestImage = `\.(png|jpg|jpeg|svg|mpg|webp|gif)$`
	TestFont  = `\.(woff(2)?|ttf|eot|svg)(\?v=\d+\.\d+\.\d+)?$`

	excludeVendor = "node_modules"
)

// Stage is one processing step applied to files matching a Rule.
type Stage struct {
	Loader  string       `yaml:"loader" json:"loader"`
	Options StageOptions `yaml:"options,omitempty" json:"options,omitzero"`
}

type StageOptions struct {
	SourceMap  bool   `yaml:"sourceMap,omitempty" json:"sourceMap,omitempty"`
	Name       string `yaml:"name,omitempty" json:"name,omitempty"`
	OutputPath string `yaml:"outputPath,omitempty" json:"outputPath,omitempty"`
}

// Rule pairs a file pattern with its ordered processing stages.
type Rule struct {
	Test    string  `yaml:"test" json:"test"`
	Exclude string  `yaml:"exclude,omitempty" json:"exclude,omitempty"`
	Use     []Stage `yaml:"use" json:"use"`
}

// Rules builds the module rule list for the given mode.
func Rules(mode Mode) []Rule {
	return []Rule{
		{
			Test:    TestJS,
			Exclude: excludeVendor,
			Use:     []Stage{{Loader: LoaderBabel}},
		},
		{
			Test: TestCSS,
			Use:  styleStages(mode),
		},
		{
			Test: TestSCSS,
			Use:  append(styleStages(mode), Stage{Loader: LoaderSass, Options: StageOptions{SourceMap: mode.IsDevelopment()}}),
		},
		{
			Test: TestImage,
			Use:  []Stage{{Loader: LoaderFile, Options: StageOptions{Name: "[name].[ext]"}}},
		},
		{
			Test: TestFont,
			Use:  []Stage{{Loader: LoaderFile, Options: StageOptions{OutputPath: "fonts", Name: "[name].[ext]"}}},
		},
	}
}

// styleStages returns a new slice on each call.
func styleStages(mode Mode) []Stage {
	stages := []Stage{
		{Loader: LoaderStyle},
		{Loader: LoaderExtract},
		{Loader: LoaderCSS, Options: StageOptions{SourceMap: mode.IsDevelopment()}},
	}

	if mode.IsProduction() {
		stages = append(stages, Stage{Loader: LoaderPostCSS, Options: StageOptions{SourceMap: mode.IsDevelopment()}})
	}

	return stages
}
