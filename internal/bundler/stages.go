package bundler

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/wolfeidau/pagepack/internal/config"
)

const fileNamespace = "pagepack-file"

// compiledRule is a config.Rule with its patterns compiled.
type compiledRule struct {
	config.Rule
	test    *regexp.Regexp
	exclude *regexp.Regexp
}

func compileRules(rules []config.Rule) ([]compiledRule, error) {
	compiled := make([]compiledRule, 0, len(rules))
	for _, rule := range rules {
		test, err := regexp.Compile(rule.Test)
		if err != nil {
			return nil, fmt.Errorf("invalid rule test %q: %w", rule.Test, err)
		}

		cr := compiledRule{Rule: rule, test: test}
		if rule.Exclude != "" {
			if cr.exclude, err = regexp.Compile(regexp.QuoteMeta(rule.Exclude)); err != nil {
				return nil, fmt.Errorf("invalid rule exclude %q: %w", rule.Exclude, err)
			}
		}
		compiled = append(compiled, cr)
	}
	return compiled, nil
}

func (r compiledRule) has(loader string) bool {
	_, ok := r.stage(loader)
	return ok
}

func (r compiledRule) stage(loader string) (config.Stage, bool) {
	for _, stage := range r.Use {
		if stage.Loader == loader {
			return stage, true
		}
	}
	return config.Stage{}, false
}

func (r compiledRule) excluded(p string) bool {
	return r.exclude != nil && r.exclude.MatchString(filepath.ToSlash(p))
}

// transformer rewrites file contents for one stage.
type transformer func(path string, src []byte) ([]byte, error)

func stageTransformer(stage config.Stage) transformer {
	switch stage.Loader {
	case config.LoaderSass:
		return func(path string, src []byte) ([]byte, error) {
			return compileSass(path, src, stage.Options.SourceMap)
		}
	case config.LoaderPostCSS:
		return optimizeCSS
	default:
		// style, extract and css only route the result, esbuild's css loader does the rest
		return nil
	}
}

// stagesPlugin registers esbuild callbacks for every style and file rule.
// Rules are registered in order, so the first matching rule wins.
func stagesPlugin(rules []compiledRule, emitter *emitter) api.Plugin {
	return api.Plugin{
		Name: "stages",
		Setup: func(build api.PluginBuild) {
			for _, rule := range rules {
				switch {
				case rule.has(config.LoaderFile):
					registerFileRule(build, rule, emitter)
				case rule.has(config.LoaderCSS):
					registerStyleRule(build, rule)
				}
			}

			build.OnLoad(api.OnLoadOptions{Filter: `.*`, Namespace: fileNamespace}, func(args api.OnLoadArgs) (api.OnLoadResult, error) {
				url, _ := args.PluginData.(string)
				contents := "export default " + strconv.Quote(url) + ";\n"
				return api.OnLoadResult{Contents: &contents, Loader: api.LoaderJS}, nil
			})
		},
	}
}

func registerStyleRule(build api.PluginBuild, rule compiledRule) {
	// stages run last to first
	chain := []transformer{}
	for i := len(rule.Use) - 1; i >= 0; i-- {
		if t := stageTransformer(rule.Use[i]); t != nil {
			chain = append(chain, t)
		}
	}

	build.OnLoad(api.OnLoadOptions{Filter: rule.Test}, func(args api.OnLoadArgs) (api.OnLoadResult, error) {
		if rule.excluded(args.Path) {
			return api.OnLoadResult{}, nil
		}

		src, err := os.ReadFile(args.Path)
		if err != nil {
			return api.OnLoadResult{}, err
		}

		for _, t := range chain {
			if src, err = t(args.Path, src); err != nil {
				return api.OnLoadResult{}, err
			}
		}

		contents := string(src)
		return api.OnLoadResult{
			Contents:   &contents,
			ResolveDir: filepath.Dir(args.Path),
			Loader:     api.LoaderCSS,
		}, nil
	})
}

func registerFileRule(build api.PluginBuild, rule compiledRule, emitter *emitter) {
	stage, _ := rule.stage(config.LoaderFile)

	build.OnResolve(api.OnResolveOptions{Filter: rule.Test}, func(args api.OnResolveArgs) (api.OnResolveResult, error) {
		if rule.excluded(args.Path) {
			return api.OnResolveResult{}, nil
		}

		clean := stripQuery(args.Path)
		var abs string
		switch {
		case filepath.IsAbs(clean):
			abs = clean
		case strings.HasPrefix(clean, "."):
			abs = filepath.Join(args.ResolveDir, filepath.FromSlash(clean))
		case args.Kind == api.ResolveCSSURLToken:
			// url() paths are relative to the stylesheet even without a leading dot
			abs = filepath.Join(args.ResolveDir, filepath.FromSlash(clean))
			if _, err := os.Stat(abs); err != nil {
				return api.OnResolveResult{}, nil
			}
		default:
			// package imports go through the default resolver and file loader
			return api.OnResolveResult{}, nil
		}

		url, err := emitter.emit(abs, stage.Options)
		if err != nil {
			return api.OnResolveResult{}, err
		}

		if args.Kind == api.ResolveCSSURLToken {
			return api.OnResolveResult{Path: url, External: true}, nil
		}

		return api.OnResolveResult{Path: abs, Namespace: fileNamespace, PluginData: url}, nil
	})
}

func stripQuery(p string) string {
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		return p[:i]
	}
	return p
}
