package bundler

import (
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
)

// aliasPlugin rewrites imports such as "~/assets/img/dog.jpg" or "@/utils/sort.js"
// to paths under the configured directories, then lets esbuild resolve them.
func aliasPlugin(alias map[string]string) api.Plugin {
	keys := make([]string, 0, len(alias))
	for key := range alias {
		keys = append(keys, key)
	}
	// longest prefix first
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})

	quoted := make([]string, 0, len(keys))
	for _, key := range keys {
		quoted = append(quoted, regexp.QuoteMeta(key))
	}

	return api.Plugin{
		Name: "alias",
		Setup: func(build api.PluginBuild) {
			if len(keys) == 0 {
				return
			}

			filter := `^(` + strings.Join(quoted, "|") + `)(/|$)`
			build.OnResolve(api.OnResolveOptions{Filter: filter}, func(args api.OnResolveArgs) (api.OnResolveResult, error) {
				target, ok := rewriteAlias(args.Path, keys, alias)
				if !ok {
					return api.OnResolveResult{}, nil
				}

				result := build.Resolve(target, api.ResolveOptions{
					Importer:   args.Importer,
					ResolveDir: args.ResolveDir,
					Kind:       args.Kind,
				})
				if len(result.Errors) > 0 {
					return api.OnResolveResult{Errors: result.Errors}, nil
				}

				return api.OnResolveResult{
					Path:       result.Path,
					External:   result.External,
					Namespace:  result.Namespace,
					PluginData: result.PluginData,
				}, nil
			})
		},
	}
}

func rewriteAlias(importPath string, keys []string, alias map[string]string) (string, bool) {
	for _, key := range keys {
		if importPath == key {
			return alias[key], true
		}
		if rest, ok := strings.CutPrefix(importPath, key+"/"); ok {
			return filepath.Join(alias[key], filepath.FromSlash(rest)), true
		}
	}
	return "", false
}
