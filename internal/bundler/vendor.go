package bundler

import (
	"encoding/json"
	"fmt"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
)

const (
	vendorNamespace = "pagepack-vendors"
	vendorEntry     = "pagepack-vendors"
)

// discoverVendors runs a metafile only build and returns the bare import
// specifiers whose resolved files match the vendor test pattern.
func discoverVendors(opts api.BuildOptions, test *regexp.Regexp) ([]string, error) {
	discover := opts
	discover.Write = false
	discover.Metafile = true
	discover.Sourcemap = api.SourceMapNone
	discover.MinifyWhitespace = false
	discover.MinifyIdentifiers = false
	discover.MinifySyntax = false

	result := api.Build(discover)
	if len(result.Errors) > 0 {
		return nil, &BuildError{Messages: convertMessages(result.Errors)}
	}

	var meta BuildMetadata
	if err := json.Unmarshal([]byte(result.Metafile), &meta); err != nil {
		return nil, fmt.Errorf("failed to parse metafile: %w", err)
	}

	seen := map[string]bool{}
	for inputPath, input := range meta.Inputs {
		if test.MatchString(inputPath) {
			continue
		}
		for _, imp := range input.Imports {
			if imp.External || !test.MatchString(imp.Path) || !isBareImport(imp.Original) {
				continue
			}
			if ext := path.Ext(imp.Path); ext == ".css" || ext == ".scss" {
				continue
			}
			seen[imp.Original] = true
		}
	}

	modules := make([]string, 0, len(seen))
	for module := range seen {
		modules = append(modules, module)
	}
	sort.Strings(modules)

	return modules, nil
}

func isBareImport(module string) bool {
	return module != "" && !strings.HasPrefix(module, ".") && !strings.HasPrefix(module, "/") &&
		!strings.HasPrefix(module, "~/") && !strings.HasPrefix(module, "@/")
}

// vendorSource re-exports every vendor module so code splitting moves them into one shared chunk.
func vendorSource(modules []string) string {
	var b strings.Builder
	for i, module := range modules {
		fmt.Fprintf(&b, "export * as v%d from %s;\n", i, strconv.Quote(module))
	}
	return b.String()
}

// vendorPlugin serves the virtual vendors entry.
func vendorPlugin(modules []string, resolveDir string) api.Plugin {
	return api.Plugin{
		Name: "vendors",
		Setup: func(build api.PluginBuild) {
			build.OnResolve(api.OnResolveOptions{Filter: `^` + regexp.QuoteMeta(vendorEntry) + `$`}, func(args api.OnResolveArgs) (api.OnResolveResult, error) {
				return api.OnResolveResult{Path: vendorEntry, Namespace: vendorNamespace}, nil
			})
			build.OnLoad(api.OnLoadOptions{Filter: `.*`, Namespace: vendorNamespace}, func(args api.OnLoadArgs) (api.OnLoadResult, error) {
				contents := vendorSource(modules)
				return api.OnLoadResult{Contents: &contents, ResolveDir: resolveDir, Loader: api.LoaderJS}, nil
			})
		},
	}
}

func isVendorEntry(entryPoint string) bool {
	return strings.HasPrefix(entryPoint, vendorNamespace+":")
}
