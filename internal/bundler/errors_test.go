package bundler

import (
	"testing"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/stretchr/testify/assert"
)

func TestBuildError(t *testing.T) {
	single := &BuildError{Messages: []Message{{Text: "Unexpected end of file", File: "src/index.js", Line: 2, Column: 4}}}
	assert.Equal(t, "build failed: src/index.js:2:4: Unexpected end of file", single.Error())

	multi := &BuildError{Messages: []Message{{Text: "first"}, {Text: "second"}}}
	assert.Equal(t, "build failed with 2 errors: first; second", multi.Error())
}

func TestConvertMessages(t *testing.T) {
	msgs := convertMessages([]api.Message{
		{Text: "no location", PluginName: "stages"},
		{Text: "located", Location: &api.Location{File: "src/a.css", Line: 3, Column: 1}},
	})

	assert.Equal(t, []Message{
		{Text: "no location", Plugin: "stages"},
		{Text: "located", File: "src/a.css", Line: 3, Column: 1},
	}, msgs)
}
