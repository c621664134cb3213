package bundler

import (
	"errors"
	"fmt"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
)

var (
	// ErrNoEntry indicates an entry point could not be resolved to a file
	ErrNoEntry = errors.New("entry point not found")
	// ErrNotBuilt indicates the pipeline has not completed a build yet
	ErrNotBuilt = errors.New("assets not built yet, call Build() first")
)

// Message is a build diagnostic reported by esbuild or one of the processing stages.
type Message struct {
	Text   string `json:"text"`
	Plugin string `json:"plugin,omitempty"`
	File   string `json:"file,omitempty"`
	Line   int    `json:"line,omitempty"`
	Column int    `json:"column,omitempty"`
}

func (m Message) String() string {
	if m.File == "" {
		return m.Text
	}
	return fmt.Sprintf("%s:%d:%d: %s", m.File, m.Line, m.Column, m.Text)
}

// BuildError carries every error message from a failed build.
type BuildError struct {
	Messages []Message
}

func (e *BuildError) Error() string {
	if len(e.Messages) == 1 {
		return "build failed: " + e.Messages[0].String()
	}

	parts := make([]string, 0, len(e.Messages))
	for _, msg := range e.Messages {
		parts = append(parts, msg.String())
	}
	return fmt.Sprintf("build failed with %d errors: %s", len(e.Messages), strings.Join(parts, "; "))
}

func convertMessages(msgs []api.Message) []Message {
	out := make([]Message, 0, len(msgs))
	for _, msg := range msgs {
		m := Message{Text: msg.Text, Plugin: msg.PluginName}
		if msg.Location != nil {
			m.File = msg.Location.File
			m.Line = msg.Location.Line
			m.Column = msg.Location.Column
		}
		out = append(out, m)
	}
	return out
}
