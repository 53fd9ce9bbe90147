package main

import (
	"os"

	"github.com/charmbracelet/glamour"
	"golang.org/x/term"
)

// markdownRenderer renders assistant output as styled terminal markdown,
// mirroring the teacher's MarkdownRenderer (cmd/markdown.go): dynamic word
// wrap from the terminal width, dark style, emoji support.
type markdownRenderer struct {
	renderer *glamour.TermRenderer
}

func newMarkdownRenderer() (*markdownRenderer, error) {
	width := 80
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		width = w - 4
		if width > 120 {
			width = 120
		}
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(width),
		glamour.WithEmoji(),
	)
	if err != nil {
		return nil, err
	}
	return &markdownRenderer{renderer: renderer}, nil
}

// render returns content unchanged if markdown rendering fails or content is
// empty, so a broken terminal style never loses the underlying text.
func (m *markdownRenderer) render(content string) string {
	if content == "" || m == nil || m.renderer == nil {
		return content
	}
	out, err := m.renderer.Render(content)
	if err != nil {
		return content
	}
	return out
}
