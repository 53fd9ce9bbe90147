package tasksystem

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nullstream/taskrt/internal/ports"
)

func TestLoadTemplateFileParsesAllFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "summarize.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
name: summarize
type: atomic
subtype: summarize
description: summarizes text
params: [text]
system_prompt: "You are concise."
instructions: "Summarize: {{text}}"
output_format:
  type: json
  schema: object
context_management:
  inherit_context: none
  accumulate_data: false
  fresh_context: enabled
file_paths: []
`), 0o644))

	tmpl, err := LoadTemplateFile(path)
	require.NoError(t, err)
	require.Equal(t, "summarize", tmpl.Name)
	require.Equal(t, ports.KindAtomic, tmpl.Type)
	require.Equal(t, []string{"text"}, tmpl.Params)
	require.NotNil(t, tmpl.OutputFormat)
	require.Equal(t, "object", tmpl.OutputFormat.Schema)
	require.NotNil(t, tmpl.ContextManagement)
	require.Equal(t, "enabled", tmpl.ContextManagement.FreshContext)
}

func TestLoadTemplateDirSkipsNonYAMLFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yaml"), []byte("name: a\ntype: atomic\nsubtype: a\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("not a template"), 0o644))

	templates, err := LoadTemplateDir(dir)
	require.NoError(t, err)
	require.Len(t, templates, 1)
	require.Equal(t, "a", templates[0].Name)
}
