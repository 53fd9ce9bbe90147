package tasksystem

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/nullstream/taskrt/internal/ports"
)

// templateDocument mirrors the YAML shape atomic templates are authored in:
// name, type, subtype, description, params, system_prompt, instructions,
// output_format, context_management, file_paths.
type templateDocument struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
	Subtype string `yaml:"subtype"`
	Description string `yaml:"description"`
	Params []string `yaml:"params"`
	SystemPrompt string `yaml:"system_prompt"`
	Instructions string `yaml:"instructions"`
	OutputFormat *struct {
		Type string `yaml:"type"`
		Schema string `yaml:"schema"`
	} `yaml:"output_format"`
	ContextManagement *struct {
		InheritContext string `yaml:"inherit_context"`
		AccumulateData bool `yaml:"accumulate_data"`
		FreshContext string `yaml:"fresh_context"`
	} `yaml:"context_management"`
	FilePaths []string `yaml:"file_paths"`
}

// LoadTemplateFile parses a single YAML atomic-template document.
func LoadTemplateFile(path string) (*ports.AtomicTemplate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("tasksystem: reading %s: %w", path, err)
	}
	var doc templateDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("tasksystem: parsing %s: %w", path, err)
	}
	return doc.toTemplate(), nil
}

// LoadTemplateDir parses every *.yaml/*.yml file directly under dir as an
// atomic-template document.
func LoadTemplateDir(dir string) ([]*ports.AtomicTemplate, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("tasksystem: reading %s: %w", dir, err)
	}
	var templates []*ports.AtomicTemplate
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		tmpl, err := LoadTemplateFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		templates = append(templates, tmpl)
	}
	return templates, nil
}

func (doc templateDocument) toTemplate() *ports.AtomicTemplate {
	t := &ports.AtomicTemplate{
		Name: doc.Name,
		Type: ports.TemplateKind(doc.Type),
		Subtype: doc.Subtype,
		Description: doc.Description,
		Params: doc.Params,
		SystemPrompt: doc.SystemPrompt,
		Instructions: doc.Instructions,
		FilePaths: doc.FilePaths,
	}
	if doc.OutputFormat != nil {
		t.OutputFormat = &ports.OutputFormat{Type: doc.OutputFormat.Type, Schema: doc.OutputFormat.Schema}
	}
	if doc.ContextManagement != nil {
		t.ContextManagement = &ports.ContextManagement{
			InheritContext: doc.ContextManagement.InheritContext,
			AccumulateData: doc.ContextManagement.AccumulateData,
			FreshContext: doc.ContextManagement.FreshContext,
		}
	}
	return t
}
