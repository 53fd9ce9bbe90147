package ports

// GlobalIndex maps an absolute file path to an unstructured metadata
// string. Written only in bulk by the external indexer; read only by the
// Memory System. Never holds file contents.
type GlobalIndex map[string]string

// Match is one entry of an AssociativeMatchResult — a path plus an optional
// relevance note and a score, never file contents.
type Match struct {
	Path      string
	Relevance string
	Score     float64
}

// AssociativeMatchResult is the Memory System's retrieval answer.
type AssociativeMatchResult struct {
	Context string
	Matches []Match
}

// ContextGenerationInput describes what context should be retrieved.
// Either the template fields or Query must be populated.
type ContextGenerationInput struct {
	TemplateDescription string
	TemplateType        string
	TemplateSubtype     string
	Inputs              map[string]any
	InheritedContext    string
	PreviousOutputs     []string
	Query               string
	MaxMatches          int
}

// Empty reports whether neither the template-description fields nor an
// explicit query were supplied.
func (c ContextGenerationInput) Empty() bool {
	return c.Query == "" && c.TemplateDescription == "" && c.TemplateType == "" && c.TemplateSubtype == ""
}
