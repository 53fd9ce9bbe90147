package ports

// TemplateKind distinguishes registrable units of work.
type TemplateKind string

const (
	KindAtomic TemplateKind = "atomic"
	KindDirect TemplateKind = "direct"
)

// OutputFormat declares how an atomic template's raw content must be
// interpreted and validated.
type OutputFormat struct {
	Type string // "json" | "text"
	Schema string // "object" | "array" | "string" | ... ; only checked when Type == "json"
}

// ContextManagement is a template's declared context policy (system
// defaults for atomic templates: inherit_context=none,
// accumulate_data=false, fresh_context=enabled).
type ContextManagement struct {
	InheritContext string // "none" | "full" | ...
	AccumulateData bool
	FreshContext string // "enabled" | "disabled"
}

// DefaultContextManagement returns the atomic-template system default.
func DefaultContextManagement() ContextManagement {
	return ContextManagement{
		InheritContext: "none",
		AccumulateData: false,
		FreshContext: "enabled",
	}
}

// AtomicTemplate is a registered, immutable LLM prompt definition.
type AtomicTemplate struct {
	Name string
	Type TemplateKind
	Subtype string
	Description string
	Params []string
	SystemPrompt string
	Instructions string
	OutputFormat *OutputFormat
	ContextManagement *ContextManagement
	FilePaths []string
}

// Alias returns the template's "type:subtype" alias.
func (t *AtomicTemplate) Alias() string {
	return string(t.Type) + ":" + t.Subtype
}
