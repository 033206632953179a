package router

import "github.com/zen-systems/modelmux/pkg/adapter"

// Namespace is the provider metadata key under which routers record which
// candidate served a response.
const Namespace = "modelmux"

// Selection describes the candidate that served a logical call. It is handed
// to the OnSelect hook.
type Selection struct {
	Index   int
	Name    string
	Adapter adapter.Adapter
}

// SelectionMetadata is attached to responses under Namespace.
type SelectionMetadata struct {
	SelectedIndex int    `json:"selectedIndex"`
	SelectedName  string `json:"selectedName,omitempty"`
	Provider      string `json:"provider"`
	ModelID       string `json:"modelId"`
}

func metadataFor(index int, c Candidate) SelectionMetadata {
	return SelectionMetadata{
		SelectedIndex: index,
		SelectedName:  c.Name,
		Provider:      c.Adapter.Name(),
		ModelID:       c.Adapter.ModelID(),
	}
}

// SelectionFrom extracts the selection metadata from a provider metadata map.
func SelectionFrom(providerMetadata map[string]any) (SelectionMetadata, bool) {
	meta, ok := providerMetadata[Namespace].(SelectionMetadata)
	return meta, ok
}
