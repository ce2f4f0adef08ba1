package propose

import (
	"fmt"
	"sort"
	"strings"
)

// maxListedModels caps the per-model list in the PR body; huge first
// syncs should not produce an unreadable description.
const maxListedModels = 50

// RenderBody generates the PR description: counts by mode, the added
// keys, validation warnings, and source/verification links.
func RenderBody(s Summary, sourceURL string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "## Summary\n\n")
	fmt.Fprintf(&b, "This PR adds **%d new Fireworks AI models** to the LiteLLM model pricing database.\n\n", len(s.Additions))

	modes := make(map[string]int)
	for _, a := range s.Additions {
		modes[a.Entry.Mode]++
	}
	modeNames := make([]string, 0, len(modes))
	for m := range modes {
		modeNames = append(modeNames, m)
	}
	sort.Strings(modeNames)
	parts := make([]string, 0, len(modeNames))
	for _, m := range modeNames {
		parts = append(parts, fmt.Sprintf("%d %s", modes[m], m))
	}
	fmt.Fprintf(&b, "### Model Types Added\n%s\n\n", strings.Join(parts, ", "))

	fmt.Fprintf(&b, "### Models Added\n\n")
	for i, a := range s.Additions {
		if i == maxListedModels {
			fmt.Fprintf(&b, "- ... and %d more models\n", len(s.Additions)-maxListedModels)
			break
		}
		fmt.Fprintf(&b, "- `%s`\n", a.CatalogKey)
	}

	if len(s.Warnings) > 0 {
		fmt.Fprintf(&b, "\n### Review Notes\n\n")
		for _, w := range s.Warnings {
			fmt.Fprintf(&b, "- %s: %s\n", w.Key, w.Message)
		}
	}

	fmt.Fprintf(&b, "\n---\n\n### Source\nModels scraped from %s\n\n", sourceURL)
	fmt.Fprintf(&b, "### Verification\nPlease verify the pricing information is accurate by checking %s\n", sourceURL)

	return b.String()
}
