package llm

import (
	"fmt"
	"strings"

	"github.com/ppiankov/letteraudit/internal/model"
)

// RenderSeparateMarkdown renders an LLM summary as its own Markdown document.
// It returns "" for a nil or disabled summary.
func RenderSeparateMarkdown(summary *model.LLMSummary) string {
	if summary == nil || !summary.Enabled {
		return ""
	}

	var b strings.Builder

	b.WriteString("# LLM Summary\n\n")
	b.WriteString("> **AI-GENERATED CONTENT.** The claims, ratings and fingerprint in the main report were determined independently of this summary. Check every statement against your letter.\n\n")

	fmt.Fprintf(&b, "- **Provider:** %s\n", summary.Provider)
	if summary.Model != "" {
		fmt.Fprintf(&b, "- **Model:** %s\n", summary.Model)
	}
	if summary.Cached {
		b.WriteString("- **Cached:** yes\n")
	}
	b.WriteString("\n")

	if summary.SummaryMD == "" {
		b.WriteString("_No summary generated._\n")
	} else {
		b.WriteString(summary.SummaryMD)
		b.WriteString("\n")
	}

	if len(summary.Warnings) > 0 {
		b.WriteString("\n## Notes\n\n")
		for _, w := range summary.Warnings {
			fmt.Fprintf(&b, "- %s\n", w)
		}
	}

	return b.String()
}
