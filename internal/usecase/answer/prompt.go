package answer

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/manualrag/internal/domain"
)

// DefaultFallback is returned verbatim when the excerpts do not contain the answer.
const DefaultFallback = "I cannot find this in the manual."

// DefaultLanguage is the answer language.
const DefaultLanguage = "English"

func systemPrompt(fallback, language string) string {
	return fmt.Sprintf(`You are an assistant for service technicians.
IMPORTANT:
- Use ONLY the excerpts you are given.
- If the answer is not in the excerpts, reply exactly: "%s"
- When you give advice, add a citation after every point in the format (Title — page X).
- If several pages support the same point, cite the most relevant page.
- Answer briefly and concretely in %s. Prefer a bulleted list.
- Never mention excerpt numbers or internal ids; only use (Title — page X).`, fallback, language)
}

func userPrompt(question string, candidates []domain.Candidate) string {
	var b strings.Builder
	b.WriteString("Question: ")
	b.WriteString(question)
	b.WriteString("\n\nSource excerpts (use only these):\n")
	b.WriteString(buildContext(candidates))
	b.WriteString(`

How to answer:
- Start with a short practical list of actions or a clear answer.
- Put a citation in the format (Title — page X) after every point.
- Take "Title" and "page" from the excerpts. If the page is missing, write (Title — page unknown).
- Do not repeat the same source needlessly; pick the most relevant one.`)
	return b.String()
}

// buildContext renders candidates as numbered excerpts.
func buildContext(candidates []domain.Candidate) string {
	parts := make([]string, len(candidates))
	for i := range candidates {
		c := &candidates[i]
		parts[i] = fmt.Sprintf("### Excerpt %d\nManual: %s | Page: %s\n---\n%s",
			i+1, c.Title, c.Page.String(), c.Text)
	}
	return strings.Join(parts, "\n\n")
}
