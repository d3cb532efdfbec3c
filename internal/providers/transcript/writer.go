package transcript

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	openAIProviderName = "openai"
	staticProviderName = "static"
)

// Writer turns a content brief into a video script. Implementations may fail
// and offer no idempotence guarantee: two calls with the same brief can
// produce different scripts.
type Writer interface {
	WriteScript(ctx context.Context, brief string) (string, error)
}

// StaticWriter produces a deterministic script skeleton. It backs the LLM
// writers when credentials are missing or the remote call fails, so the
// pipeline stays usable in development.
type StaticWriter struct{}

func NewStaticWriter() *StaticWriter {
	return &StaticWriter{}
}

func (s *StaticWriter) WriteScript(ctx context.Context, brief string) (string, error) {
	trimmed := strings.TrimSpace(brief)
	if trimmed == "" {
		trimmed = "your campaign"
	}
	c := cases.Title(language.Und)
	title := c.String(truncateWords(trimmed, 8))
	var b strings.Builder
	fmt.Fprintf(&b, "[00:00] %s\n", title)
	fmt.Fprintf(&b, "[00:05] Here is what makes %s worth your attention.\n", trimmed)
	b.WriteString("[00:45] A closer look at the details that matter.\n")
	b.WriteString("[01:30] Ready to get started? Follow the link below.\n")
	return b.String(), nil
}

func truncateWords(s string, max int) string {
	words := strings.Fields(s)
	if len(words) <= max {
		return s
	}
	return strings.Join(words[:max], " ")
}

var _ Writer = (*StaticWriter)(nil)
