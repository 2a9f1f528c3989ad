package utils

import (
	"regexp"
	"strings"
)

var (
	markupNoiseRe = regexp.MustCompile(`[*#-]\s*`)
	newlinesRe    = regexp.MustCompile(`\n+`)
	spacesRe      = regexp.MustCompile(`\s+`)
	codeBlockRe   = regexp.MustCompile("```(\\w+)?\\n([\\s\\S]*?)```")
)

// CleanModelOutput strips markup noise (bullet markers, hashes) and collapses
// whitespace so the text is suitable for display and speech synthesis.
func CleanModelOutput(output string) string {
	cleaned := markupNoiseRe.ReplaceAllString(output, "")
	cleaned = newlinesRe.ReplaceAllString(cleaned, " ")
	cleaned = spacesRe.ReplaceAllString(cleaned, " ")
	return strings.TrimSpace(cleaned)
}

// CodeBlock is one fenced code block extracted from model output.
type CodeBlock struct {
	Language string
	Code     string
}

// ExtractCodeBlocks pulls fenced code blocks out of model output, keeping the
// language tag when present. Blocks without a tag get language "unknown".
func ExtractCodeBlocks(output string) []CodeBlock {
	matches := codeBlockRe.FindAllStringSubmatch(output, -1)

	blocks := make([]CodeBlock, 0, len(matches))
	for _, match := range matches {
		language := match[1]
		if language == "" {
			language = "unknown"
		}
		blocks = append(blocks, CodeBlock{
			Language: language,
			Code:     strings.TrimSpace(match[2]),
		})
	}
	return blocks
}
