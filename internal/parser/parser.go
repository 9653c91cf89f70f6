// Package parser extracts summariser hints (title, tags, wikilinks) from
// note content. The hints are advisory; the index never stores them directly.
package parser

import (
	"bytes"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	wikilinkRe = regexp.MustCompile(`\[\[(.*?)\]\]`)
	tagRe      = regexp.MustCompile(`(?:^|\s)#([A-Za-z][A-Za-z0-9_/-]*)`)
)

// Hints holds what can be read off a note without understanding it.
type Hints struct {
	Frontmatter map[string]any
	Body        string
	Title       string
	Tags        []string
	Links       []string
}

// Parse splits frontmatter from the body and collects title, tags and links.
// Malformed frontmatter is treated as part of the body.
func Parse(data []byte) *Hints {
	fm, body := splitFrontmatter(data)
	return &Hints{
		Frontmatter: fm,
		Body:        body,
		Title:       deriveTitle(fm, body),
		Tags:        extractTags(body, fm),
		Links:       extractLinks(body, fm),
	}
}

// splitFrontmatter separates YAML frontmatter (between leading --- delimiters)
// from the body. If no valid frontmatter is found the entire content is body.
func splitFrontmatter(data []byte) (map[string]any, string) {
	const delim = "---"
	trimmed := bytes.TrimLeft(data, "\n\r")

	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, string(data)
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return nil, string(data)
	}

	var fm map[string]any
	if err := yaml.Unmarshal(rest[:idx], &fm); err != nil {
		return nil, string(data)
	}
	body := strings.TrimLeft(string(rest[idx+1+len(delim):]), "\n\r")
	return fm, body
}

// extractLinks returns deduplicated wikilink targets from the body and from
// a frontmatter "related" list, with aliases and heading anchors removed.
func extractLinks(body string, fm map[string]any) []string {
	acc := newAccumulator(false)
	for _, v := range stringList(fm["related"]) {
		acc.add(v)
	}
	for _, m := range wikilinkRe.FindAllStringSubmatch(body, -1) {
		target := m[1]
		if i := strings.IndexAny(target, "|#"); i >= 0 {
			target = target[:i]
		}
		acc.add(target)
	}
	return acc.out
}

// extractTags collects frontmatter "tags" and "keywords" plus inline #tags,
// lowercased so they can be offered as keyword candidates.
func extractTags(body string, fm map[string]any) []string {
	acc := newAccumulator(true)
	for _, key := range []string{"tags", "keywords"} {
		for _, v := range stringList(fm[key]) {
			acc.add(v)
		}
	}
	for _, m := range tagRe.FindAllStringSubmatch(body, -1) {
		acc.add(m[1])
	}
	return acc.out
}

// deriveTitle returns the frontmatter "title" if present, otherwise the first
// H1 heading, otherwise empty string.
func deriveTitle(fm map[string]any, body string) string {
	if s, ok := fm["title"].(string); ok && s != "" {
		return s
	}
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	return ""
}

// stringList accepts a YAML sequence of strings or a comma-separated string.
func stringList(raw any) []string {
	switch v := raw.(type) {
	case string:
		return strings.Split(v, ",")
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

type accumulator struct {
	lower bool
	seen  map[string]struct{}
	out   []string
}

func newAccumulator(lower bool) *accumulator {
	return &accumulator{lower: lower, seen: make(map[string]struct{})}
}

func (a *accumulator) add(s string) {
	s = strings.TrimSpace(s)
	if a.lower {
		s = strings.ToLower(s)
	}
	if s == "" {
		return
	}
	if _, dup := a.seen[s]; dup {
		return
	}
	a.seen[s] = struct{}{}
	a.out = append(a.out, s)
}
