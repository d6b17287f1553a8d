// Package parser extracts a title, body and tags from Markdown files being
// imported as notes.
package parser

import (
	"bytes"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

var tagRe = regexp.MustCompile(`(?:^|\s)#([A-Za-z][A-Za-z0-9_/-]*)`)

// Document is a parsed Markdown file.
type Document struct {
	Title string
	Body  string
	Tags  []string
}

type frontmatter struct {
	Title string    `yaml:"title"`
	Tags  yaml.Node `yaml:"tags"`
}

// Parse splits optional YAML frontmatter from the body and derives the title
// and tags. Malformed frontmatter is treated as part of the body.
func Parse(data []byte) *Document {
	fm, body := splitFrontmatter(data)

	var tags []string
	if fm != nil {
		tags = frontmatterTags(&fm.Tags)
	}
	tags = appendUnique(tags, inlineTags(body)...)

	return &Document{
		Title: deriveTitle(fm, body),
		Body:  body,
		Tags:  tags,
	}
}

// splitFrontmatter separates YAML frontmatter (between leading --- delimiters)
// from the Markdown body. If no frontmatter is found the entire content is body.
func splitFrontmatter(data []byte) (*frontmatter, string) {
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

	block := rest[:idx]
	body := strings.TrimLeft(string(rest[idx+1+len(delim):]), "\n\r")

	var fm frontmatter
	if err := yaml.Unmarshal(block, &fm); err != nil {
		return nil, string(data)
	}
	return &fm, body
}

// frontmatterTags accepts either a YAML sequence or a comma-separated string.
func frontmatterTags(n *yaml.Node) []string {
	var raw []string
	switch n.Kind {
	case yaml.SequenceNode:
		for _, item := range n.Content {
			if item.Kind == yaml.ScalarNode {
				raw = append(raw, item.Value)
			}
		}
	case yaml.ScalarNode:
		raw = strings.Split(n.Value, ",")
	}

	var out []string
	for _, t := range raw {
		out = appendUnique(out, strings.TrimPrefix(strings.TrimSpace(t), "#"))
	}
	return out
}

// inlineTags collects #tags outside fenced code blocks.
func inlineTags(body string) []string {
	var out []string
	inFence := false
	for _, line := range strings.Split(body, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			inFence = !inFence
			continue
		}
		if inFence {
			continue
		}
		for _, m := range tagRe.FindAllStringSubmatch(line, -1) {
			out = appendUnique(out, m[1])
		}
	}
	return out
}

func appendUnique(dst []string, tags ...string) []string {
	for _, t := range tags {
		if t == "" {
			continue
		}
		dup := false
		for _, existing := range dst {
			if existing == t {
				dup = true
				break
			}
		}
		if !dup {
			dst = append(dst, t)
		}
	}
	return dst
}

// deriveTitle returns the frontmatter "title" if present, otherwise the first
// H1 heading, otherwise empty string.
func deriveTitle(fm *frontmatter, body string) string {
	if fm != nil && strings.TrimSpace(fm.Title) != "" {
		return strings.TrimSpace(fm.Title)
	}
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	return ""
}
