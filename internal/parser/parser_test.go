package parser

import (
	"reflect"
	"testing"
)

func TestParse_FrontmatterAndBody(t *testing.T) {
	input := []byte("---\ntitle: Hello\ntags:\n  - go\n  - notes\n---\n# Hello\nBody text.\n")
	d := Parse(input)
	if d.Title != "Hello" {
		t.Errorf("title = %q, want %q", d.Title, "Hello")
	}
	if !reflect.DeepEqual(d.Tags, []string{"go", "notes"}) {
		t.Errorf("tags = %v, want [go notes]", d.Tags)
	}
	if d.Body != "# Hello\nBody text.\n" {
		t.Errorf("body = %q", d.Body)
	}
}

func TestParse_NoFrontmatter(t *testing.T) {
	input := []byte("# Just a heading\nSome text.\n")
	d := Parse(input)
	if d.Title != "Just a heading" {
		t.Errorf("title = %q, want %q", d.Title, "Just a heading")
	}
	if d.Body != string(input) {
		t.Errorf("body = %q", d.Body)
	}
}

func TestParse_InvalidYAMLFallback(t *testing.T) {
	input := []byte("---\n: invalid: yaml: {{{\n---\nBody\n")
	d := Parse(input)
	if d.Body != string(input) {
		t.Errorf("invalid YAML should leave the whole file as body, got %q", d.Body)
	}
}

func TestParse_UnclosedFrontmatter(t *testing.T) {
	input := []byte("---\ntitle: x\nno closing delimiter\n")
	d := Parse(input)
	if d.Title != "" || d.Body != string(input) {
		t.Errorf("got %+v", d)
	}
}

func TestFrontmatterTags_CommaString(t *testing.T) {
	d := Parse([]byte("---\ntags: \"work, #urgent ,work\"\n---\nbody\n"))
	if !reflect.DeepEqual(d.Tags, []string{"work", "urgent"}) {
		t.Errorf("tags = %v, want [work urgent]", d.Tags)
	}
}

func TestTags_InlineAndFrontmatter(t *testing.T) {
	d := Parse([]byte("---\ntags: [alpha]\n---\nSome text #beta and #alpha again.\n"))
	// alpha from frontmatter, beta from body; alpha not duplicated.
	if !reflect.DeepEqual(d.Tags, []string{"alpha", "beta"}) {
		t.Errorf("tags = %v, want [alpha beta]", d.Tags)
	}
}

func TestInlineTags_SkipsCodeFences(t *testing.T) {
	body := "#real\n```sh\n# comment #notatag\n```\nafter #also"
	if got := inlineTags(body); !reflect.DeepEqual(got, []string{"real", "also"}) {
		t.Errorf("inlineTags = %v, want [real also]", got)
	}
}

func TestInlineTags_HeadingIsNotTag(t *testing.T) {
	if got := inlineTags("# Heading\nissue#12 is not a tag"); len(got) != 0 {
		t.Errorf("inlineTags = %v, want none", got)
	}
}

func TestDeriveTitle_FrontmatterOverH1(t *testing.T) {
	title := deriveTitle(&frontmatter{Title: "FM Title"}, "# H1 Title\ntext")
	if title != "FM Title" {
		t.Errorf("title = %q, want %q", title, "FM Title")
	}
}

func TestDeriveTitle_H1Fallback(t *testing.T) {
	title := deriveTitle(nil, "some text\n# My Heading\nmore")
	if title != "My Heading" {
		t.Errorf("title = %q, want %q", title, "My Heading")
	}
}
