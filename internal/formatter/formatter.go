// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package formatter turns free-text itinerary notes into display markup.
// It runs in two passes: the whole input is HTML-escaped first, and only the
// escaped text is segmented into paragraphs and lists. Characters from the
// source therefore can never be reinterpreted as markup.
package formatter

import (
	"html"
	"strings"
)

// BlockKind distinguishes the two block types the formatter produces.
type BlockKind string

const (
	Paragraph BlockKind = "paragraph"
	List      BlockKind = "list"
)

// listPrefix marks a list item when it starts the first line of a block.
const listPrefix = "- "

// Block is one segment of formatted text. Lines hold escaped text: the
// lines of a paragraph, or the items of a list.
type Block struct {
	Kind  BlockKind
	Lines []string
}

// Markup is the ordered sequence of blocks produced by Format.
type Markup []Block

// Format converts free text into markup. It never fails; empty or
// whitespace-only input yields an empty result.
func Format(text string) Markup {
	escaped := html.EscapeString(text)
	return segment(escaped)
}

// segment splits already-escaped text on blank lines and classifies each
// block as a list or a paragraph.
func segment(escaped string) Markup {
	escaped = strings.ReplaceAll(escaped, "\r\n", "\n")
	escaped = strings.ReplaceAll(escaped, "\r", "\n")

	var (
		out     Markup
		current []string
	)
	flush := func() {
		if len(current) > 0 {
			out = append(out, classify(current))
			current = nil
		}
	}

	for _, line := range strings.Split(escaped, "\n") {
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		current = append(current, line)
	}
	flush()

	return out
}

// classify builds a block from its non-blank lines.
func classify(lines []string) Block {
	if strings.HasPrefix(strings.TrimLeft(lines[0], " \t"), listPrefix) {
		items := make([]string, 0, len(lines))
		for _, line := range lines {
			item := strings.TrimSpace(line)
			item = strings.TrimPrefix(item, "-")
			items = append(items, strings.TrimSpace(item))
		}
		return Block{Kind: List, Lines: items}
	}

	para := make([]string, 0, len(lines))
	for _, line := range lines {
		para = append(para, strings.TrimSpace(line))
	}
	return Block{Kind: Paragraph, Lines: para}
}

// HTML renders the markup as HTML: paragraphs become <p> elements with
// <br> between lines, lists become <ul> elements.
func (m Markup) HTML() string {
	var b strings.Builder
	for i, block := range m {
		if i > 0 {
			b.WriteByte('\n')
		}
		switch block.Kind {
		case List:
			b.WriteString("<ul>")
			for _, item := range block.Lines {
				b.WriteString("<li>")
				b.WriteString(item)
				b.WriteString("</li>")
			}
			b.WriteString("</ul>")
		default:
			b.WriteString("<p>")
			b.WriteString(strings.Join(block.Lines, "<br>"))
			b.WriteString("</p>")
		}
	}
	return b.String()
}

// PlainLines returns the block's lines decoded back to display text, for
// output media that do not interpret HTML (such as PDF).
func (b Block) PlainLines() []string {
	out := make([]string, len(b.Lines))
	for i, line := range b.Lines {
		out[i] = html.UnescapeString(line)
	}
	return out
}
