// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package export renders presets into downloadable PDF documents.
// Rendering is a pure function of the preset: the document is built in
// memory and bytes are only returned after the whole layout succeeded.
package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"

	"wanderplan/internal/formatter"
	"wanderplan/internal/models"
)

// ErrRender is wrapped by every failure returned from Render.
var ErrRender = errors.New("render failed")

// Page geometry in millimetres.
const (
	margin     = 18.0
	lineHeight = 5.5
	bodySize   = 10.5
)

// Renderer lays out presets as A4 PDF documents.
type Renderer struct {
	// Author is written into the document metadata.
	Author string

	compress bool
}

// NewRenderer creates a renderer with stream compression enabled.
func NewRenderer() *Renderer {
	return &Renderer{Author: "Wanderplan", compress: true}
}

// Render produces the PDF for a preset. The payload is validated again here
// because stored data may predate the current validation rules. The context
// is checked between day sections; a cancelled render returns no bytes.
func (r *Renderer) Render(ctx context.Context, p *models.Preset) ([]byte, error) {
	if p == nil {
		return nil, fmt.Errorf("%w: no preset", ErrRender)
	}
	it, err := models.ParseItinerary(p.Payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRender, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRender, err)
	}

	doc := newDocument(p, r.Author, r.compress)
	doc.title(p.Name)
	doc.summary(it)

	for day := 1; day <= it.Days; day++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrRender, err)
		}
		doc.day(day, it.DayPlan(day))
	}

	if strings.TrimSpace(it.Notes) != "" {
		doc.heading("Notes")
		doc.text(it.Notes, 0)
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRender, err)
	}

	var buf bytes.Buffer
	if err := doc.pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRender, err)
	}
	return buf.Bytes(), nil
}

// document wraps an fpdf instance with the itinerary layout primitives.
type document struct {
	pdf *fpdf.Fpdf
	tr  func(string) string
}

func newDocument(p *models.Preset, author string, compress bool) *document {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(compress)
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(true, margin)
	pdf.AliasNbPages("")

	// Fixed metadata keeps output byte-for-byte reproducible.
	pdf.SetCatalogSort(true)
	created := p.UpdatedAt
	if created.IsZero() {
		created = time.Unix(0, 0)
	}
	pdf.SetCreationDate(created.UTC())

	d := &document{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}
	pdf.SetTitle(d.tr(p.Name), false)
	pdf.SetAuthor(d.tr(author), false)
	pdf.SetCreator("Wanderplan", false)

	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.SetTextColor(128, 128, 128)
		pdf.CellFormat(0, 6, fmt.Sprintf("Page %d/{nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
		pdf.SetTextColor(0, 0, 0)
	})

	pdf.AddPage()
	return d
}

func (d *document) title(name string) {
	d.pdf.SetFont("Helvetica", "B", 20)
	d.pdf.MultiCell(0, 9, d.tr(name), "", "L", false)
	d.pdf.Ln(2)
}

func (d *document) summary(it *models.Itinerary) {
	d.pdf.SetFont("Helvetica", "", bodySize)
	d.pdf.SetTextColor(80, 80, 80)

	days := "1 day"
	if it.Days != 1 {
		days = fmt.Sprintf("%d days", it.Days)
	}
	line := days
	if len(it.Destinations) > 0 {
		line = strings.Join(it.Destinations, ", ") + " | " + days
	}
	d.pdf.MultiCell(0, lineHeight, d.tr(line), "", "L", false)

	if len(it.Preferences) > 0 {
		keys := make([]string, 0, len(it.Preferences))
		for k := range it.Preferences {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		prefs := make([]string, 0, len(keys))
		for _, k := range keys {
			prefs = append(prefs, k+": "+fmt.Sprint(it.Preferences[k]))
		}
		d.pdf.MultiCell(0, lineHeight, d.tr(strings.Join(prefs, "; ")), "", "L", false)
	}

	d.pdf.SetTextColor(0, 0, 0)
	d.pdf.Ln(4)
}

func (d *document) heading(text string) {
	d.pdf.Ln(2)
	d.pdf.SetFont("Helvetica", "B", 13)
	d.pdf.MultiCell(0, 7, d.tr(text), "", "L", false)
	y := d.pdf.GetY()
	d.pdf.SetDrawColor(200, 200, 200)
	d.pdf.Line(margin, y, 210-margin, y)
	d.pdf.Ln(2)
}

func (d *document) day(n int, plan *models.DayPlan) {
	heading := fmt.Sprintf("Day %d", n)
	if plan != nil && strings.TrimSpace(plan.Title) != "" {
		heading += ": " + strings.TrimSpace(plan.Title)
	}
	d.heading(heading)

	if plan == nil || (len(plan.Activities) == 0 && strings.TrimSpace(plan.Notes) == "") {
		d.pdf.SetFont("Helvetica", "I", bodySize)
		d.pdf.MultiCell(0, lineHeight, "Nothing planned yet.", "", "L", false)
		return
	}

	for _, a := range plan.Activities {
		d.activity(a)
	}
	if strings.TrimSpace(plan.Notes) != "" {
		d.text(plan.Notes, 4)
	}
}

func (d *document) activity(a models.Activity) {
	d.pdf.SetFont("Helvetica", "B", bodySize)
	d.pdf.CellFormat(18, lineHeight, d.tr(a.Time), "", 0, "L", false, 0, "")

	line := a.Title
	if a.Location != "" {
		line += " (" + a.Location + ")"
	}
	d.pdf.MultiCell(0, lineHeight, d.tr(line), "", "L", false)

	if a.Description != "" {
		d.pdf.SetFont("Helvetica", "", bodySize)
		d.pdf.SetX(margin + 18)
		d.pdf.MultiCell(0, lineHeight, d.tr(a.Description), "", "L", false)
	}
	d.pdf.Ln(1)
}

// text writes free text through the formatter, indented by indent mm.
func (d *document) text(s string, indent float64) {
	d.pdf.SetFont("Helvetica", "", bodySize)
	for _, block := range formatter.Format(s) {
		lines := block.PlainLines()
		switch block.Kind {
		case formatter.List:
			for _, item := range lines {
				d.pdf.SetX(margin + indent)
				d.pdf.CellFormat(5, lineHeight, d.tr("•"), "", 0, "L", false, 0, "")
				d.pdf.MultiCell(0, lineHeight, d.tr(item), "", "L", false)
			}
		default:
			d.pdf.SetX(margin + indent)
			d.pdf.MultiCell(0, lineHeight, d.tr(strings.Join(lines, "\n")), "", "L", false)
		}
		d.pdf.Ln(1.5)
	}
}
