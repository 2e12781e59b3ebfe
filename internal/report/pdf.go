package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/medigen/catalyst/internal/analysis"
	"github.com/medigen/catalyst/internal/models"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

const (
	fontFamily = "Helvetica"
	bodySize   = 11
	lineHeight = 5.5
	indentStep = 6
)

var headingSizes = map[int]float64{1: 18, 2: 15, 3: 13}

// pdfWriter lays out a goldmark document with fpdf
type pdfWriter struct {
	pdf    *fpdf.Fpdf
	tr     func(string) string
	source []byte
	style  string
	size   float64
	margin float64
}

func renderPDF(w io.Writer, record models.AnalysisRecord) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Analysis for "+record.Filename, true)
	pdf.SetCreator("MediGen Catalyst", true)

	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont(fontFamily, "I", 8)
		pdf.CellFormat(0, 10, tr(analysis.Disclaimer), "", 0, "C", false, 0, "")
	})

	pdf.AddPage()
	pdf.SetFont(fontFamily, "B", 18)
	pdf.MultiCell(0, 9, tr("Analysis for "+record.Filename), "", "L", false)
	if !record.CreatedAt.IsZero() {
		pdf.SetFont(fontFamily, "", 9)
		pdf.MultiCell(0, 5, tr("Generated "+record.CreatedAt.Format("2006-01-02 15:04 MST")), "", "L", false)
	}
	pdf.Ln(4)

	pw := &pdfWriter{
		pdf:    pdf,
		tr:     tr,
		source: []byte(record.Text),
		size:   bodySize,
		margin: 10,
	}
	pw.setFont()

	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	doc := md.Parser().Parse(text.NewReader(pw.source))
	pw.blocks(doc)

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("pdf layout failed: %w", err)
	}
	return pdf.Output(w)
}

func (p *pdfWriter) setFont() {
	p.pdf.SetFont(fontFamily, p.style, p.size)
}

func (p *pdfWriter) blocks(parent ast.Node) {
	for n := parent.FirstChild(); n != nil; n = n.NextSibling() {
		p.block(n)
	}
}

func (p *pdfWriter) block(n ast.Node) {
	switch node := n.(type) {
	case *ast.Heading:
		size, ok := headingSizes[node.Level]
		if !ok {
			size = 12
		}
		p.pdf.Ln(2)
		p.withFont("B", size, func() { p.inline(node) })
		p.pdf.Ln(lineHeight + 1)
	case *ast.Paragraph, *ast.TextBlock:
		p.inline(node)
		p.pdf.Ln(lineHeight)
		if _, ok := node.(*ast.Paragraph); ok {
			p.pdf.Ln(1.5)
		}
	case *ast.List:
		p.list(node)
		p.pdf.Ln(1.5)
	case *ast.FencedCodeBlock:
		p.code(node.Lines())
	case *ast.CodeBlock:
		p.code(node.Lines())
	case *ast.ThematicBreak:
		y := p.pdf.GetY() + 2
		left, _, right, _ := p.pdf.GetMargins()
		pageWidth, _ := p.pdf.GetPageSize()
		p.pdf.Line(left, y, pageWidth-right, y)
		p.pdf.Ln(5)
	case *ast.Blockquote:
		p.indented(func() { p.withFont("I", p.size, func() { p.blocks(node) }) })
	default:
		if n.Type() == ast.TypeBlock && n.FirstChild() != nil && n.FirstChild().Type() == ast.TypeBlock {
			p.blocks(n)
			return
		}
		p.inline(n)
		p.pdf.Ln(lineHeight)
	}
}

func (p *pdfWriter) list(list *ast.List) {
	index := list.Start
	if index == 0 {
		index = 1
	}
	for item := list.FirstChild(); item != nil; item = item.NextSibling() {
		marker := "-"
		if list.IsOrdered() {
			marker = fmt.Sprintf("%d.", index)
			index++
		}
		p.pdf.SetX(p.margin)
		p.pdf.Write(lineHeight, p.tr(marker+" "))
		p.indented(func() { p.blocks(item) })
	}
}

func (p *pdfWriter) code(lines *text.Segments) {
	var sb strings.Builder
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		sb.Write(line.Value(p.source))
	}
	p.withFont("", 9, func() {
		p.pdf.SetFont("Courier", "", 9)
		p.pdf.MultiCell(0, 4.5, p.tr(strings.TrimRight(sb.String(), "\n")), "", "L", false)
	})
	p.pdf.Ln(1.5)
}

func (p *pdfWriter) inline(parent ast.Node) {
	for n := parent.FirstChild(); n != nil; n = n.NextSibling() {
		switch node := n.(type) {
		case *ast.Text:
			p.write(string(node.Segment.Value(p.source)))
			if node.HardLineBreak() {
				p.pdf.Ln(lineHeight)
			} else if node.SoftLineBreak() {
				p.write(" ")
			}
		case *ast.String:
			p.write(string(node.Value))
		case *ast.Emphasis:
			style := "I"
			if node.Level >= 2 {
				style = "B"
			}
			p.withFont(mergeStyle(p.style, style), p.size, func() { p.inline(node) })
		case *ast.AutoLink:
			p.write(string(node.URL(p.source)))
		default:
			p.inline(n)
		}
	}
}

func (p *pdfWriter) write(s string) {
	if s == "" {
		return
	}
	p.pdf.Write(lineHeight, p.tr(s))
}

func (p *pdfWriter) withFont(style string, size float64, fn func()) {
	prevStyle, prevSize := p.style, p.size
	p.style, p.size = style, size
	p.setFont()
	fn()
	p.style, p.size = prevStyle, prevSize
	p.setFont()
}

func (p *pdfWriter) indented(fn func()) {
	prev := p.margin
	p.margin += indentStep
	p.pdf.SetLeftMargin(p.margin)
	fn()
	p.margin = prev
	p.pdf.SetLeftMargin(p.margin)
	p.pdf.SetX(p.margin)
}

func mergeStyle(current, add string) string {
	if strings.Contains(current, add) {
		return current
	}
	return current + add
}
