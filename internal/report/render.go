package report

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"strings"
	texttemplate "text/template"
	"time"

	"github.com/dailyreport/internal/table"
	"github.com/olekukonko/tablewriter"
)

//go:embed templates
var templateFiles embed.FS

var (
	htmlTemplates *template.Template
	textTemplate  *texttemplate.Template
)

func init() {
	var err error

	htmlTemplates, err = template.New("").ParseFS(templateFiles, "templates/*.html")
	if err != nil {
		slog.Error("report: failed to parse html templates", "err", err)
		panic(err)
	}

	textTemplate, err = texttemplate.New("").ParseFS(templateFiles, "templates/report.txt")
	if err != nil {
		slog.Error("report: failed to parse text template", "err", err)
		panic(err)
	}
}

// Input is everything needed to render one report.
type Input struct {
	Summary table.Table
	// Raw is optional; nil or empty omits the raw section.
	Raw *table.Table

	Subject      string
	FromName     string
	Organization string
	SummaryTitle string
	RawTitle     string

	// LogoSrc is the image source for the header logo, e.g. "cid:pds_logo"
	// in email or a URL in the browser preview. Empty omits the image.
	LogoSrc string
}

// Rendered is a report ready to send or display.
type Rendered struct {
	Subject string
	Text    string
	HTML    string
}

type Renderer struct {
	now func() time.Time
}

func NewRenderer() *Renderer {
	return &Renderer{now: time.Now}
}

// WithClock fixes the report date, for tests and reruns.
func (r *Renderer) WithClock(now func() time.Time) *Renderer {
	r.now = now
	return r
}

type tableData struct {
	ID      string
	Title   string
	Headers []string
	Rows    []rowData
	S       Styles
}

type rowData struct {
	Style template.CSS
	Cells []string
}

type htmlPage struct {
	Subject      string
	Date         string
	FromName     string
	Organization string
	LogoSrc      template.URL
	Sections     []tableData
	S            Styles
}

type textSection struct {
	Title string
	Body  string
}

type textPage struct {
	Subject      string
	Date         string
	FromName     string
	Organization string
	Sections     []textSection
}

// Render produces the HTML and plain-text bodies for in.
func (r *Renderer) Render(in Input) (Rendered, error) {
	now := r.now()
	date := now.Format("January 02, 2006")
	subject := ExpandTokens(in.Subject, map[string]string{
		"date":         date,
		"iso_date":     now.Format("2006-01-02"),
		"organization": in.Organization,
	})

	type section struct {
		title string
		t     table.Table
	}
	sections := []section{{title: in.SummaryTitle, t: in.Summary}}
	if in.Raw != nil && !in.Raw.Empty() {
		sections = append(sections, section{title: in.RawTitle, t: *in.Raw})
	}

	page := htmlPage{
		Subject:      subject,
		Date:         date,
		FromName:     in.FromName,
		Organization: in.Organization,
		LogoSrc:      template.URL(in.LogoSrc),
		S:            tableStyles,
	}
	text := textPage{
		Subject:      subject,
		Date:         date,
		FromName:     in.FromName,
		Organization: in.Organization,
	}
	ids := make(map[string]bool, len(sections))
	for i, s := range sections {
		data := newTableData(s.t, s.title)
		if ids[data.ID] {
			data.ID = fmt.Sprintf("%s_%d", data.ID, i+1)
		}
		ids[data.ID] = true
		page.Sections = append(page.Sections, data)
		text.Sections = append(text.Sections, textSection{Title: s.title, Body: PlainTable(s.t)})
	}

	var html bytes.Buffer
	if err := htmlTemplates.ExecuteTemplate(&html, "report.html", page); err != nil {
		return Rendered{}, fmt.Errorf("render html: %w", err)
	}

	var plain bytes.Buffer
	if err := textTemplate.ExecuteTemplate(&plain, "report.txt", text); err != nil {
		return Rendered{}, fmt.Errorf("render text: %w", err)
	}

	return Rendered{Subject: subject, Text: plain.String(), HTML: html.String()}, nil
}

// HTMLTable renders t as a titled, styled table fragment.
func HTMLTable(t table.Table, title string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := htmlTemplates.ExecuteTemplate(&buf, "table", newTableData(t, title)); err != nil {
		return "", fmt.Errorf("render table %q: %w", title, err)
	}
	return template.HTML(buf.String()), nil
}

// PlainTable renders t as space-aligned columns without borders.
func PlainTable(t table.Table) string {
	var buf strings.Builder

	tw := tablewriter.NewWriter(&buf)
	tw.SetHeader(t.Headers())
	tw.SetAutoFormatHeaders(false)
	tw.SetAutoWrapText(false)
	tw.SetBorder(false)
	tw.SetHeaderLine(false)
	tw.SetColumnSeparator("")
	tw.SetCenterSeparator("")
	tw.SetRowSeparator("")
	tw.SetTablePadding("  ")
	tw.SetNoWhiteSpace(true)
	tw.SetHeaderAlignment(tablewriter.ALIGN_RIGHT)
	tw.SetAlignment(tablewriter.ALIGN_RIGHT)
	tw.AppendBulk(t.StringRows())
	tw.Render()

	return strings.TrimRight(buf.String(), "\n")
}

func newTableData(t table.Table, title string) tableData {
	rows := t.StringRows()
	data := tableData{
		ID:      tableID(title),
		Title:   title,
		Headers: t.Headers(),
		Rows:    make([]rowData, len(rows)),
		S:       tableStyles,
	}
	for i, cells := range rows {
		style := oddRowStyle
		if i%2 == 1 {
			style = evenRowStyle
		}
		data.Rows[i] = rowData{Style: style, Cells: cells}
	}
	return data
}

func tableID(title string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(title), " ", "_"))
}
