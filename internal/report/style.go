package report

import "html/template"

// Inline styles shared by every rendered table. Email clients strip <style>
// blocks, so each element carries its own style attribute.
const (
	fontStack template.CSS = "font-family:'Segoe UI',Roboto,'Helvetica Neue',Arial,sans-serif;"

	sectionStyle template.CSS = "margin:30px 0;"
	headingStyle template.CSS = "font-size:16px; font-weight:bold; margin:0 0 12px 0; color:#1a1a1a; " + fontStack
	tableStyle   template.CSS = "width:100%; border-collapse:collapse; font-size:13px; background-color:#ffffff; border:2px solid #e0e0e0;"
	thStyle      template.CSS = "padding:10px 12px; border:2px solid #e0e0e0; background-color:#1a1a1a; color:#ffffff; font-weight:bold; font-size:13px; text-align:center; min-width:110px;"
	tdStyle      template.CSS = "padding:10px 12px; border:2px solid #e0e0e0; font-size:15px; font-weight:bold; text-align:center; vertical-align:middle;"
	evenRowStyle template.CSS = "background-color:#f5f5f5;"
	oddRowStyle  template.CSS = "background-color:#ffffff;"
)

// Styles exposes the shared table styles to templates.
type Styles struct {
	Font    template.CSS
	Section template.CSS
	Heading template.CSS
	Table   template.CSS
	TH      template.CSS
	TD      template.CSS
	EvenRow template.CSS
	OddRow  template.CSS
}

var tableStyles = Styles{
	Font:    fontStack,
	Section: sectionStyle,
	Heading: headingStyle,
	Table:   tableStyle,
	TH:      thStyle,
	TD:      tdStyle,
	EvenRow: evenRowStyle,
	OddRow:  oddRowStyle,
}
