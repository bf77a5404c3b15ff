package render

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"ciportal/api/internal/store"
)

// printShell wraps the document sections for the browser print path. Each
// section is kept whole across page breaks and the toolbar disappears in
// print media.
const printShell = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
  :root { color-scheme: light; }
  html, body { margin: 0; padding: 0; background: #ffffff; color: #111111; }
  .toolbar { padding: 12px; text-align: center; background: #f2f2f2; }
  .toolbar button { font-size: 14px; padding: 6px 18px; }
  .sheet { width: 190mm; margin: 0 auto; }
  .block { page-break-inside: avoid; break-inside: avoid; }
  @media print {
    .toolbar { display: none; }
    @page { size: A4; margin: 10mm; }
  }
</style>
</head>
<body>
<div class="toolbar"><button onclick="window.print()">Print</button></div>
<div class="sheet">
{{range .Sections}}<div class="block">{{.Body}}</div>
{{end}}</div>
</body>
</html>`

var printTemplate = template.Must(template.New("print").Parse(printShell))

type printSection struct {
	Body template.HTML
}

// BuildPrintHTML assembles the full document as one printable page for the
// candidate's browser.
func BuildPrintHTML(profile store.Profile, cfg DocumentConfig) (string, error) {
	sections, err := BuildSections(profile, cfg)
	if err != nil {
		return "", err
	}

	blocks := make([]printSection, 0, len(sections))
	for _, s := range sections {
		blocks = append(blocks, printSection{Body: template.HTML(innerSection(s.HTML))})
	}

	var buf bytes.Buffer
	err = printTemplate.Execute(&buf, struct {
		Title    string
		Sections []printSection
	}{
		Title:    fmt.Sprintf("%s Application", cfg.OrgName),
		Sections: blocks,
	})
	if err != nil {
		return "", fmt.Errorf("render print page: %w", err)
	}
	return buf.String(), nil
}

// innerSection strips the standalone document frame so the section can be
// embedded in the print shell, which carries the shared styles itself.
func innerSection(html string) string {
	start := strings.Index(html, `<div class="section">`)
	end := strings.LastIndex(html, `</div>`)
	if start < 0 || end < 0 || end <= start {
		return html
	}
	styleStart := strings.Index(html, "<style>")
	styleEnd := strings.Index(html, "</style>")
	style := ""
	if styleStart >= 0 && styleEnd > styleStart {
		style = html[styleStart : styleEnd+len("</style>")]
	}
	return style + html[start:end+len("</div>")]
}
