package render

import (
	"context"
	"encoding/base64"
	"fmt"
	"os/exec"
	"strings"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"ciportal/api/internal/store"
)

// Renderer drives headless Chrome to capture each section as an image and
// compose the captures into a paged A4 PDF.
type Renderer struct {
	cfg   DocumentConfig
	phase atomic.Value
}

func NewRenderer(cfg DocumentConfig) *Renderer {
	r := &Renderer{cfg: cfg}
	r.phase.Store(PhaseIdle)
	return r
}

// Phase reports the stage of the most recent export.
func (r *Renderer) Phase() Phase {
	return r.phase.Load().(Phase)
}

func (r *Renderer) setPhase(p Phase) {
	r.phase.Store(p)
}

// Capture viewport: 190mm of content at 96dpi, with headroom for tall
// sections.
const (
	captureWidthPx  = 719
	captureHeightPx = 1100
	pxPerMM         = 96.0 / 25.4
)

// Export renders the profile's document sections and returns the composed
// PDF. The export fails cleanly when no Chromium binary is installed.
func (r *Renderer) Export(ctx context.Context, profile store.Profile, filenameBase string) (*Result, error) {
	if _, err := exec.LookPath("chromium-browser"); err != nil {
		if _, fallbackErr := exec.LookPath("chromium"); fallbackErr != nil {
			return nil, fmt.Errorf("%w: chromium not installed", ErrPDFDependencyMissing)
		}
	}

	sections, err := BuildSections(profile, r.cfg)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-setuid-sandbox", true),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	defer allocCancel()

	taskCtx, taskCancel := chromedp.NewContext(allocCtx)
	defer taskCancel()

	r.setPhase(PhaseCapturing)
	captured, err := captureSections(taskCtx, sections)
	if err != nil {
		r.setPhase(PhaseFailed)
		return nil, err
	}

	r.setPhase(PhaseComposing)
	pdfData, err := composePDF(taskCtx, captured)
	if err != nil {
		r.setPhase(PhaseFailed)
		return nil, err
	}

	r.setPhase(PhaseReady)
	return &Result{
		Data:     pdfData,
		Filename: sanitizeFilename(filenameBase) + ".pdf",
		MimeType: "application/pdf",
	}, nil
}

// captureSections renders each section in isolation and screenshots it at
// page width, measuring the height it will occupy on paper.
func captureSections(ctx context.Context, sections []Section) ([]CapturedSection, error) {
	captured := make([]CapturedSection, 0, len(sections))
	for _, section := range sections {
		dataURL := "data:text/html;charset=utf-8," + percentEncodeForDataURL(section.HTML)

		var (
			png      []byte
			heightPx float64
		)
		err := chromedp.Run(ctx,
			chromedp.EmulateViewport(captureWidthPx, captureHeightPx),
			chromedp.Navigate(dataURL),
			chromedp.WaitReady("body"),
			chromedp.Evaluate(`document.body.scrollHeight`, &heightPx),
			chromedp.FullScreenshot(&png, 100),
		)
		if err != nil {
			return nil, fmt.Errorf("capture section %s: %w", section.ID, err)
		}

		captured = append(captured, CapturedSection{
			Section:  section,
			PNG:      png,
			HeightMM: heightPx / pxPerMM,
		})
	}
	return captured, nil
}

// composePDF packs the captured images onto A4 pages and prints the result.
func composePDF(ctx context.Context, captured []CapturedSection) ([]byte, error) {
	heights := make([]float64, len(captured))
	for i, c := range captured {
		heights[i] = c.HeightMM
	}
	pages, err := Paginate(heights, UsableMM)
	if err != nil {
		return nil, err
	}

	html := composeHTML(captured, pages)
	dataURL := "data:text/html;charset=utf-8," + percentEncodeForDataURL(html)

	const marginInches = MarginMM / 25.4
	var pdfData []byte
	err = chromedp.Run(ctx,
		chromedp.Navigate(dataURL),
		chromedp.WaitReady("body"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			pdfData, _, err = page.PrintToPDF().
				WithPrintBackground(true).
				WithPaperWidth(8.27). // A4
				WithPaperHeight(11.69).
				WithMarginTop(marginInches).
				WithMarginBottom(marginInches).
				WithMarginLeft(marginInches).
				WithMarginRight(marginInches).
				WithPreferCSSPageSize(true).
				Do(ctx)
			return err
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("chrome pdf generation failed: %w", err)
	}
	return pdfData, nil
}

func composeHTML(captured []CapturedSection, pages [][]int) string {
	var b strings.Builder
	b.WriteString(`<!DOCTYPE html><html><head><meta charset="utf-8"><style>
:root { color-scheme: light; }
html, body { margin: 0; padding: 0; background: #ffffff; }
.page { width: 190mm; page-break-after: always; }
.page:last-child { page-break-after: auto; }
img { display: block; width: 190mm; }
</style></head><body>`)
	for _, pageIdx := range pages {
		b.WriteString(`<div class="page">`)
		for _, i := range pageIdx {
			c := captured[i]
			fmt.Fprintf(&b, `<img src="data:image/png;base64,%s" style="height:%.2fmm" alt="%s">`,
				base64.StdEncoding.EncodeToString(c.PNG), c.HeightMM, c.ID)
		}
		b.WriteString(`</div>`)
	}
	b.WriteString(`</body></html>`)
	return b.String()
}

// percentEncodeForDataURL encodes HTML for a data URL. url.QueryEscape uses
// + for spaces, which data URLs do not accept.
func percentEncodeForDataURL(s string) string {
	var result strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z',
			r >= 'A' && r <= 'Z',
			r >= '0' && r <= '9',
			r == '-', r == '_', r == '.', r == '~':
			result.WriteRune(r)
		case r == ' ':
			result.WriteString("%20")
		default:
			for _, b := range []byte(string(r)) {
				result.WriteString(fmt.Sprintf("%%%02X", b))
			}
		}
	}
	return result.String()
}

func sanitizeFilename(title string) string {
	result := ""
	for _, r := range title {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			result += string(r)
		case r == ' ':
			result += "-"
		case r == '-', r == '_':
			result += string(r)
		}
	}
	if len(result) > 50 {
		result = result[:50]
	}
	if result == "" {
		result = "application"
	}
	return result
}
