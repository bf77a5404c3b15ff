// Package render turns a confirmed application into the printed document: a
// fixed sequence of declaration sections captured as images and packed onto
// A4 pages.
package render

import "errors"

// Phase tracks an export job through its pipeline.
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseCapturing Phase = "capturing"
	PhaseComposing Phase = "composing"
	PhaseReady     Phase = "ready"
	PhaseFailed    Phase = "failed"
)

// Page geometry in millimetres. Sections are packed into the usable height
// and never split across pages.
const (
	PageHeightMM float64 = 297
	PageWidthMM  float64 = 210
	MarginMM     float64 = 10
	UsableMM             = PageHeightMM - 2*MarginMM
)

// Section is one self-contained block of the printed document.
type Section struct {
	ID    string
	Title string
	HTML  string
}

// CapturedSection is a section rendered to a raster image with its measured
// height at page width.
type CapturedSection struct {
	Section
	PNG      []byte
	HeightMM float64
}

// Result is the finished PDF.
type Result struct {
	Data     []byte
	Filename string
	MimeType string
}

var (
	// ErrPDFDependencyMissing indicates the headless browser is unavailable.
	ErrPDFDependencyMissing = errors.New("render pdf dependency missing")
	// ErrSectionTooTall indicates a single section exceeds the usable page height.
	ErrSectionTooTall = errors.New("section taller than printable page")
)

// DocumentConfig is the organisation wording stamped into every section.
type DocumentConfig struct {
	OrgName    string
	ExamName   string
	ExamDates  string
	PayoutRate string
	DebitFee   string
}
