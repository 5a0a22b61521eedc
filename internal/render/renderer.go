package render

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// ErrEmptyRecipient is returned when the recipient name is empty or
// whitespace-only after trimming.
var ErrEmptyRecipient = errors.New("recipient name is empty")

// RenderError wraps a failure while painting or encoding a certificate page.
// A RenderError means no usable document was produced.
type RenderError struct {
	Stage string
	Err   error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render failed at %s: %v", e.Stage, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// Options configures certificate rendering
type Options struct {
	// DefaultEventLabel is used when a render call passes an empty event label.
	DefaultEventLabel string `json:"default_event_label"`
	// DateFormat is the layout for the issue date line.
	DateFormat string `json:"date_format"`
	// FontFamily must be one of the core PDF families.
	FontFamily string `json:"font_family"`
	// Compress controls content-stream compression in the output.
	Compress bool `json:"compress"`
}

// DefaultOptions returns default rendering options
func DefaultOptions() Options {
	return Options{
		DefaultEventLabel: "the event",
		DateFormat:        "January 2, 2006",
		FontFamily:        "Helvetica",
		Compress:          true,
	}
}

// Renderer produces single-page participation certificates. A Renderer holds
// only immutable configuration; every render call allocates its own page
// canvas, so concurrent calls are safe.
type Renderer struct {
	options Options
	now     func() time.Time
}

// NewRenderer creates a new certificate renderer
func NewRenderer(options Options) *Renderer {
	if options.DateFormat == "" {
		options.DateFormat = "January 2, 2006"
	}
	if options.FontFamily == "" {
		options.FontFamily = "Helvetica"
	}
	return &Renderer{
		options: options,
		now:     time.Now,
	}
}

// Render produces a finished certificate document for the recipient. When
// watermark is true a translucent SAMPLE overlay is drawn on top of the page
// content, marking the document as a preview.
func (r *Renderer) Render(recipientName, eventLabel string, watermark bool) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.RenderTo(&buf, recipientName, eventLabel, watermark); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// RenderTo renders the certificate and writes the encoded document to w.
// Nothing is written when an error is returned.
func (r *Renderer) RenderTo(w io.Writer, recipientName, eventLabel string, watermark bool) error {
	recipientName = strings.TrimSpace(recipientName)
	if recipientName == "" {
		return ErrEmptyRecipient
	}

	eventLabel = strings.TrimSpace(eventLabel)
	if eventLabel == "" {
		eventLabel = r.options.DefaultEventLabel
	}

	// Read the clock once so the date line and the document metadata cannot
	// disagree when a render straddles midnight.
	now := r.now()

	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetCompression(r.options.Compress)
	// Sorted resource catalogs keep identical inputs byte-identical; the
	// default map-iteration order does not.
	pdf.SetCatalogSort(true)
	pdf.SetTitle(fmt.Sprintf("Certificate of Participation - %s", recipientName), true)
	// Pin the metadata date to the injected clock so identical inputs on the
	// same day produce identical bytes.
	pdf.SetCreationDate(now)
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()

	r.paintBackground(pdf)
	r.drawFrame(pdf)
	r.drawText(pdf, recipientName, eventLabel, now)
	if watermark {
		r.drawWatermark(pdf)
	}

	if err := pdf.Error(); err != nil {
		return &RenderError{Stage: "layout", Err: err}
	}

	// The page buffer is encoded fully in memory first so a write failure
	// can never hand the caller a truncated document.
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return &RenderError{Stage: "encode", Err: err}
	}
	if _, err := buf.WriteTo(w); err != nil {
		return &RenderError{Stage: "flush", Err: err}
	}
	return nil
}

// paintBackground fills the full page
func (r *Renderer) paintBackground(pdf *gofpdf.Fpdf) {
	pdf.SetFillColor(backgroundColor.r, backgroundColor.g, backgroundColor.b)
	pdf.Rect(0, 0, pageWidth, pageHeight, "F")
}

// drawFrame draws the inset rectangular border on top of the background
func (r *Renderer) drawFrame(pdf *gofpdf.Fpdf) {
	pdf.SetDrawColor(frameColor.r, frameColor.g, frameColor.b)
	pdf.SetLineWidth(frameLineWidth)
	pdf.Rect(frameInset, frameInset, pageWidth-2*frameInset, pageHeight-2*frameInset, "D")
}

// drawText draws the fixed text blocks in their stereotyped top-to-bottom order
func (r *Renderer) drawText(pdf *gofpdf.Fpdf, recipientName, eventLabel string, now time.Time) {
	family := r.options.FontFamily

	r.centeredLine(pdf, headingY, headingText, family, "B", headingFontSize, accentColor)
	r.centeredLine(pdf, subtitleY, subtitleText, family, "", subtitleFontSize, textColor)
	r.centeredLine(pdf, nameY, recipientName, family, "B", nameFontSize, textColor)
	r.centeredLine(pdf, bodyY, bodyText, family, "", bodyFontSize, textColor)
	r.centeredLine(pdf, eventY, eventLabel, family, "B", eventFontSize, accentColor)

	// Date line is left-anchored, not centered.
	pdf.SetFont(family, "I", dateFontSize)
	pdf.SetTextColor(textColor.r, textColor.g, textColor.b)
	pdf.SetXY(dateX, dateY)
	pdf.CellFormat(80, 8, fmt.Sprintf("Date: %s", now.Format(r.options.DateFormat)), "", 0, "L", false, 0, "")

	// Signature rule with its caption centered beneath it.
	pdf.SetDrawColor(textColor.r, textColor.g, textColor.b)
	pdf.SetLineWidth(0.4)
	pdf.Line(signatureX, signatureY, signatureX+signatureWidth, signatureY)
	pdf.SetFont(family, "", captionFontSize)
	pdf.SetXY(signatureX, captionY)
	pdf.CellFormat(signatureWidth, 6, captionText, "", 0, "C", false, 0, "")
}

// drawWatermark overlays the rotated, translucent SAMPLE label on top of all
// other content. Rotation and alpha state are restored before returning so
// they cannot leak into later draw calls.
func (r *Renderer) drawWatermark(pdf *gofpdf.Fpdf) {
	pdf.SetAlpha(watermarkOpacity, "Normal")
	pdf.TransformBegin()
	pdf.TransformRotate(watermarkAngle, pageWidth/2, pageHeight/2)

	pdf.SetFont(r.options.FontFamily, "B", watermarkFontSize)
	pdf.SetTextColor(watermarkColor.r, watermarkColor.g, watermarkColor.b)
	textWidth := pdf.GetStringWidth(watermarkText)
	pdf.Text(pageWidth/2-textWidth/2, pageHeight/2+watermarkFontSize*0.125, watermarkText)

	pdf.TransformEnd()
	pdf.SetAlpha(1.0, "Normal")
}

// centeredLine draws a single line of text centered across the full page width
func (r *Renderer) centeredLine(pdf *gofpdf.Fpdf, y float64, text, family, style string, size float64, c color) {
	pdf.SetFont(family, style, size)
	pdf.SetTextColor(c.r, c.g, c.b)
	pdf.SetXY(0, y)
	pdf.CellFormat(pageWidth, size*0.5, text, "", 0, "C", false, 0, "")
}
