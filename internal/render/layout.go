package render

// Page geometry and anchor positions for the certificate layout.
// All values are millimeters on an A4 landscape page. The layout manages
// its own margins, so the page itself is created with none.
const (
	pageWidth  = 297.0
	pageHeight = 210.0

	// Inset border frame near all four edges.
	frameInset     = 10.0
	frameLineWidth = 1.2

	// Vertical anchors for the centered text blocks, top to bottom.
	headingY  = 45.0
	subtitleY = 68.0
	nameY     = 92.0
	bodyY     = 114.0
	eventY    = 134.0

	// Date line, left-anchored near the bottom-left margin.
	dateX = 22.0
	dateY = 186.0

	// Signature rule and caption near the bottom-right.
	signatureX     = 200.0
	signatureWidth = 72.0
	signatureY     = 178.0
	captionY       = 181.0

	// Watermark overlay, centered on the page.
	watermarkText     = "SAMPLE"
	watermarkAngle    = 20.0
	watermarkOpacity  = 0.2
	watermarkFontSize = 110.0
)

const (
	headingText  = "CERTIFICATE OF PARTICIPATION"
	subtitleText = "This is to certify that"
	bodyText     = "has successfully participated in"
	captionText  = "Authorized Signature"
)

// Font sizes in points.
const (
	headingFontSize  = 32.0
	subtitleFontSize = 16.0
	nameFontSize     = 40.0
	bodyFontSize     = 16.0
	eventFontSize    = 24.0
	dateFontSize     = 12.0
	captionFontSize  = 11.0
)

type color struct {
	r, g, b int
}

var (
	backgroundColor = color{r: 252, g: 250, b: 245}
	frameColor      = color{r: 40, g: 54, b: 85}
	textColor       = color{r: 30, g: 30, b: 30}
	accentColor     = color{r: 40, g: 54, b: 85}
	watermarkColor  = color{r: 200, g: 200, b: 200}
)
