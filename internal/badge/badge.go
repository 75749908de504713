// Package badge renders flat-style SVG badges for coverage percentages and
// build statuses. Output is deterministic for identical inputs so badge URLs
// can be cached.
package badge

import (
	"fmt"

	"github.com/covtrack/covtrack/internal/metrics"
)

// coverageColor maps a percentage to the conventional badge color ramp.
func coverageColor(percentage float64) string {
	switch {
	case percentage >= 90:
		return "#4c1"
	case percentage >= 80:
		return "#97ca00"
	case percentage >= 70:
		return "#a4a61d"
	case percentage >= 60:
		return "#dfb317"
	case percentage >= 50:
		return "#fe7d37"
	default:
		return "#e05d44"
	}
}

var buildColors = map[string]string{
	"passing": "#4c1",
	"failing": "#e05d44",
	"error":   "#e05d44",
	"pending": "#dfb317",
}

// Coverage renders the "coverage | NN.N%" badge.
func Coverage(percentage float64) string {
	text := metrics.FormatPercent(percentage) + "%"
	return render("coverage", 59, text, coverageColor(percentage))
}

// Build renders the "build | status" badge. Unknown statuses render gray.
func Build(status string) string {
	color, ok := buildColors[status]
	if !ok {
		color = "#9f9f9f"
	}
	return render("build", 37, status, color)
}

// render draws the two-segment badge. Width math follows the shields.io flat
// style closely enough for fixed-width numeric values.
func render(label string, labelWidth int, value, color string) string {
	valueWidth := len(value)*7 + 10
	totalWidth := labelWidth + valueWidth

	return fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="20">
<linearGradient id="b" x2="0" y2="100%%">
<stop offset="0" stop-color="#bbb" stop-opacity=".1"/>
<stop offset="1" stop-opacity=".1"/>
</linearGradient>
<clipPath id="a">
<rect width="%d" height="20" rx="3" fill="#fff"/>
</clipPath>
<g clip-path="url(#a)">
<path fill="#555" d="M0 0h%dv20H0z"/>
<path fill="%s" d="M%d 0h%dv20H%dz"/>
<path fill="url(#b)" d="M0 0h%dv20H0z"/>
</g>
<g fill="#fff" text-anchor="middle" font-family="DejaVu Sans,Verdana,Geneva,sans-serif" font-size="110">
<text x="%d" y="150" fill="#010101" fill-opacity=".3" transform="scale(.1)">%s</text>
<text x="%d" y="140" transform="scale(.1)">%s</text>
<text x="%d" y="150" fill="#010101" fill-opacity=".3" transform="scale(.1)">%s</text>
<text x="%d" y="140" transform="scale(.1)">%s</text>
</g>
</svg>`,
		totalWidth,
		totalWidth,
		labelWidth,
		color, labelWidth, valueWidth, labelWidth,
		totalWidth,
		labelWidth*5, label,
		labelWidth*5, label,
		(labelWidth+valueWidth/2)*10, value,
		(labelWidth+valueWidth/2)*10, value)
}
