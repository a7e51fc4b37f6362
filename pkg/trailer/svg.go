package trailer

import (
	"bufio"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
)

const textColor = "#1b1b1b"

// Render writes a standalone SVG of the trailer with the cells drawn on top
// of the cargo area.
func Render(w io.Writer, box Box, cells []Cell) error {
	bw := bufio.NewWriter(w)

	width := box.X*2 + box.Width
	height := box.Y + box.Height + 60

	fmt.Fprintf(bw, `<svg xmlns="http://www.w3.org/2000/svg" width="%s" height="%s" viewBox="0 0 %s %s">`,
		num(width), num(height), num(width), num(height))
	bw.WriteString("\n")

	fmt.Fprintf(bw, `<g id="Remolque"><rect id="RemolqueBox" x="%s" y="%s" width="%s" height="%s" fill="#f4f4f4" stroke="#333" stroke-width="2"/>`,
		num(box.X), num(box.Y), num(box.Width), num(box.Height))
	axleY := box.Y + box.Height + 22
	for _, fx := range []float64{0.72, 0.82, 0.92} {
		fmt.Fprintf(bw, `<circle cx="%s" cy="%s" r="18" fill="#333"/>`, num(box.X+box.Width*fx), num(axleY))
	}
	fmt.Fprintf(bw, `<rect x="%s" y="%s" width="%s" height="6" fill="#333"/></g>`,
		num(box.X-30), num(box.Y+box.Height-10), num(30))
	bw.WriteString("\n")

	bw.WriteString(`<g id="CargoLayer">`)
	for _, c := range cells {
		fmt.Fprintf(bw, `<g id="%s" name="%s">`, c.ID, c.ID)
		fmt.Fprintf(bw, `<rect x="%s" y="%s" width="%s" height="%s" rx="0" fill="%s" stroke="#666" stroke-width="1"><title>`,
			num(c.X), num(c.Y), num(c.Width), num(c.Height), c.Fill)
		if err := xml.EscapeText(bw, []byte(c.Label+": "+num(c.Value))); err != nil {
			return err
		}
		bw.WriteString(`</title></rect>`)
		if c.ShowLabel {
			fmt.Fprintf(bw, `<text x="%s" y="%s" text-anchor="middle" font-size="%s" fill="%s">`,
				num(c.X+c.Width/2), num(c.Y+c.Height/2+5), num(c.FontSize), textColor)
			if err := xml.EscapeText(bw, []byte(c.Label)); err != nil {
				return err
			}
			bw.WriteString(`</text>`)
		}
		bw.WriteString(`</g>`)
	}
	bw.WriteString("</g>\n</svg>\n")

	return bw.Flush()
}

func num(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
