package engine

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	tableBlockRe = regexp.MustCompile(`(?s)\[TABLE\]\n?\|(.+?)\|\n?\|(.+?)\|\n?\[/TABLE\]`)
	bulletRe     = regexp.MustCompile(`(?m)^[•\-]\s*(.+)$`)
	listRe       = regexp.MustCompile(`(<li>.*</li>\n?)+`)
	bodyTagRe    = regexp.MustCompile(`(<body[^>]*>)`)
)

// WrapBodyHTML turns a plain-text message body into a styled HTML
// document. Bodies that already contain HTML are passed through.
func WrapBodyHTML(body string) string {
	if strings.Contains(body, "<html") || strings.Contains(body, "<div") || strings.Contains(body, "<p") {
		return body
	}

	html := tableBlockRe.ReplaceAllStringFunc(body, func(block string) string {
		parts := tableBlockRe.FindStringSubmatch(block)
		return renderHTMLTable(splitCells(parts[1]), splitCells(parts[2]))
	})

	html = bulletRe.ReplaceAllString(html, "<li>$1</li>")
	html = listRe.ReplaceAllString(html, `<ul style="margin:8px 0;padding-left:24px">$0</ul>`)
	html = strings.ReplaceAll(html, "\n\n", "</p><p>")
	html = strings.ReplaceAll(html, "\n", "<br/>")

	return `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"/></head>
<body style="font-family:'Segoe UI',Tahoma,Geneva,Verdana,sans-serif;font-size:14px;color:#334155;line-height:1.6;margin:0;padding:20px">
<p>` + html + `</p>
</body>
</html>`
}

func splitCells(row string) []string {
	var cells []string
	for _, cell := range strings.Split(row, "|") {
		if trimmed := strings.TrimSpace(cell); trimmed != "" {
			cells = append(cells, trimmed)
		}
	}
	return cells
}

func renderHTMLTable(headers, cells []string) string {
	var th, td strings.Builder
	for _, h := range headers {
		fmt.Fprintf(&th, `<th style="padding:8px 12px;text-align:left;border-bottom:2px solid #334155;font-weight:600;color:#e2e8f0">%s</th>`, h)
	}
	for _, c := range cells {
		fmt.Fprintf(&td, `<td style="padding:8px 12px;border-bottom:1px solid #1e293b;color:#cbd5e1">%s</td>`, c)
	}
	return fmt.Sprintf(`<table style="border-collapse:collapse;width:100%%;margin:16px 0;background:#0f172a;border-radius:6px"><thead><tr>%s</tr></thead><tbody><tr>%s</tr></tbody></table>`,
		th.String(), td.String())
}

// AddTestBanner prepends a visible TEST EMAIL banner carrying the
// original recipients, so a test send is never mistaken for the real one.
func AddTestBanner(htmlBody, originalTo, originalCc string) string {
	if originalCc == "" {
		originalCc = "None"
	}
	banner := fmt.Sprintf(`<div style="background:#fef3c7;border:2px solid #f59e0b;border-radius:6px;padding:12px 16px;margin-bottom:16px;font-size:13px;color:#92400e">
<strong>THIS IS A TEST EMAIL</strong><br/>
Original recipient: %s<br/>
Original CC: %s
</div>`, originalTo, originalCc)

	if bodyTagRe.MatchString(htmlBody) {
		return bodyTagRe.ReplaceAllString(htmlBody, "$1"+banner)
	}
	return banner + htmlBody
}

// AddTrackingPixel injects a one-pixel open-tracking image before the
// closing body tag.
func AddTrackingPixel(htmlBody, pixelURL string) string {
	pixel := fmt.Sprintf(`<img src="%s" width="1" height="1" style="display:none" alt="" />`, pixelURL)
	if strings.Contains(htmlBody, "</body>") {
		return strings.Replace(htmlBody, "</body>", pixel+"</body>", 1)
	}
	return htmlBody + pixel
}
