package notify

import (
	"strings"

	"golang.org/x/net/html"
)

// PlainText renders an HTML fragment as readable plain text: tags are
// dropped, block elements become line breaks and link targets are kept in
// parentheses after the link text.
func PlainText(fragment string) string {
	z := html.NewTokenizer(strings.NewReader(fragment))

	var b strings.Builder
	var href string
	skip := 0

	for {
		switch z.Next() {
		case html.ErrorToken:
			return tidy(b.String())
		case html.TextToken:
			if skip == 0 {
				b.WriteString(collapse(string(z.Text())))
			}
		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			tag := string(name)
			switch tag {
			case "script", "style":
				skip++
			case "br":
				b.WriteString("\n")
			case "p", "div", "h1", "h2", "h3", "h4", "li", "tr":
				b.WriteString("\n")
			case "a":
				href = ""
				for hasAttr {
					var key, val []byte
					key, val, hasAttr = z.TagAttr()
					if string(key) == "href" {
						href = string(val)
					}
				}
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			switch string(name) {
			case "script", "style":
				if skip > 0 {
					skip--
				}
			case "p", "div", "h1", "h2", "h3", "h4":
				b.WriteString("\n")
			case "a":
				if href != "" {
					b.WriteString(" (" + href + ")")
					href = ""
				}
			}
		}
	}
}

// collapse folds runs of whitespace into single spaces.
func collapse(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		if s != "" {
			return " "
		}
		return ""
	}
	out := strings.Join(fields, " ")
	if strings.TrimLeft(s[:1], " \t\n\r") == "" {
		out = " " + out
	}
	if strings.TrimRight(s[len(s)-1:], " \t\n\r") == "" {
		out += " "
	}
	return out
}

// tidy trims every line and removes blank-line runs.
func tidy(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	blank := true
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			if !blank {
				out = append(out, "")
			}
			blank = true
			continue
		}
		out = append(out, line)
		blank = false
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
