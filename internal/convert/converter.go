// Package convert turns issue attachments and local files into markdown so
// coding agents can read them as plain text.
package convert

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// DefaultMaxBytes caps how much input a single conversion will read.
const DefaultMaxBytes = 10 << 20 // 10 MiB

// Result is the outcome of a conversion
type Result struct {
	Markdown string `json:"markdown"`
	Format   string `json:"format"`
	Filename string `json:"filename"`
}

// Converter converts supported document formats to markdown
type Converter struct {
	maxBytes int64
}

// New creates a converter with the default size limit
func New() *Converter {
	return &Converter{maxBytes: DefaultMaxBytes}
}

// formats maps a file extension to a conversion routine.
var formats = map[string]struct {
	name    string
	convert func(data []byte) (string, error)
}{
	".txt":      {"text", convertText},
	".log":      {"text", convertText},
	".md":       {"markdown", convertText},
	".markdown": {"markdown", convertText},
	".csv":      {"csv", convertCSV},
	".json":     {"json", convertJSON},
	".html":     {"html", convertHTML},
	".htm":      {"html", convertHTML},
}

// Supported reports whether the file's extension has a conversion routine
func (c *Converter) Supported(filename string) bool {
	_, ok := formats[strings.ToLower(filepath.Ext(filename))]
	return ok
}

// SupportedExtensions lists the convertible extensions, sorted
func (c *Converter) SupportedExtensions() []string {
	exts := make([]string, 0, len(formats))
	for ext := range formats {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// ConvertFile converts a local file to markdown
func (c *Converter) ConvertFile(path string) (*Result, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("file does not exist: %s", path)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("path is not a file: %s", path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	return c.Convert(f, filepath.Base(path))
}

// Convert reads r and converts it to markdown based on the filename's
// extension. Unsupported formats fail with the list of supported ones.
func (c *Converter) Convert(r io.Reader, filename string) (*Result, error) {
	format, ok := formats[strings.ToLower(filepath.Ext(filename))]
	if !ok {
		return nil, fmt.Errorf("unsupported format %q for %s (supported: %s)",
			filepath.Ext(filename), filename, strings.Join(c.SupportedExtensions(), ", "))
	}

	data, err := io.ReadAll(io.LimitReader(r, c.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filename, err)
	}
	if int64(len(data)) > c.maxBytes {
		return nil, fmt.Errorf("%s exceeds the %d byte conversion limit", filename, c.maxBytes)
	}

	markdown, err := format.convert(data)
	if err != nil {
		return nil, fmt.Errorf("convert %s: %w", filename, err)
	}

	return &Result{
		Markdown: markdown,
		Format:   format.name,
		Filename: filename,
	}, nil
}

func convertText(data []byte) (string, error) {
	return string(data), nil
}

// convertCSV renders the records as a markdown table, first record as header.
func convertCSV(data []byte) (string, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return "", fmt.Errorf("parse csv: %w", err)
	}
	if len(records) == 0 {
		return "", nil
	}

	var sb strings.Builder
	sb.WriteString("| " + strings.Join(records[0], " | ") + " |\n")
	sb.WriteString("|" + strings.Repeat(" --- |", len(records[0])) + "\n")
	for _, row := range records[1:] {
		sb.WriteString("| " + strings.Join(row, " | ") + " |\n")
	}
	return sb.String(), nil
}

// convertJSON pretty-prints into a fenced code block.
func convertJSON(data []byte) (string, error) {
	var value any
	if err := json.Unmarshal(data, &value); err != nil {
		return "", fmt.Errorf("parse json: %w", err)
	}
	pretty, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return "", fmt.Errorf("format json: %w", err)
	}
	return "```json\n" + string(pretty) + "\n```\n", nil
}

// convertHTML extracts the document structure (title, headings, paragraphs,
// lists, links) as markdown.
func convertHTML(data []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	var sb strings.Builder
	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		sb.WriteString("# " + title + "\n\n")
	}

	doc.Find("h1, h2, h3, h4, h5, h6, p, li, pre").Each(func(_ int, sel *goquery.Selection) {
		text := strings.TrimSpace(sel.Text())
		if text == "" {
			return
		}
		switch goquery.NodeName(sel) {
		case "h1":
			sb.WriteString("# " + text + "\n\n")
		case "h2":
			sb.WriteString("## " + text + "\n\n")
		case "h3":
			sb.WriteString("### " + text + "\n\n")
		case "h4", "h5", "h6":
			sb.WriteString("#### " + text + "\n\n")
		case "li":
			sb.WriteString("- " + text + "\n")
		case "pre":
			sb.WriteString("```\n" + text + "\n```\n\n")
		default:
			sb.WriteString(renderLinks(sel) + "\n\n")
		}
	})

	return strings.TrimSpace(sb.String()) + "\n", nil
}

// renderLinks replaces anchor text within a paragraph with markdown links.
func renderLinks(sel *goquery.Selection) string {
	text := strings.TrimSpace(sel.Text())
	sel.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		label := strings.TrimSpace(a.Text())
		href, _ := a.Attr("href")
		if label == "" || href == "" {
			return
		}
		text = strings.Replace(text, label, fmt.Sprintf("[%s](%s)", label, href), 1)
	})
	return text
}
