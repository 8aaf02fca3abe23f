// Package textexport writes post text and comments out as txt, docx
// or pdf files.
package textexport

import (
	"archive/zip"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-pdf/fpdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/KJHJason/Kemono-Harvester-CLI/configs"
	"github.com/KJHJason/Kemono-Harvester-CLI/utils"
)

// StripHtml flattens HTML content to plain text, keeping rough block
// structure as newlines and unescaping entities.
func StripHtml(htmlContent string) string {
	if htmlContent == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return strings.TrimSpace(html.UnescapeString(htmlContent))
	}
	doc.Find("br").Each(func(_ int, sel *goquery.Selection) {
		sel.ReplaceWithHtml("\n")
	})
	doc.Find("p, div, li, h1, h2, h3, h4, h5, h6").Each(func(_ int, sel *goquery.Selection) {
		sel.AppendHtml("\n")
	})
	text := html.UnescapeString(doc.Text())

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t\r")
	}
	text = strings.Join(lines, "\n")
	for strings.Contains(text, "\n\n\n") {
		text = strings.ReplaceAll(text, "\n\n\n", "\n\n")
	}
	return strings.TrimSpace(text)
}

// Document is the text payload of one post, ready to be written in
// any of the supported formats.
type Document struct {
	Title     string `json:"title"`
	Published string `json:"published"`
	Content   string `json:"content"`
}

func (d *Document) body() string {
	var b strings.Builder
	b.WriteString(d.Title)
	b.WriteString("\n")
	if d.Published != "" {
		b.WriteString(d.Published)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(d.Content)
	return b.String()
}

// WriteTxt writes the document as a plain UTF-8 text file.
func WriteTxt(doc *Document, destPath string) error {
	if err := os.WriteFile(destPath, []byte(doc.body()+"\n"), 0644); err != nil {
		return fmt.Errorf(
			"error %d: failed to write %s, more info => %w",
			utils.OS_ERROR,
			destPath,
			err,
		)
	}
	return nil
}

const docxContentTypes = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"><Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/><Default Extension="xml" ContentType="application/xml"/><Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/></Types>`

const docxRels = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"><Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/></Relationships>`

func docxParagraph(text string) string {
	var escaped strings.Builder
	xml.EscapeText(&escaped, []byte(text))
	return fmt.Sprintf(
		`<w:p><w:r><w:t xml:space="preserve">%s</w:t></w:r></w:p>`,
		escaped.String(),
	)
}

// WriteDocx writes the document as a minimal WordprocessingML package,
// one paragraph per line.
func WriteDocx(doc *Document, destPath string) error {
	f, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf(
			"error %d: failed to create %s, more info => %w",
			utils.OS_ERROR,
			destPath,
			err,
		)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	writeEntry := func(name, content string) error {
		w, err := zw.Create(name)
		if err != nil {
			return err
		}
		_, err = w.Write([]byte(content))
		return err
	}

	var paragraphs strings.Builder
	for _, line := range strings.Split(doc.body(), "\n") {
		paragraphs.WriteString(docxParagraph(line))
	}
	documentXml := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">` +
		`<w:body>` + paragraphs.String() + `</w:body></w:document>`

	for _, entry := range []struct{ name, content string }{
		{"[Content_Types].xml", docxContentTypes},
		{"_rels/.rels", docxRels},
		{"word/document.xml", documentXml},
	} {
		if err := writeEntry(entry.name, entry.content); err != nil {
			zw.Close()
			return err
		}
	}
	return zw.Close()
}

// WritePdf renders the document as a single PDF.
func WritePdf(doc *Document, destPath string) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()
	translate := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Helvetica", "B", 14)
	pdf.MultiCell(0, 7, translate(doc.Title), "", "L", false)
	if doc.Published != "" {
		pdf.SetFont("Helvetica", "I", 10)
		pdf.MultiCell(0, 5, translate(doc.Published), "", "L", false)
	}
	pdf.Ln(4)
	pdf.SetFont("Helvetica", "", 11)
	pdf.MultiCell(0, 5, translate(doc.Content), "", "L", false)

	if err := pdf.OutputFileAndClose(destPath); err != nil {
		return fmt.Errorf(
			"error %d: failed to write pdf %s, more info => %w",
			utils.OS_ERROR,
			destPath,
			err,
		)
	}
	return nil
}

// Write routes the document to the writer for the chosen format and
// returns the final path written.
func Write(doc *Document, dirPath, cleanedTitle, format string) (string, error) {
	var ext string
	switch format {
	case configs.TextFormatDocx:
		ext = ".docx"
	case configs.TextFormatPdf:
		ext = ".pdf"
	default:
		ext = ".txt"
	}
	destPath := utils.UniquePath(filepath.Join(dirPath, cleanedTitle+ext))

	var err error
	switch format {
	case configs.TextFormatDocx:
		err = WriteDocx(doc, destPath)
	case configs.TextFormatPdf:
		err = WritePdf(doc, destPath)
	default:
		err = WriteTxt(doc, destPath)
	}
	if err != nil {
		return "", err
	}
	return destPath, nil
}

// WriteIntermediate dumps the document to tmp_<post_id>_<rand>.json in
// dirPath for a later single-pdf merge.
func WriteIntermediate(doc *Document, dirPath, postId string) (string, error) {
	destPath := filepath.Join(
		dirPath,
		fmt.Sprintf("tmp_%s_%s.json", postId, utils.RandomHexSuffix()),
	)
	data, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf(
			"error %d: failed to marshal text of post %s, more info => %w",
			utils.JSON_ERROR,
			postId,
			err,
		)
	}
	if err := os.WriteFile(destPath, data, 0644); err != nil {
		return "", fmt.Errorf(
			"error %d: failed to write %s, more info => %w",
			utils.OS_ERROR,
			destPath,
			err,
		)
	}
	return destPath, nil
}

// MergeSinglePdf reads the intermediate JSON files, renders each to a
// temporary per-post PDF in published order, merges them into
// destPath and removes the intermediates.
func MergeSinglePdf(intermediatePaths []string, destPath string) error {
	if len(intermediatePaths) == 0 {
		return nil
	}

	docs := make([]*Document, 0, len(intermediatePaths))
	for _, path := range intermediatePaths {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf(
				"error %d: failed to read %s, more info => %w",
				utils.OS_ERROR,
				path,
				err,
			)
		}
		var doc Document
		if err := json.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf(
				"error %d: failed to parse %s, more info => %w",
				utils.JSON_ERROR,
				path,
				err,
			)
		}
		docs = append(docs, &doc)
	}
	sort.SliceStable(docs, func(i, j int) bool {
		return docs[i].Published < docs[j].Published
	})

	tmpDir, err := os.MkdirTemp(filepath.Dir(destPath), "pdf_merge_")
	if err != nil {
		return fmt.Errorf(
			"error %d: failed to create merge dir, more info => %w",
			utils.OS_ERROR,
			err,
		)
	}
	defer os.RemoveAll(tmpDir)

	partPaths := make([]string, 0, len(docs))
	for i, doc := range docs {
		partPath := filepath.Join(tmpDir, fmt.Sprintf("part_%04d.pdf", i))
		if err := WritePdf(doc, partPath); err != nil {
			return err
		}
		partPaths = append(partPaths, partPath)
	}

	if err := api.MergeCreateFile(partPaths, destPath, false, nil); err != nil {
		return fmt.Errorf(
			"error %d: failed to merge pdf %s, more info => %w",
			utils.UNEXPECTED_ERROR,
			destPath,
			err,
		)
	}
	for _, path := range intermediatePaths {
		os.Remove(path)
	}
	return nil
}
