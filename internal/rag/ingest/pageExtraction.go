package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dslipak/pdf"
	"github.com/lu4p/cat"

	"github.com/akolanti/GroundedRAG/internal/domain/commonModels"
)

const maxCSVRows = 2000

// SupportedExtensions lists what ExtractPages understands.
var SupportedExtensions = []string{".pdf", ".docx", ".rtf", ".odt", ".txt", ".md", ".csv"}

func IsSupported(docPath string) bool {
	return GetDocType(docPath) != commonModels.ERR
}

func GetDocType(docPath string) commonModels.DocType {
	ext := strings.ToLower(filepath.Ext(docPath))
	switch ext {
	case ".pdf":
		return commonModels.PDF
	case ".docx", ".rtf", ".odt":
		return commonModels.DOCX
	case ".txt", ".md":
		return commonModels.TXT
	case ".csv":
		return commonModels.CSV
	default:
		return commonModels.ERR
	}
}

// ExtractPages reads a document into pages. Only PDFs carry page numbers.
func ExtractPages(path string, contentType commonModels.DocType) ([]commonModels.Page, error) {
	switch contentType {
	case commonModels.PDF:
		return extractPDF(path)
	case commonModels.DOCX:
		return extractDocxRtfOdt(path)
	case commonModels.TXT:
		return extractPlainText(path)
	case commonModels.CSV:
		return extractCSV(path)
	default:
		return nil, fmt.Errorf("unsupported content type: %s", contentType)
	}
}

func extractPDF(path string) ([]commonModels.Page, error) {
	f, err := pdf.Open(path)
	if err != nil {
		extractLogger().Error("failed opening of pdf file", "path", path)
		return nil, fmt.Errorf("failed to open pdf: %w", err)
	}

	var pages []commonModels.Page
	numPages := f.NumPage()
	extractLogger().Debug("extractPDF", "number of pages", numPages)
	for i := 1; i <= numPages; i++ {
		page := f.Page(i)
		if page.V.IsNull() {
			extractLogger().Debug("extractPDF", "null page", i)
			continue
		}

		content, err := protectExtract(page)
		if err != nil {
			// one bad page should not sink the document
			extractLogger().Error("Error parsing page content", "page", i, "error", err)
			continue
		}
		pages = append(pages, commonModels.Page{Number: commonModels.PageOf(i), Text: content})
	}
	return pages, nil
}

func extractDocxRtfOdt(path string) ([]commonModels.Page, error) {
	text, err := cat.File(path)
	if err != nil {
		extractLogger().Error("Error extracting content from doc", "path", path)
		return nil, fmt.Errorf("failed to extract document: %w", err)
	}
	return []commonModels.Page{{Text: text}}, nil
}

func extractPlainText(path string) ([]commonModels.Page, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read text file: %w", err)
	}
	return SplitPages(string(data)), nil
}

// extractCSV renders rows tab-separated so the chunker sees columns.
func extractCSV(path string) ([]commonModels.Page, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open csv: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var sb strings.Builder
	for rows := 0; rows < maxCSVRows; rows++ {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse csv: %w", err)
		}
		for i := range record {
			record[i] = strings.TrimSpace(record[i])
		}
		sb.WriteString(strings.Join(record, "\t"))
		sb.WriteByte('\n')
	}
	return []commonModels.Page{{Text: sb.String()}}, nil
}

func protectExtract(page pdf.Page) (string, error) {
	type result struct {
		content string
		err     error
	}
	resChan := make(chan result, 1)

	go func() {
		content, err := page.GetPlainText(nil)
		resChan <- result{content, err}
	}()
	select {
	case r := <-resChan:
		return r.content, r.err
	case <-time.After(time.Second * 10):
		extractLogger().Error("pageExtract", "timeout")
		return "", errors.New("timeout")
	}
}
