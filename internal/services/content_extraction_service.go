package services

import (
	"bytes"
	"fmt"
	"strings"

	apperrors "orpheus_go_backend/internal/errors"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

var pdfMagic = []byte("%PDF")

// ContentExtractionService validates uploaded papers and pulls their plain text.
type ContentExtractionService struct {
	maxPages int
}

func NewContentExtractionService(maxPages int) *ContentExtractionService {
	api.DisableConfigDir()
	return &ContentExtractionService{maxPages: maxPages}
}

// Validate rejects empty, non-PDF, malformed and oversized documents.
func (s *ContentExtractionService) Validate(data []byte) error {
	if len(data) == 0 {
		return apperrors.Validationf("PDF file is empty")
	}
	if !bytes.HasPrefix(data, pdfMagic) {
		return apperrors.Validationf("file is not a PDF")
	}

	conf := model.NewDefaultConfiguration()
	if err := api.Validate(bytes.NewReader(data), conf); err != nil {
		return apperrors.Validationf("invalid PDF: %v", err)
	}
	if s.maxPages > 0 {
		pages, err := api.PageCount(bytes.NewReader(data), conf)
		if err != nil {
			return apperrors.Validationf("invalid PDF: %v", err)
		}
		if pages > s.maxPages {
			return apperrors.Validationf("PDF has %d pages, the limit is %d", pages, s.maxPages)
		}
	}
	return nil
}

// ExtractText concatenates the plain text of every page. A document without
// any text is an error.
func (s *ContentExtractionService) ExtractText(data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("failed to parse PDF: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}

	var content strings.Builder
	totalPage := r.NumPage()

	for pageIndex := 1; pageIndex <= totalPage; pageIndex++ {
		p := r.Page(pageIndex)
		if p.V.IsNull() {
			continue
		}

		pageText, err := p.GetPlainText(nil)
		if err != nil {
			continue
		}
		content.WriteString(pageText)
		content.WriteString("\n")
	}

	text = strings.TrimSpace(content.String())
	if text == "" {
		return "", fmt.Errorf("no text content extracted from PDF")
	}
	return text, nil
}
