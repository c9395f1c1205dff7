package rag

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/unidoc/unioffice/document"
	"github.com/unidoc/unipdf/v3/extractor"
	"github.com/unidoc/unipdf/v3/model"
)

// ErrNoExtractableContent 文件解析成功但提取不出任何文本
var ErrNoExtractableContent = errors.New("no extractable text content")

// Page 文件中一页的文本，Number从1开始；无页概念的格式只有一页
type Page struct {
	Number int
	Text   string
}

// FileParser 文件解析器接口
type FileParser interface {
	Parse(reader io.Reader, filename string) ([]Page, error)
	Supports(filename string) bool
}

// ParseFile 按扩展名挑选解析器提取文本
func ParseFile(reader io.Reader, filename string) ([]Page, error) {
	parsers := []FileParser{&TextParser{}, &PDFParser{}, &WordParser{}}
	for _, p := range parsers {
		if p.Supports(filename) {
			return p.Parse(reader, filename)
		}
	}
	return nil, fmt.Errorf("unsupported file type: %s", filepath.Ext(filename))
}

// TextParser 纯文本解析器
type TextParser struct{}

func (p *TextParser) Supports(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return ext == ".txt" || ext == ".md" || ext == ".markdown"
}

func (p *TextParser) Parse(reader io.Reader, filename string) ([]Page, error) {
	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("读取文件失败: %w", err)
	}
	if strings.TrimSpace(string(content)) == "" {
		return nil, ErrNoExtractableContent
	}
	return []Page{{Number: 1, Text: string(content)}}, nil
}

// PDFParser PDF文件解析器，逐页提取文本
type PDFParser struct{}

func (p *PDFParser) Supports(filename string) bool {
	return strings.ToLower(filepath.Ext(filename)) == ".pdf"
}

func (p *PDFParser) Parse(reader io.Reader, filename string) ([]Page, error) {
	pdfBytes, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("读取PDF文件失败: %w", err)
	}

	pdfReader, err := model.NewPdfReader(bytes.NewReader(pdfBytes))
	if err != nil {
		return nil, fmt.Errorf("解析PDF失败: %w", err)
	}

	numPages, err := pdfReader.GetNumPages()
	if err != nil {
		return nil, fmt.Errorf("获取PDF页数失败: %w", err)
	}

	var pages []Page
	for i := 1; i <= numPages; i++ {
		page, err := pdfReader.GetPage(i)
		if err != nil {
			continue
		}
		ex, err := extractor.New(page)
		if err != nil {
			continue
		}
		text, err := ex.ExtractText()
		if err != nil {
			continue
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		pages = append(pages, Page{Number: i, Text: text})
	}

	if len(pages) == 0 {
		return nil, ErrNoExtractableContent
	}
	return pages, nil
}

// WordParser Word文档解析器（仅.docx）
type WordParser struct{}

func (p *WordParser) Supports(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return ext == ".docx" || ext == ".doc"
}

func (p *WordParser) Parse(reader io.Reader, filename string) ([]Page, error) {
	docBytes, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("读取Word文件失败: %w", err)
	}

	if strings.ToLower(filepath.Ext(filename)) == ".doc" {
		return nil, fmt.Errorf("暂不支持.doc格式，请使用.docx格式")
	}

	readerAt := bytes.NewReader(docBytes)
	doc, err := document.Read(readerAt, int64(len(docBytes)))
	if err != nil {
		return nil, fmt.Errorf("解析Word文档失败: %w", err)
	}
	defer doc.Close()

	var textBuilder strings.Builder
	for _, para := range doc.Paragraphs() {
		for _, run := range para.Runs() {
			textBuilder.WriteString(run.Text())
		}
		textBuilder.WriteString("\n")
	}

	if strings.TrimSpace(textBuilder.String()) == "" {
		return nil, ErrNoExtractableContent
	}
	return []Page{{Number: 1, Text: textBuilder.String()}}, nil
}
