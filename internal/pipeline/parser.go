package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"

	"ai-research-go/pkg/tika"

	"github.com/PuerkitoBio/goquery"
)

// Page 是来源解析的输出单元：页码（1 起）与该页文本。
type Page struct {
	Number int
	Text   string
}

// ParseText 将纯文本作为单页内容返回。
func ParseText(raw string) (string, []Page) {
	return raw, []Page{{Number: 1, Text: raw}}
}

// ParsePDF 通过 Tika 提取 PDF 文本并按换页符恢复页码。
// Tika 的 text/plain 输出在物理分页之间插入 \f；
// 没有可提取文本的页保留为空字符串，不视为错误。
func ParsePDF(ctx context.Context, extractor tika.Extractor, data []byte, fileName string) (string, []Page, error) {
	text, err := extractor.ExtractText(ctx, bytes.NewReader(data), fileName)
	if err != nil {
		return "", nil, &ParseError{Err: err}
	}

	rawPages := strings.Split(text, "\f")
	pages := make([]Page, 0, len(rawPages))
	for i, pageText := range rawPages {
		pages = append(pages, Page{Number: i + 1, Text: pageText})
	}

	var full strings.Builder
	for i, page := range pages {
		if i > 0 {
			full.WriteString("\n")
		}
		full.WriteString(page.Text)
	}
	return full.String(), pages, nil
}

// ParseURL 抓取网页并提取可见文本，作为单页内容返回。
// 非 2xx 状态返回 FetchError；script/style/noscript 内容被剔除。
func ParseURL(ctx context.Context, client *http.Client, url string) (string, []Page, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return "", nil, &FetchError{URL: url, Err: err}
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", nil, &FetchError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", nil, &FetchError{URL: url, StatusCode: resp.StatusCode}
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", nil, &ParseError{Err: fmt.Errorf("parse html: %w", err)}
	}

	doc.Find("script, style, noscript").Remove()
	text := NormalizeWhitespace(doc.Find("body").Text())
	if text == "" {
		// 没有 body 的残缺页面，退回整个文档的文本
		text = NormalizeWhitespace(doc.Text())
	}

	return text, []Page{{Number: 1, Text: text}}, nil
}
