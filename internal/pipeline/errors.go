// Package pipeline 定义了文档摄取的核心流程。
package pipeline

import (
	"fmt"

	"ai-research-go/internal/model"
)

// FailureKind 标记摄取失败的类别。
type FailureKind string

const (
	// FailureSourceMismatch 来源类型与可用输入不匹配（如 text 类型却没有文本）。
	FailureSourceMismatch FailureKind = "source_mismatch"
	// FailureParse 来源无法解析。
	FailureParse FailureKind = "parse_error"
	// FailureFetch URL 获取失败（网络错误或非 2xx 状态）。
	FailureFetch FailureKind = "fetch_error"
	// FailureEmptyExtraction 解析成功但没有产出任何可检索的分块。
	FailureEmptyExtraction FailureKind = "empty_extraction"
	// FailureEmbedding 向量化调用失败。
	FailureEmbedding FailureKind = "embedding_error"
	// FailureStorage 分块落库失败。
	FailureStorage FailureKind = "storage_error"
)

// IngestFailure 是摄取失败的内部表示。
// 业务代码只操作这个带标签的结构，落库时才序列化为文档元数据的松散 JSON。
type IngestFailure struct {
	Kind      FailureKind
	Message   string
	PageCount *int
}

// Metadata 将失败信息序列化为文档元数据。
// "error" 键保留人类可读的原因，运维排障依赖它。
func (f *IngestFailure) Metadata() model.JSONMap {
	m := model.JSONMap{
		"error":        f.Message,
		"failure_kind": string(f.Kind),
	}
	if f.PageCount != nil {
		m["page_count"] = *f.PageCount
	}
	return m
}

// FetchError 表示 URL 来源获取失败。
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ParseError 表示来源内容无法解析。
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string { return fmt.Sprintf("parse source: %v", e.Err) }
func (e *ParseError) Unwrap() error { return e.Err }
