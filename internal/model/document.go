package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// 文档来源类型。
const (
	DocTypePDF  = "pdf"
	DocTypeText = "text"
	DocTypeURL  = "url"
)

// 文档生命周期状态。只允许向前流转：
// processing -> ready 或 processing -> failed，终态不再变更。
const (
	StatusProcessing = "processing"
	StatusReady      = "ready"
	StatusFailed     = "failed"
)

// ExcerptMaxLen 是存储在文档上的正文摘录的最大字符数。
const ExcerptMaxLen = 5000

// Document 定义了 documents 表的 ORM 模型。
// 摄取请求被接受时创建（processing），之后只由摄取管道修改状态与元数据。
type Document struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	ProjectID    uint      `gorm:"not null;index" json:"projectId"`
	Name         string    `gorm:"type:varchar(255);not null" json:"name"`
	DocType      string    `gorm:"type:varchar(50);not null" json:"docType"`
	Status       string    `gorm:"type:varchar(50);not null;default:processing" json:"status"`
	SourceURL    string    `gorm:"type:text" json:"sourceUrl,omitempty"`
	MetadataJSON JSONMap   `gorm:"type:json" json:"metadata,omitempty"`
	TextExcerpt  string    `gorm:"type:text" json:"textExcerpt,omitempty"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (Document) TableName() string {
	return "documents"
}

// DocumentChunk 定义了 document_chunks 表的 ORM 模型。
// 它是检索的最小单元：一段文本及其向量与来源页码。
// project_id 为冗余列，让问答路径一跳查出项目的全部分块。
type DocumentChunk struct {
	ID         uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	DocumentID uint      `gorm:"not null;index" json:"documentId"`
	ProjectID  uint      `gorm:"not null;index" json:"projectId"`
	Content    string    `gorm:"type:text;not null" json:"content"`
	Embedding  Vector    `gorm:"type:json" json:"-"`
	PageNumber *int      `json:"pageNumber,omitempty"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (DocumentChunk) TableName() string {
	return "document_chunks"
}

// Vector 以 JSON 数组形式存储在数据库中的向量列。
type Vector []float32

// Value 实现 driver.Valuer，向量为空时存 NULL。
func (v Vector) Value() (driver.Value, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

// Scan 实现 sql.Scanner。
func (v *Vector) Scan(src interface{}) error {
	if src == nil {
		*v = nil
		return nil
	}
	switch data := src.(type) {
	case []byte:
		return json.Unmarshal(data, v)
	case string:
		return json.Unmarshal([]byte(data), v)
	default:
		return fmt.Errorf("unsupported vector column type %T", src)
	}
}

// JSONMap 是松散类型的元数据列。面向运维：失败原因、页数等都放在这里。
// 业务内部使用带标签的失败类型，只在落库边界序列化为这种松散形式。
type JSONMap map[string]interface{}

// Value 实现 driver.Valuer。
func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

// Scan 实现 sql.Scanner。
func (m *JSONMap) Scan(src interface{}) error {
	if src == nil {
		*m = nil
		return nil
	}
	switch data := src.(type) {
	case []byte:
		return json.Unmarshal(data, m)
	case string:
		return json.Unmarshal([]byte(data), m)
	default:
		return fmt.Errorf("unsupported metadata column type %T", src)
	}
}

// Truncate 返回 s 的前 max 个字符（按 rune 计）。
func Truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
