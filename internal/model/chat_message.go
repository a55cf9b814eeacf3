package model

import "time"

// 对话消息角色。
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// SnippetMaxLen 是引用片段的最大字符数。
const SnippetMaxLen = 400

// ChatMessage 定义了 chat_messages 表的 ORM 模型。
// 每次问答追加两条：用户问题与助手回答，回答附带序列化的引用来源。
type ChatMessage struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	ProjectID   uint      `gorm:"not null;index" json:"projectId"`
	UserID      uint      `gorm:"not null;index" json:"userId"`
	Role        string    `gorm:"type:varchar(20);not null" json:"role"`
	Content     string    `gorm:"type:text;not null" json:"content"`
	SourcesJSON JSONMap   `gorm:"type:json" json:"sources,omitempty"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (ChatMessage) TableName() string {
	return "chat_messages"
}

// Citation 是问答结果中的一条引用来源。
// 它不是持久化实体：每次回答即时构建，只作为回答消息的附属内容落库。
type Citation struct {
	DocumentID   uint   `json:"documentId"`
	DocumentName string `json:"documentName"`
	PageNumber   *int   `json:"pageNumber,omitempty"`
	Snippet      string `json:"snippet"`
}

// UsedChunk 是回答实际使用的分块视图，带相似度得分，便于前端展示与调试。
type UsedChunk struct {
	DocumentID   uint    `json:"documentId"`
	DocumentName string  `json:"documentName"`
	Content      string  `json:"content"`
	PageNumber   *int    `json:"pageNumber,omitempty"`
	Score        float64 `json:"score"`
}
