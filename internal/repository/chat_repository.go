package repository

import (
	"ai-research-go/internal/model"

	"gorm.io/gorm"
)

// ChatRepository 定义了对 chat_messages 表的数据操作接口。
// 对话历史只追加、不修改。
type ChatRepository interface {
	Append(message *model.ChatMessage) error
	ListByProject(projectID uint) ([]model.ChatMessage, error)
}

type chatRepository struct {
	db *gorm.DB
}

// NewChatRepository 创建一个新的 ChatRepository 实例。
func NewChatRepository(db *gorm.DB) ChatRepository {
	return &chatRepository{db: db}
}

// Append 追加一条对话消息。
func (r *chatRepository) Append(message *model.ChatMessage) error {
	return r.db.Create(message).Error
}

// ListByProject 返回项目内的对话历史，按时间升序。
func (r *chatRepository) ListByProject(projectID uint) ([]model.ChatMessage, error) {
	var messages []model.ChatMessage
	err := r.db.Where("project_id = ?", projectID).Order("created_at ASC, id ASC").Find(&messages).Error
	if err != nil {
		return nil, err
	}
	if messages == nil {
		messages = []model.ChatMessage{}
	}
	return messages, nil
}
