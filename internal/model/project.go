package model

import "time"

// Project 定义了 projects 表的 ORM 模型。
// 项目是文档与会话的归属边界：检索与问答都在单个项目内进行。
type Project struct {
	ID             uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID         uint      `gorm:"not null;index" json:"userId"`
	Name           string    `gorm:"type:varchar(255);not null" json:"name"`
	Description    string    `gorm:"type:text" json:"description"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"createdAt"`
	LastActivityAt time.Time `gorm:"not null" json:"lastActivityAt"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (Project) TableName() string {
	return "projects"
}

// ProjectDTO 是返回给前端的项目视图，附带文档数量。
type ProjectDTO struct {
	ID             uint      `json:"id"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	CreatedAt      time.Time `json:"createdAt"`
	LastActivityAt time.Time `json:"lastActivityAt"`
	DocumentCount  int64     `json:"documentCount"`
}
