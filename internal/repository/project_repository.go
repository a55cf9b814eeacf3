package repository

import (
	"time"

	"ai-research-go/internal/model"

	"gorm.io/gorm"
)

// ProjectRepository 定义了对 projects 表的数据操作接口。
// 所有查询都以 userID 为边界，项目只对其所有者可见。
type ProjectRepository interface {
	Create(project *model.Project) error
	FindByIDAndUser(id, userID uint) (*model.Project, error)
	ListByUser(userID uint) ([]model.ProjectDTO, error)
	CountDocuments(projectID uint) (int64, error)
	Touch(projectID uint) error
}

type projectRepository struct {
	db *gorm.DB
}

// NewProjectRepository 创建一个新的 ProjectRepository 实例。
func NewProjectRepository(db *gorm.DB) ProjectRepository {
	return &projectRepository{db: db}
}

// Create 创建一个新项目。
func (r *projectRepository) Create(project *model.Project) error {
	if project.LastActivityAt.IsZero() {
		project.LastActivityAt = time.Now()
	}
	return r.db.Create(project).Error
}

// FindByIDAndUser 查找属于指定用户的项目。
func (r *projectRepository) FindByIDAndUser(id, userID uint) (*model.Project, error) {
	var project model.Project
	err := r.db.Where("id = ? AND user_id = ?", id, userID).First(&project).Error
	if err != nil {
		return nil, err
	}
	return &project, nil
}

// ListByUser 返回用户的全部项目（附文档数量），按最近活跃时间倒序。
func (r *projectRepository) ListByUser(userID uint) ([]model.ProjectDTO, error) {
	var results []model.ProjectDTO
	err := r.db.Model(&model.Project{}).
		Select("projects.id, projects.name, projects.description, projects.created_at, projects.last_activity_at, COUNT(documents.id) AS document_count").
		Joins("LEFT JOIN documents ON documents.project_id = projects.id").
		Where("projects.user_id = ?", userID).
		Group("projects.id").
		Order("projects.last_activity_at DESC").
		Scan(&results).Error
	if err != nil {
		return nil, err
	}
	if results == nil {
		results = []model.ProjectDTO{}
	}
	return results, nil
}

// CountDocuments 统计项目下的文档数量。
func (r *projectRepository) CountDocuments(projectID uint) (int64, error) {
	var count int64
	err := r.db.Model(&model.Document{}).Where("project_id = ?", projectID).Count(&count).Error
	return count, err
}

// Touch 更新项目的最近活跃时间。
func (r *projectRepository) Touch(projectID uint) error {
	return r.db.Model(&model.Project{}).Where("id = ?", projectID).
		Update("last_activity_at", time.Now()).Error
}
