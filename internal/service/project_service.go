package service

import (
	"ai-research-go/internal/model"
	"ai-research-go/internal/repository"
)

// ProjectService 定义了项目相关的业务操作。
type ProjectService interface {
	CreateProject(userID uint, name, description string) (*model.Project, error)
	ListProjects(userID uint) ([]model.ProjectDTO, error)
	GetProject(projectID, userID uint) (*model.ProjectDTO, error)
	// FindOwned 返回属于该用户的项目实体，供其他服务做归属校验。
	FindOwned(projectID, userID uint) (*model.Project, error)
	Touch(projectID uint) error
}

type projectService struct {
	projectRepo repository.ProjectRepository
}

// NewProjectService 创建一个新的 ProjectService 实例。
func NewProjectService(projectRepo repository.ProjectRepository) ProjectService {
	return &projectService{projectRepo: projectRepo}
}

// CreateProject 创建一个新项目。
func (s *projectService) CreateProject(userID uint, name, description string) (*model.Project, error) {
	project := &model.Project{
		UserID:      userID,
		Name:        name,
		Description: description,
	}
	if err := s.projectRepo.Create(project); err != nil {
		return nil, err
	}
	return project, nil
}

// ListProjects 返回用户的全部项目，按最近活跃时间倒序。
func (s *projectService) ListProjects(userID uint) ([]model.ProjectDTO, error) {
	return s.projectRepo.ListByUser(userID)
}

// GetProject 返回单个项目的视图（附文档数量）。
func (s *projectService) GetProject(projectID, userID uint) (*model.ProjectDTO, error) {
	project, err := s.projectRepo.FindByIDAndUser(projectID, userID)
	if err != nil {
		return nil, err
	}
	count, err := s.projectRepo.CountDocuments(project.ID)
	if err != nil {
		return nil, err
	}
	return &model.ProjectDTO{
		ID:             project.ID,
		Name:           project.Name,
		Description:    project.Description,
		CreatedAt:      project.CreatedAt,
		LastActivityAt: project.LastActivityAt,
		DocumentCount:  count,
	}, nil
}

// FindOwned 校验并返回属于该用户的项目。
func (s *projectService) FindOwned(projectID, userID uint) (*model.Project, error) {
	return s.projectRepo.FindByIDAndUser(projectID, userID)
}

// Touch 更新项目的最近活跃时间。
func (s *projectService) Touch(projectID uint) error {
	return s.projectRepo.Touch(projectID)
}
