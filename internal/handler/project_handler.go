package handler

import (
	"net/http"
	"strconv"

	"ai-research-go/internal/model"
	"ai-research-go/internal/service"
	"ai-research-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// ProjectHandler 负责处理所有与项目相关的 API 请求。
type ProjectHandler struct {
	projectService service.ProjectService
}

// NewProjectHandler 创建一个新的 ProjectHandler 实例。
func NewProjectHandler(projectService service.ProjectService) *ProjectHandler {
	return &ProjectHandler{projectService: projectService}
}

// CreateProjectRequest 定义了创建项目 API 的请求体结构。
type CreateProjectRequest struct {
	Name        string `json:"name" binding:"required,max=255"`
	Description string `json:"description"`
}

// CreateProject 处理创建项目请求。
func (h *ProjectHandler) CreateProject(c *gin.Context) {
	var req CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    http.StatusBadRequest,
			"message": "无效的请求负载：项目名称不能为空",
		})
		return
	}

	user := c.MustGet("user").(*model.User)
	project, err := h.projectService.CreateProject(user.ID, req.Name, req.Description)
	if err != nil {
		log.Errorf("CreateProject failed for user %d: %v", user.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    http.StatusInternalServerError,
			"message": "创建项目失败",
		})
		return
	}

	log.Infof("User %d created project %d ('%s')", user.ID, project.ID, project.Name)
	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "success",
		"data":    project,
	})
}

// ListProjects 列出当前用户的所有项目，按最近活跃时间倒序。
func (h *ProjectHandler) ListProjects(c *gin.Context) {
	user := c.MustGet("user").(*model.User)
	projects, err := h.projectService.ListProjects(user.ID)
	if err != nil {
		log.Errorf("ListProjects failed for user %d: %v", user.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    http.StatusInternalServerError,
			"message": "获取项目列表失败",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "success",
		"data":    projects,
	})
}

// GetProject 获取单个项目的详情（含文档数量）。
func (h *ProjectHandler) GetProject(c *gin.Context) {
	projectID, ok := parseProjectID(c)
	if !ok {
		return
	}

	user := c.MustGet("user").(*model.User)
	project, err := h.projectService.GetProject(projectID, user.ID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"code":    http.StatusNotFound,
			"message": "Project not found",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "success",
		"data":    project,
	})
}

// parseProjectID 从路径参数中解析项目 ID，非法时直接写出 400 响应。
func parseProjectID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    http.StatusBadRequest,
			"message": "无效的项目 ID",
		})
		return 0, false
	}
	return uint(id), true
}
