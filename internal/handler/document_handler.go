package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"ai-research-go/internal/model"
	"ai-research-go/internal/service"
	"ai-research-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// MaxUploadSize 是允许上传的单个文件的最大字节数。
const MaxUploadSize = 50 << 20 // 50 MB

// DocumentHandler 负责处理所有与文档相关的 API 请求。
// 所有路由都挂在 /projects/:id 下，先做归属校验再进入业务逻辑。
type DocumentHandler struct {
	documentService service.DocumentService
	projectService  service.ProjectService
}

// NewDocumentHandler 创建一个新的 DocumentHandler 实例。
func NewDocumentHandler(documentService service.DocumentService, projectService service.ProjectService) *DocumentHandler {
	return &DocumentHandler{
		documentService: documentService,
		projectService:  projectService,
	}
}

// ownedProject 校验路径中的项目属于当前用户。
// 不存在或属于他人统一返回 404，不向调用方泄露项目是否存在。
func (h *DocumentHandler) ownedProject(c *gin.Context) (*model.Project, bool) {
	projectID, ok := parseProjectID(c)
	if !ok {
		return nil, false
	}
	user := c.MustGet("user").(*model.User)
	project, err := h.projectService.FindOwned(projectID, user.ID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"code":    http.StatusNotFound,
			"message": "Project not found",
		})
		return nil, false
	}
	return project, true
}

// Upload 处理文档文件上传：接收 multipart 文件并异步触发摄取。
func (h *DocumentHandler) Upload(c *gin.Context) {
	project, ok := h.ownedProject(c)
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    http.StatusBadRequest,
			"message": "无效的请求：缺少 file 字段",
		})
		return
	}
	if fileHeader.Size > MaxUploadSize {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    http.StatusBadRequest,
			"message": "文件超过大小限制",
		})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		log.Errorf("Upload: open multipart file failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    http.StatusInternalServerError,
			"message": "读取上传文件失败",
		})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		log.Errorf("Upload: read multipart file failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    http.StatusInternalServerError,
			"message": "读取上传文件失败",
		})
		return
	}

	document, err := h.documentService.Upload(c.Request.Context(), project.ID, fileHeader.Filename, data)
	if err != nil {
		if errors.Is(err, service.ErrUnsupportedFileType) {
			c.JSON(http.StatusBadRequest, gin.H{
				"code":    http.StatusBadRequest,
				"message": "不支持的文件类型，仅支持 pdf 与 txt",
			})
			return
		}
		log.Errorf("Upload failed for project %d: %v", project.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    http.StatusInternalServerError,
			"message": "文档上传失败",
		})
		return
	}

	if err := h.projectService.Touch(project.ID); err != nil {
		log.Warnf("Upload: touch project %d failed: %v", project.ID, err)
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "success",
		"data":    document,
	})
}

// IngestURLRequest 定义了 URL 摄取 API 的请求体结构。
type IngestURLRequest struct {
	URL string `json:"url" binding:"required,url"`
}

// IngestURL 以网页 URL 创建文档并异步触发摄取。
func (h *DocumentHandler) IngestURL(c *gin.Context) {
	project, ok := h.ownedProject(c)
	if !ok {
		return
	}

	var req IngestURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    http.StatusBadRequest,
			"message": "无效的请求负载：url 不能为空且必须是合法 URL",
		})
		return
	}

	document, err := h.documentService.IngestURL(c.Request.Context(), project.ID, req.URL)
	if err != nil {
		log.Errorf("IngestURL failed for project %d: %v", project.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    http.StatusInternalServerError,
			"message": "URL 摄取失败",
		})
		return
	}

	if err := h.projectService.Touch(project.ID); err != nil {
		log.Warnf("IngestURL: touch project %d failed: %v", project.ID, err)
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "success",
		"data":    document,
	})
}

// ListDocuments 列出项目下的全部文档，按创建时间倒序。
// 调用方可以通过轮询该接口观察摄取状态的变化。
func (h *DocumentHandler) ListDocuments(c *gin.Context) {
	project, ok := h.ownedProject(c)
	if !ok {
		return
	}

	documents, err := h.documentService.ListDocuments(project.ID)
	if err != nil {
		log.Errorf("ListDocuments failed for project %d: %v", project.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    http.StatusInternalServerError,
			"message": "获取文档列表失败",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "success",
		"data":    documents,
	})
}

// GetDocumentText 返回单个文档的正文摘录与元数据。
func (h *DocumentHandler) GetDocumentText(c *gin.Context) {
	project, ok := h.ownedProject(c)
	if !ok {
		return
	}

	docID, err := strconv.ParseUint(c.Param("docId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    http.StatusBadRequest,
			"message": "无效的文档 ID",
		})
		return
	}

	document, err := h.documentService.GetDocumentText(uint(docID), project.ID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"code":    http.StatusNotFound,
			"message": "Document not found",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "success",
		"data": gin.H{
			"id":       document.ID,
			"name":     document.Name,
			"status":   document.Status,
			"text":     document.TextExcerpt,
			"metadata": document.MetadataJSON,
		},
	})
}
