package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"ai-research-go/internal/config"
	"ai-research-go/internal/model"
	"ai-research-go/internal/repository"
	"ai-research-go/pkg/kafka"
	"ai-research-go/pkg/log"
	"ai-research-go/pkg/storage"
	"ai-research-go/pkg/tasks"
)

// ErrUnsupportedFileType 表示上传的文件类型不被支持。
var ErrUnsupportedFileType = errors.New("unsupported file type")

// DocumentService 定义了文档相关的业务操作。
// 上传/URL 摄取只创建 processing 状态的文档记录并投递任务后立即返回，
// 真正的解析与向量化由后台消费者完成。
type DocumentService interface {
	Upload(ctx context.Context, projectID uint, fileName string, data []byte) (*model.Document, error)
	IngestURL(ctx context.Context, projectID uint, url string) (*model.Document, error)
	ListDocuments(projectID uint) ([]model.Document, error)
	GetDocumentText(documentID, projectID uint) (*model.Document, error)
}

type documentService struct {
	documentRepo repository.DocumentRepository
	minioCfg     config.MinIOConfig

	// 默认指向全局的 MinIO / Kafka 客户端，测试中替换
	putObject   func(ctx context.Context, bucketName, objectName string, reader io.Reader, size int64, contentType string) error
	produceTask func(task tasks.IngestTask) error
}

// NewDocumentService 创建一个新的 DocumentService 实例。
func NewDocumentService(documentRepo repository.DocumentRepository, minioCfg config.MinIOConfig) DocumentService {
	return &documentService{
		documentRepo: documentRepo,
		minioCfg:     minioCfg,
		putObject:    storage.PutObject,
		produceTask:  kafka.ProduceIngestTask,
	}
}

// Upload 接收一个上传文件：校验类型、保存原始字节、创建文档记录并投递摄取任务。
func (s *documentService) Upload(ctx context.Context, projectID uint, fileName string, data []byte) (*model.Document, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(fileName), "."))
	var docType string
	switch ext {
	case "pdf":
		docType = model.DocTypePDF
	case "txt":
		docType = model.DocTypeText
	default:
		return nil, ErrUnsupportedFileType
	}

	document := &model.Document{
		ProjectID: projectID,
		Name:      fileName,
		DocType:   docType,
		Status:    model.StatusProcessing,
	}
	if err := s.documentRepo.Create(document); err != nil {
		return nil, fmt.Errorf("创建文档记录失败: %w", err)
	}

	// 原始字节进对象存储，供后台消费者读取
	objectName := storage.DocumentObjectName(document.ID, fileName)
	contentType := "text/plain"
	if docType == model.DocTypePDF {
		contentType = "application/pdf"
	}
	if err := s.putObject(ctx, s.minioCfg.BucketName, objectName, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		// 没有对象就没有任务可投递，文档不能停留在 processing
		s.abandon(document.ID, err)
		return nil, fmt.Errorf("保存原始文件失败: %w", err)
	}

	task := tasks.IngestTask{
		DocumentID: document.ID,
		ProjectID:  projectID,
		DocType:    docType,
		ObjectName: objectName,
	}
	if err := s.produceTask(task); err != nil {
		s.abandon(document.ID, err)
		return nil, fmt.Errorf("投递摄取任务失败: %w", err)
	}

	log.Infof("[DocumentService] 已接收上传并投递摄取任务, DocumentID: %d, File: %s", document.ID, fileName)
	return document, nil
}

// IngestURL 以网页 URL 创建文档并投递摄取任务。抓取本身发生在后台。
func (s *documentService) IngestURL(_ context.Context, projectID uint, url string) (*model.Document, error) {
	document := &model.Document{
		ProjectID: projectID,
		Name:      url,
		DocType:   model.DocTypeURL,
		Status:    model.StatusProcessing,
		SourceURL: url,
	}
	if err := s.documentRepo.Create(document); err != nil {
		return nil, fmt.Errorf("创建文档记录失败: %w", err)
	}

	task := tasks.IngestTask{
		DocumentID: document.ID,
		ProjectID:  projectID,
		DocType:    model.DocTypeURL,
	}
	if err := s.produceTask(task); err != nil {
		s.abandon(document.ID, err)
		return nil, fmt.Errorf("投递摄取任务失败: %w", err)
	}

	log.Infof("[DocumentService] 已接收 URL 摄取并投递任务, DocumentID: %d, URL: %s", document.ID, url)
	return document, nil
}

// abandon 将接收阶段就失败的文档直接置为 failed。
// 此时没有任务在途，不收尾的话文档会永远停留在 processing。
func (s *documentService) abandon(documentID uint, cause error) {
	metadata := model.JSONMap{
		"error":        cause.Error(),
		"failure_kind": "dispatch_error",
	}
	if err := s.documentRepo.MarkFailed(documentID, "", metadata); err != nil {
		log.Errorf("[DocumentService] 记录失败状态失败, DocumentID: %d, Error: %v", documentID, err)
	}
}

// ListDocuments 返回项目下的全部文档。
func (s *documentService) ListDocuments(projectID uint) ([]model.Document, error) {
	return s.documentRepo.ListByProject(projectID)
}

// GetDocumentText 返回文档的摘录与元数据。
func (s *documentService) GetDocumentText(documentID, projectID uint) (*model.Document, error) {
	return s.documentRepo.FindByIDInProject(documentID, projectID)
}
