package repository

import (
	"ai-research-go/internal/model"

	"gorm.io/gorm"
)

// EmbeddedChunk 是检索路径使用的分块视图：分块内容与所属文档名的联查结果。
type EmbeddedChunk struct {
	model.DocumentChunk
	DocumentName string
}

// DocumentRepository 定义了对 documents / document_chunks 表的数据操作接口。
type DocumentRepository interface {
	Create(document *model.Document) error
	FindByID(id uint) (*model.Document, error)
	FindByIDInProject(id, projectID uint) (*model.Document, error)
	ListByProject(projectID uint) ([]model.Document, error)
	// MarkReady / MarkFailed 将文档置入终态并写入摘录与元数据。
	// 状态只向前流转，已处于终态的文档不会被改写。
	MarkReady(id uint, excerpt string, metadata model.JSONMap) error
	MarkFailed(id uint, excerpt string, metadata model.JSONMap) error
	BatchCreateChunks(chunks []*model.DocumentChunk) error
	// FindEmbeddedChunksByProject 只返回向量非空的分块；
	// 没有向量的分块永远不会进入检索。
	FindEmbeddedChunksByProject(projectID uint) ([]EmbeddedChunk, error)
}

type documentRepository struct {
	db *gorm.DB
}

// NewDocumentRepository 创建一个新的 DocumentRepository 实例。
func NewDocumentRepository(db *gorm.DB) DocumentRepository {
	return &documentRepository{db: db}
}

// Create 创建一个新文档记录（初始状态 processing）。
func (r *documentRepository) Create(document *model.Document) error {
	return r.db.Create(document).Error
}

// FindByID 根据主键查找文档。
func (r *documentRepository) FindByID(id uint) (*model.Document, error) {
	var document model.Document
	err := r.db.First(&document, id).Error
	if err != nil {
		return nil, err
	}
	return &document, nil
}

// FindByIDInProject 查找属于指定项目的文档。
func (r *documentRepository) FindByIDInProject(id, projectID uint) (*model.Document, error) {
	var document model.Document
	err := r.db.Where("id = ? AND project_id = ?", id, projectID).First(&document).Error
	if err != nil {
		return nil, err
	}
	return &document, nil
}

// ListByProject 返回项目下的全部文档，按创建时间倒序。
func (r *documentRepository) ListByProject(projectID uint) ([]model.Document, error) {
	var documents []model.Document
	err := r.db.Where("project_id = ?", projectID).Order("created_at DESC").Find(&documents).Error
	return documents, err
}

// MarkReady 将文档置为 ready。
func (r *documentRepository) MarkReady(id uint, excerpt string, metadata model.JSONMap) error {
	return r.finalize(id, model.StatusReady, excerpt, metadata)
}

// MarkFailed 将文档置为 failed。
func (r *documentRepository) MarkFailed(id uint, excerpt string, metadata model.JSONMap) error {
	return r.finalize(id, model.StatusFailed, excerpt, metadata)
}

func (r *documentRepository) finalize(id uint, status, excerpt string, metadata model.JSONMap) error {
	updates := map[string]interface{}{
		"status":        status,
		"metadata_json": metadata,
	}
	if excerpt != "" {
		updates["text_excerpt"] = excerpt
	}
	// WHERE status = processing 保证终态不被改写
	return r.db.Model(&model.Document{}).
		Where("id = ? AND status = ?", id, model.StatusProcessing).
		Updates(updates).Error
}

// BatchCreateChunks 批量创建分块记录。
func (r *documentRepository) BatchCreateChunks(chunks []*model.DocumentChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	return r.db.CreateInBatches(chunks, 100).Error // 每100条记录一批
}

// FindEmbeddedChunksByProject 联查分块及其文档名，只含向量非空的分块。
func (r *documentRepository) FindEmbeddedChunksByProject(projectID uint) ([]EmbeddedChunk, error) {
	var rows []EmbeddedChunk
	err := r.db.Model(&model.DocumentChunk{}).
		Select("document_chunks.*, documents.name AS document_name").
		Joins("JOIN documents ON documents.id = document_chunks.document_id").
		Where("document_chunks.project_id = ? AND document_chunks.embedding IS NOT NULL", projectID).
		Scan(&rows).Error
	return rows, err
}
