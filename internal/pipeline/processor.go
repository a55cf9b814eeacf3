package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"ai-research-go/internal/config"
	"ai-research-go/internal/model"
	"ai-research-go/internal/repository"
	"ai-research-go/pkg/embedding"
	"ai-research-go/pkg/log"
	"ai-research-go/pkg/tasks"
	"ai-research-go/pkg/tika"
)

// ObjectStore 抽象了原始文件的读取来源（生产环境为 MinIO）。
type ObjectStore interface {
	GetObject(ctx context.Context, objectName string) ([]byte, error)
}

// Processor 封装了文档摄取的所有依赖和逻辑。
// 它独占文档的生命周期状态机：processing -> ready | failed。
// 失败从不向触发方传播（请求早已返回），只落在文档的状态与元数据上。
type Processor struct {
	tikaClient      tika.Extractor
	embeddingClient embedding.Client
	store           ObjectStore
	documentRepo    repository.DocumentRepository
	ragCfg          config.RAGConfig
	fetchClient     *http.Client
}

// NewProcessor 创建一个新的 Processor 实例。
func NewProcessor(
	tikaClient tika.Extractor,
	embeddingClient embedding.Client,
	store ObjectStore,
	documentRepo repository.DocumentRepository,
	ragCfg config.RAGConfig,
) *Processor {
	timeout := time.Duration(ragCfg.FetchTimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Processor{
		tikaClient:      tikaClient,
		embeddingClient: embeddingClient,
		store:           store,
		documentRepo:    documentRepo,
		ragCfg:          ragCfg,
		fetchClient:     &http.Client{Timeout: timeout},
	}
}

// Process 是文档摄取的主函数：解析 -> 分块 -> 向量化 -> 持久化。
func (p *Processor) Process(ctx context.Context, task tasks.IngestTask) {
	log.Infof("[Processor] 开始摄取文档, DocumentID: %d, DocType: %s", task.DocumentID, task.DocType)

	document, err := p.documentRepo.FindByID(task.DocumentID)
	if err != nil {
		log.Errorf("[Processor] 未找到文档记录, DocumentID: %d, Error: %v", task.DocumentID, err)
		return
	}
	if document.Status != model.StatusProcessing {
		// 终态文档不允许重新处理
		log.Warnf("[Processor] 文档已处于终态 '%s', 跳过, DocumentID: %d", document.Status, document.ID)
		return
	}

	// 1. 按来源类型解析出 (全文, 页序列)
	log.Infof("[Processor] 步骤1: 解析来源, DocType: %s", task.DocType)
	fullText, pages, failure := p.parse(ctx, document, task)
	if failure != nil {
		p.fail(document.ID, "", failure)
		return
	}
	log.Infof("[Processor] 步骤1: 解析成功, 共 %d 页", len(pages))

	excerpt := model.Truncate(fullText, model.ExcerptMaxLen)

	// 2. 分块
	log.Infof("[Processor] 步骤2: 文本分块, chunkSize: %d, chunkOverlap: %d", p.ragCfg.ChunkSize, p.ragCfg.ChunkOverlap)
	chunks := BuildChunks(pages, p.ragCfg.ChunkSize, p.ragCfg.ChunkOverlap)
	if len(chunks) == 0 {
		// 解析成功但没有可检索内容，与解析失败是两种不同的失败
		log.Warnf("[Processor] 未产出任何分块, DocumentID: %d", document.ID)
		pageCount := len(pages)
		p.fail(document.ID, excerpt, &IngestFailure{
			Kind:      FailureEmptyExtraction,
			Message:   "No extractable text found in this document.",
			PageCount: &pageCount,
		})
		return
	}
	log.Infof("[Processor] 步骤2: 分块完成, 共 %d 个分块", len(chunks))

	// 3. 单次批量向量化，保证整篇文档的向量来自同一个向量空间
	log.Info("[Processor] 步骤3: 批量向量化")
	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Content
	}
	vectors, err := p.embeddingClient.EmbedBatch(ctx, texts)
	if err != nil {
		log.Errorf("[Processor] 向量化失败, DocumentID: %d, Error: %v", document.ID, err)
		p.fail(document.ID, excerpt, &IngestFailure{Kind: FailureEmbedding, Message: err.Error()})
		return
	}
	log.Infof("[Processor] 步骤3: 向量化成功, %d 个向量", len(vectors))

	// 4. 持久化分块
	log.Info("[Processor] 步骤4: 持久化分块")
	rows := make([]*model.DocumentChunk, len(chunks))
	for i, chunk := range chunks {
		pageNumber := chunk.PageNumber
		rows[i] = &model.DocumentChunk{
			DocumentID: document.ID,
			ProjectID:  document.ProjectID,
			Content:    chunk.Content,
			Embedding:  vectors[i],
			PageNumber: &pageNumber,
		}
	}
	if err := p.documentRepo.BatchCreateChunks(rows); err != nil {
		log.Errorf("[Processor] 分块落库失败, DocumentID: %d, Error: %v", document.ID, err)
		p.fail(document.ID, excerpt, &IngestFailure{Kind: FailureStorage, Message: err.Error()})
		return
	}

	// 5. 置为 ready
	metadata := model.JSONMap{"page_count": len(pages)}
	if err := p.documentRepo.MarkReady(document.ID, excerpt, metadata); err != nil {
		log.Errorf("[Processor] 更新文档状态失败, DocumentID: %d, Error: %v", document.ID, err)
		return
	}

	log.Infof("[Processor] 摄取成功完成, DocumentID: %d, 分块数: %d", document.ID, len(chunks))
}

// parse 按来源类型分发到对应解析器，返回内部的失败表示。
func (p *Processor) parse(ctx context.Context, document *model.Document, task tasks.IngestTask) (string, []Page, *IngestFailure) {
	switch document.DocType {
	case model.DocTypePDF:
		if task.ObjectName == "" {
			return "", nil, &IngestFailure{Kind: FailureSourceMismatch, Message: "pdf document has no stored object"}
		}
		data, err := p.store.GetObject(ctx, task.ObjectName)
		if err != nil {
			return "", nil, &IngestFailure{Kind: FailureParse, Message: err.Error()}
		}
		fullText, pages, err := ParsePDF(ctx, p.tikaClient, data, document.Name)
		if err != nil {
			return "", nil, &IngestFailure{Kind: FailureParse, Message: err.Error()}
		}
		return fullText, pages, nil

	case model.DocTypeText:
		raw := task.RawText
		if raw == "" && task.ObjectName != "" {
			data, err := p.store.GetObject(ctx, task.ObjectName)
			if err != nil {
				return "", nil, &IngestFailure{Kind: FailureParse, Message: err.Error()}
			}
			raw = string(data)
		}
		if raw == "" {
			return "", nil, &IngestFailure{Kind: FailureSourceMismatch, Message: "text document has no raw text"}
		}
		fullText, pages := ParseText(raw)
		return fullText, pages, nil

	case model.DocTypeURL:
		if document.SourceURL == "" {
			return "", nil, &IngestFailure{Kind: FailureSourceMismatch, Message: "url document has no source url"}
		}
		fullText, pages, err := ParseURL(ctx, p.fetchClient, document.SourceURL)
		if err != nil {
			kind := FailureParse
			if _, ok := err.(*FetchError); ok {
				kind = FailureFetch
			}
			return "", nil, &IngestFailure{Kind: kind, Message: err.Error()}
		}
		return fullText, pages, nil

	default:
		return "", nil, &IngestFailure{
			Kind:    FailureSourceMismatch,
			Message: fmt.Sprintf("unsupported doc type '%s'", document.DocType),
		}
	}
}

// fail 将文档置为 failed 并记录失败元数据。
func (p *Processor) fail(documentID uint, excerpt string, failure *IngestFailure) {
	log.Warnf("[Processor] 文档摄取失败, DocumentID: %d, Kind: %s, Message: %s", documentID, failure.Kind, failure.Message)
	if err := p.documentRepo.MarkFailed(documentID, excerpt, failure.Metadata()); err != nil {
		log.Errorf("[Processor] 记录失败状态失败, DocumentID: %d, Error: %v", documentID, err)
	}
}
