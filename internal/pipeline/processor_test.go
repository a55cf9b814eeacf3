package pipeline

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"ai-research-go/internal/config"
	"ai-research-go/internal/model"
	"ai-research-go/internal/repository"
	"ai-research-go/pkg/tasks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDocumentRepo 在内存中模拟文档仓储，记录状态流转与落库的分块。
type fakeDocumentRepo struct {
	doc      *model.Document
	chunks   []*model.DocumentChunk
	batchErr error

	readyCalled  bool
	failedCalled bool
	excerpt      string
	metadata     model.JSONMap
}

func (f *fakeDocumentRepo) Create(document *model.Document) error { return nil }

func (f *fakeDocumentRepo) FindByID(id uint) (*model.Document, error) {
	if f.doc == nil || f.doc.ID != id {
		return nil, errors.New("record not found")
	}
	return f.doc, nil
}

func (f *fakeDocumentRepo) FindByIDInProject(id, projectID uint) (*model.Document, error) {
	return f.FindByID(id)
}

func (f *fakeDocumentRepo) ListByProject(projectID uint) ([]model.Document, error) {
	return nil, nil
}

func (f *fakeDocumentRepo) MarkReady(id uint, excerpt string, metadata model.JSONMap) error {
	f.readyCalled = true
	f.excerpt = excerpt
	f.metadata = metadata
	f.doc.Status = model.StatusReady
	return nil
}

func (f *fakeDocumentRepo) MarkFailed(id uint, excerpt string, metadata model.JSONMap) error {
	f.failedCalled = true
	f.excerpt = excerpt
	f.metadata = metadata
	f.doc.Status = model.StatusFailed
	return nil
}

func (f *fakeDocumentRepo) BatchCreateChunks(chunks []*model.DocumentChunk) error {
	if f.batchErr != nil {
		return f.batchErr
	}
	f.chunks = append(f.chunks, chunks...)
	return nil
}

func (f *fakeDocumentRepo) FindEmbeddedChunksByProject(projectID uint) ([]repository.EmbeddedChunk, error) {
	return nil, nil
}

// fakeObjectStore 以内存字节代替 MinIO。
type fakeObjectStore struct {
	objects map[string][]byte
}

func (f *fakeObjectStore) GetObject(_ context.Context, objectName string) ([]byte, error) {
	data, ok := f.objects[objectName]
	if !ok {
		return nil, errors.New("object not found")
	}
	return data, nil
}

// fakeEmbedder 为每条文本返回固定向量，可注入错误。
type fakeEmbedder struct {
	err   error
	calls [][]string
}

func (f *fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	f.calls = append(f.calls, texts)
	if f.err != nil {
		return nil, f.err
	}
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = []float32{1, 0, 0}
	}
	return vectors, nil
}

func testRAGConfig() config.RAGConfig {
	return config.RAGConfig{
		ChunkSize:       800,
		ChunkOverlap:    120,
		TopK:            8,
		MinSimilarity:   0.18,
		FetchTimeoutSec: 5,
	}
}

func newTestProcessor(repo *fakeDocumentRepo, store *fakeObjectStore, embedder *fakeEmbedder, extractor *fakeExtractor) *Processor {
	if store == nil {
		store = &fakeObjectStore{objects: map[string][]byte{}}
	}
	if extractor == nil {
		extractor = &fakeExtractor{}
	}
	return NewProcessor(extractor, embedder, store, repo, testRAGConfig())
}

func TestProcessTextDocumentBecomesReady(t *testing.T) {
	repo := &fakeDocumentRepo{doc: &model.Document{ID: 1, ProjectID: 7, DocType: model.DocTypeText, Status: model.StatusProcessing}}
	embedder := &fakeEmbedder{}
	p := newTestProcessor(repo, nil, embedder, nil)

	p.Process(context.Background(), tasks.IngestTask{DocumentID: 1, ProjectID: 7, DocType: model.DocTypeText, RawText: "a short note about transformers"})

	assert.True(t, repo.readyCalled)
	assert.False(t, repo.failedCalled)
	assert.Equal(t, model.StatusReady, repo.doc.Status)
	assert.Equal(t, "a short note about transformers", repo.excerpt)
	assert.Equal(t, 1, repo.metadata["page_count"])

	require.Len(t, repo.chunks, 1)
	chunk := repo.chunks[0]
	assert.Equal(t, uint(1), chunk.DocumentID)
	assert.Equal(t, uint(7), chunk.ProjectID)
	assert.NotEmpty(t, chunk.Embedding)
	require.NotNil(t, chunk.PageNumber)
	assert.Equal(t, 1, *chunk.PageNumber)

	// 整篇文档只发一次批量向量化请求
	assert.Len(t, embedder.calls, 1)
}

func TestProcessPDFRecoversPageNumbers(t *testing.T) {
	repo := &fakeDocumentRepo{doc: &model.Document{ID: 2, ProjectID: 7, Name: "paper.pdf", DocType: model.DocTypePDF, Status: model.StatusProcessing}}
	store := &fakeObjectStore{objects: map[string][]byte{"documents/2/paper.pdf": []byte("%PDF")}}
	extractor := &fakeExtractor{text: "intro text\fsecond page text"}
	p := newTestProcessor(repo, store, &fakeEmbedder{}, extractor)

	p.Process(context.Background(), tasks.IngestTask{DocumentID: 2, DocType: model.DocTypePDF, ObjectName: "documents/2/paper.pdf"})

	assert.True(t, repo.readyCalled)
	assert.Equal(t, 2, repo.metadata["page_count"])
	require.Len(t, repo.chunks, 2)
	assert.Equal(t, 1, *repo.chunks[0].PageNumber)
	assert.Equal(t, 2, *repo.chunks[1].PageNumber)
}

func TestProcessSkipsTerminalDocument(t *testing.T) {
	repo := &fakeDocumentRepo{doc: &model.Document{ID: 3, DocType: model.DocTypeText, Status: model.StatusReady}}
	p := newTestProcessor(repo, nil, &fakeEmbedder{}, nil)

	p.Process(context.Background(), tasks.IngestTask{DocumentID: 3, DocType: model.DocTypeText, RawText: "anything"})

	assert.False(t, repo.readyCalled)
	assert.False(t, repo.failedCalled)
	assert.Empty(t, repo.chunks)
}

func TestProcessEmptyExtractionFails(t *testing.T) {
	repo := &fakeDocumentRepo{doc: &model.Document{ID: 4, Name: "blank.pdf", DocType: model.DocTypePDF, Status: model.StatusProcessing}}
	store := &fakeObjectStore{objects: map[string][]byte{"documents/4/blank.pdf": []byte("%PDF")}}
	extractor := &fakeExtractor{text: " \f \f "}
	p := newTestProcessor(repo, store, &fakeEmbedder{}, extractor)

	p.Process(context.Background(), tasks.IngestTask{DocumentID: 4, DocType: model.DocTypePDF, ObjectName: "documents/4/blank.pdf"})

	assert.True(t, repo.failedCalled)
	assert.Equal(t, model.StatusFailed, repo.doc.Status)
	assert.Equal(t, string(FailureEmptyExtraction), repo.metadata["failure_kind"])
	assert.Equal(t, "No extractable text found in this document.", repo.metadata["error"])
	assert.Equal(t, 3, repo.metadata["page_count"])
}

func TestProcessEmbeddingFailure(t *testing.T) {
	repo := &fakeDocumentRepo{doc: &model.Document{ID: 5, DocType: model.DocTypeText, Status: model.StatusProcessing}}
	embedder := &fakeEmbedder{err: errors.New("backend unavailable")}
	p := newTestProcessor(repo, nil, embedder, nil)

	p.Process(context.Background(), tasks.IngestTask{DocumentID: 5, DocType: model.DocTypeText, RawText: "some content"})

	assert.True(t, repo.failedCalled)
	assert.Equal(t, string(FailureEmbedding), repo.metadata["failure_kind"])
	// 解析已经成功，摘录仍然保留
	assert.Equal(t, "some content", repo.excerpt)
	assert.Empty(t, repo.chunks)
}

func TestProcessStorageFailure(t *testing.T) {
	repo := &fakeDocumentRepo{
		doc:      &model.Document{ID: 6, DocType: model.DocTypeText, Status: model.StatusProcessing},
		batchErr: errors.New("db gone"),
	}
	p := newTestProcessor(repo, nil, &fakeEmbedder{}, nil)

	p.Process(context.Background(), tasks.IngestTask{DocumentID: 6, DocType: model.DocTypeText, RawText: "some content"})

	assert.True(t, repo.failedCalled)
	assert.Equal(t, string(FailureStorage), repo.metadata["failure_kind"])
}

func TestProcessURLFetchFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	repo := &fakeDocumentRepo{doc: &model.Document{ID: 7, DocType: model.DocTypeURL, Status: model.StatusProcessing, SourceURL: server.URL}}
	p := newTestProcessor(repo, nil, &fakeEmbedder{}, nil)

	p.Process(context.Background(), tasks.IngestTask{DocumentID: 7, DocType: model.DocTypeURL})

	assert.True(t, repo.failedCalled)
	assert.Equal(t, string(FailureFetch), repo.metadata["failure_kind"])
	assert.Contains(t, repo.metadata["error"], "status 500")
}

func TestProcessURLDocumentBecomesReady(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html><body><p>web page content</p></body></html>"))
	}))
	defer server.Close()

	repo := &fakeDocumentRepo{doc: &model.Document{ID: 8, ProjectID: 9, DocType: model.DocTypeURL, Status: model.StatusProcessing, SourceURL: server.URL}}
	p := newTestProcessor(repo, nil, &fakeEmbedder{}, nil)

	p.Process(context.Background(), tasks.IngestTask{DocumentID: 8, DocType: model.DocTypeURL})

	assert.True(t, repo.readyCalled)
	require.Len(t, repo.chunks, 1)
	assert.Equal(t, "web page content", repo.chunks[0].Content)
}

func TestProcessSourceMismatch(t *testing.T) {
	// text 类型却既没有原始文本也没有对象
	repo := &fakeDocumentRepo{doc: &model.Document{ID: 9, DocType: model.DocTypeText, Status: model.StatusProcessing}}
	p := newTestProcessor(repo, nil, &fakeEmbedder{}, nil)

	p.Process(context.Background(), tasks.IngestTask{DocumentID: 9, DocType: model.DocTypeText})

	assert.True(t, repo.failedCalled)
	assert.Equal(t, string(FailureSourceMismatch), repo.metadata["failure_kind"])
}

func TestProcessExcerptTruncated(t *testing.T) {
	longText := strings.Repeat("字", model.ExcerptMaxLen+100)
	repo := &fakeDocumentRepo{doc: &model.Document{ID: 10, DocType: model.DocTypeText, Status: model.StatusProcessing}}
	p := newTestProcessor(repo, nil, &fakeEmbedder{}, nil)

	p.Process(context.Background(), tasks.IngestTask{DocumentID: 10, DocType: model.DocTypeText, RawText: longText})

	assert.True(t, repo.readyCalled)
	assert.Len(t, []rune(repo.excerpt), model.ExcerptMaxLen)
}

func TestProcessMissingDocument(t *testing.T) {
	repo := &fakeDocumentRepo{}
	p := newTestProcessor(repo, nil, &fakeEmbedder{}, nil)

	p.Process(context.Background(), tasks.IngestTask{DocumentID: 42, DocType: model.DocTypeText, RawText: "x"})

	assert.False(t, repo.readyCalled)
	assert.False(t, repo.failedCalled)
}
