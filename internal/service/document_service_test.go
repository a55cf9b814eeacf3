package service

import (
	"context"
	"errors"
	"io"
	"testing"

	"ai-research-go/internal/config"
	"ai-research-go/internal/model"
	"ai-research-go/internal/repository"
	"ai-research-go/pkg/tasks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// intakeDocumentRepo 记录接收阶段对文档表的写入。
type intakeDocumentRepo struct {
	created        []*model.Document
	failedIDs      []uint
	failedMetadata model.JSONMap
}

func (f *intakeDocumentRepo) Create(document *model.Document) error {
	document.ID = uint(len(f.created) + 1)
	f.created = append(f.created, document)
	return nil
}

func (f *intakeDocumentRepo) FindByID(uint) (*model.Document, error) {
	return nil, errors.New("not implemented")
}

func (f *intakeDocumentRepo) FindByIDInProject(uint, uint) (*model.Document, error) {
	return nil, errors.New("not implemented")
}

func (f *intakeDocumentRepo) ListByProject(uint) ([]model.Document, error) { return nil, nil }

func (f *intakeDocumentRepo) MarkReady(uint, string, model.JSONMap) error { return nil }

func (f *intakeDocumentRepo) MarkFailed(id uint, _ string, metadata model.JSONMap) error {
	f.failedIDs = append(f.failedIDs, id)
	f.failedMetadata = metadata
	return nil
}

func (f *intakeDocumentRepo) BatchCreateChunks([]*model.DocumentChunk) error { return nil }

func (f *intakeDocumentRepo) FindEmbeddedChunksByProject(uint) ([]repository.EmbeddedChunk, error) {
	return nil, nil
}

type documentFixture struct {
	repo    *intakeDocumentRepo
	svc     *documentService
	sent    []tasks.IngestTask
	objects []string
	putErr  error
	sendErr error
}

func newDocumentFixture() *documentFixture {
	f := &documentFixture{repo: &intakeDocumentRepo{}}
	f.svc = &documentService{
		documentRepo: f.repo,
		minioCfg:     config.MinIOConfig{BucketName: "ai-research"},
		putObject: func(_ context.Context, _, objectName string, _ io.Reader, _ int64, _ string) error {
			if f.putErr != nil {
				return f.putErr
			}
			f.objects = append(f.objects, objectName)
			return nil
		},
		produceTask: func(task tasks.IngestTask) error {
			if f.sendErr != nil {
				return f.sendErr
			}
			f.sent = append(f.sent, task)
			return nil
		},
	}
	return f
}

func TestUploadDispatchesIngestTask(t *testing.T) {
	f := newDocumentFixture()

	document, err := f.svc.Upload(context.Background(), 7, "paper.pdf", []byte("%PDF"))
	require.NoError(t, err)

	assert.Equal(t, model.DocTypePDF, document.DocType)
	assert.Equal(t, model.StatusProcessing, document.Status)
	require.Len(t, f.objects, 1)
	assert.Equal(t, "documents/1/paper.pdf", f.objects[0])
	require.Len(t, f.sent, 1)
	assert.Equal(t, document.ID, f.sent[0].DocumentID)
	assert.Equal(t, "documents/1/paper.pdf", f.sent[0].ObjectName)
	assert.Empty(t, f.repo.failedIDs)
}

func TestUploadRejectsUnsupportedExtension(t *testing.T) {
	f := newDocumentFixture()

	_, err := f.svc.Upload(context.Background(), 7, "archive.zip", []byte("PK"))
	require.ErrorIs(t, err, ErrUnsupportedFileType)

	// 校验失败发生在建档之前
	assert.Empty(t, f.repo.created)
	assert.Empty(t, f.sent)
}

func TestUploadStorageFailureMarksDocumentFailed(t *testing.T) {
	f := newDocumentFixture()
	f.putErr = errors.New("minio unreachable")

	_, err := f.svc.Upload(context.Background(), 7, "notes.txt", []byte("hello"))
	require.Error(t, err)

	// 没有任务在途，文档不能停留在 processing
	require.Len(t, f.repo.failedIDs, 1)
	assert.Equal(t, uint(1), f.repo.failedIDs[0])
	assert.Equal(t, "dispatch_error", f.repo.failedMetadata["failure_kind"])
	assert.Contains(t, f.repo.failedMetadata["error"], "minio unreachable")
	assert.Empty(t, f.sent)
}

func TestUploadProduceFailureMarksDocumentFailed(t *testing.T) {
	f := newDocumentFixture()
	f.sendErr = errors.New("kafka down")

	_, err := f.svc.Upload(context.Background(), 7, "notes.txt", []byte("hello"))
	require.Error(t, err)

	require.Len(t, f.repo.failedIDs, 1)
	assert.Equal(t, "dispatch_error", f.repo.failedMetadata["failure_kind"])
}

func TestIngestURLDispatchesTask(t *testing.T) {
	f := newDocumentFixture()

	document, err := f.svc.IngestURL(context.Background(), 7, "https://example.com/article")
	require.NoError(t, err)

	assert.Equal(t, model.DocTypeURL, document.DocType)
	assert.Equal(t, "https://example.com/article", document.SourceURL)
	require.Len(t, f.sent, 1)
	assert.Empty(t, f.sent[0].ObjectName)
	assert.Empty(t, f.objects)
}

func TestIngestURLProduceFailureMarksDocumentFailed(t *testing.T) {
	f := newDocumentFixture()
	f.sendErr = errors.New("kafka down")

	_, err := f.svc.IngestURL(context.Background(), 7, "https://example.com/article")
	require.Error(t, err)

	require.Len(t, f.repo.failedIDs, 1)
	assert.Equal(t, "dispatch_error", f.repo.failedMetadata["failure_kind"])
}
