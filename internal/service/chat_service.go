package service

import (
	"context"
	"fmt"
	"strings"

	"ai-research-go/internal/config"
	"ai-research-go/internal/model"
	"ai-research-go/internal/repository"
	"ai-research-go/pkg/embedding"
	"ai-research-go/pkg/llm"
	"ai-research-go/pkg/log"
	"ai-research-go/pkg/vector"
)

// NoAnswerText 是检索无果时的固定回答。
const NoAnswerText = "I don't know."

// ChatService 定义了检索增强问答的业务操作。
type ChatService interface {
	// Answer 回答一个项目内的问题，返回回答文本、引用来源与实际使用的分块。
	// Embedding / 生成后端失败会作为错误返回给调用方，不做静默吞没：
	// 用残缺的后端结果拼出的答案比明确失败更糟。
	Answer(ctx context.Context, project *model.Project, userID uint, question string) (string, []model.Citation, []model.UsedChunk, error)
	GetHistory(projectID uint) ([]model.ChatMessage, error)
}

type chatService struct {
	documentRepo    repository.DocumentRepository
	chatRepo        repository.ChatRepository
	projectRepo     repository.ProjectRepository
	embeddingClient embedding.Client
	llmClient       llm.Client
	ragCfg          config.RAGConfig
}

// NewChatService 创建一个新的 ChatService 实例。
func NewChatService(
	documentRepo repository.DocumentRepository,
	chatRepo repository.ChatRepository,
	projectRepo repository.ProjectRepository,
	embeddingClient embedding.Client,
	llmClient llm.Client,
	ragCfg config.RAGConfig,
) ChatService {
	return &chatService{
		documentRepo:    documentRepo,
		chatRepo:        chatRepo,
		projectRepo:     projectRepo,
		embeddingClient: embeddingClient,
		llmClient:       llmClient,
		ragCfg:          ragCfg,
	}
}

// Answer 协调完整的检索增强问答流程。
func (s *chatService) Answer(ctx context.Context, project *model.Project, userID uint, question string) (string, []model.Citation, []model.UsedChunk, error) {
	log.Infof("[ChatService] 开始回答问题, ProjectID: %d, question: '%s'", project.ID, question)

	// 1. 加载项目内全部已向量化的分块；没有向量的分块不参与检索
	chunks, err := s.documentRepo.FindEmbeddedChunksByProject(project.ID)
	if err != nil {
		return "", nil, nil, fmt.Errorf("加载项目分块失败: %w", err)
	}
	if len(chunks) == 0 {
		log.Infof("[ChatService] 项目没有可检索的分块, ProjectID: %d", project.ID)
		return NoAnswerText, []model.Citation{}, []model.UsedChunk{}, nil
	}

	// 2. 用与摄取相同的 Embedder 向量化问题；策略不一致时相似度没有意义
	queryVectors, err := s.embeddingClient.EmbedBatch(ctx, []string{question})
	if err != nil {
		return "", nil, nil, fmt.Errorf("问题向量化失败: %w", err)
	}
	queryVector := queryVectors[0]

	// 3. 暴力余弦相似度 + top-k
	candidates := make([][]float32, len(chunks))
	for i, chunk := range chunks {
		candidates[i] = chunk.Embedding
	}
	scores := vector.CosineSimilarity(queryVector, candidates)
	topK := s.ragCfg.TopK
	if topK <= 0 {
		topK = 8
	}
	selectedIdx := vector.TopK(scores, topK)

	// 4. 相似度下限：只有配置了真实生成后端时才启用。
	// 本地哈希向量没有语义刻度，启用下限会让无凭据模式永远答不出东西。
	minSimilarity := 0.0
	if s.llmClient.Configured() {
		minSimilarity = s.ragCfg.MinSimilarity
	}
	var selected []scoredChunk
	for _, idx := range selectedIdx {
		if scores[idx] >= minSimilarity {
			selected = append(selected, scoredChunk{chunk: chunks[idx], score: scores[idx]})
		}
	}
	if len(selected) == 0 {
		log.Infof("[ChatService] 无分块超过相似度下限 %.2f, ProjectID: %d", minSimilarity, project.ID)
		return NoAnswerText, []model.Citation{}, []model.UsedChunk{}, nil
	}

	// 5. 按得分降序重新编号 1..N，构建限定在来源内作答的 prompt
	prompt := buildPrompt(question, selected)

	// 6. 生成回答：远端后端低温度生成；无后端时退化为首位片段 + [1] 标注
	var answer string
	if s.llmClient.Configured() {
		answer, err = s.llmClient.Generate(ctx, prompt)
		if err != nil {
			return "", nil, nil, fmt.Errorf("生成回答失败: %w", err)
		}
	} else {
		answer = fmt.Sprintf("%s [1]", selected[0].chunk.Content)
	}

	// 7. 为每个入选分块构建引用
	citations := make([]model.Citation, 0, len(selected))
	usedChunks := make([]model.UsedChunk, 0, len(selected))
	for _, item := range selected {
		citations = append(citations, model.Citation{
			DocumentID:   item.chunk.DocumentID,
			DocumentName: item.chunk.DocumentName,
			PageNumber:   item.chunk.PageNumber,
			Snippet:      model.Truncate(item.chunk.Content, model.SnippetMaxLen),
		})
		usedChunks = append(usedChunks, model.UsedChunk{
			DocumentID:   item.chunk.DocumentID,
			DocumentName: item.chunk.DocumentName,
			Content:      item.chunk.Content,
			PageNumber:   item.chunk.PageNumber,
			Score:        item.score,
		})
	}

	// 8. 追加两条对话记录并刷新项目活跃时间
	if err := s.appendHistory(project.ID, userID, question, answer, citations); err != nil {
		// 对话记录失败不影响已生成的回答，只记录错误
		log.Errorf("[ChatService] 保存对话历史失败, ProjectID: %d, Error: %v", project.ID, err)
	}
	if err := s.projectRepo.Touch(project.ID); err != nil {
		log.Errorf("[ChatService] 刷新项目活跃时间失败, ProjectID: %d, Error: %v", project.ID, err)
	}

	log.Infof("[ChatService] 回答完成, ProjectID: %d, 引用 %d 条", project.ID, len(citations))
	return answer, citations, usedChunks, nil
}

// GetHistory 返回项目内的对话历史。
func (s *chatService) GetHistory(projectID uint) ([]model.ChatMessage, error) {
	return s.chatRepo.ListByProject(projectID)
}

// scoredChunk 把入选分块和它的相似度得分绑在一起。
type scoredChunk struct {
	chunk repository.EmbeddedChunk
	score float64
}

// buildPrompt 构建限定在编号来源内作答的 prompt。
// 编号与引用一一对应，模型被要求用方括号数字标注出处。
func buildPrompt(question string, selected []scoredChunk) string {
	var sources strings.Builder
	for i, item := range selected {
		if i > 0 {
			sources.WriteString("\n\n")
		}
		sources.WriteString(fmt.Sprintf("[%d] %s", i+1, item.chunk.Content))
	}
	return fmt.Sprintf(
		"You are an AI research assistant. Answer only using the sources. "+
			"If the answer is not in the sources, say \"I don't know.\" "+
			"Cite sources with bracket numbers like [1].\n\n"+
			"Question: %s\n\nSources:\n%s\n\nAnswer:",
		question, sources.String(),
	)
}

// appendHistory 追加问题与回答两条消息，回答附带序列化的引用。
func (s *chatService) appendHistory(projectID, userID uint, question, answer string, citations []model.Citation) error {
	if err := s.chatRepo.Append(&model.ChatMessage{
		ProjectID: projectID,
		UserID:    userID,
		Role:      model.RoleUser,
		Content:   question,
	}); err != nil {
		return err
	}

	sources := make([]interface{}, len(citations))
	for i, c := range citations {
		entry := map[string]interface{}{
			"documentId":   c.DocumentID,
			"documentName": c.DocumentName,
			"snippet":      c.Snippet,
		}
		if c.PageNumber != nil {
			entry["pageNumber"] = *c.PageNumber
		}
		sources[i] = entry
	}
	return s.chatRepo.Append(&model.ChatMessage{
		ProjectID:   projectID,
		UserID:      userID,
		Role:        model.RoleAssistant,
		Content:     answer,
		SourcesJSON: model.JSONMap{"citations": sources},
	})
}
