package handler

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"ai-research-go/internal/model"
	"ai-research-go/internal/service"
	"ai-research-go/pkg/log"
	"ai-research-go/pkg/token"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // 允许所有来源
	},
}

// streamDelay 是流式回放时相邻词之间的间隔。
const streamDelay = 20 * time.Millisecond

// ChatHandler 负责处理项目内的问答请求，包括普通 HTTP 与 WebSocket 流式两种形态。
type ChatHandler struct {
	chatService    service.ChatService
	projectService service.ProjectService
	userService    service.UserService
	jwtManager     *token.JWTManager
}

// NewChatHandler 创建一个新的 ChatHandler 实例。
func NewChatHandler(
	chatService service.ChatService,
	projectService service.ProjectService,
	userService service.UserService,
	jwtManager *token.JWTManager,
) *ChatHandler {
	return &ChatHandler{
		chatService:    chatService,
		projectService: projectService,
		userService:    userService,
		jwtManager:     jwtManager,
	}
}

// ChatRequest 定义了问答 API 的请求体结构。
type ChatRequest struct {
	Question string `json:"question" binding:"required"`
}

// ownedProject 校验路径中的项目属于当前用户，与文档路由保持同样的 404 语义。
func (h *ChatHandler) ownedProject(c *gin.Context) (*model.Project, bool) {
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

// Chat 处理一次完整的问答请求，同步返回回答与引用来源。
func (h *ChatHandler) Chat(c *gin.Context) {
	project, ok := h.ownedProject(c)
	if !ok {
		return
	}

	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    http.StatusBadRequest,
			"message": "无效的请求负载：question 不能为空",
		})
		return
	}

	user := c.MustGet("user").(*model.User)
	answer, citations, usedChunks, err := h.chatService.Answer(c.Request.Context(), project, user.ID, req.Question)
	if err != nil {
		log.Errorf("Chat failed for project %d: %v", project.ID, err)
		c.JSON(http.StatusBadGateway, gin.H{
			"code":    http.StatusBadGateway,
			"message": "AI 服务暂时不可用，请稍后重试",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "success",
		"data": gin.H{
			"answer":     answer,
			"citations":  citations,
			"usedChunks": usedChunks,
		},
	})
}

// GetHistory 返回项目的完整对话记录，按时间升序。
func (h *ChatHandler) GetHistory(c *gin.Context) {
	project, ok := h.ownedProject(c)
	if !ok {
		return
	}

	messages, err := h.chatService.GetHistory(project.ID)
	if err != nil {
		log.Errorf("GetHistory failed for project %d: %v", project.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    http.StatusInternalServerError,
			"message": "获取对话记录失败",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "success",
		"data":    messages,
	})
}

// wsQuestion 是 WebSocket 连接上的一条问题消息。
type wsQuestion struct {
	ProjectID uint   `json:"projectId"`
	Question  string `json:"question"`
}

// Handle 处理一个传入的 WebSocket 连接。
// 与 HTTP 形态使用相同的问答流程，只是把最终回答按词切分后逐条回放，
// 最后再发送一条携带引用来源的 completion 事件。
func (h *ChatHandler) Handle(c *gin.Context) {
	tokenString := c.Param("token")
	claims, err := h.jwtManager.VerifyToken(tokenString)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"code": http.StatusUnauthorized, "message": "无效的 token", "data": nil})
		return
	}

	user, err := h.userService.GetProfile(claims.Username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "无法获取用户信息", "data": nil})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("WebSocket 升级失败", err)
		return
	}
	defer conn.Close()

	log.Infof("WebSocket 连接已建立，用户: %s", claims.Username)

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			log.Warnf("从 WebSocket 读取消息失败: %v", err)
			break
		}

		var q wsQuestion
		if err := json.Unmarshal(message, &q); err != nil || q.Question == "" || q.ProjectID == 0 {
			h.writeEvent(conn, gin.H{"type": "error", "message": "无效的消息格式，需要 projectId 与 question"})
			continue
		}

		project, err := h.projectService.FindOwned(q.ProjectID, user.ID)
		if err != nil {
			h.writeEvent(conn, gin.H{"type": "error", "message": "Project not found"})
			continue
		}

		answer, citations, _, err := h.chatService.Answer(c.Request.Context(), project, user.ID, q.Question)
		if err != nil {
			log.Errorf("处理流式问答失败: %v", err)
			h.writeEvent(conn, gin.H{"type": "error", "message": "AI 服务暂时不可用，请稍后重试"})
			h.writeCompletion(conn, nil)
			continue
		}

		h.streamAnswer(conn, answer)
		h.writeCompletion(conn, citations)
	}
}

// streamAnswer 将回答文本按词逐条写出，模拟生成过程。
func (h *ChatHandler) streamAnswer(conn *websocket.Conn, answer string) {
	words := strings.Fields(answer)
	for i, word := range words {
		chunk := word
		if i < len(words)-1 {
			chunk += " "
		}
		if err := h.writeEvent(conn, gin.H{"type": "chunk", "content": chunk}); err != nil {
			log.Warnf("写出流式分片失败: %v", err)
			return
		}
		time.Sleep(streamDelay)
	}
}

// writeCompletion 发送终止事件，附带本次回答的引用来源。
func (h *ChatHandler) writeCompletion(conn *websocket.Conn, citations []model.Citation) {
	if citations == nil {
		citations = []model.Citation{}
	}
	if err := h.writeEvent(conn, gin.H{
		"type":      "completion",
		"status":    "finished",
		"citations": citations,
		"timestamp": time.Now().UnixMilli(),
	}); err != nil {
		log.Warnf("写出 completion 事件失败: %v", err)
	}
}

func (h *ChatHandler) writeEvent(conn *websocket.Conn, payload gin.H) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, b)
}
