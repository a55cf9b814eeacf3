package pipeline

import "strings"

// 分块窗口的缺省参数（字符数，按 rune 计）。
const (
	DefaultChunkSize    = 800
	DefaultChunkOverlap = 120
)

// ChunkPayload 是一个待持久化的分块：文本内容与来源页码。
type ChunkPayload struct {
	Content    string
	PageNumber int
}

// NormalizeWhitespace 将连续空白折叠为单个空格并去除首尾空白。
func NormalizeWhitespace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// ChunkText 将一页文本切成带重叠的定长分块。
// 先归一空白，再以 size 为窗口、size-overlap 为步长滑动，
// 丢弃归一后仍为空白的分块。确定性算法，相同输入得到相同输出。
func ChunkText(text string, size, overlap int) []string {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 || overlap >= size {
		// 重叠不合法时退化为不重叠切分
		overlap = 0
	}

	runes := []rune(NormalizeWhitespace(text))
	if len(runes) == 0 {
		return nil
	}

	var chunks []string
	start := 0
	for start < len(runes) {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunk := string(runes[start:end])
		if strings.TrimSpace(chunk) != "" {
			chunks = append(chunks, chunk)
		}
		if end == len(runes) {
			break
		}
		start = end - overlap
		if start < 0 {
			start = 0
		}
	}
	return chunks
}

// BuildChunks 对每一页做切分，并给每个分块打上来源页码，
// 产出按页序排列的扁平序列。
func BuildChunks(pages []Page, size, overlap int) []ChunkPayload {
	var payloads []ChunkPayload
	for _, page := range pages {
		for _, chunk := range ChunkText(page.Text, size, overlap) {
			payloads = append(payloads, ChunkPayload{
				Content:    chunk,
				PageNumber: page.Number,
			})
		}
	}
	return payloads
}
