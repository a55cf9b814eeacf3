package pipeline

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeWhitespace(t *testing.T) {
	assert.Equal(t, "a b c", NormalizeWhitespace("  a\t b\n\nc  "))
	assert.Equal(t, "", NormalizeWhitespace(" \n\t "))
	assert.Equal(t, "你好 世界", NormalizeWhitespace("你好\n\n世界"))
}

func TestChunkTextShortInput(t *testing.T) {
	chunks := ChunkText("short text", 800, 120)
	require.Len(t, chunks, 1)
	assert.Equal(t, "short text", chunks[0])
}

func TestChunkTextWindowAndOverlap(t *testing.T) {
	// 2000 个字符，窗口 800、步长 680：三个分块，相邻分块共享 120 个字符
	text := strings.Repeat("a", 2000)
	chunks := ChunkText(text, 800, 120)

	require.Len(t, chunks, 3)
	assert.Len(t, []rune(chunks[0]), 800)
	assert.Len(t, []rune(chunks[1]), 800)
	assert.Len(t, []rune(chunks[2]), 640)
}

func TestChunkTextOverlapContent(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 100; i++ {
		sb.WriteString("abcdefghij")
	}
	chunks := ChunkText(sb.String(), 800, 120)

	require.Len(t, chunks, 2)
	first := []rune(chunks[0])
	second := []rune(chunks[1])
	// 第二个分块以第一个分块的最后 overlap 个字符开头
	assert.Equal(t, string(first[len(first)-120:]), string(second[:120]))
}

func TestChunkTextCountsRunesNotBytes(t *testing.T) {
	text := strings.Repeat("界", 1000)
	chunks := ChunkText(text, 800, 0)

	require.Len(t, chunks, 2)
	assert.Len(t, []rune(chunks[0]), 800)
	assert.Len(t, []rune(chunks[1]), 200)
}

func TestChunkTextInvalidOverlapFallsBack(t *testing.T) {
	text := strings.Repeat("x", 100)

	// overlap >= size 会退化为不重叠切分而不是死循环
	chunks := ChunkText(text, 40, 40)
	require.Len(t, chunks, 3)
	assert.Len(t, chunks[2], 20)

	chunks = ChunkText(text, 40, -5)
	require.Len(t, chunks, 3)
}

func TestChunkTextEmptyInput(t *testing.T) {
	assert.Empty(t, ChunkText("", 800, 120))
	assert.Empty(t, ChunkText("   \n\t  ", 800, 120))
}

func TestChunkTextDeterministic(t *testing.T) {
	text := strings.Repeat("determinism matters ", 200)
	assert.Equal(t, ChunkText(text, 800, 120), ChunkText(text, 800, 120))
}

func TestBuildChunksTagsPageNumbers(t *testing.T) {
	pages := []Page{
		{Number: 1, Text: strings.Repeat("a", 900)},
		{Number: 2, Text: "second page"},
		{Number: 3, Text: "   "},
	}
	payloads := BuildChunks(pages, 800, 120)

	require.Len(t, payloads, 3)
	assert.Equal(t, 1, payloads[0].PageNumber)
	assert.Equal(t, 1, payloads[1].PageNumber)
	assert.Equal(t, 2, payloads[2].PageNumber)
	assert.Equal(t, "second page", payloads[2].Content)
}

func TestBuildChunksAllBlankPages(t *testing.T) {
	pages := []Page{{Number: 1, Text: " "}, {Number: 2, Text: "\n"}}
	assert.Empty(t, BuildChunks(pages, 800, 120))
}
