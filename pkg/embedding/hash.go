package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math"
	"math/rand"
)

// DefaultDimensions 是本地哈希向量的缺省维度。
const DefaultDimensions = 384

// HashEmbedder 是无外部依赖的确定性降级方案：
// 用文本的 sha256 摘要作为伪随机数种子生成固定维度的单位向量。
// 相同文本永远映射到相同向量，因此查询与文档块之间可比；
// 但向量不携带语义，检索质量明显低于真实 Embedding 服务。
type HashEmbedder struct {
	dims int
}

// NewHashEmbedder 创建一个本地哈希向量生成器。
func NewHashEmbedder(dims int) *HashEmbedder {
	if dims <= 0 {
		dims = DefaultDimensions
	}
	return &HashEmbedder{dims: dims}
}

// EmbedBatch 为每条文本生成一个确定性的单位向量，顺序与输入一致。
func (h *HashEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = h.embed(text)
	}
	return vectors, nil
}

func (h *HashEmbedder) embed(text string) []float32 {
	digest := sha256.Sum256([]byte(text))
	seed := int64(binary.BigEndian.Uint64(digest[:8]))
	rng := rand.New(rand.NewSource(seed))

	vec := make([]float32, h.dims)
	var norm float64
	for i := range vec {
		v := rng.NormFloat64()
		vec[i] = float32(v)
		norm += v * v
	}

	// L2 归一化；标准正态采样下范数为零的概率可以忽略，但仍做保护
	norm = math.Sqrt(norm)
	if norm == 0 {
		vec[0] = 1
		return vec
	}
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return vec
}
