// Package vector 提供对块向量的暴力最近邻计算。
// 单个项目的分块数量有限，全量扫描足够快；这是已知的规模上限，
// 项目量级显著增长时需要换成真正的向量索引。
package vector

import (
	"math"
	"sort"
)

// epsilon 防止零向量归一化时除零。
const epsilon = 1e-8

// CosineSimilarity 计算查询向量与每个候选向量的余弦相似度。
// 结果顺序与候选顺序一致，取值范围 [-1, 1]。
// 查询向量与候选向量各自做 L2 归一化后取点积。
func CosineSimilarity(query []float32, candidates [][]float32) []float64 {
	scores := make([]float64, len(candidates))
	if len(candidates) == 0 {
		return scores
	}

	q := normalize(query)
	for i, candidate := range candidates {
		scores[i] = dot(q, normalize(candidate))
	}
	return scores
}

// TopK 返回得分最高的 k 个下标，按得分降序排列。
// 同分时维持原始下标顺序（稳定），结果长度为 min(k, len(scores))。
// k <= 0 或空输入返回空切片。
func TopK(scores []float64, k int) []int {
	if k <= 0 || len(scores) == 0 {
		return []int{}
	}

	indices := make([]int, len(scores))
	for i := range indices {
		indices[i] = i
	}
	sort.SliceStable(indices, func(a, b int) bool {
		return scores[indices[a]] > scores[indices[b]]
	})

	if k > len(indices) {
		k = len(indices)
	}
	return indices[:k]
}

func normalize(v []float32) []float64 {
	out := make([]float64, len(v))
	var norm float64
	for i, x := range v {
		out[i] = float64(x)
		norm += float64(x) * float64(x)
	}
	norm = math.Sqrt(norm) + epsilon
	for i := range out {
		out[i] /= norm
	}
	return out
}

func dot(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}
