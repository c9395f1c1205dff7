package rag

import (
	"fmt"
	"strings"
	"unicode"
)

// Chunk 表示分块后的文本片段，是检索的最小单元
// 由Chunker产出后不再修改
type Chunk struct {
	Index         int    `json:"index"`
	Text          string `json:"text"`
	SourceLocator string `json:"source_locator"`
	ByteLength    int    `json:"byte_length"`
}

// Chunker 递归文本分块器
// 优先按大的语义边界切分：段落 > 换行 > 词 > 原始字符
type Chunker struct {
	chunkSize    int
	chunkOverlap int
}

// 切分层级，依次降级
var separators = []string{"\n\n", "\n", " "}

// NewChunker 创建分块器，chunkSize与overlap单位为字符（rune）
func NewChunker(chunkSize, overlap int) *Chunker {
	if chunkSize <= 0 {
		chunkSize = 1000
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize / 4
	}
	return &Chunker{
		chunkSize:    chunkSize,
		chunkOverlap: overlap,
	}
}

// span 是原文的一个连续切片，start为rune偏移
type span struct {
	start int
	text  string
}

// Split 将文本切分为带重叠的有序分块
// 相同输入和参数永远产生相同的结果
func (c *Chunker) Split(text string) ([]Chunk, error) {
	return c.SplitWithLocator(text, "")
}

// SplitWithLocator 同Split，locatorPrefix会拼进每个分块的来源定位串
// （例如按页切分PDF时传"page=3"）
func (c *Chunker) SplitWithLocator(text, locatorPrefix string) ([]Chunk, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyInput
	}

	spans := splitRecursive(text, 0, c.budget(), separators)
	merged := c.mergeSpans(text, spans)

	var chunks []Chunk
	for _, s := range merged {
		if !hasContent(s.text) {
			continue
		}
		locator := fmt.Sprintf("offset=%d", s.start)
		if locatorPrefix != "" {
			locator = locatorPrefix + "," + locator
		}
		chunks = append(chunks, Chunk{
			Index:         len(chunks),
			Text:          s.text,
			SourceLocator: locator,
			ByteLength:    len(s.text),
		})
	}

	if len(chunks) == 0 {
		return nil, ErrNoChunksProduced
	}
	return chunks, nil
}

// splitRecursive 把文本拆成不超过maxSize的原子切片
// 找第一个在文本中出现的分隔符来切，切出来仍超长的片段用更小的分隔符继续拆
// 分隔符保留在前一个片段末尾，保证所有切片拼起来就是原文
func splitRecursive(text string, base, maxSize int, seps []string) []span {
	if runeLen(text) <= maxSize {
		return []span{{start: base, text: text}}
	}

	if len(seps) == 0 {
		return hardCut(text, base, maxSize)
	}

	sep := seps[0]
	rest := seps[1:]
	if !strings.Contains(text, sep) {
		return splitRecursive(text, base, maxSize, rest)
	}

	var out []span
	offset := base
	for _, piece := range splitAfter(text, sep) {
		if runeLen(piece) > maxSize {
			out = append(out, splitRecursive(piece, offset, maxSize, rest)...)
		} else {
			out = append(out, span{start: offset, text: piece})
		}
		offset += runeLen(piece)
	}
	return out
}

// hardCut 最后一级降级：按固定rune窗口硬切
func hardCut(text string, base, maxSize int) []span {
	runes := []rune(text)
	var out []span
	for start := 0; start < len(runes); start += maxSize {
		end := start + maxSize
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, span{start: base + start, text: string(runes[start:end])})
	}
	return out
}

// budget 单块的正文预算，扣掉overlap保证带重叠前缀后的块长仍不超过chunkSize
func (c *Chunker) budget() int {
	if b := c.chunkSize - c.chunkOverlap; b > 0 {
		return b
	}
	return c.chunkSize
}

// mergeSpans 贪心合并相邻切片成块，并给非首块补上前一块末尾的overlap字符
func (c *Chunker) mergeSpans(text string, spans []span) []span {
	budget := c.budget()

	runes := []rune(text)
	var merged []span
	i := 0
	for i < len(spans) {
		start := spans[i].start
		end := start + runeLen(spans[i].text)
		i++
		for i < len(spans) {
			next := spans[i].start + runeLen(spans[i].text)
			if next-start > budget {
				break
			}
			end = next
			i++
		}

		contentStart := start
		if len(merged) > 0 && c.chunkOverlap > 0 {
			contentStart = start - c.chunkOverlap
			if prev := merged[len(merged)-1].start; contentStart < prev {
				contentStart = prev
			}
		}
		merged = append(merged, span{start: contentStart, text: string(runes[contentStart:end])})
	}
	return merged
}

// splitAfter 同strings.SplitAfter，去掉末尾可能出现的空串
func splitAfter(text, sep string) []string {
	pieces := strings.SplitAfter(text, sep)
	if n := len(pieces); n > 0 && pieces[n-1] == "" {
		pieces = pieces[:n-1]
	}
	return pieces
}

func runeLen(s string) int {
	return len([]rune(s))
}

func hasContent(s string) bool {
	for _, r := range s {
		if !unicode.IsSpace(r) {
			return true
		}
	}
	return false
}
