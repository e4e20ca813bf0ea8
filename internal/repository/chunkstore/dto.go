package chunkstore

import (
	"github.com/campusmind-ai/campusmind/internal/domain/chunk"
)

// chunkDTO is the stored JSON form of a chunk.
type chunkDTO struct {
	Content        string `json:"content"`
	SourceDocument string `json:"source_document"`
	PageNumber     *int   `json:"page_number,omitempty"`
	ChunkIndex     int    `json:"chunk_index"`
	HeadingText    string `json:"heading_text,omitempty"`
	HeadingLevel   int    `json:"heading_level,omitempty"`
	HeadingNumber  string `json:"heading_number,omitempty"`
	ParentHeading  string `json:"parent_heading,omitempty"`
	IsSubChunk     bool   `json:"is_sub_chunk"`
	SubChunkIndex  int    `json:"sub_chunk_index"`
	TotalSubChunks int    `json:"total_sub_chunks"`
	ChunkType      string `json:"chunk_type"`
	WordCount      int    `json:"word_count"`
	CharCount      int    `json:"char_count"`
}

func toDTO(c chunk.Chunk) chunkDTO {
	return chunkDTO{
		Content:        c.Content(),
		SourceDocument: c.SourceDocument(),
		PageNumber:     c.PageNumber(),
		ChunkIndex:     c.ChunkIndex(),
		HeadingText:    c.HeadingText(),
		HeadingLevel:   c.HeadingLevel(),
		HeadingNumber:  c.HeadingNumber(),
		ParentHeading:  c.ParentHeading(),
		IsSubChunk:     c.IsSubChunk(),
		SubChunkIndex:  c.SubChunkIndex(),
		TotalSubChunks: c.TotalSubChunks(),
		ChunkType:      string(c.ChunkType()),
		WordCount:      c.WordCount(),
		CharCount:      c.CharCount(),
	}
}

func fromDTO(d chunkDTO) chunk.Chunk {
	meta := chunk.HeadingMeta{
		Text:   d.HeadingText,
		Level:  d.HeadingLevel,
		Number: d.HeadingNumber,
		Parent: d.ParentHeading,
	}
	return chunk.Reconstruct(
		d.Content, d.SourceDocument, d.PageNumber, d.ChunkIndex,
		meta, d.IsSubChunk, d.SubChunkIndex, d.TotalSubChunks,
		chunk.Type(d.ChunkType), d.WordCount, d.CharCount,
	)
}
