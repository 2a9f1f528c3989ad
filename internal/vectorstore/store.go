package vectorstore

import (
	"context"
	"crypto/md5"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"talkback-be/internal/pkg/logger"
	"talkback-be/pkg/embedding"
	"talkback-be/pkg/utils"

	"github.com/google/uuid"
)

// ErrIndexNotBuilt signals that no index exists for the (session,
// conversation) pair. Queries degrade to a fixed fallback instead of failing.
var ErrIndexNotBuilt = errors.New("vectorstore: index not built")

// Chunk is one embedded document fragment together with its original text
// and metadata.
type Chunk struct {
	Id     string    `json:"id"`
	Text   string    `json:"text"`
	Source string    `json:"source"`
	Page   int       `json:"page"`
	Vector []float32 `json:"vector"`
}

type persistedIndex struct {
	Chunks []Chunk `json:"chunks"`
}

// Store manages one persisted similarity index per (session, conversation)
// pair. Existence of the index directory on disk is the only signal that a
// knowledge index has been built for the conversation.
type Store struct {
	baseDir  string
	embedder embedding.Provider
	topK     int
	logger   logger.ILogger
}

func NewStore(baseDir string, embedder embedding.Provider, topK int, log logger.ILogger) *Store {
	if topK <= 0 {
		topK = 6
	}
	return &Store{
		baseDir:  baseDir,
		embedder: embedder,
		topK:     topK,
		logger:   log,
	}
}

// IndexPath computes the deterministic on-disk location for the pair.
func (s *Store) IndexPath(sessionId, conversationId string) string {
	return filepath.Join(s.baseDir, fmt.Sprintf("%s_%s_vector_store", sessionId, conversationId))
}

// Drop removes the pair's index directory entirely. Removing an absent
// index is not an error.
func (s *Store) Drop(sessionId, conversationId string) error {
	return os.RemoveAll(s.IndexPath(sessionId, conversationId))
}

func (s *Store) Exists(sessionId, conversationId string) bool {
	_, err := os.Stat(filepath.Join(s.IndexPath(sessionId, conversationId), "index.json"))
	return err == nil
}

// Ingest embeds the given page texts and builds or extends the index for the
// pair. A first ingest creates the index; later ingests append new chunks
// without re-embedding existing ones. Any embedding or I/O failure is fatal
// to this ingest but leaves a previously persisted index untouched: the
// index file is only replaced after the in-memory index is fully updated.
// Returns the total chunk count after the ingest.
func (s *Store) Ingest(ctx context.Context, sessionId, conversationId, source string, pages []string, chunkSize, chunkOverlap int) (int, error) {
	chunks, err := s.embedPages(ctx, source, pages, chunkSize, chunkOverlap)
	if err != nil {
		return 0, err
	}
	if len(chunks) == 0 {
		return 0, fmt.Errorf("vectorstore: document %q produced no chunks", source)
	}

	index := &persistedIndex{}
	if s.Exists(sessionId, conversationId) {
		index, err = s.load(sessionId, conversationId)
		if err != nil {
			return 0, err
		}
	}

	index.Chunks = append(index.Chunks, chunks...)
	if err := s.persist(sessionId, conversationId, index); err != nil {
		return 0, err
	}

	s.logger.Info("VectorStore", "Index persisted", map[string]interface{}{
		"session_id":      sessionId,
		"conversation_id": conversationId,
		"added_chunks":    len(chunks),
		"total_chunks":    len(index.Chunks),
	})
	return len(index.Chunks), nil
}

// Retrieved is one query hit with its similarity score.
type Retrieved struct {
	Chunk Chunk
	Score float64
}

// Query loads the persisted index and returns the top-K most similar chunks
// for the query text. Returns ErrIndexNotBuilt if no index exists.
func (s *Store) Query(ctx context.Context, sessionId, conversationId, query string) ([]Retrieved, error) {
	if !s.Exists(sessionId, conversationId) {
		return nil, ErrIndexNotBuilt
	}

	index, err := s.load(sessionId, conversationId)
	if err != nil {
		return nil, err
	}

	queryVector, err := s.embedder.Generate(ctx, query, embedding.TaskTypeQuery)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	hits := make([]Retrieved, 0, len(index.Chunks))
	for _, chunk := range index.Chunks {
		hits = append(hits, Retrieved{
			Chunk: chunk,
			Score: cosineSimilarity(queryVector, chunk.Vector),
		})
	}
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})

	if len(hits) > s.topK {
		hits = hits[:s.topK]
	}
	return hits, nil
}

// FormatContext joins retrieved chunk texts into a single generation context.
func FormatContext(hits []Retrieved) string {
	texts := make([]string, len(hits))
	for i, hit := range hits {
		texts[i] = hit.Chunk.Text
	}
	return strings.Join(texts, "\n\n")
}

func (s *Store) embedPages(ctx context.Context, source string, pages []string, chunkSize, chunkOverlap int) ([]Chunk, error) {
	var chunks []Chunk
	for pageNum, pageText := range pages {
		if strings.TrimSpace(pageText) == "" {
			continue
		}
		for _, text := range splitPage(pageText, chunkSize, chunkOverlap) {
			vector, err := s.embedder.Generate(ctx, text, embedding.TaskTypeDocument)
			if err != nil {
				return nil, fmt.Errorf("embed chunk (source %s page %d): %w", source, pageNum+1, err)
			}
			chunks = append(chunks, Chunk{
				Id:     chunkId(source, pageNum+1),
				Text:   text,
				Source: source,
				Page:   pageNum + 1,
				Vector: vector,
			})
		}
	}
	return chunks, nil
}

// chunkId derives a unique id from source, position and a random salt so a
// re-ingest of the same page never collides with existing chunks.
func chunkId(source string, page int) string {
	return fmt.Sprintf("%x", md5.Sum([]byte(fmt.Sprintf("%s_%d_%s", source, page, uuid.NewString()))))
}

func (s *Store) load(sessionId, conversationId string) (*persistedIndex, error) {
	raw, err := os.ReadFile(filepath.Join(s.IndexPath(sessionId, conversationId), "index.json"))
	if err != nil {
		return nil, fmt.Errorf("load index: %w", err)
	}

	var index persistedIndex
	if err := json.Unmarshal(raw, &index); err != nil {
		return nil, fmt.Errorf("decode index: %w", err)
	}
	return &index, nil
}

// persist writes the index to a temp file and renames it into place so a
// failure mid-write never clobbers a previously persisted index.
func (s *Store) persist(sessionId, conversationId string, index *persistedIndex) error {
	dir := s.IndexPath(sessionId, conversationId)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}

	raw, err := json.Marshal(index)
	if err != nil {
		return fmt.Errorf("encode index: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "index-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp index: %w", err)
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write temp index: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close temp index: %w", err)
	}

	if err := os.Rename(tmp.Name(), filepath.Join(dir, "index.json")); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace index: %w", err)
	}
	return nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func splitPage(text string, chunkSize, chunkOverlap int) []string {
	return utils.SplitText(text, chunkSize, chunkOverlap)
}
