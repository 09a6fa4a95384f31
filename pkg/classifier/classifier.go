package classifier

import (
	"context"
	"log/slog"
	"sort"
	"unicode/utf8"

	"github.com/xhad/newsbrief/internal/models"
	"github.com/xhad/newsbrief/internal/types"
)

type ClassifierConfig struct {
	ChunkSize     int
	MaxCandidates int
	Logger        *slog.Logger
}

// Classifier runs a LinkClassifier over bounded chunks of candidates and
// maps the chunk-local answers back to candidate positions.
type Classifier struct {
	config ClassifierConfig
	llm    types.LinkClassifier
	logger *slog.Logger
}

// Result aggregates one classification run. Items carry global indices.
type Result struct {
	Items        []models.ClassifiedItem
	Chunks       int
	FailedChunks int
	OutOfRange   int
}

func NewWithConfig(llm types.LinkClassifier, config ClassifierConfig) *Classifier {
	if config.ChunkSize <= 0 {
		config.ChunkSize = 10
	}
	if config.MaxCandidates < 0 {
		config.MaxCandidates = 0
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	return &Classifier{
		config: config,
		llm:    llm,
		logger: config.Logger.With("component", "classifier"),
	}
}

// Candidates caps links to the configured maximum.
func (c *Classifier) Candidates(links []models.Link) []models.Link {
	return SelectCandidates(links, c.config.MaxCandidates)
}

// SelectCandidates returns the max links with the longest text. Equal
// lengths keep their original order. max <= 0 keeps every link.
func SelectCandidates(links []models.Link, max int) []models.Link {
	sorted := make([]models.Link, len(links))
	copy(sorted, links)

	sort.SliceStable(sorted, func(i, j int) bool {
		return utf8.RuneCountInString(sorted[i].Text) > utf8.RuneCountInString(sorted[j].Text)
	})

	if max > 0 && len(sorted) > max {
		sorted = sorted[:max]
	}
	return sorted
}

// Classify submits candidates chunk by chunk. A failing chunk is logged and
// contributes nothing; the remaining chunks still run. Only a cancelled
// context stops the run early.
func (c *Classifier) Classify(ctx context.Context, candidates []models.Link) (Result, error) {
	var res Result

	for k, chunk := range splitIntoChunks(candidates, c.config.ChunkSize) {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		res.Chunks++

		offset := k * c.config.ChunkSize
		texts := make([]string, len(chunk))
		for i, link := range chunk {
			texts[i] = link.Text
		}

		items, err := c.llm.Classify(ctx, texts)
		if err != nil {
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			res.FailedChunks++
			c.logger.Warn("chunk classification failed",
				"chunk", k,
				"offset", offset,
				"size", len(chunk),
				"error", err,
			)
			continue
		}

		for _, item := range items {
			if item.Index < 0 || item.Index >= len(chunk) {
				res.OutOfRange++
				c.logger.Debug("classifier index out of range",
					"chunk", k,
					"index", item.Index,
					"size", len(chunk),
				)
				continue
			}
			item.Index += offset
			res.Items = append(res.Items, item)
		}

		c.logger.Debug("chunk classified", "chunk", k, "selected", len(items))
	}

	c.logger.Info("classification finished",
		"candidates", len(candidates),
		"chunks", res.Chunks,
		"failed_chunks", res.FailedChunks,
		"selected", len(res.Items),
		"out_of_range", res.OutOfRange,
	)

	return res, nil
}

func splitIntoChunks(links []models.Link, size int) [][]models.Link {
	var chunks [][]models.Link

	for start := 0; start < len(links); start += size {
		end := start + size
		if end > len(links) {
			end = len(links)
		}
		chunks = append(chunks, links[start:end])
	}

	return chunks
}
