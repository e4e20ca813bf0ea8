package health

import "context"

// DBPinger checks key-value store availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// EmbeddingChecker checks embedding provider availability.
type EmbeddingChecker interface {
	HealthCheck(ctx context.Context) error
}

// IndexStats reports the live index sizes.
type IndexStats interface {
	DenseLen() int
	SparseLen() int
}

// ChunkCounter reports the stored corpus size.
type ChunkCounter interface {
	Count(ctx context.Context) (int, error)
}
