package port

import (
	"context"

	"eth_history_api/internal/domain"
)

type EipSource interface {
	FetchEips(ctx context.Context) ([]domain.Eip, error)
	// FetchEipEvents returns protocol upgrade events; callers treat them as
	// enrichment.
	FetchEipEvents(ctx context.Context) ([]domain.TimelineEvent, error)
}

type ResearchSource interface {
	FetchTopTopics(ctx context.Context, limit int) ([]domain.ResearchTopic, error)
	FetchCategory(ctx context.Context, slug string) ([]domain.ResearchTopic, error)
	TopicsToEvents(topics []domain.ResearchTopic) []domain.TimelineEvent
}

type BlockSource interface {
	FetchCurrentBlock(ctx context.Context) (domain.BlockInfo, error)
}
