package metrics

import (
	"context"
	"testing"
)

func TestRecordBeforeInitIsNoop(t *testing.T) {
	ctx := context.Background()
	RecordExtraction(ctx, "success", 1.5)
	RecordTranscription(ctx, "failed", 3)
	RecordFetch(ctx, "youtube-oembed", "ok")
}

func TestInit(t *testing.T) {
	if err := Init(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if ExtractionsTotal == nil || ExternalFetchTotal == nil || TranscriptionFallbackTotal == nil {
		t.Fatal("expected instruments to be created")
	}
	RecordExtraction(context.Background(), "insufficient_text", 0.2)
}
