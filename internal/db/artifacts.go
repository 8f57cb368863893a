package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jonathan/arxiv-digest/internal/types"
)

// Stage constants for known artifact types
const (
	StageCandidates = "candidates"
	StageScored     = "scored_papers"
	StageDigest     = "digest"
)

// SaveArtifact stores a JSON artifact for a run, replacing any previous
// artifact for the same stage
func (db *DB) SaveArtifact(ctx context.Context, runID uuid.UUID, stage string, content any) error {
	jsonBytes, err := json.Marshal(content)
	if err != nil {
		return fmt.Errorf("failed to marshal artifact: %w", err)
	}

	_, err = db.pool.Exec(ctx,
		`INSERT INTO run_artifacts (run_id, stage, content)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (run_id, stage) DO UPDATE SET content = $3, created_at = NOW()`,
		runID, stage, jsonBytes,
	)
	if err != nil {
		return fmt.Errorf("failed to save artifact %s: %w", stage, err)
	}
	return nil
}

// GetArtifact retrieves a JSON artifact by run ID and stage
func (db *DB) GetArtifact(ctx context.Context, runID uuid.UUID, stage string) ([]byte, error) {
	var content []byte
	err := db.pool.QueryRow(ctx,
		`SELECT content FROM run_artifacts WHERE run_id = $1 AND stage = $2`,
		runID, stage,
	).Scan(&content)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get artifact %s: %w", stage, err)
	}
	return content, nil
}

// GetDigest retrieves the composed digest document for a run
func (db *DB) GetDigest(ctx context.Context, runID uuid.UUID) (*types.DigestDocument, error) {
	content, err := db.GetArtifact(ctx, runID, StageDigest)
	if err != nil {
		return nil, err
	}
	if content == nil {
		return nil, nil
	}

	var digest types.DigestDocument
	if err := json.Unmarshal(content, &digest); err != nil {
		return nil, fmt.Errorf("failed to decode digest artifact: %w", err)
	}
	return &digest, nil
}
