package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/open-edge-insights/video-common/internal/domain/entity"
)

type EventRepository struct {
	pool *pgxpool.Pool
}

func NewEventRepository(pool *pgxpool.Pool) *EventRepository {
	return &EventRepository{pool: pool}
}

func (r *EventRepository) Record(ctx context.Context, ev *entity.KeyFrameEvent) error {
	meta, err := json.Marshal(ev.Meta)
	if err != nil {
		return fmt.Errorf("marshal event metadata: %w", err)
	}

	query := `
		INSERT INTO key_frame_events (
			id, frame_id, stage_name, user_data,
			width, height, metadata, detected_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`

	_, err = r.pool.Exec(ctx, query,
		ev.ID, ev.FrameID, ev.StageName, ev.UserData,
		ev.Width, ev.Height, meta, ev.DetectedAt,
	)
	if err != nil {
		return fmt.Errorf("insert key frame event: %w", err)
	}
	return nil
}

func (r *EventRepository) FindByFrameID(ctx context.Context, frameID uuid.UUID) (*entity.KeyFrameEvent, error) {
	query := `
		SELECT id, frame_id, stage_name, user_data,
			width, height, metadata, detected_at
		FROM key_frame_events WHERE frame_id=$1`

	ev := &entity.KeyFrameEvent{}
	var meta []byte
	err := r.pool.QueryRow(ctx, query, frameID).Scan(
		&ev.ID, &ev.FrameID, &ev.StageName, &ev.UserData,
		&ev.Width, &ev.Height, &meta, &ev.DetectedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("find event by frame id: %w", err)
	}
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &ev.Meta); err != nil {
			return nil, fmt.Errorf("unmarshal event metadata: %w", err)
		}
	}
	return ev, nil
}
