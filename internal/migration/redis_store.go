package migration

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/personaforge/personaforge-backend/internal/platform/logger"
)

const (
	progressKeyPrefix = "migration:progress:"
	activeKeyPrefix   = "migration:active:"
)

// RedisProgressStore shares job progress across instances. Progress entries
// carry a TTL; the per-owner active index is pruned as members expire.
type RedisProgressStore struct {
	rdb *goredis.Client
	ttl time.Duration
	log *logger.Logger
}

func NewRedisProgressStore(rdb *goredis.Client, ttl time.Duration, baseLog *logger.Logger) *RedisProgressStore {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RedisProgressStore{
		rdb: rdb,
		ttl: ttl,
		log: baseLog.With("component", "RedisProgressStore"),
	}
}

func progressKey(jobID uuid.UUID) string {
	return progressKeyPrefix + jobID.String()
}

func activeKey(ownerID uuid.UUID) string {
	return activeKeyPrefix + ownerID.String()
}

func (s *RedisProgressStore) write(ctx context.Context, p *Progress) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal progress: %w", err)
	}
	if err := s.rdb.Set(ctx, progressKey(p.JobID), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("write progress: %w", err)
	}
	return nil
}

func (s *RedisProgressStore) Create(ctx context.Context, p *Progress) error {
	if err := s.write(ctx, p); err != nil {
		return err
	}
	pipe := s.rdb.Pipeline()
	pipe.SAdd(ctx, activeKey(p.OwnerID), p.JobID.String())
	pipe.Expire(ctx, activeKey(p.OwnerID), s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("index active job: %w", err)
	}
	return nil
}

func (s *RedisProgressStore) Update(ctx context.Context, p *Progress) error {
	if err := s.write(ctx, p); err != nil {
		return err
	}
	if !p.active() {
		if err := s.rdb.SRem(ctx, activeKey(p.OwnerID), p.JobID.String()).Err(); err != nil {
			s.log.Warn("could not drop job from active index", "job_id", p.JobID, "error", err)
		}
	}
	return nil
}

func (s *RedisProgressStore) Get(ctx context.Context, jobID uuid.UUID) (*Progress, error) {
	raw, err := s.rdb.Get(ctx, progressKey(jobID)).Bytes()
	if err == goredis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read progress: %w", err)
	}
	var p Progress
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("decode progress: %w", err)
	}
	return &p, nil
}

func (s *RedisProgressStore) ListActive(ctx context.Context, ownerID uuid.UUID) ([]*Progress, error) {
	members, err := s.rdb.SMembers(ctx, activeKey(ownerID)).Result()
	if err != nil {
		return nil, fmt.Errorf("read active index: %w", err)
	}
	out := []*Progress{}
	for _, member := range members {
		jobID, err := uuid.Parse(member)
		if err != nil {
			continue
		}
		p, err := s.Get(ctx, jobID)
		if err == ErrNotFound {
			// Expired entry still indexed; prune it.
			_ = s.rdb.SRem(ctx, activeKey(ownerID), member).Err()
			continue
		}
		if err != nil {
			return nil, err
		}
		if p.active() {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *RedisProgressStore) Delete(ctx context.Context, jobID uuid.UUID) error {
	p, err := s.Get(ctx, jobID)
	if err == ErrNotFound {
		return nil
	}
	if err != nil {
		return err
	}
	pipe := s.rdb.Pipeline()
	pipe.Del(ctx, progressKey(jobID))
	pipe.SRem(ctx, activeKey(p.OwnerID), jobID.String())
	_, err = pipe.Exec(ctx)
	return err
}
