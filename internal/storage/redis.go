package storage

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"

	logx "quizbot/pkg/logx"
)

// redisStore keeps the leaderboard in Redis:
//   - quizbot:lb:scores  HASH  user_id -> score
//   - quizbot:lb:names   HASH  user_id -> display name
//   - quizbot:lb:seen    SET   user ids that already occupy an order slot
//   - quizbot:lb:order   LIST  user ids in first-award order
//
// The order list is what preserves the tie-break contract (first award wins
// the tie) across restarts; Redis sorted sets break ties lexically, which is
// not what the leaderboard wants.
type redisStore struct {
	client *redis.Client
	log    logx.Logger
}

const (
	redisKeyScores = "quizbot:lb:scores"
	redisKeyNames  = "quizbot:lb:names"
	redisKeySeen   = "quizbot:lb:seen"
	redisKeyOrder  = "quizbot:lb:order"
)

func openRedis(cfg Config, log logx.Logger) (Store, error) {
	if strings.TrimSpace(cfg.Redis.Addr) == "" {
		return nil, errors.New("storage.redis.addr is required for redis driver")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	return &redisStore{client: client, log: log}, nil
}

func (s *redisStore) Close() error {
	return s.client.Close()
}

func (s *redisStore) Award(ctx context.Context, userID int64, name string, delta int) (int, error) {
	if delta < 0 {
		return 0, errors.New("award delta must be >= 0")
	}
	id := strconv.FormatInt(userID, 10)

	total, err := s.client.HIncrBy(ctx, redisKeyScores, id, int64(delta)).Result()
	if err != nil {
		return 0, err
	}
	// SADD is atomic, so exactly one of any concurrent first awards for a
	// new user claims the order slot.
	added, err := s.client.SAdd(ctx, redisKeySeen, id).Result()
	if err != nil {
		s.log.Warn("leaderboard seen-set update failed", logx.Err(err))
	} else if added == 1 {
		if err := s.client.RPush(ctx, redisKeyOrder, id).Err(); err != nil {
			s.log.Warn("leaderboard order push failed", logx.Err(err))
		}
	}
	if name != "" {
		if err := s.client.HSet(ctx, redisKeyNames, id, name).Err(); err != nil {
			s.log.Warn("leaderboard name update failed", logx.Err(err))
		}
	}
	return int(total), nil
}

func (s *redisStore) Snapshot(ctx context.Context) ([]Entry, error) {
	ids, err := s.client.LRange(ctx, redisKeyOrder, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}
	scores, err := s.client.HGetAll(ctx, redisKeyScores).Result()
	if err != nil {
		return nil, err
	}
	names, err := s.client.HGetAll(ctx, redisKeyNames).Result()
	if err != nil {
		return nil, err
	}

	out := make([]Entry, 0, len(ids))
	for _, id := range ids {
		uid, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			continue
		}
		score, _ := strconv.Atoi(scores[id])
		if score < 0 {
			score = 0
		}
		out = append(out, Entry{UserID: uid, Name: names[id], Score: score})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out, nil
}
