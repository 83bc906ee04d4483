package redis

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
	"oshiquiz/internal/app"
	"oshiquiz/internal/domain"
)

// CatalogCache keeps quiz content as JSON in Redis and falls back to the
// loader on a miss. Content is stored as: SET quiz:{quizID}:content {json}
type CatalogCache struct {
	client *redis.Client
	loader app.Catalog
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
	rndMu  sync.Mutex
}

var _ app.CatalogCache = (*CatalogCache)(nil)

func NewCatalogCache(client *redis.Client, loader app.Catalog, ttl time.Duration) *CatalogCache {
	return &CatalogCache{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *CatalogCache) GetQuiz(ctx context.Context, quizID int64) (domain.Quiz, error) {
	if quiz, ok := c.cached(ctx, quizID); ok {
		return quiz, nil
	}

	key := strconv.FormatInt(quizID, 10)
	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		// another caller may have filled it while we waited
		if quiz, ok := c.cached(ctx, quizID); ok {
			return quiz, nil
		}

		quiz, err := c.loader.GetQuiz(ctx, quizID)
		if err != nil {
			return domain.Quiz{}, err
		}

		raw, err := json.Marshal(quiz)
		if err != nil {
			return quiz, nil
		}
		if err := c.client.Set(ctx, contentKey(quizID), raw, c.ttlWithJitter()).Err(); err != nil {
			log.Warn().Err(err).Int64("quiz_id", quizID).Msg("quiz not cached")
		}
		return quiz, nil
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	return result.(domain.Quiz), nil
}

// Invalidate deletes the cached content of a quiz.
func (c *CatalogCache) Invalidate(ctx context.Context, quizID int64) error {
	return c.client.Del(ctx, contentKey(quizID)).Err()
}

func (c *CatalogCache) cached(ctx context.Context, quizID int64) (domain.Quiz, bool) {
	raw, err := c.client.Get(ctx, contentKey(quizID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Warn().Err(err).Int64("quiz_id", quizID).Msg("quiz cache read failed")
		}
		return domain.Quiz{}, false
	}
	var quiz domain.Quiz
	if err := json.Unmarshal(raw, &quiz); err != nil {
		return domain.Quiz{}, false
	}
	return quiz, true
}

func contentKey(quizID int64) string {
	return "quiz:" + strconv.FormatInt(quizID, 10) + ":content"
}

func (c *CatalogCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	c.rndMu.Lock()
	defer c.rndMu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
