package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"sync"
	"time"

	"anxiety-quiz-bot/internal/domain"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// QuestionnaireLoader fetches questionnaire content from a backing store (e.g. Postgres).
type QuestionnaireLoader interface {
	LoadQuestionnaire(ctx context.Context, id string) (domain.Questionnaire, error)
}

// QuestionnaireCache is a read-through Redis cache in front of a QuestionnaireLoader.
// The questionnaire is stored as JSON under quiz:questionnaire:{id}.
// Redis failures degrade to the loader; they are never fatal on the read path.
type QuestionnaireCache struct {
	client redis.UniversalClient
	loader QuestionnaireLoader
	ttl    time.Duration
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewQuestionnaireCache(client redis.UniversalClient, loader QuestionnaireLoader, ttl time.Duration) *QuestionnaireCache {
	return &QuestionnaireCache{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *QuestionnaireCache) LoadQuestionnaire(ctx context.Context, id string) (domain.Questionnaire, error) {
	if q, ok := c.fromCache(ctx, id); ok {
		return q, nil
	}

	result, err, _ := c.sf.Do(id, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if q, ok := c.fromCache(ctx, id); ok {
			return q, nil
		}

		q, err := c.loader.LoadQuestionnaire(ctx, id)
		if err != nil {
			return domain.Questionnaire{}, err
		}
		if err := q.Validate(); err != nil {
			return domain.Questionnaire{}, err
		}

		if raw, err := json.Marshal(q); err == nil {
			_ = c.client.Set(ctx, c.key(id), raw, c.ttlWithJitter()).Err()
		}
		return q, nil
	})
	if err != nil {
		return domain.Questionnaire{}, err
	}
	return result.(domain.Questionnaire), nil
}

// Invalidate drops the cached copy so the next load hits the backing store.
func (c *QuestionnaireCache) Invalidate(ctx context.Context, id string) error {
	return c.client.Del(ctx, c.key(id)).Err()
}

func (c *QuestionnaireCache) fromCache(ctx context.Context, id string) (domain.Questionnaire, bool) {
	raw, err := c.client.Get(ctx, c.key(id)).Bytes()
	if err != nil {
		return domain.Questionnaire{}, false
	}
	var q domain.Questionnaire
	if err := json.Unmarshal(raw, &q); err != nil || q.Validate() != nil {
		return domain.Questionnaire{}, false
	}
	return q, true
}

func (c *QuestionnaireCache) key(id string) string {
	return "quiz:questionnaire:" + id
}

func (c *QuestionnaireCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	c.rndMu.Lock()
	defer c.rndMu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
