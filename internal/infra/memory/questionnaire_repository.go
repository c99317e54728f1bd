package memory

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"sync"
	"time"

	"anxiety-quiz-bot/internal/domain"
	"golang.org/x/sync/singleflight"
	"gopkg.in/yaml.v3"
)

// QuestionnaireLoader fetches the question set from a backing store.
type QuestionnaireLoader interface {
	LoadQuestionnaire(ctx context.Context, id string) (domain.Questionnaire, error)
}

// QuestionnaireRepository caches the configured questionnaire with TTL to avoid repeated loads.
type QuestionnaireRepository struct {
	id     string
	loader QuestionnaireLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu     sync.RWMutex
	cached *cachedQuestionnaire
}

type cachedQuestionnaire struct {
	questionnaire domain.Questionnaire
	expiresAt     time.Time
}

func NewQuestionnaireRepository(id string, loader QuestionnaireLoader, ttl time.Duration) *QuestionnaireRepository {
	return &QuestionnaireRepository{
		id:     id,
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *QuestionnaireRepository) GetQuestionnaire(ctx context.Context) (domain.Questionnaire, error) {
	if q, ok := r.fromCache(r.clock()); ok {
		return q, nil
	}

	result, err, _ := r.sf.Do(r.id, func() (interface{}, error) {
		now := r.clock()
		if q, ok := r.fromCache(now); ok {
			return q, nil
		}

		q, err := r.loader.LoadQuestionnaire(ctx, r.id)
		if err != nil {
			return domain.Questionnaire{}, err
		}
		if err := q.Validate(); err != nil {
			return domain.Questionnaire{}, err
		}

		r.mu.Lock()
		r.cached = &cachedQuestionnaire{
			questionnaire: q,
			expiresAt:     now.Add(r.ttlWithJitter()),
		}
		r.mu.Unlock()
		return q, nil
	})
	if err != nil {
		return domain.Questionnaire{}, err
	}
	return result.(domain.Questionnaire), nil
}

func (r *QuestionnaireRepository) fromCache(now time.Time) (domain.Questionnaire, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.cached == nil {
		return domain.Questionnaire{}, false
	}
	if r.ttl > 0 && !r.cached.expiresAt.After(now) {
		return domain.Questionnaire{}, false
	}
	return r.cached.questionnaire, true
}

func (r *QuestionnaireRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// StaticQuestionnaireLoader serves questionnaires held in memory (built-in set, files, tests).
type StaticQuestionnaireLoader struct {
	questionnaires map[string]domain.Questionnaire
}

func NewStaticQuestionnaireLoader(questionnaires ...domain.Questionnaire) *StaticQuestionnaireLoader {
	m := make(map[string]domain.Questionnaire, len(questionnaires))
	for _, q := range questionnaires {
		m[q.ID] = q
	}
	return &StaticQuestionnaireLoader{questionnaires: m}
}

// LoadQuestionnaireFile reads a YAML questionnaire, e.g. config/questions.yaml.
func LoadQuestionnaireFile(path string) (domain.Questionnaire, error) {
	var q domain.Questionnaire
	data, err := os.ReadFile(path)
	if err != nil {
		return q, fmt.Errorf("read questionnaire: %w", err)
	}
	if err := yaml.Unmarshal(data, &q); err != nil {
		return q, fmt.Errorf("decode questionnaire %s: %w", path, err)
	}
	if err := q.Validate(); err != nil {
		return q, err
	}
	return q, nil
}

func (l *StaticQuestionnaireLoader) LoadQuestionnaire(_ context.Context, id string) (domain.Questionnaire, error) {
	if q, ok := l.questionnaires[id]; ok {
		return q, nil
	}
	return domain.Questionnaire{}, fmt.Errorf("%w: %s", domain.ErrQuestionnaireNotFound, id)
}
