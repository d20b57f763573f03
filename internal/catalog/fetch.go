package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	logx "leetbot/pkg/logx"
)

const (
	defaultGraphQLURL = "https://leetcode.com/graphql"
	defaultTimeout    = 30 * time.Second

	// LeetCode rejects requests without a browser-looking UA.
	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

	problemURLPrefix = "https://leetcode.com/problems/"
)

const allQuestionsQuery = `
{
    allQuestions {
        title
        titleSlug
        difficulty
        questionId
        isPaidOnly
    }
}
`

// ProblemAdder is the slice of the store the fetcher needs.
type ProblemAdder interface {
	AddProblem(ctx context.Context, p Problem) (int64, error)
}

// FetcherConfig configures the remote catalog client.
type FetcherConfig struct {
	GraphQLURL string        // default: the LeetCode GraphQL endpoint
	Timeout    time.Duration // default: 30s
}

// Fetcher pulls the full question list from LeetCode and upserts every
// free (non-paid) question into the store.
type Fetcher struct {
	cfg   FetcherConfig
	store ProblemAdder
	http  *http.Client
	log   logx.Logger
}

func NewFetcher(cfg FetcherConfig, store ProblemAdder, log logx.Logger) *Fetcher {
	if strings.TrimSpace(cfg.GraphQLURL) == "" {
		cfg.GraphQLURL = defaultGraphQLURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Fetcher{
		cfg:   cfg,
		store: store,
		http:  &http.Client{Timeout: cfg.Timeout},
		log:   log,
	}
}

type gqlQuestion struct {
	Title      string `json:"title"`
	TitleSlug  string `json:"titleSlug"`
	Difficulty string `json:"difficulty"`
	QuestionID string `json:"questionId"`
	IsPaidOnly bool   `json:"isPaidOnly"`
}

type gqlResponse struct {
	Data struct {
		AllQuestions []gqlQuestion `json:"allQuestions"`
	} `json:"data"`
}

// FetchAll fetches the full catalog once and upserts every free question.
// On any transport or payload error the store is left unchanged. There is
// no retry; the next scheduled cycle fetches from scratch.
func (f *Fetcher) FetchAll(ctx context.Context) (added, total int, err error) {
	body, err := json.Marshal(map[string]string{"query": allQuestionsQuery})
	if err != nil {
		return 0, 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.cfg.GraphQLURL, bytes.NewReader(body))
	if err != nil {
		return 0, 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.http.Do(req)
	if err != nil {
		return 0, 0, fmt.Errorf("fetch catalog: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, 0, fmt.Errorf("fetch catalog: unexpected status %d", resp.StatusCode)
	}

	var out gqlResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, 0, fmt.Errorf("fetch catalog: decode: %w", err)
	}
	questions := out.Data.AllQuestions
	if len(questions) == 0 {
		return 0, 0, fmt.Errorf("fetch catalog: empty question list")
	}

	for _, q := range questions {
		if q.IsPaidOnly {
			continue
		}
		p, ok := f.toProblem(q)
		if !ok {
			continue
		}
		if _, err := f.store.AddProblem(ctx, p); err != nil {
			return added, len(questions), fmt.Errorf("upsert problem %d: %w", p.LeetCodeID, err)
		}
		added++
	}

	f.log.Info("catalog refreshed", logx.Int("free", added), logx.Int("total", len(questions)))
	return added, len(questions), nil
}

func (f *Fetcher) toProblem(q gqlQuestion) (Problem, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(q.QuestionID), 10, 64)
	if err != nil {
		f.log.Warn("skipping question with bad id", logx.String("question_id", q.QuestionID))
		return Problem{}, false
	}
	tier, err := ParseTier(q.Difficulty)
	if err != nil {
		f.log.Warn("skipping question with bad difficulty", logx.Int64("id", id), logx.String("difficulty", q.Difficulty))
		return Problem{}, false
	}
	if q.Title == "" || q.TitleSlug == "" {
		return Problem{}, false
	}
	return Problem{
		LeetCodeID: id,
		Title:      q.Title,
		Tier:       tier,
		URL:        problemURLPrefix + q.TitleSlug + "/",
	}, true
}
