package github

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/apu-code-collab/apcc-api/internal/domain"
)

// MaxTopics is the number of topics requested per repository.
const MaxTopics = 20

// RepoRef names a repository by owner and name.
type RepoRef struct {
	Owner string
	Name  string
}

const statsFragment = `fragment stats on Repository {
  primaryLanguage { name }
  repositoryTopics(first: 20) { nodes { topic { name } } }
  forkCount
  stargazerCount
  watchers { totalCount }
  issues(states: OPEN) { totalCount }
}`

type repoNode struct {
	PrimaryLanguage *struct {
		Name string `json:"name"`
	} `json:"primaryLanguage"`
	RepositoryTopics struct {
		Nodes []struct {
			Topic struct {
				Name string `json:"name"`
			} `json:"topic"`
		} `json:"nodes"`
	} `json:"repositoryTopics"`
	ForkCount      int `json:"forkCount"`
	StargazerCount int `json:"stargazerCount"`
	Watchers       struct {
		TotalCount int `json:"totalCount"`
	} `json:"watchers"`
	Issues struct {
		TotalCount int `json:"totalCount"`
	} `json:"issues"`
}

func (n *repoNode) toStats() *domain.RepositoryStats {
	stats := &domain.RepositoryStats{
		Topics:           make([]string, 0, len(n.RepositoryTopics.Nodes)),
		ForksCount:       n.ForkCount,
		StargazersCount:  n.StargazerCount,
		SubscribersCount: n.Watchers.TotalCount,
		OpenIssuesCount:  n.Issues.TotalCount,
	}
	if n.PrimaryLanguage != nil && n.PrimaryLanguage.Name != "" {
		lang := n.PrimaryLanguage.Name
		stats.Language = &lang
	}
	for _, t := range n.RepositoryTopics.Nodes {
		stats.Topics = append(stats.Topics, t.Topic.Name)
	}
	return stats
}

// buildStatsQuery returns one aliased repository selection per ref, with
// owner and name passed as variables.
func buildStatsQuery(refs []RepoRef) (string, map[string]any) {
	vars := make(map[string]any, len(refs)*2)
	var params, body strings.Builder

	for i, ref := range refs {
		if i > 0 {
			params.WriteString(", ")
		}
		fmt.Fprintf(&params, "$o%d: String!, $n%d: String!", i, i)
		fmt.Fprintf(&body, "  r%d: repository(owner: $o%d, name: $n%d) { ...stats }\n", i, i, i)
		vars[fmt.Sprintf("o%d", i)] = ref.Owner
		vars[fmt.Sprintf("n%d", i)] = ref.Name
	}

	query := "query(" + params.String() + ") {\n" + body.String() + "}\n" + statsFragment
	return query, vars
}

// RepositoryStats fetches live statistics for refs in a single GraphQL
// request. The result is index-aligned with refs; a repository GitHub does
// not know yields nil.
func (c *Client) RepositoryStats(ctx context.Context, refs []RepoRef) ([]*domain.RepositoryStats, error) {
	if len(refs) == 0 {
		return nil, nil
	}

	ctx, span := c.tracer.Start(ctx, "github.graphql_stats",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.Int("github.repositories", len(refs))),
	)
	defer span.End()

	start := time.Now()
	stats, err := c.repositoryStats(ctx, refs)
	c.metrics.RecordGitHubCall("graphql_stats", err, time.Since(start))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return stats, err
}

func (c *Client) repositoryStats(ctx context.Context, refs []RepoRef) ([]*domain.RepositoryStats, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	query, vars := buildStatsQuery(refs)
	payload, err := json.Marshal(map[string]any{"query": query, "variables": vars})
	if err != nil {
		return nil, fmt.Errorf("graphql: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.graphqlURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("graphql: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("graphql: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if err := c.rateLimiter.CheckRateLimit(resp); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("graphql: read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(body)), URL: c.graphqlURL}
	}

	var out struct {
		Data   map[string]*repoNode `json:"data"`
		Errors GraphQLErrors        `json:"errors"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("graphql: decode response: %w", err)
	}

	// NOT_FOUND entries only null out their alias; anything else fails
	// the batch.
	for _, e := range out.Errors {
		if e.Type != "NOT_FOUND" {
			return nil, out.Errors
		}
	}
	if out.Data == nil {
		return nil, GraphQLErrors{{Message: "empty data"}}
	}

	result := make([]*domain.RepositoryStats, len(refs))
	for i := range refs {
		if node := out.Data[fmt.Sprintf("r%d", i)]; node != nil {
			result[i] = node.toStats()
		}
	}
	return result, nil
}
