package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	gh "github.com/google/go-github/v68/github"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/apu-code-collab/apcc-api/internal/domain"
	"github.com/apu-code-collab/apcc-api/internal/github"
	"github.com/apu-code-collab/apcc-api/internal/repository"
	"github.com/apu-code-collab/apcc-api/internal/utils"
)

// GraphQLBreaker is the circuit breaker guarding stats hydration.
const GraphQLBreaker = "github-graphql"

// hydrationConcurrency bounds the GraphQL requests of one page.
const hydrationConcurrency = 4

// RepositoryServiceImpl implements RepositoryService.
type RepositoryServiceImpl struct {
	repos   *repository.Repositories
	clients GitHubClients
	cache   CacheService // Optional cache service
	breaker *utils.CircuitBreaker
}

// NewRepositoryService creates the GitHub repository service.
func NewRepositoryService(repos *repository.Repositories, clients GitHubClients) *RepositoryServiceImpl {
	return &RepositoryServiceImpl{
		repos:   repos,
		clients: clients,
		breaker: utils.GetCircuitBreaker(GraphQLBreaker, utils.CircuitBreakerConfig{
			FailureThreshold: 5,
			ResetTimeout:     30 * time.Second,
			CallTimeout:      10 * time.Second,
		}),
	}
}

// SetCacheService sets the stats cache.
func (s *RepositoryServiceImpl) SetCacheService(cache CacheService) {
	s.cache = cache
}

// Register confirms the repository with the owner's GitHub token, merges the
// GitHub metadata into the request and stores the result.
func (s *RepositoryServiceImpl) Register(ctx context.Context, user *domain.User, req *domain.CreateRepositoryRequest) (*domain.RepositoryItem, error) {
	client, err := s.userClient(ctx, user)
	if err != nil {
		return nil, err
	}

	owner, name, err := domain.ParseGitHubRepoURL(req.URL)
	if err != nil {
		return nil, domain.NewValidationError([]domain.FieldError{{Field: "url", Message: err.Error()}})
	}

	remote, err := client.GetRepository(ctx, owner, name)
	if err != nil {
		if github.IsNotFound(err) {
			return nil, domain.NewValidationError([]domain.FieldError{{Field: "url", Message: "repository not found on GitHub"}})
		}
		return nil, gitHubError(err)
	}

	if n := remote.GetName(); n != "" && len(n) <= 50 {
		name = n
	}
	if o := remote.GetOwner().GetLogin(); o != "" {
		owner = o
	}

	description := req.Description
	if description == nil {
		description = remote.Description
	}

	collaborators, err := client.ListCollaborators(ctx, owner, name)
	if err != nil {
		utils.Debug("collaborators not available", "repository", owner+"/"+name, "error", err.Error())
		collaborators = []string{}
	}

	var contributors []string
	if user.GitHubUsername != nil {
		contributors = []string{*user.GitHubUsername}
	}

	repo := &domain.GithubRepository{
		UserID:        user.ID,
		Name:          name,
		URL:           domain.CanonicalRepoURL(owner, name),
		Description:   description,
		Collaborators: collaborators,
		Contributors:  contributors,
		Skills:        domain.MergeSkills(nil, req.Skills),
	}
	if err := s.repos.GithubRepositories.Create(ctx, repo); err != nil {
		return nil, conflict(err, "Repository is already registered")
	}
	repo.User = user

	s.record(ctx, repo.ID, domain.ActionCreated, user.ID, map[string]string{"url": repo.URL})
	utils.Info("repository registered", "repository_id", repo.ID.String(), "url", repo.URL)

	item := toItem(repo)
	item.Stats, item.Hydrated = statsFromREST(remote), true
	s.cacheStats(ctx, repo.URL, item.Stats)
	return &item, nil
}

// ListRemote lists the user's accessible GitHub repositories and marks those
// already registered.
func (s *RepositoryServiceImpl) ListRemote(ctx context.Context, user *domain.User) ([]domain.RemoteRepository, error) {
	client, err := s.userClient(ctx, user)
	if err != nil {
		return nil, err
	}

	remote, err := client.ListAccessibleRepos(ctx)
	if err != nil {
		return nil, gitHubError(err)
	}

	urls, err := s.repos.GithubRepositories.ListURLsByUser(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list registered repositories: %w", err)
	}
	registered := make(map[string]struct{}, len(urls))
	for _, u := range urls {
		registered[strings.ToLower(u)] = struct{}{}
	}

	out := make([]domain.RemoteRepository, 0, len(remote))
	for _, r := range remote {
		_, ok := registered[strings.ToLower(r.GetHTMLURL())]
		out = append(out, domain.RemoteRepository{
			GitHubID:    r.GetID(),
			FullName:    r.GetFullName(),
			Name:        r.GetName(),
			URL:         r.GetHTMLURL(),
			Description: r.Description,
			Private:     r.GetPrivate(),
			Language:    r.Language,
			UpdatedAt:   r.GetUpdatedAt().Time,
			Registered:  ok,
		})
	}
	return out, nil
}

func (s *RepositoryServiceImpl) UpdateDescription(ctx context.Context, user *domain.User, id uuid.UUID, req *domain.UpdateDescriptionRequest) (*domain.RepositoryItem, error) {
	if _, err := s.owned(ctx, user, id, false); err != nil {
		return nil, err
	}

	var description *string
	if d := strings.TrimSpace(req.Description); d != "" {
		description = &d
	}
	if err := s.repos.GithubRepositories.UpdateDescription(ctx, id, description); err != nil {
		return nil, notFound(err, "Repository not found")
	}

	s.record(ctx, id, domain.ActionUpdated, user.ID, map[string]string{"field": "description"})
	return s.Get(ctx, user, id)
}

func (s *RepositoryServiceImpl) AddSkills(ctx context.Context, user *domain.User, id uuid.UUID, req *domain.AddSkillsRequest) (*domain.RepositoryItem, error) {
	repo, err := s.owned(ctx, user, id, false)
	if err != nil {
		return nil, err
	}

	skills := domain.MergeSkills(repo.Skills, req.Skills)
	if err := s.repos.GithubRepositories.UpdateSkills(ctx, id, skills); err != nil {
		return nil, notFound(err, "Repository not found")
	}

	s.record(ctx, id, domain.ActionUpdated, user.ID, map[string]any{"skills": skills})
	return s.Get(ctx, user, id)
}

// Delete removes a repository. Admins may delete any repository.
func (s *RepositoryServiceImpl) Delete(ctx context.Context, user *domain.User, id uuid.UUID) error {
	repo, err := s.owned(ctx, user, id, true)
	if err != nil {
		return err
	}
	if err := s.repos.GithubRepositories.Delete(ctx, id); err != nil {
		return notFound(err, "Repository not found")
	}
	s.record(ctx, id, domain.ActionDeleted, user.ID, map[string]string{"url": repo.URL})
	return nil
}

func (s *RepositoryServiceImpl) Get(ctx context.Context, viewer *domain.User, id uuid.UUID) (*domain.RepositoryItem, error) {
	repo, err := s.repos.GithubRepositories.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "Repository not found")
	}

	items := []domain.RepositoryItem{toItem(repo)}
	s.hydrate(ctx, viewer, items, []*domain.User{repo.User})
	return &items[0], nil
}

// List returns one page of the listing. The page keeps the SQL order;
// hydration only fills in stats.
func (s *RepositoryServiceImpl) List(ctx context.Context, viewer *domain.User, q ListQuery) (*domain.RepositoryPage, error) {
	filter, err := buildFilter(q)
	if err != nil {
		return nil, err
	}

	rows, err := s.repos.GithubRepositories.List(ctx, filter, filter.Size+1)
	if err != nil {
		return nil, fmt.Errorf("failed to list repositories: %w", err)
	}

	hasNext := len(rows) > filter.Size
	if hasNext {
		rows = rows[:filter.Size]
	}

	items := make([]domain.RepositoryItem, len(rows))
	owners := make([]*domain.User, len(rows))
	for i := range rows {
		items[i] = toItem(&rows[i].GithubRepository)
		owners[i] = rows[i].User
	}
	s.hydrate(ctx, viewer, items, owners)

	page := &domain.RepositoryPage{
		Items:   items,
		Size:    filter.Size,
		HasNext: hasNext,
	}
	if hasNext {
		page.NextCursor = domain.CursorFor(rows[len(rows)-1]).Encode()
	}
	return page, nil
}

// buildFilter validates the raw listing parameters.
func buildFilter(q ListQuery) (domain.RepositoryFilter, error) {
	size := domain.DefaultPageSize
	if q.Size != nil {
		size = *q.Size
	}
	if size < 1 || size > domain.MaxPageSize {
		return domain.RepositoryFilter{}, domain.NewValidationError([]domain.FieldError{{
			Field:   "size",
			Message: fmt.Sprintf("must be between 1 and %d", domain.MaxPageSize),
		}})
	}

	filter := domain.RepositoryFilter{
		Query:  strings.TrimSpace(q.Q),
		Skills: domain.MergeSkills(nil, q.Skills),
		UserID: q.UserID,
		Size:   size,
	}
	if q.Cursor != "" {
		cursor, err := domain.DecodeRepositoryCursor(q.Cursor)
		if err != nil {
			return domain.RepositoryFilter{}, domain.NewBadRequestError(domain.CodeInvalidCursor, "Invalid cursor")
		}
		filter.After = cursor
	}
	return filter, nil
}

// hydrationBatch is a set of items fetched with one token.
type hydrationBatch struct {
	token   string
	indexes []int
	refs    []github.RepoRef
}

// hydrate attaches live stats to items. owners is index-aligned with items
// and supplies the fallback token. Failures leave items unhydrated.
func (s *RepositoryServiceImpl) hydrate(ctx context.Context, viewer *domain.User, items []domain.RepositoryItem, owners []*domain.User) {
	if len(items) == 0 {
		return
	}

	var cached map[string]*domain.RepositoryStats
	if s.cache != nil {
		urls := make([]string, len(items))
		for i := range items {
			urls[i] = items[i].URL
		}
		var err error
		if cached, err = s.cache.GetCachedStats(ctx, urls); err != nil {
			utils.Warn("stats cache unavailable", "error", err.Error())
		}
	}

	batches := make(map[string]*hydrationBatch)
	var order []string
	for i := range items {
		if stats, ok := cached[items[i].URL]; ok {
			items[i].Stats, items[i].Hydrated = stats, true
			continue
		}

		token := hydrationToken(viewer, owners[i])
		if token == "" {
			continue
		}
		owner, name, err := items[i].OwnerAndName()
		if err != nil {
			continue
		}

		b, ok := batches[token]
		if !ok {
			b = &hydrationBatch{token: token}
			batches[token] = b
			order = append(order, token)
		}
		b.indexes = append(b.indexes, i)
		b.refs = append(b.refs, github.RepoRef{Owner: owner, Name: name})
	}

	// Each batch writes to its own item indexes.
	var g errgroup.Group
	g.SetLimit(hydrationConcurrency)
	for _, token := range order {
		b := batches[token]
		g.Go(func() error {
			s.hydrateBatch(ctx, items, b)
			return nil
		})
	}
	_ = g.Wait()
}

func (s *RepositoryServiceImpl) hydrateBatch(ctx context.Context, items []domain.RepositoryItem, b *hydrationBatch) {
	client, err := s.clients(ctx, b.token)
	if err != nil {
		utils.Warn("skipping hydration", "error", err.Error())
		return
	}

	var stats []*domain.RepositoryStats
	err = s.breaker.Call(ctx, func(ctx context.Context) error {
		var err error
		stats, err = client.RepositoryStats(ctx, b.refs)
		return err
	})
	if err != nil {
		utils.Warn("repository hydration failed", "repositories", len(b.refs), "error", err.Error())
		return
	}

	for j, idx := range b.indexes {
		if j >= len(stats) {
			break
		}
		items[idx].Stats, items[idx].Hydrated = stats[j], true
		if stats[j] != nil {
			s.cacheStats(ctx, items[idx].URL, stats[j])
		}
	}
}

func (s *RepositoryServiceImpl) cacheStats(ctx context.Context, url string, stats *domain.RepositoryStats) {
	if s.cache == nil || stats == nil {
		return
	}
	if err := s.cache.CacheStats(ctx, url, stats); err != nil {
		utils.Warn("failed to cache repository stats", "url", url, "error", err.Error())
	}
}

// hydrationToken prefers the viewer's own token and falls back to the
// repository owner's.
func hydrationToken(viewer, owner *domain.User) string {
	if viewer != nil && viewer.HasGitHub() {
		return *viewer.GitHubAccessToken
	}
	if owner != nil && owner.HasGitHub() {
		return *owner.GitHubAccessToken
	}
	return ""
}

// owned loads a repository the user may modify.
func (s *RepositoryServiceImpl) owned(ctx context.Context, user *domain.User, id uuid.UUID, adminAllowed bool) (*domain.GithubRepository, error) {
	repo, err := s.repos.GithubRepositories.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "Repository not found")
	}
	if repo.UserID == user.ID || (adminAllowed && user.Role == domain.RoleAdmin) {
		return repo, nil
	}
	return nil, domain.NewForbiddenError("You do not own this repository")
}

func (s *RepositoryServiceImpl) userClient(ctx context.Context, user *domain.User) (GitHubClient, error) {
	if !user.HasGitHub() {
		return nil, domain.NewBadRequestError(domain.CodeGitHubNotLinked, "GitHub account is not linked")
	}
	client, err := s.clients(ctx, *user.GitHubAccessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to build github client: %w", err)
	}
	return client, nil
}

func (s *RepositoryServiceImpl) record(ctx context.Context, id uuid.UUID, action domain.AuditAction, actorID uuid.UUID, details any) {
	recordAudit(ctx, s.repos.Audit, domain.AuditEntry{
		EntityType: domain.EntityGithubRepository,
		EntityID:   id,
		Action:     action,
		ActorID:    actor(actorID),
		Details:    details,
	})
}

func toItem(repo *domain.GithubRepository) domain.RepositoryItem {
	return domain.RepositoryItem{
		GithubRepository: *repo,
		Owner:            domain.OwnerFromUser(repo.User),
	}
}

func statsFromREST(r *gh.Repository) *domain.RepositoryStats {
	topics := r.Topics
	if topics == nil {
		topics = []string{}
	}
	if len(topics) > github.MaxTopics {
		topics = topics[:github.MaxTopics]
	}
	return &domain.RepositoryStats{
		Language:         r.Language,
		Topics:           topics,
		ForksCount:       r.GetForksCount(),
		StargazersCount:  r.GetStargazersCount(),
		SubscribersCount: r.GetSubscribersCount(),
		OpenIssuesCount:  r.GetOpenIssuesCount(),
	}
}

// gitHubError maps a failed GitHub call to an API error.
func gitHubError(err error) error {
	var cbErr *utils.CircuitBreakerError
	switch {
	case github.IsUnauthorized(err):
		return domain.NewAuthenticationError("", "GitHub token is no longer valid").WithDebug(err.Error())
	case github.IsRateLimited(err), errors.As(err, &cbErr):
		return domain.NewServiceUnavailableError(domain.CodeGitHubUnavailable, "GitHub is temporarily unavailable").WithDebug(err.Error())
	default:
		return domain.NewBadGatewayError(domain.CodeGitHubUnavailable, "GitHub request failed").WithDebug(err.Error())
	}
}
