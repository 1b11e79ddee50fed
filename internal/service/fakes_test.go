package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	gh "github.com/google/go-github/v68/github"
	"github.com/google/uuid"

	"github.com/apu-code-collab/apcc-api/internal/domain"
	"github.com/apu-code-collab/apcc-api/internal/github"
	"github.com/apu-code-collab/apcc-api/internal/repository"
)

type fakeUsers struct {
	mu    sync.Mutex
	users map[uuid.UUID]*domain.User
	prefs map[uuid.UUID][]uuid.UUID
	known map[uuid.UUID]bool
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{
		users: make(map[uuid.UUID]*domain.User),
		prefs: make(map[uuid.UUID][]uuid.UUID),
		known: make(map[uuid.UUID]bool),
	}
}

func (f *fakeUsers) add(u *domain.User) *domain.User {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	f.users[u.ID] = u
	return u
}

func (f *fakeUsers) Create(_ context.Context, u *domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.users {
		if existing.APUID == u.APUID {
			return repository.ErrDuplicate
		}
	}
	f.add(u)
	return nil
}

func (f *fakeUsers) find(match func(*domain.User) bool) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if match(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeUsers) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	return f.find(func(u *domain.User) bool { return u.ID == id })
}

func (f *fakeUsers) GetByAPUID(_ context.Context, apuID string) (*domain.User, error) {
	return f.find(func(u *domain.User) bool { return u.APUID == apuID })
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	return f.find(func(u *domain.User) bool { return u.Email != nil && strings.EqualFold(*u.Email, email) })
}

func (f *fakeUsers) GetByGitHubID(_ context.Context, id int64) (*domain.User, error) {
	return f.find(func(u *domain.User) bool { return u.GitHubID != nil && *u.GitHubID == id })
}

func (f *fakeUsers) ListByIDs(_ context.Context, ids []uuid.UUID) ([]*domain.User, error) {
	var out []*domain.User
	for _, id := range ids {
		if u, ok := f.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (f *fakeUsers) List(context.Context) ([]*domain.User, error) {
	out := make([]*domain.User, 0, len(f.users))
	for _, u := range f.users {
		out = append(out, u)
	}
	return out, nil
}

func (f *fakeUsers) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := f.users[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.users, id)
	return nil
}

func (f *fakeUsers) UpdateCourse(_ context.Context, id, courseID uuid.UUID, year domain.CourseYear) error {
	u, ok := f.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.UniversityCourseID, u.CourseYear = &courseID, &year
	return nil
}

func (f *fakeUsers) LinkGitHub(_ context.Context, id uuid.UUID, p domain.GitHubProfile) error {
	u, ok := f.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	applyProfile(u, p)
	return nil
}

func (f *fakeUsers) UnlinkGitHub(_ context.Context, id uuid.UUID) error {
	u, ok := f.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.GitHubID, u.GitHubUsername, u.GitHubAccessToken, u.GitHubAvatarURL = nil, nil, nil, nil
	return nil
}

func (f *fakeUsers) UpdateGitHubProfile(_ context.Context, id uuid.UUID, login, avatar string) error {
	u, ok := f.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.GitHubUsername, u.GitHubAvatarURL = &login, &avatar
	return nil
}

func (f *fakeUsers) ListGitHubLinked(_ context.Context, limit, offset int) ([]*domain.User, error) {
	var out []*domain.User
	for _, u := range f.users {
		if u.HasGitHub() {
			out = append(out, u)
		}
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeUsers) ReplaceFrameworks(_ context.Context, id uuid.UUID, ids []uuid.UUID) error {
	return f.replace(id, ids)
}

func (f *fakeUsers) ReplaceProgrammingLanguages(_ context.Context, id uuid.UUID, ids []uuid.UUID) error {
	return f.replace(id, ids)
}

func (f *fakeUsers) replace(id uuid.UUID, ids []uuid.UUID) error {
	if _, ok := f.users[id]; !ok {
		return repository.ErrNotFound
	}
	for _, pid := range ids {
		if !f.known[pid] {
			return repository.ErrUnknownIDs
		}
	}
	f.prefs[id] = ids
	return nil
}

type fakeTokens struct {
	tokens map[string]*domain.RefreshToken
}

func newFakeTokens() *fakeTokens {
	return &fakeTokens{tokens: make(map[string]*domain.RefreshToken)}
}

func (f *fakeTokens) Create(_ context.Context, t *domain.RefreshToken) error {
	f.tokens[t.Token] = t
	return nil
}

func (f *fakeTokens) GetActive(_ context.Context, token string) (*domain.RefreshToken, error) {
	t, ok := f.tokens[token]
	if !ok || t.Revoked {
		return nil, repository.ErrNotFound
	}
	return t, nil
}

func (f *fakeTokens) Revoke(_ context.Context, token string, at time.Time) error {
	t, ok := f.tokens[token]
	if !ok {
		return repository.ErrNotFound
	}
	if !t.Revoked {
		t.Revoked, t.RevokedAt = true, &at
	}
	return nil
}

func (f *fakeTokens) DeleteStale(_ context.Context, now, revokedBefore time.Time) (int64, error) {
	var n int64
	for k, t := range f.tokens {
		if t.IsExpired(now) || (t.Revoked && t.RevokedAt != nil && t.RevokedAt.Before(revokedBefore)) {
			delete(f.tokens, k)
			n++
		}
	}
	return n, nil
}

type fakeCatalog[T domain.CatalogEntry] struct {
	entries []*T
}

func (f *fakeCatalog[T]) List(context.Context) ([]T, error) {
	out := make([]T, len(f.entries))
	for i, e := range f.entries {
		out[i] = *e
	}
	return out, nil
}

func (f *fakeCatalog[T]) Count(context.Context) (int64, error) {
	return int64(len(f.entries)), nil
}

func (f *fakeCatalog[T]) GetByID(_ context.Context, id uuid.UUID) (*T, error) {
	for _, e := range f.entries {
		if domain.CatalogEntryID(e) == id {
			return e, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeCatalog[T]) FindByName(_ context.Context, name string) (*T, error) {
	for _, e := range f.entries {
		if strings.EqualFold(entryName(e), name) {
			return e, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeCatalog[T]) Create(_ context.Context, entry *T) error {
	switch e := any(entry).(type) {
	case *domain.Framework:
		e.ID = uuid.New()
	case *domain.ProgrammingLanguage:
		e.ID = uuid.New()
	}
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeCatalog[T]) Rename(_ context.Context, id uuid.UUID, name string) error {
	for _, e := range f.entries {
		if domain.CatalogEntryID(e) == id {
			switch v := any(e).(type) {
			case *domain.Framework:
				v.Name = name
			case *domain.ProgrammingLanguage:
				v.Name = name
			}
			return nil
		}
	}
	return repository.ErrNotFound
}

func (f *fakeCatalog[T]) Delete(_ context.Context, id uuid.UUID) error {
	for i, e := range f.entries {
		if domain.CatalogEntryID(e) == id {
			f.entries = append(f.entries[:i], f.entries[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

func (f *fakeCatalog[T]) EnsureNames(ctx context.Context, names []string) (int64, error) {
	var added int64
	for _, n := range names {
		if _, err := f.FindByName(ctx, n); err == nil {
			continue
		}
		_ = f.Create(ctx, domain.NewCatalogEntry[T](n, nil))
		added++
	}
	return added, nil
}

func entryName[T domain.CatalogEntry](entry *T) string {
	switch e := any(entry).(type) {
	case *domain.Framework:
		return e.Name
	case *domain.ProgrammingLanguage:
		return e.Name
	}
	return ""
}

type fakeCourses struct {
	courses []domain.UniversityCourse
}

func (f *fakeCourses) List(context.Context) ([]domain.UniversityCourse, error) {
	return f.courses, nil
}

func (f *fakeCourses) GetByID(_ context.Context, id uuid.UUID) (*domain.UniversityCourse, error) {
	for i := range f.courses {
		if f.courses[i].ID == id {
			return &f.courses[i], nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeCourses) EnsureCourses(_ context.Context, courses []domain.UniversityCourse) (int64, error) {
	var added int64
	for _, c := range courses {
		exists := false
		for _, e := range f.courses {
			if e.Code != nil && c.Code != nil && *e.Code == *c.Code {
				exists = true
			}
		}
		if !exists {
			c.ID = uuid.New()
			f.courses = append(f.courses, c)
			added++
		}
	}
	return added, nil
}

// fakeGithubRepos orders rows newest first without relevance.
type fakeGithubRepos struct {
	users *fakeUsers
	repos []*domain.GithubRepository
}

func (f *fakeGithubRepos) Create(_ context.Context, r *domain.GithubRepository) error {
	for _, e := range f.repos {
		if e.URL == r.URL {
			return repository.ErrDuplicate
		}
	}
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	f.repos = append(f.repos, r)
	return nil
}

func (f *fakeGithubRepos) GetByID(_ context.Context, id uuid.UUID) (*domain.GithubRepository, error) {
	for _, r := range f.repos {
		if r.ID == id {
			cp := *r
			cp.User = f.users.users[r.UserID]
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeGithubRepos) UpdateDescription(_ context.Context, id uuid.UUID, d *string) error {
	for _, r := range f.repos {
		if r.ID == id {
			r.Description = d
			return nil
		}
	}
	return repository.ErrNotFound
}

func (f *fakeGithubRepos) UpdateSkills(_ context.Context, id uuid.UUID, skills []string) error {
	for _, r := range f.repos {
		if r.ID == id {
			r.Skills = skills
			return nil
		}
	}
	return repository.ErrNotFound
}

func (f *fakeGithubRepos) Delete(_ context.Context, id uuid.UUID) error {
	for i, r := range f.repos {
		if r.ID == id {
			f.repos = append(f.repos[:i], f.repos[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

func (f *fakeGithubRepos) ListURLsByUser(_ context.Context, userID uuid.UUID) ([]string, error) {
	var urls []string
	for _, r := range f.repos {
		if r.UserID == userID {
			urls = append(urls, r.URL)
		}
	}
	return urls, nil
}

func (f *fakeGithubRepos) List(_ context.Context, filter domain.RepositoryFilter, limit int) ([]domain.RankedRepository, error) {
	rows := make([]domain.RankedRepository, 0, len(f.repos))
	for _, r := range f.repos {
		if filter.UserID != nil && r.UserID != *filter.UserID {
			continue
		}
		row := domain.RankedRepository{GithubRepository: *r}
		row.User = f.users.users[r.UserID]
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].CreatedAt.Equal(rows[j].CreatedAt) {
			return rows[i].CreatedAt.After(rows[j].CreatedAt)
		}
		return rows[i].ID.String() > rows[j].ID.String()
	})

	if c := filter.After; c != nil {
		kept := rows[:0]
		for _, r := range rows {
			if r.CreatedAt.Before(c.CreatedAt) || (r.CreatedAt.Equal(c.CreatedAt) && r.ID.String() < c.ID.String()) {
				kept = append(kept, r)
			}
		}
		rows = kept
	}
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

type fakeAudit struct {
	mu      sync.Mutex
	entries []domain.AuditEntry
}

func (f *fakeAudit) Log(_ context.Context, e domain.AuditEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, e)
	return nil
}

func (f *fakeAudit) List(context.Context, *domain.AuditLogFilter) ([]*domain.AuditLog, error) {
	return nil, nil
}

func (f *fakeAudit) actions() []domain.AuditAction {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.AuditAction, len(f.entries))
	for i, e := range f.entries {
		out[i] = e.Action
	}
	return out
}

type fakeCache struct {
	mu    sync.Mutex
	users map[uuid.UUID]*domain.UserResponse
	stats map[string]*domain.RepositoryStats
	err   error
}

func newFakeCache() *fakeCache {
	return &fakeCache{
		users: make(map[uuid.UUID]*domain.UserResponse),
		stats: make(map[string]*domain.RepositoryStats),
	}
}

func (f *fakeCache) CacheUser(_ context.Context, u *domain.User) error {
	r := u.ToResponse()
	f.users[u.ID] = &r
	return nil
}

func (f *fakeCache) GetCachedUser(_ context.Context, id uuid.UUID) (*domain.UserResponse, error) {
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, repository.ErrCacheMiss
}

func (f *fakeCache) InvalidateUserCache(_ context.Context, id uuid.UUID) error {
	delete(f.users, id)
	return nil
}

func (f *fakeCache) GetCachedStats(_ context.Context, urls []string) (map[string]*domain.RepositoryStats, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]*domain.RepositoryStats)
	for _, u := range urls {
		if s, ok := f.stats[u]; ok {
			out[u] = s
		}
	}
	return out, nil
}

func (f *fakeCache) CacheStats(_ context.Context, url string, s *domain.RepositoryStats) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stats[url] = s
	return nil
}

func (f *fakeCache) CheckRateLimit(context.Context, string, int, time.Duration) (bool, time.Duration, error) {
	return true, 0, nil
}

func (f *fakeCache) Health(context.Context) error { return f.err }

// fakeGitHub serves every token. Stats are keyed by "owner/name".
type fakeGitHub struct {
	mu         sync.Mutex
	user       *gh.User
	email      string
	userErr    error
	repo       *gh.Repository
	repoErr    error
	remote     []*gh.Repository
	stats      map[string]*domain.RepositoryStats
	statsErr   error
	statsCalls []string
	tokens     []string
}

func (f *fakeGitHub) clients() GitHubClients {
	return func(_ context.Context, token string) (GitHubClient, error) {
		if token == "" {
			return nil, github.ErrNoToken
		}
		f.mu.Lock()
		f.tokens = append(f.tokens, token)
		f.mu.Unlock()
		return f, nil
	}
}

func (f *fakeGitHub) AuthenticatedUser(context.Context) (*gh.User, error) {
	return f.user, f.userErr
}

func (f *fakeGitHub) PrimaryVerifiedEmail(context.Context) (string, error) {
	return f.email, nil
}

func (f *fakeGitHub) GetRepository(context.Context, string, string) (*gh.Repository, error) {
	return f.repo, f.repoErr
}

func (f *fakeGitHub) ListCollaborators(context.Context, string, string) ([]string, error) {
	return []string{"alice", "bob"}, nil
}

func (f *fakeGitHub) ListAccessibleRepos(context.Context) ([]*gh.Repository, error) {
	return f.remote, nil
}

func (f *fakeGitHub) RepositoryStats(_ context.Context, refs []github.RepoRef) ([]*domain.RepositoryStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range refs {
		f.statsCalls = append(f.statsCalls, r.Owner+"/"+r.Name)
	}
	if f.statsErr != nil {
		return nil, f.statsErr
	}
	out := make([]*domain.RepositoryStats, len(refs))
	for i, r := range refs {
		out[i] = f.stats[r.Owner+"/"+r.Name]
	}
	return out, nil
}

type fakeOAuth struct {
	token string
	err   error
}

func (f *fakeOAuth) AuthCodeURL(state string) string {
	return "https://github.com/login/oauth/authorize?state=" + state
}

func (f *fakeOAuth) Exchange(context.Context, string) (string, error) {
	return f.token, f.err
}

type testEnv struct {
	repos   *repository.Repositories
	users   *fakeUsers
	tokens  *fakeTokens
	courses *fakeCourses
	ghRepos *fakeGithubRepos
	audit   *fakeAudit
}

func newTestEnv() *testEnv {
	users := newFakeUsers()
	env := &testEnv{
		users:   users,
		tokens:  newFakeTokens(),
		courses: &fakeCourses{},
		ghRepos: &fakeGithubRepos{users: users},
		audit:   &fakeAudit{},
	}
	env.repos = &repository.Repositories{
		Users:                users,
		RefreshTokens:        env.tokens,
		Frameworks:           &fakeCatalog[domain.Framework]{},
		ProgrammingLanguages: &fakeCatalog[domain.ProgrammingLanguage]{},
		Courses:              env.courses,
		GithubRepositories:   env.ghRepos,
		Audit:                env.audit,
	}
	return env
}

func strPtr(s string) *string { return &s }
