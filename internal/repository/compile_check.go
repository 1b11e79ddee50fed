package repository

import "github.com/apu-code-collab/apcc-api/internal/domain"

// Compile-time interface checks
var (
	_ UsersRepo                               = (*usersRepo)(nil)
	_ RefreshTokensRepo                       = (*refreshTokensRepo)(nil)
	_ CatalogRepo[domain.Framework]           = (*catalogRepo[domain.Framework])(nil)
	_ CatalogRepo[domain.ProgrammingLanguage] = (*catalogRepo[domain.ProgrammingLanguage])(nil)
	_ CoursesRepo                             = (*coursesRepo)(nil)
	_ GithubRepositoriesRepo                  = (*githubRepositoriesRepo)(nil)
	_ AuditRepo                               = (*auditRepo)(nil)
)
