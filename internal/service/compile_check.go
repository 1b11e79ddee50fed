package service

import "github.com/apu-code-collab/apcc-api/internal/domain"

// Compile-time checks to ensure all service implementations satisfy their interfaces.
var (
	_ AuthService                                = (*authService)(nil)
	_ UserService                                = (*UserServiceImpl)(nil)
	_ GitHubAuthService                          = (*GitHubAuthServiceImpl)(nil)
	_ CatalogService[domain.Framework]           = (*catalogService[domain.Framework])(nil)
	_ CatalogService[domain.ProgrammingLanguage] = (*catalogService[domain.ProgrammingLanguage])(nil)
	_ CourseService                              = (*courseService)(nil)
	_ RepositoryService                          = (*RepositoryServiceImpl)(nil)
	_ CacheService                               = (*cacheServiceImpl)(nil)
)
