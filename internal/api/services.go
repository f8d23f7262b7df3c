package api

import (
	"github.com/recipebook/recipebook-server/internal/service"
)

// Services groups all business logic services used by the API server.
type Services struct {
	Auth       *service.AuthService
	Recipe     *service.RecipeService
	Sharing    *service.SharingService
	Engagement *service.EngagementService
	Comment    *service.CommentService
	Discovery  *service.DiscoveryService
	Social     *service.SocialService
	Collection *service.CollectionService
	Profile    *service.ProfileService
	Admin      *service.AdminService
}
