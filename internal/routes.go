package internal

import (
	"net/http"
	"snapfeed/internal/controllers"
	"snapfeed/internal/providers"
	"snapfeed/internal/structures"
)

func InitRoutes(apiController *controllers.ApiController, conf *structures.Config) providers.RouterProviderInterface {
	routers := providers.NewRouterProvider()

	routers.Post("/session", http.HandlerFunc(apiController.CreateSession))
	routers.Delete("/session", http.HandlerFunc(apiController.CloseSession))
	routers.Get("/session/stats", http.HandlerFunc(apiController.SessionStats))
	routers.Get("/feed", http.HandlerFunc(apiController.GetFeed))
	routers.Post("/feed/more", http.HandlerFunc(apiController.LoadMore))
	routers.Post("/feed/refresh", http.HandlerFunc(apiController.Refresh))
	return routers
}
