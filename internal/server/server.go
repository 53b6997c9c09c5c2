// Package server exposes the catalog and the conversational assistant
// over a REST API.
package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"cartpilot/internal/catalog"
	"cartpilot/internal/chat"
	"cartpilot/internal/llm"
	"cartpilot/internal/metrics"
	"cartpilot/internal/models"
	"cartpilot/internal/recommend"
	"cartpilot/internal/vectorstore"
)

// Server wires the HTTP surface to the domain services.
type Server struct {
	catalog       *catalog.Service
	engine        *chat.Engine
	recommender   *recommend.Engine
	conversations chat.Store
	collection    string
	upgrader      websocket.Upgrader
}

func New(cat *catalog.Service, engine *chat.Engine, recommender *recommend.Engine, conversations chat.Store, collection string) *Server {
	return &Server{
		catalog:       cat,
		engine:        engine,
		recommender:   recommender,
		conversations: conversations,
		collection:    collection,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")
	{
		v1.GET("/stats", s.stats)

		v1.GET("/products", s.listProducts)
		v1.POST("/products", s.addProducts)
		v1.POST("/products/search", s.searchProducts)
		v1.GET("/products/categories", s.listCategories)
		v1.GET("/products/:id", s.getProduct)
		v1.DELETE("/products/:id", s.deleteProduct)

		v1.GET("/ai/conversations", s.listConversations)
		v1.POST("/ai/conversations", s.createConversation)
		v1.GET("/ai/conversations/:id", s.getConversation)
		v1.DELETE("/ai/conversations/:id", s.deleteConversation)
		v1.POST("/ai/conversations/:id/messages", s.conversationTurn)
		v1.GET("/ai/chat/:id", s.chatSocket)

		v1.POST("/ai/recommendations", s.recommendations)
	}

	return router
}

func (s *Server) stats(c *gin.Context) {
	c.JSON(http.StatusOK, metrics.Default().Snapshot())
}

// respondError maps domain errors onto HTTP status codes.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, vectorstore.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, models.ErrValidation):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, llm.ErrProviderFailure):
		status = http.StatusBadGateway
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
