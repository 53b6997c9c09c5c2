package server

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"cartpilot/internal/chat"
	"cartpilot/internal/models"
)

func (s *Server) listProducts(c *gin.Context) {
	limit, err := intQuery(c, "limit", 10)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	offset, err := intQuery(c, "offset", 0)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var mainCategory, subCategory *string
	if v, ok := c.GetQuery("main_category"); ok {
		mainCategory = &v
	}
	if v, ok := c.GetQuery("sub_category"); ok {
		subCategory = &v
	}

	products, err := s.catalog.List(c.Request.Context(), s.collection, limit, offset, mainCategory, subCategory)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

type searchRequest struct {
	Query        string   `json:"query"`
	MainCategory *string  `json:"main_category"`
	SubCategory  *string  `json:"sub_category"`
	PriceMin     *float64 `json:"price_min"`
	PriceMax     *float64 `json:"price_max"`
	Limit        int      `json:"limit"`
	Offset       int      `json:"offset"`
}

func (s *Server) searchProducts(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	products, err := s.catalog.Search(c.Request.Context(), s.collection, models.SearchQuery{
		Query:        req.Query,
		MainCategory: req.MainCategory,
		SubCategory:  req.SubCategory,
		PriceMin:     req.PriceMin,
		PriceMax:     req.PriceMax,
		Limit:        req.Limit,
		Offset:       req.Offset,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

func (s *Server) listCategories(c *gin.Context) {
	categories, err := s.catalog.ListCategories(c.Request.Context(), s.collection)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

func (s *Server) getProduct(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "product id must be an integer"})
		return
	}
	product, err := s.catalog.Get(c.Request.Context(), s.collection, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

type addRequest struct {
	Products          []models.Product `json:"products"`
	BatchSize         int              `json:"batch_size"`
	PreventDuplicates *bool            `json:"prevent_duplicates"`
}

func (s *Server) addProducts(c *gin.Context) {
	var req addRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(req.Products) == 0 {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "no products given"})
		return
	}
	for _, p := range req.Products {
		if err := p.Validate(); err != nil {
			respondError(c, err)
			return
		}
	}
	preventDuplicates := true
	if req.PreventDuplicates != nil {
		preventDuplicates = *req.PreventDuplicates
	}
	report := s.catalog.AddProducts(c.Request.Context(), s.collection, req.Products, req.BatchSize, preventDuplicates)
	c.JSON(http.StatusOK, report)
}

func (s *Server) deleteProduct(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "product id must be an integer"})
		return
	}
	if err := s.catalog.Delete(c.Request.Context(), s.collection, id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

func (s *Server) listConversations(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"conversations": s.conversations.List()})
}

func (s *Server) createConversation(c *gin.Context) {
	id := chat.NewConversationID()
	s.conversations.Put(id, models.NewConversationState())
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

func (s *Server) getConversation(c *gin.Context) {
	c.JSON(http.StatusOK, s.conversations.Get(c.Param("id")))
}

func (s *Server) deleteConversation(c *gin.Context) {
	s.conversations.Delete(c.Param("id"))
	c.JSON(http.StatusOK, gin.H{"deleted": c.Param("id")})
}

type turnRequest struct {
	Message string `json:"message"`
}

func (s *Server) conversationTurn(c *gin.Context) {
	var req turnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Message == "" {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "message must not be empty"})
		return
	}

	id := c.Param("id")
	state := s.conversations.Get(id)
	s.engine.Turn(c.Request.Context(), state, req.Message)
	s.conversations.Put(id, state)

	c.JSON(http.StatusOK, gin.H{
		"message":  state.LastAssistantMessage(),
		"products": state.Products,
	})
}

type recommendationsRequest struct {
	Cart  []models.Product `json:"cart"`
	Limit int              `json:"limit"`
}

func (s *Server) recommendations(c *gin.Context) {
	var req recommendationsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	products, err := s.recommender.Recommend(c.Request.Context(), req.Cart, req.Limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"recommendations": products})
}

func intQuery(c *gin.Context, name string, def int) (int, error) {
	v, ok := c.GetQuery(name)
	if !ok {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", name)
	}
	return n, nil
}
