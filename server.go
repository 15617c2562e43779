package main

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const serviceName = "toolpress API"

// APIServer exposes the pipeline over HTTP
type APIServer struct {
	generator *Generator
	store     *ArticleStore
	// publisher builds a publisher on demand so a missing CMS configuration
	// only fails the publish endpoint.
	publisher func() (*Publisher, error)
	settings  ServerSettings
}

// NewAPIServer creates a new API server
func NewAPIServer(generator *Generator, store *ArticleStore, publisher func() (*Publisher, error), settings ServerSettings) *APIServer {
	return &APIServer{
		generator: generator,
		store:     store,
		publisher: publisher,
		settings:  settings,
	}
}

// GenerateArticleRequest is the body of POST /generate-article
type GenerateArticleRequest struct {
	URL          string `json:"url"`
	Keyword      string `json:"keyword"`
	Category     string `json:"category"`
	TargetLength int    `json:"target_length"`
}

// PublishArticleRequest is the body of POST /publish-to-wordpress
type PublishArticleRequest struct {
	ArticleID string `json:"article_id"`
}

// ArticleSummary is one entry of GET /articles
type ArticleSummary struct {
	ID    string `json:"id"`
	Path  string `json:"path"`
	State string `json:"state"`
}

// SetupRouter configures the Gin router with all routes
func (s *APIServer) SetupRouter() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestID(), s.cors())

	router.GET("/", s.HandleRoot)
	router.GET("/health", s.HandleHealth)
	router.POST("/generate-article", s.HandleGenerateArticle)
	router.GET("/articles", s.HandleListArticles)
	router.POST("/publish-to-wordpress", s.HandlePublish)

	return router
}

// Run serves on the configured port until the listener fails.
func (s *APIServer) Run() error {
	addr := fmt.Sprintf("0.0.0.0:%d", s.settings.Port)
	log.Printf("%s listening on %s", serviceName, addr)
	return s.SetupRouter().Run(addr)
}

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header("X-Request-ID", id)
		c.Next()
		debugLog("[%s] %s %s -> %d", id, c.Request.Method, c.Request.URL.Path, c.Writer.Status())
	}
}

func (s *APIServer) cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" && slices.Contains(s.settings.AllowedOrigins, origin) {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusOK)
			return
		}
		c.Next()
	}
}

func errorDetail(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"detail": message})
}

// HandleRoot handles GET /
func (s *APIServer) HandleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": serviceName + " is running!"})
}

// HandleHealth handles GET /health
func (s *APIServer) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": serviceName})
}

// HandleGenerateArticle handles POST /generate-article. The pipeline runs
// synchronously.
func (s *APIServer) HandleGenerateArticle(c *gin.Context) {
	var req GenerateArticleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorDetail(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.URL == "" {
		errorDetail(c, http.StatusBadRequest, "url is required")
		return
	}

	result, err := s.generator.Generate(c.Request.Context(), GenerateRequest{
		URL:          req.URL,
		Keyword:      req.Keyword,
		Category:     req.Category,
		TargetLength: req.TargetLength,
	})
	if err != nil {
		errorDetail(c, http.StatusInternalServerError, err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "article generated",
		"url":     req.URL,
		"path":    result.Path,
	})
}

// HandleListArticles handles GET /articles
func (s *APIServer) HandleListArticles(c *gin.Context) {
	files, err := s.store.List()
	if err != nil {
		errorDetail(c, http.StatusInternalServerError, err.Error())
		return
	}

	articles := make([]ArticleSummary, 0, len(files))
	for _, f := range files {
		articles = append(articles, ArticleSummary{ID: f.ID(), Path: f.Path, State: f.State.String()})
	}
	c.JSON(http.StatusOK, gin.H{"articles": articles})
}

// HandlePublish handles POST /publish-to-wordpress for one final article.
func (s *APIServer) HandlePublish(c *gin.Context) {
	var req PublishArticleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorDetail(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.ArticleID == "" {
		errorDetail(c, http.StatusBadRequest, "article_id is required")
		return
	}

	file, err := s.store.FindFinal(req.ArticleID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, ErrArticleNotFound) {
			status = http.StatusNotFound
		}
		errorDetail(c, status, err.Error())
		return
	}

	publisher, err := s.publisher()
	if err != nil {
		errorDetail(c, http.StatusInternalServerError, err.Error())
		return
	}

	result, err := publisher.PublishOne(c.Request.Context(), file)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, ErrPublishLocked) {
			status = http.StatusConflict
		}
		errorDetail(c, status, err.Error())
		return
	}
	if !result.Success() {
		errorDetail(c, http.StatusInternalServerError, result.Error.Error())
		return
	}

	resp := gin.H{
		"status":     "success",
		"message":    "published to WordPress",
		"article_id": req.ArticleID,
		"post_id":    *result.PostID,
	}
	if result.Warning != nil {
		resp["warning"] = result.Warning.Error()
	}
	c.JSON(http.StatusOK, resp)
}
