// Copyright 2025 The CartoBDX Authors
// SPDX-License-Identifier: Apache-2.0

// Package server exposes associations, toilets and annotations as a local
// JSON API.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/cartobdx/cartobdx/annotation"
	"github.com/cartobdx/cartobdx/geocode"
	"github.com/cartobdx/cartobdx/loader"
	"github.com/cartobdx/cartobdx/metrics"
	"github.com/cartobdx/cartobdx/opendata"
	"github.com/cartobdx/cartobdx/poi"
	"github.com/cartobdx/cartobdx/spatial"
)

// DefaultAddr only listens on the loopback interface.
const DefaultAddr = "localhost:8080"

const (
	defaultNearest = 5
	maxNearest     = 50
)

// Loader provides the datasets served by the API.
type Loader interface {
	LoadAssociations(ctx context.Context, onProgress geocode.ProgressFunc) (*loader.Result, error)
	LoadToilets(ctx context.Context) ([]poi.Toilet, error)
}

// Clearer drops a cache.
type Clearer interface {
	Clear()
}

// Server is the HTTP API.
type Server struct {
	loader      Loader
	annotations *annotation.Store
	caches      []Clearer
}

// NewServer creates a Server. caches are emptied by DELETE /api/cache.
func NewServer(l Loader, annotations *annotation.Store, caches ...Clearer) *Server {
	return &Server{
		loader:      l,
		annotations: annotations,
		caches:      caches,
	}
}

// Router returns the configured gin engine.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery(), metrics.GinMiddleware())

	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := r.Group("/api")
	api.GET("/associations", s.listAssociations)
	api.GET("/associations/located", s.locatedAssociations)
	api.GET("/toilets", s.listToilets)
	api.GET("/toilets/stats", s.toiletStats)
	api.GET("/toilets/nearest", s.nearestToilets)
	api.GET("/annotations/:lat/:lng", s.getAnnotation)
	api.PUT("/annotations/:lat/:lng/rating", s.saveRating)
	api.PUT("/annotations/:lat/:lng/remark", s.saveRemark)
	api.DELETE("/cache", s.clearCaches)

	return r
}

// Run serves the API on addr until it fails.
func (s *Server) Run(addr string) error {
	if addr == "" {
		addr = DefaultAddr
	}

	return s.Router().Run(addr)
}

// loadError reports a dataset failure with its user-facing message.
func loadError(ctx *gin.Context, err error) {
	log.Printf("⚠️  %v", err)
	ctx.JSON(http.StatusServiceUnavailable, gin.H{"error": opendata.UserMessage(err)})
}

type associationsResponse struct {
	Query        string            `json:"query,omitempty"`
	Count        int               `json:"count"`
	Associations []poi.Association `json:"associations"`
	Stats        loader.Stats      `json:"stats"`
	Status       string            `json:"status"`
}

func (s *Server) listAssociations(ctx *gin.Context) {
	res, err := s.loader.LoadAssociations(ctx.Request.Context(), nil)
	if err != nil {
		loadError(ctx, err)

		return
	}

	query := ctx.Query("q")
	records := filterAssociations(ctx, res.Associations)

	ctx.JSON(http.StatusOK, associationsResponse{
		Query:        query,
		Count:        len(records),
		Associations: records,
		Stats:        res.Stats,
		Status:       res.Status,
	})
}

// filterAssociations applies the "q" parameter. With "fold=true" accents
// are ignored as well as case.
func filterAssociations(ctx *gin.Context, records []poi.Association) []poi.Association {
	if fold, _ := strconv.ParseBool(ctx.Query("fold")); fold {
		return poi.FilterAssociationsFolded(records, ctx.Query("q"))
	}

	return poi.FilterAssociations(records, ctx.Query("q"))
}

type locatedResponse struct {
	Located    []poi.Association `json:"located"`
	NotLocated []poi.Association `json:"not_located"`
}

func (s *Server) locatedAssociations(ctx *gin.Context) {
	res, err := s.loader.LoadAssociations(ctx.Request.Context(), nil)
	if err != nil {
		loadError(ctx, err)

		return
	}

	located, notLocated := poi.SplitLocated(filterAssociations(ctx, res.Associations))

	ctx.JSON(http.StatusOK, locatedResponse{Located: located, NotLocated: notLocated})
}

type toiletsResponse struct {
	Filter  poi.ToiletFilter `json:"filter"`
	Count   int              `json:"count"`
	Toilets []poi.Toilet     `json:"toilets"`
}

func (s *Server) listToilets(ctx *gin.Context) {
	filter, err := poi.ParseToiletFilter(ctx.Query("filter"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	toilets, err := s.loader.LoadToilets(ctx.Request.Context())
	if err != nil {
		loadError(ctx, err)

		return
	}

	selected := poi.FilterToilets(toilets, filter)

	ctx.JSON(http.StatusOK, toiletsResponse{Filter: filter, Count: len(selected), Toilets: selected})
}

func (s *Server) toiletStats(ctx *gin.Context) {
	toilets, err := s.loader.LoadToilets(ctx.Request.Context())
	if err != nil {
		loadError(ctx, err)

		return
	}

	ctx.JSON(http.StatusOK, poi.SummarizeToilets(toilets))
}

func (s *Server) nearestToilets(ctx *gin.Context) {
	origin, err := parsePoint(ctx.Query("lat"), ctx.Query("lng"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	n := defaultNearest
	if v := ctx.Query("n"); v != "" {
		n, err = strconv.Atoi(v)
		if err != nil || n < 1 || n > maxNearest {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("n must be between 1 and %d", maxNearest)})

			return
		}
	}

	toilets, err := s.loader.LoadToilets(ctx.Request.Context())
	if err != nil {
		loadError(ctx, err)

		return
	}

	nearest, err := poi.NearestToilets(toilets, origin, n)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	ctx.JSON(http.StatusOK, nearest)
}

func parsePoint(lat, lng string) (spatial.Point, error) {
	la, err := strconv.ParseFloat(lat, 64)
	if err != nil {
		return spatial.Point{}, fmt.Errorf("invalid latitude %q", lat)
	}

	ln, err := strconv.ParseFloat(lng, 64)
	if err != nil {
		return spatial.Point{}, fmt.Errorf("invalid longitude %q", lng)
	}

	p := spatial.Point{Lat: la, Lng: ln}
	if err := p.Validate(); err != nil {
		return spatial.Point{}, err
	}

	return p, nil
}

func (s *Server) pathPoint(ctx *gin.Context) (spatial.Point, bool) {
	p, err := parsePoint(ctx.Param("lat"), ctx.Param("lng"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return spatial.Point{}, false
	}

	return p, true
}

type annotationResponse struct {
	Key string `json:"key"`
	annotation.Annotation
}

func (s *Server) getAnnotation(ctx *gin.Context) {
	p, ok := s.pathPoint(ctx)
	if !ok {
		return
	}

	a, err := s.annotations.Annotation(p)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	ctx.JSON(http.StatusOK, annotationResponse{Key: p.Key(), Annotation: a})
}

type ratingRequest struct {
	Rating *int `json:"rating" binding:"required"`
}

func (s *Server) saveRating(ctx *gin.Context) {
	p, ok := s.pathPoint(ctx)
	if !ok {
		return
	}

	var req ratingRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	if err := s.annotations.SaveRating(p, *req.Rating); err != nil {
		annotationError(ctx, err)

		return
	}

	s.getAnnotation(ctx)
}

type remarkRequest struct {
	Remark string `json:"remark"`
}

func (s *Server) saveRemark(ctx *gin.Context) {
	p, ok := s.pathPoint(ctx)
	if !ok {
		return
	}

	var req remarkRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	if err := s.annotations.SaveRemark(p, req.Remark); err != nil {
		annotationError(ctx, err)

		return
	}

	s.getAnnotation(ctx)
}

func annotationError(ctx *gin.Context, err error) {
	if errors.Is(err, annotation.ErrInvalidRating) || errors.Is(err, annotation.ErrRemarkTooLong) {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

func (s *Server) clearCaches(ctx *gin.Context) {
	for _, c := range s.caches {
		c.Clear()
	}

	log.Printf("🧹 Cleared %d caches", len(s.caches))
	ctx.Status(http.StatusNoContent)
}
