package controllers

import (
	"fmt"
	"math"
	"net/url"
	"strconv"

	"github.com/franciscosanchezn/gin-recipes-api/internal/services"
	"github.com/gin-gonic/gin"
)

const (
	defaultPageSize = 6
	maxPageSize     = 100
	// maxPage keeps page*limit within an int32 offset
	maxPage = math.MaxInt32 / maxPageSize
)

// Page is a page-number paginated response
type Page[T any] struct {
	Count    int64   `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}

type pageRequest struct {
	page  int
	limit int
}

func (p pageRequest) offset() int {
	return (p.page - 1) * p.limit
}

// parsePageRequest reads the 1-based page and the page size from ?page and ?limit
func parsePageRequest(ctx *gin.Context) (pageRequest, error) {
	req := pageRequest{page: 1, limit: defaultPageSize}

	if raw := ctx.Query("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			return req, &services.ValidationError{Field: "page", Message: "must be a positive integer"}
		}
		if page > maxPage {
			return req, &services.ValidationError{Field: "page", Message: fmt.Sprintf("must not exceed %d", maxPage)}
		}
		req.page = page
	}
	if raw := ctx.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return req, &services.ValidationError{Field: "limit", Message: "must be a positive integer"}
		}
		req.limit = min(limit, maxPageSize)
	}
	return req, nil
}

// outOfRange reports a page past the last one; the first page always exists
func (p pageRequest) outOfRange(total int64) bool {
	return p.page > 1 && int64(p.offset()) >= total
}

func newPage[T any](ctx *gin.Context, req pageRequest, total int64, results []T) Page[T] {
	page := Page[T]{Count: total, Results: results}
	if page.Results == nil {
		page.Results = []T{}
	}
	if int64(req.page*req.limit) < total {
		next := pageURL(ctx, req.page+1)
		page.Next = &next
	}
	if req.page > 1 {
		previous := pageURL(ctx, req.page-1)
		page.Previous = &previous
	}
	return page
}

// pageURL rebuilds the absolute request URL pointing at another page
func pageURL(ctx *gin.Context, page int) string {
	scheme := "http"
	if ctx.Request.TLS != nil {
		scheme = "https"
	}
	if forwarded := ctx.GetHeader("X-Forwarded-Proto"); forwarded != "" {
		scheme = forwarded
	}

	query := ctx.Request.URL.Query()
	if page == 1 {
		query.Del("page")
	} else {
		query.Set("page", strconv.Itoa(page))
	}

	u := url.URL{
		Scheme:   scheme,
		Host:     ctx.Request.Host,
		Path:     ctx.Request.URL.Path,
		RawQuery: query.Encode(),
	}
	return u.String()
}

func invalidPage(page int) error {
	return &services.NotFoundError{Entity: fmt.Sprintf("page %d", page)}
}
