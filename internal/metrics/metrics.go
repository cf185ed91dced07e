// Package metrics holds the Prometheus collectors of the API.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recipes_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "route", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recipes_api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "recipes_api_active_requests",
			Help: "Number of requests currently being served",
		},
	)

	APIRateLimited = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "recipes_api_rate_limited_total",
			Help: "Requests rejected by the rate limiter",
		},
	)

	// Domain metrics
	RecipeWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recipes_recipe_writes_total",
			Help: "Recipe create, update and delete operations",
		},
		[]string{"operation", "result"},
	)

	MembershipChanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recipes_membership_changes_total",
			Help: "Favorite, shopping cart and subscription changes",
		},
		[]string{"relation", "operation", "result"},
	)

	ShoppingListItems = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "recipes_shopping_list_items",
			Help:    "Number of aggregated lines per generated shopping list",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100},
		},
	)
)

// RecordAPIRequest records one served request
func RecordAPIRequest(method, route string, status int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// TrackActiveRequest increments or decrements the in-flight gauge
func TrackActiveRequest(start bool) {
	if start {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordRecipeWrite records a recipe mutation outcome
func RecordRecipeWrite(operation string, err error) {
	RecipeWrites.WithLabelValues(operation, result(err)).Inc()
}

// RecordMembershipChange records a relation mutation outcome
func RecordMembershipChange(relation, operation string, err error) {
	MembershipChanges.WithLabelValues(relation, operation, result(err)).Inc()
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
