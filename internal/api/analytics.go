package api

import (
	"context"
	"net/http"
)

type WeeklyTrend struct {
	Dates  []string `json:"dates"`
	Counts []int    `json:"counts"`
}

type DashboardStats struct {
	TodayCases    int         `json:"today_cases"`
	PositiveRate  float64     `json:"positive_rate"`
	TotalPatients int         `json:"total_patients"`
	WeeklyTrend   WeeklyTrend `json:"weekly_trend"`
}

// TrendPoint is one day of the weekly trend.
type TrendPoint struct {
	Day   string
	Count int
}

func (w WeeklyTrend) Points() []TrendPoint {
	n := len(w.Dates)
	if len(w.Counts) < n {
		n = len(w.Counts)
	}
	points := make([]TrendPoint, n)
	for i := 0; i < n; i++ {
		points[i] = TrendPoint{Day: w.Dates[i], Count: w.Counts[i]}
	}
	return points
}

func (c *Client) DashboardStats(ctx context.Context) (*DashboardStats, error) {
	stats := &DashboardStats{}
	return stats, c.executeRequest(
		ctx,
		outboundRequest{
			method:  http.MethodGet,
			path:    "analytics/dashboard/",
			respObj: stats,
		},
	)
}
