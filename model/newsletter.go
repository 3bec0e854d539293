package model

import "time"

// Subscriber statuses
const (
	SubscriberActive       = "active"
	SubscriberUnsubscribed = "unsubscribed"
)

// Subscriber is a newsletter list entry
type Subscriber struct {
	Email          string     `json:"email"`
	Status         string     `json:"status"`
	Token          string     `json:"token"` // unsubscribe token
	Source         string     `json:"source,omitempty"`
	SubscribedAt   time.Time  `json:"subscribedAt"`
	UnsubscribedAt *time.Time `json:"unsubscribedAt,omitempty"`
}

// NewsletterAnalytics aggregates the subscriber list
type NewsletterAnalytics struct {
	Total        int               `json:"total"`
	Active       int               `json:"active"`
	Unsubscribed int               `json:"unsubscribed"`
	SignupsByDay []TimeSeriesPoint `json:"signupsByDay"`
}

// TimeSeriesPoint represents a point in time-series data
type TimeSeriesPoint struct {
	Date  string `json:"date"`  // Date in "YYYY-MM-DD" format
	Value int64  `json:"value"`
}
