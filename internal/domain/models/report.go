package models

import "time"

// DailyQueueReport summarises the truck queue of one day.
type DailyQueueReport struct {
	Date           string    `bson:"date" json:"date"`
	TotalBookings  int       `bson:"total_bookings" json:"total_bookings"`
	Pending        int       `bson:"pending" json:"pending"`
	CheckedIn      int       `bson:"checked_in" json:"checked_in"`
	InProgress     int       `bson:"in_progress" json:"in_progress"`
	Completed      int       `bson:"completed" json:"completed"`
	Suppliers      int       `bson:"suppliers" json:"suppliers"`
	TotalWeightIn  float64   `bson:"total_weight_in" json:"total_weight_in"`
	TotalWeightOut float64   `bson:"total_weight_out" json:"total_weight_out"`
	NetWeight      float64   `bson:"net_weight" json:"net_weight"`
	CreatedAt      time.Time `bson:"created_at" json:"created_at"`
}
