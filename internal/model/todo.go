package model

import "time"

// Todo is a single task owned by a user. Date is the day the task is due
// ("YYYY-MM-DD"); notifications pick todos up by this date, ordered by
// creation time.
type Todo struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	Title       string    `json:"title"`
	Date        string    `json:"date"`
	IsCompleted bool      `json:"isCompleted"`
	CreatedAt   time.Time `json:"createdAt"`
}
