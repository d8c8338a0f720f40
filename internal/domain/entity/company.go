package entity

import "time"

// Company is a tenant. All users, rules and claims belong to exactly one company.
type Company struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Country   string    `json:"country"`
	Currency  string    `json:"currency"` // 3-letter code, fixed at creation
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}
