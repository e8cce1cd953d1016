// Package model defines the core domain types shared across the service.
package model

import "time"

// Criterion is a single scoring criterion within a framework category.
// Weights are percentages (0-100) and are expected to sum to 100 within
// their category; ValidateFramework in the scoring package enforces shape.
type Criterion struct {
	ID          string  `json:"id" yaml:"id"`
	CategoryID  string  `json:"category_id" yaml:"category_id,omitempty"`
	Name        string  `json:"name" yaml:"name"`
	Description string  `json:"description,omitempty" yaml:"description,omitempty"`
	Weight      float64 `json:"weight" yaml:"weight"`
	SortOrder   int     `json:"sort_order" yaml:"sort_order,omitempty"`
}

// Category groups criteria under a shared weight within the framework.
type Category struct {
	ID        string      `json:"id" yaml:"id"`
	Name      string      `json:"name" yaml:"name"`
	Weight    float64     `json:"weight" yaml:"weight"`
	SortOrder int         `json:"sort_order" yaml:"sort_order,omitempty"`
	Criteria  []Criterion `json:"criteria" yaml:"criteria"`
}

// Theme is the unit of investment analysis. Aggregate scores are computed
// on read from the current detailed_scores set and never persisted.
type Theme struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Pillar        string    `json:"pillar"`
	Sector        string    `json:"sector"`
	Description   string    `json:"description,omitempty"`
	Keywords      []string  `json:"keywords,omitempty"`
	InScope       []string  `json:"in_scope,omitempty"`
	OutOfScope    []string  `json:"out_of_scope,omitempty"`
	BusinessModel string    `json:"business_model,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
