package models

import "time"

// Plan - тариф членства.
type Plan struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	Price          float64   `json:"price"`
	DurationInDays int       `json:"duration_in_days"`
	Features       []string  `json:"features"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// PlanPatch - частичное обновление тарифа. Поля, равные nil, сохраняют прежнее значение.
type PlanPatch struct {
	Name           *string
	Description    *string
	Price          *float64
	DurationInDays *int
	Features       *[]string
	IsActive       *bool
}

// Apply возвращает тариф с применёнными изменениями.
func (p PlanPatch) Apply(plan Plan) Plan {
	if p.Name != nil {
		plan.Name = *p.Name
	}
	if p.Description != nil {
		plan.Description = *p.Description
	}
	if p.Price != nil {
		plan.Price = *p.Price
	}
	if p.DurationInDays != nil {
		plan.DurationInDays = *p.DurationInDays
	}
	if p.Features != nil {
		plan.Features = *p.Features
	}
	if p.IsActive != nil {
		plan.IsActive = *p.IsActive
	}
	return plan
}
