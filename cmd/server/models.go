package main

import (
	"time"

	"github.com/liamcoop/arules/internal/catalog"
	"github.com/liamcoop/arules/rules"
	"github.com/liamcoop/arules/schema"
)

// API request and response models

// CreateRuleRequest is the body of POST /api/v1/rules
type CreateRuleRequest struct {
	ID          string                  `json:"id,omitempty" example:"adult-check"`
	Name        string                  `json:"name" example:"Adult check"`
	Description string                  `json:"description,omitempty" example:"Greets adults"`
	Schema      string                  `json:"schema" example:"person"`
	Event       string                  `json:"event" example:"created"`
	Conditions  []catalog.ConditionSpec `json:"conditions"`
	Action      catalog.ActionSpec      `json:"action"`
}

func (r CreateRuleRequest) definition() *catalog.Definition {
	return &catalog.Definition{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Schema:      r.Schema,
		Event:       r.Event,
		Conditions:  r.Conditions,
		Action:      r.Action,
	}
}

// RuleResponse represents a rule in API responses
type RuleResponse struct {
	ID                string                  `json:"id" example:"123e4567-e89b-12d3-a456-426614174000"`
	Name              string                  `json:"name" example:"Adult check"`
	Description       string                  `json:"description,omitempty"`
	Schema            string                  `json:"schema" example:"person"`
	Event             string                  `json:"event" example:"created"`
	Conditions        []catalog.ConditionSpec `json:"conditions"`
	Action            catalog.ActionSpec      `json:"action"`
	ActionDescription string                  `json:"actionDescription" example:"Show alert \"hello\""`
	CreatedAt         time.Time               `json:"createdAt" example:"2024-01-15T10:30:00Z"`
}

func newRuleResponse(def *catalog.Definition, rule *rules.Rule) RuleResponse {
	return RuleResponse{
		ID:                def.ID,
		Name:              def.Name,
		Description:       def.Description,
		Schema:            def.Schema,
		Event:             def.Event,
		Conditions:        def.Conditions,
		Action:            def.Action,
		ActionDescription: rule.ActionDescription,
		CreatedAt:         rule.CreatedAt,
	}
}

// RulesListResponse represents the response for listing rules
type RulesListResponse struct {
	Rules []RuleResponse `json:"rules"`
}

// SchemasListResponse lists every declared schema
type SchemasListResponse struct {
	Schemas []schema.Schema `json:"schemas"`
}

// OperatorsResponse lists the supported condition operators
type OperatorsResponse struct {
	Operators []rules.Operator `json:"operators"`
}

// DispatchResponse acknowledges a dispatch
type DispatchResponse struct {
	Trigger string `json:"trigger" example:"person/created"`
	Rules   int    `json:"rules" example:"2"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error" example:"rule not found"`
	Details string `json:"details,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status        string `json:"status" example:"healthy"`
	Storage       string `json:"storage" example:"memory"`
	RulesLoaded   int    `json:"rulesLoaded" example:"3"`
	RuleFailures  int64  `json:"ruleFailures"`
	TotalErrors   int64  `json:"totalErrors"`
	TotalWarnings int64  `json:"totalWarnings"`
	Error         string `json:"error,omitempty"`
}
