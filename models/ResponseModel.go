package models

import "time"

// Swagger / API docs: common request and response models referenced by
// handler annotations.

// ErrorResponse is used in @Failure for error responses
type ErrorResponse struct {
	Error   string `json:"error" example:"Invalid input"`
	Details string `json:"details,omitempty" example:""`
}

// MessageResponse is generic response for APIs that return only {"message": "..."}
type MessageResponse struct {
	Message string `json:"message" example:"Success"`
}

// PaginatedResponse wraps list endpoints.
type PaginatedResponse struct {
	Data       interface{} `json:"data"`
	Pagination Pagination  `json:"pagination"`
}

type Pagination struct {
	CurrentPage  int  `json:"current_page"`
	PageSize     int  `json:"page_size"`
	TotalRecords int  `json:"total_records"`
	TotalPages   int  `json:"total_pages"`
	HasNext      bool `json:"has_next"`
	HasPrev      bool `json:"has_prev"`
}

// CreateDraftResponse is the response for the create-draft API (swagger)
type CreateDraftResponse struct {
	ID              string  `json:"id" example:"7b1c2e64-0b1a-4f3e-9a43-1f2d3c4b5a69"`
	Number          string  `json:"number" example:"EVT-2026-0042"`
	Status          string  `json:"status" example:"draft"`
	CurrentStep     string  `json:"current_step" example:"info"`
	ProgressPercent float64 `json:"progress_percent" example:"0"`
}

// StepRequest is the body for the save-step API.
type StepRequest struct {
	Step string `json:"step" binding:"required" example:"services"`
	// Data holds the partial payload for the step; its shape depends on Step.
	Data interface{} `json:"data"`
}

// StepResponse returns the updated wizard position, the recomputed breakdown
// when the step affects pricing, and the history entries the save appended.
type StepResponse struct {
	CurrentStep     string         `json:"current_step"`
	ProgressPercent float64        `json:"progress_percent"`
	Amounts         *Breakdown     `json:"amounts,omitempty"`
	HistoryDelta    []HistoryEntry `json:"history_delta"`
	Version         int            `json:"version"`
}

// StatusChangeRequest is the staff body for status transitions.
type StatusChangeRequest struct {
	Status  string `json:"status" binding:"required" example:"under_review"`
	Comment string `json:"comment,omitempty"`
}

// StaffResponseRequest is the staff body for appending a proposal.
type StaffResponseRequest struct {
	Message         string   `json:"message" binding:"required"`
	ProposedChanges string   `json:"proposed_changes,omitempty"`
	ProposedAmount  *float64 `json:"proposed_amount,omitempty"`
	Attachments     []string `json:"attachments,omitempty"`
}

// SignatureRequest is the body for the signature API.
type SignatureRequest struct {
	Party         string `json:"party" binding:"required" example:"client"`
	SignerName    string `json:"signer_name" binding:"required"`
	SignatureBlob string `json:"signature_blob" binding:"required"`
	ConsentTerms  bool   `json:"consent_terms"`
	ConsentData   bool   `json:"consent_data"`
}

// LoginRequest is used in @Param for staff login body
type LoginRequest struct {
	Email    string `json:"email" binding:"required" example:"staff@example.com"`
	Password string `json:"password" binding:"required" example:"password"`
	IP       string `json:"ip,omitempty" example:"192.168.1.1"`
}

// LoginResponse is used in @Success for staff login
type LoginResponse struct {
	Message     string `json:"message" example:"Staff member successfully logged in"`
	AccessToken string `json:"access_token" example:"eyJhbGc..."`
	SessionID   string `json:"session_id" example:"uuid"`
	StaffID     int    `json:"staff_id" example:"1"`
	StaffName   string `json:"staff_name" example:"Julie Martin"`
}

// Staff is an internal reviewer account.
type Staff struct {
	ID        int       `json:"id"`
	Email     string    `json:"email"`
	Password  string    `json:"-"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	IsAdmin   bool      `json:"is_admin"`
	CreatedAt time.Time `json:"created_at"`
}

// Session is one authenticated staff session (one row per device).
type Session struct {
	StaffID   int       `json:"staff_id"`
	SessionID string    `json:"session_id"`
	IPAddress string    `json:"ip_address"`
	Timestamp time.Time `json:"timestamp"`
	ExpiresAt time.Time `json:"expires_at"`
}

// EmailData carries the variables substituted into notification templates.
type EmailData struct {
	ClientName  string
	Email       string
	QuoteNumber string
	Status      string
	TotalAmount string
	CompanyName string
	TrackingURL string
}
