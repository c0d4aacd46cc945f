// Package audit captures key domain actions for compliance review. Events
// are emitted from services and fanned out to a sink; keep the model
// transport-agnostic so memory and kafka sinks stay interchangeable.
package audit

import (
	"context"
	"time"
)

// Event is emitted from domain logic to capture a key action.
type Event struct {
	Timestamp     time.Time `json:"timestamp"`
	Action        string    `json:"action"`
	StudentNumber string    `json:"student_number,omitempty"`
	Subject       string    `json:"subject,omitempty"`
	ActorID       string    `json:"actor_id,omitempty"`
	RequestID     string    `json:"request_id,omitempty"`
	Reason        string    `json:"reason,omitempty"`
}

// Action names for the events this platform emits.
const (
	EventStudentRegistered  = "student_registered"
	EventStudentDeactivated = "student_deactivated"
	EventBookingCreated     = "booking_created"
	EventBookingCancelled   = "booking_cancelled"
	EventPaymentRecorded    = "payment_recorded"
	EventResultRecorded     = "result_recorded"
	EventSessionCreated     = "session_created"
	EventVenueCreated       = "venue_created"
	EventStaffCreated       = "staff_created"
	EventStaffLogin         = "staff_login"
	EventStaffLoginFailed   = "staff_login_failed"
)

// Sink receives events from the publisher.
type Sink interface {
	Append(ctx context.Context, event Event) error
}
