package order

import "time"

// HandshakeStep is the last signature handshake step whose output has been
// recorded. Steps complete in declaration order.
type HandshakeStep string

const (
	StepNone            HandshakeStep = ""
	StepBlobUploaded    HandshakeStep = "blob_uploaded"
	StepDocumentCreated HandshakeStep = "document_created"
	StepRouteCreated    HandshakeStep = "route_created"
	StepTicketIssued    HandshakeStep = "ticket_issued"
)

var handshakeOrder = []HandshakeStep{StepNone, StepBlobUploaded, StepDocumentCreated, StepRouteCreated, StepTicketIssued}

// Reached reports whether target has been recorded, either directly or
// implied by a later step.
func (s HandshakeStep) Reached(target HandshakeStep) bool {
	pos, want := -1, -1
	for i, step := range handshakeOrder {
		if step == s {
			pos = i
		}
		if step == target {
			want = i
		}
	}
	return pos >= want && want >= 0
}

// SignatureStatus is the order's signature sub-status as shown to users.
type SignatureStatus string

const (
	SignatureNone           SignatureStatus = ""
	SignatureAwaitingClient SignatureStatus = "awaiting_client_signature"
	SignatureSentToClient   SignatureStatus = "sent_to_client"
)

// SignatureProgress records the outputs of each handshake step so that a
// failed request can resume where it stopped.
type SignatureProgress struct {
	Step         HandshakeStep
	Status       SignatureStatus
	BlobID       string
	DocumentID   string
	DownloadLink string
	Ticket       string
	UpdatedAt    *time.Time
}
