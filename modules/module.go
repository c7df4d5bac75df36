package modules

import (
	"context"

	"github.com/aukilabs/fourd/messages"
	"github.com/aukilabs/fourd/models"
)

// Module is the interface that describes a module that extends the level
// server capabilities.
type Module interface {
	// Returns the module name.
	Name() string

	// Initializes the module once a participant joined a session.
	Init(*models.Session, *models.Participant)

	// Handles a given message. Modules are free to decide whether they handle a
	// message.
	//
	// Returning messages.ErrModuleMsgSkip indicates that handling a message was
	// skipped.
	//
	// Any other returned errors causes the current WebSocket client to be
	// disconnected.
	HandleMsg(context.Context, messages.ResponseSender, messages.Msg) error

	// Handles a client disconnection.
	HandleDisconnect()
}
