// Package realtime keeps the live connections of each tenant and fans events out to them.
package realtime

import (
	"context"
	"errors"

	"github.com/mcoot/yeargame/internal/model"
)

// ConnID identifies a registered connection
type ConnID string

// Conn is a live client connection. Send must respect ctx's deadline.
type Conn interface {
	Send(ctx context.Context, msg []byte) error
	Close() error
}

// ErrSendFailed marks a delivery that did not complete; the connection is pruned
var ErrSendFailed = errors.New("send failed")

// ErrUnknownConnection is returned for a connection id that is not registered
var ErrUnknownConnection = errors.New("connection not registered")

// Controller is the part of the session controller that connection commands drive
type Controller interface {
	JoinPlayer(ctx context.Context, tenant model.TenantID, name, adminToken string) (*model.Player, error)
	Authenticate(ctx context.Context, tenant model.TenantID, playerToken string) (*model.Player, error)
	SubmitGuess(ctx context.Context, tenant model.TenantID, playerToken string, year int, bet bool) (*model.Guess, error)
	UpdateBet(ctx context.Context, tenant model.TenantID, playerToken string, bet bool) (*model.Guess, error)
}
