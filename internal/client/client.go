// Package client implements a Go client for the token server protocol. It is
// used by the command line tools and by the integration tests; third parties
// can use it to talk to a vault without touching the wire format.
package client

import (
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/jellydator/validation"

	apperrors "github.com/tokenvault/tokenvault/internal/errors"
	"github.com/tokenvault/tokenvault/internal/protocol"
	appvalidation "github.com/tokenvault/tokenvault/internal/validation"
)

// ErrAccessDenied is returned when the server answers a request with DENIED.
var ErrAccessDenied = apperrors.Wrap(apperrors.ErrForbidden, protocol.MsgAccessDenied)

// ErrRegistrationFailed is returned when the server rejects a registration.
var ErrRegistrationFailed = apperrors.Wrap(apperrors.ErrConflict, protocol.MsgUsernameExists)

// ErrLoginFailed is returned when the server rejects a login.
var ErrLoginFailed = apperrors.Wrap(apperrors.ErrUnauthorized, protocol.MsgIncorrectInput)

// Client is a connection to a token server. It is not safe for concurrent
// use; the protocol is a strict request/response alternation.
type Client struct {
	conn   net.Conn
	reader *protocol.Reader
	writer *protocol.Writer
}

// Dial connects to a token server at addr.
func Dial(addr string) (*Client, error) {
	return DialTimeout(addr, 10*time.Second)
}

// DialTimeout connects to a token server at addr with a connect timeout.
func DialTimeout(addr string, timeout time.Duration) (*Client, error) {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
	}
	return &Client{
		conn:   conn,
		reader: protocol.NewReader(conn),
		writer: protocol.NewWriter(conn),
	}, nil
}

// Close closes the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// ValidateUsername checks a username against the client-side account policy
// before it is sent to the server.
func ValidateUsername(username string) error {
	err := validation.Validate(username,
		validation.Required,
		appvalidation.NotBlank,
		appvalidation.Username,
	)
	return appvalidation.WrapValidationError(err)
}

// Register creates an account on the server and leaves the connection
// authenticated as that account. The username is validated locally first.
func (c *Client) Register(username, password string, access int32) error {
	if err := ValidateUsername(username); err != nil {
		return err
	}

	if err := c.writer.WriteOpcode(protocol.OpRegister); err != nil {
		return err
	}
	if err := c.writer.WriteString(username); err != nil {
		return err
	}
	if err := c.writer.WriteString(password); err != nil {
		return err
	}
	if err := c.writer.WriteInt32(access); err != nil {
		return err
	}

	reply, err := c.reader.ReadString()
	if err != nil {
		return err
	}
	if reply != protocol.MsgRegisterOK {
		if reply == protocol.MsgUsernameExists {
			return ErrRegistrationFailed
		}
		return apperrors.Wrap(apperrors.ErrInvalidInput, reply)
	}
	return nil
}

// Login authenticates the connection with existing credentials. Success is a
// welcome reply; anything else is a failed login.
func (c *Client) Login(username, password string) error {
	if err := c.writer.WriteOpcode(protocol.OpLogin); err != nil {
		return err
	}
	if err := c.writer.WriteString(username); err != nil {
		return err
	}
	if err := c.writer.WriteString(password); err != nil {
		return err
	}

	reply, err := c.reader.ReadString()
	if err != nil {
		return err
	}
	if !strings.HasPrefix(reply, protocol.MsgLoginSuccessful) {
		return ErrLoginFailed
	}
	return nil
}

// RequestToken asks the server to issue a new token for cardID.
func (c *Client) RequestToken(cardID string) (string, error) {
	reply, err := c.exchange(protocol.OpRegisterToken, cardID)
	if err != nil {
		return "", err
	}
	switch reply {
	case protocol.MsgInvalidCardID:
		return "", apperrors.Wrap(apperrors.ErrInvalidInput, reply)
	case protocol.MsgTokenCreateFailed:
		return "", apperrors.Wrap(apperrors.ErrExhausted, reply)
	}
	return reply, nil
}

// RequestCard asks the server for the card id behind tokenID.
func (c *Client) RequestCard(tokenID string) (string, error) {
	reply, err := c.exchange(protocol.OpRequestCard, tokenID)
	if err != nil {
		return "", err
	}
	if reply == protocol.MsgIDNotFound {
		return "", apperrors.Wrap(apperrors.ErrNotFound, reply)
	}
	return reply, nil
}

// exchange runs the accepted-then-payload round trip shared by the two
// authenticated operations.
func (c *Client) exchange(op protocol.Opcode, payload string) (string, error) {
	if err := c.writer.WriteOpcode(op); err != nil {
		return "", err
	}

	status, err := c.reader.ReadOpcode()
	if err != nil {
		return "", err
	}
	if status != protocol.OpAccepted {
		return "", ErrAccessDenied
	}

	if err := c.writer.WriteString(payload); err != nil {
		return "", err
	}
	return c.reader.ReadString()
}
