package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/google/uuid"

	accountDomain "github.com/tokenvault/tokenvault/internal/account/domain"
	accountUsecase "github.com/tokenvault/tokenvault/internal/account/usecase"
	"github.com/tokenvault/tokenvault/internal/metrics"
	"github.com/tokenvault/tokenvault/internal/protocol"
	tokenizationDomain "github.com/tokenvault/tokenvault/internal/tokenization/domain"
	tokenizationUsecase "github.com/tokenvault/tokenvault/internal/tokenization/usecase"
)

// session is the per-connection protocol state machine. It starts
// unauthenticated, becomes authenticated on the first successful REGISTER or
// LOGIN, and then serves one opcode per request/response round trip until the
// peer disconnects. Failures local to one request are logged and the loop
// continues; only a failed opcode read ends the session.
type session struct {
	id       string
	conn     net.Conn
	reader   *protocol.Reader
	writer   *protocol.Writer
	logger   *slog.Logger
	accounts accountUsecase.UseCase
	tokens   tokenizationUsecase.UseCase
	metrics  metrics.BusinessMetrics

	user *accountDomain.User
}

func newSession(
	conn net.Conn,
	logger *slog.Logger,
	accounts accountUsecase.UseCase,
	tokens tokenizationUsecase.UseCase,
	businessMetrics metrics.BusinessMetrics,
) *session {
	id := uuid.NewString()
	return &session{
		id:       id,
		conn:     conn,
		reader:   protocol.NewReader(conn),
		writer:   protocol.NewWriter(conn),
		logger:   logger.With(slog.String("session_id", id), slog.String("remote_addr", conn.RemoteAddr().String())),
		accounts: accounts,
		tokens:   tokens,
		metrics:  businessMetrics,
	}
}

// run drives the session until the connection ends. It owns the connection
// and closes it on return.
func (s *session) run(ctx context.Context) {
	start := time.Now()
	s.metrics.RecordOperation(ctx, "session", "open", "success")
	defer func() {
		s.conn.Close()
		s.metrics.RecordOperation(ctx, "session", "close", "success")
		s.metrics.RecordDuration(ctx, "session", "close", time.Since(start), "success")
		s.logger.Info("connection closed")
	}()

	s.logger.Info("connection received")

	for s.user == nil {
		if done := s.authenticateOnce(ctx); done {
			return
		}
	}

	for {
		if done := s.serveOnce(ctx); done {
			return
		}
	}
}

// authenticateOnce handles one pre-authentication round trip. Errors while
// attempting to authenticate are logged and the peer may try again on the
// same connection. Returns true when the session is over.
func (s *session) authenticateOnce(ctx context.Context) bool {
	op, err := s.reader.ReadOpcode()
	if err != nil {
		s.logDisconnect(err)
		return true
	}

	switch op {
	case protocol.OpRegister:
		err = s.handleRegister(ctx)
	case protocol.OpLogin:
		err = s.handleLogin(ctx)
	default:
		s.logger.Warn("unexpected opcode before authentication", slog.String("opcode", op.String()))
		return false
	}

	if err != nil {
		s.logger.Error("authentication attempt failed", slog.Any("error", err))
	}
	return false
}

// serveOnce handles one authenticated round trip. Returns true when the
// session is over.
func (s *session) serveOnce(ctx context.Context) bool {
	op, err := s.reader.ReadOpcode()
	if err != nil {
		s.logDisconnect(err)
		return true
	}

	switch {
	case op == protocol.OpRequestCard && s.user.Access.AtLeast(accountDomain.AccessRequest):
		err = s.handleRequestCard(ctx)
	case op == protocol.OpRegisterToken && s.user.Access.AtLeast(accountDomain.AccessRegister):
		err = s.handleRegisterToken(ctx)
	default:
		s.logger.Warn("request denied",
			slog.String("opcode", op.String()),
			slog.String("username", s.user.Username),
			slog.String("access", s.user.Access.String()),
		)
		err = s.writer.WriteOpcode(protocol.OpDenied)
	}

	if err != nil {
		s.logger.Error("request failed", slog.Any("error", err))
	}
	return false
}

// handleRegister reads a registration payload, creates the user, and makes
// the new user the session identity on success.
func (s *session) handleRegister(ctx context.Context) error {
	username, err := s.reader.ReadString()
	if err != nil {
		return err
	}
	password, err := s.reader.ReadString()
	if err != nil {
		return err
	}
	level, err := s.reader.ReadInt32()
	if err != nil {
		return err
	}

	user, err := s.accounts.Register(ctx, accountUsecase.RegisterInput{
		Username: strings.TrimSpace(username),
		Password: strings.TrimSpace(password),
		Access:   int(level),
	})
	switch {
	case errors.Is(err, accountDomain.ErrUsernameTaken):
		return s.writer.WriteString(protocol.MsgUsernameExists)
	case err != nil:
		return s.writer.WriteString(err.Error())
	}

	if err := s.writer.WriteString(protocol.MsgRegisterOK); err != nil {
		return err
	}
	s.user = &user
	s.logger.Info("user registered",
		slog.String("username", user.Username),
		slog.String("access", user.Access.String()),
	)
	return nil
}

// handleLogin reads credentials and makes the matched user the session
// identity. A failed login leaves the session unauthenticated but open.
func (s *session) handleLogin(ctx context.Context) error {
	username, err := s.reader.ReadString()
	if err != nil {
		return err
	}
	password, err := s.reader.ReadString()
	if err != nil {
		return err
	}

	user, err := s.accounts.Login(ctx, username, password)
	if err != nil {
		return s.writer.WriteString(protocol.MsgIncorrectInput)
	}

	if err := s.writer.WriteString(fmt.Sprintf(protocol.MsgWelcomeBack, user.Username)); err != nil {
		return err
	}
	s.user = &user
	s.logger.Info("user logged in", slog.String("username", user.Username))
	return nil
}

// handleRequestCard acknowledges the request, reads a token id, and answers
// with the owning card id or the not-found sentinel.
func (s *session) handleRequestCard(ctx context.Context) error {
	if err := s.writer.WriteOpcode(protocol.OpAccepted); err != nil {
		return err
	}
	tokenID, err := s.reader.ReadString()
	if err != nil {
		return err
	}

	cardID, err := s.tokens.LookupCard(ctx, tokenID)
	switch {
	case errors.Is(err, tokenizationDomain.ErrTokenNotFound):
		cardID = protocol.MsgIDNotFound
	case err != nil:
		return err
	}

	if err := s.writer.WriteString(cardID); err != nil {
		return err
	}
	s.logger.Info("card requested",
		slog.String("username", s.user.Username),
		slog.String("card_id", cardID),
	)
	return nil
}

// handleRegisterToken acknowledges the request, reads a card id, and answers
// with a freshly issued token or the matching error message.
func (s *session) handleRegisterToken(ctx context.Context) error {
	if err := s.writer.WriteOpcode(protocol.OpAccepted); err != nil {
		return err
	}
	cardID, err := s.reader.ReadString()
	if err != nil {
		return err
	}

	tokenID, err := s.tokens.IssueToken(ctx, cardID)
	switch {
	case errors.Is(err, tokenizationDomain.ErrInvalidCardID):
		return s.writer.WriteString(protocol.MsgInvalidCardID)
	case errors.Is(err, tokenizationDomain.ErrTokenCreateFailed):
		return s.writer.WriteString(protocol.MsgTokenCreateFailed)
	case err != nil:
		return err
	}

	if err := s.writer.WriteString(tokenID); err != nil {
		return err
	}
	s.logger.Info("token created",
		slog.String("username", s.user.Username),
		slog.String("token_id", tokenID),
	)
	return nil
}

// logDisconnect logs the end of the read loop. A plain EOF or a locally
// closed socket is a normal disconnect.
func (s *session) logDisconnect(err error) {
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
		return
	}
	s.logger.Warn("connection read failed", slog.Any("error", err))
}
