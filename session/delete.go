package session

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/Eudes8/Compta/port"
	"github.com/Eudes8/Compta/telemetry"
)

// RequestDelete asks to delete a saved piece (the open one when number is
// empty). The session waits in Deleting until ConfirmDelete or CancelDelete.
func (s *Session) RequestDelete(number string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case Empty:
		return ErrNoPiece
	case Deleting, Validating:
		return ErrBusy
	}
	if strings.TrimSpace(number) == "" {
		number = s.piece.Header.Number
	}
	if strings.TrimSpace(number) == "" {
		return ErrNoPiece
	}

	s.beforeDelete = s.state
	s.pendingDelete = number
	s.state = Deleting
	s.publish(msgConfirmDelete(number))
	return nil
}

// CancelDelete abandons a pending deletion.
func (s *Session) CancelDelete() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Deleting {
		return
	}
	s.state = s.beforeDelete
	s.pendingDelete = ""
	s.publish(msgDeleteAborted)
}

// ConfirmDelete deletes the pending piece. On success, if the deleted piece
// is the one on screen, a fresh piece is opened; otherwise the session returns
// to where it was.
func (s *Session) ConfirmDelete(ctx context.Context) error {
	timer := telemetry.FromContext(ctx).Start("session.delete")
	defer timer.End()

	s.mu.Lock()
	if s.state != Deleting {
		s.mu.Unlock()
		return ErrNoPendingDelete
	}
	number := s.pendingDelete
	s.mu.Unlock()

	callCtx, cancel := s.callContext(ctx)
	result, err := s.port.DeleteDocument(callCtx, number)
	cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = s.beforeDelete
	s.pendingDelete = ""

	if err != nil {
		s.logger.Error("delete failed", zap.String("number", number), zap.Error(err))
		s.publish(msgFailed("la suppression", err))
		return err
	}
	if !result.Success {
		s.publish(msgFailed("la suppression", &port.BusinessRejection{Op: "delete", Message: result.Message}))
		return &port.BusinessRejection{Op: "delete", Message: result.Message}
	}

	s.logger.Info("piece deleted", zap.String("number", number))
	if s.piece.Header.Number == number {
		s.resetLocked()
	}
	s.publish(msgDeleted(number))
	return nil
}
