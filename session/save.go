package session

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/Eudes8/Compta/piece"
	"github.com/Eudes8/Compta/port"
	"github.com/Eudes8/Compta/telemetry"
)

// SaveTicket is what BeginSave hands to the goroutine calling the backend.
type SaveTicket struct {
	Header piece.Header
	Lines  []piece.Line

	edits uint64
}

// BeginSave validates the current piece and, when it passes, snapshots it
// and moves to Validating. On a validation failure nothing changes and the
// *piece.ValidationErrors is returned.
func (s *Session) BeginSave() (*SaveTicket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.editableLocked(); err != nil {
		return nil, err
	}
	if s.saving != nil {
		return nil, ErrBusy
	}

	if err := s.piece.Validate(s.cfg); err != nil {
		var verrs *piece.ValidationErrors
		if errors.As(err, &verrs) {
			s.publish(msgInvalid(len(verrs.Errors)))
		}
		return nil, err
	}

	ticket := &SaveTicket{
		Header: s.piece.Header,
		Lines:  s.piece.Snapshot(),
		edits:  s.edits,
	}
	s.saving = ticket
	s.state = Validating
	s.publish(msgSaving)
	return ticket, nil
}

// CompleteSave applies the backend answer to a save. A failed or rejected
// save leaves the piece and its modified flag as they are. A successful save
// opens a fresh piece, unless the piece was edited while the call was in
// flight: those edits are kept.
func (s *Session) CompleteSave(ticket *SaveTicket, result port.SaveResult, callErr error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.saving == ticket
	if current {
		s.saving = nil
		if s.state == Validating {
			s.state = Editing
		}
	}

	if callErr != nil {
		s.logger.Error("save failed", zap.String("number", ticket.Header.Number), zap.Error(callErr))
		s.publish(msgFailed("l'enregistrement", callErr))
		return callErr
	}
	if !result.Success {
		rejection := &port.BusinessRejection{Op: "save", Message: result.Message}
		s.logger.Warn("save rejected", zap.String("number", ticket.Header.Number), zap.String("reason", result.Message))
		s.publish(msgFailed("l'enregistrement", errors.New(result.Message)))
		return rejection
	}

	number := result.SavedNumber
	if number == "" {
		number = ticket.Header.Number
	}
	s.logger.Info("piece saved", zap.String("number", number), zap.Int("lines", len(ticket.Lines)))

	if !current {
		// The session moved on (new piece, other piece loaded) meanwhile.
		s.publish(msgSaved(number))
		return nil
	}

	if s.edits != ticket.edits {
		s.piece.Header.Number = number
		s.state = Editing
		s.publish(msgSavedKeptEdits(number))
		return nil
	}

	s.resetLocked()
	s.state = Saved
	s.publish(msgSaved(number))
	return nil
}

// Save validates, sends and applies the answer in one call, then numbers the
// fresh piece.
func (s *Session) Save(ctx context.Context) error {
	timer := telemetry.FromContext(ctx).Start("session.save")
	defer timer.End()

	ticket, err := s.BeginSave()
	if err != nil {
		return err
	}

	sendTimer := timer.Child("port.save_document")
	callCtx, cancel := s.callContext(ctx)
	result, callErr := s.port.SaveDocument(callCtx, ticket.Header, ticket.Lines)
	cancel()
	sendTimer.End()

	if err := s.CompleteSave(ticket, result, callErr); err != nil {
		return err
	}
	if s.State() == Saved {
		return s.SuggestNumber(ctx)
	}
	return nil
}
