package session

import (
	"fmt"

	"github.com/Eudes8/Compta/port"
)

const (
	msgNewPiece      = "Nouvelle pièce"
	msgInverted      = "Montants inversés"
	msgSorted        = "Lignes triées par numéro de compte"
	msgBalanced      = "Ligne d'équilibrage calculée"
	msgAlreadyBal    = "Pièce déjà équilibrée"
	msgSaving        = "Enregistrement en cours..."
	msgDeleteAborted = "Suppression annulée"
	msgValid         = "Pièce valide"
)

func msgSaved(number string) string {
	return fmt.Sprintf("Pièce %s enregistrée", number)
}

func msgSavedKeptEdits(number string) string {
	return fmt.Sprintf("Pièce %s enregistrée, modifications en cours conservées", number)
}

func msgDeleted(number string) string {
	return fmt.Sprintf("Pièce %s supprimée", number)
}

func msgConfirmDelete(number string) string {
	return fmt.Sprintf("Supprimer la pièce %s ?", number)
}

func msgViewing(number string) string {
	return fmt.Sprintf("Consultation de la pièce %s", number)
}

func msgEditing(number string) string {
	return fmt.Sprintf("Modification de la pièce %s", number)
}

func msgInvalid(n int) string {
	if n == 1 {
		return "La pièce contient 1 erreur"
	}
	return fmt.Sprintf("La pièce contient %d erreurs", n)
}

func msgFailed(op string, err error) string {
	return fmt.Sprintf("Erreur lors de %s : %v", op, err)
}

// publish records msg as the latest status and offers it to the status
// channel. When the channel is full the oldest message is dropped.
func (s *Session) publish(msg string) {
	s.lastStatus = msg
	select {
	case s.status <- msg:
		return
	default:
	}
	select {
	case <-s.status:
	default:
	}
	select {
	case s.status <- msg:
	default:
	}
}

// Status returns the channel status messages are published on.
func (s *Session) Status() <-chan string {
	return s.status
}

func msgAdjacent(dir port.Direction, found bool) string {
	word := "suivante"
	if dir == port.Previous {
		word = "précédente"
	}
	if found {
		return "Pièce " + word
	}
	return "Pas de pièce " + word
}
