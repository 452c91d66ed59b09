package web

import (
	"context"
	"encoding/json"
	stdErrors "errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Eudes8/Compta/errors"
	"github.com/Eudes8/Compta/piece"
	"github.com/Eudes8/Compta/port"
)

// writeJSONResponse writes a JSON response to the http.ResponseWriter.
// If encoding fails, it writes an error response.
func writeJSONResponse(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

func writeProblem(w http.ResponseWriter, status int, problem ProblemJSON) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(problem)
}

func badRequest(w http.ResponseWriter, err error) {
	writeProblem(w, http.StatusBadRequest, ProblemJSON{Kind: "bad_request", Message: err.Error()})
}

// writeError maps a port error to its status: 422 for a rejection, 404 for
// a missing document, 500 otherwise.
func (s *Server) writeError(w http.ResponseWriter, op string, err error) {
	var rejection *port.BusinessRejection
	switch {
	case stdErrors.As(err, &rejection):
		writeProblem(w, http.StatusUnprocessableEntity, ProblemJSON{Kind: "rejected", Op: op, Message: rejection.Message})
	case stdErrors.Is(err, port.ErrNotFound):
		writeProblem(w, http.StatusNotFound, ProblemJSON{Kind: "not_found", Op: op, Message: err.Error()})
	default:
		s.logger.Error("backend call failed", zap.String("op", op), zap.Error(err))
		writeProblem(w, http.StatusInternalServerError, ProblemJSON{Kind: "internal", Op: op, Message: err.Error()})
	}
}

func parseLimit(r *http.Request) (int, error) {
	text := r.URL.Query().Get("limit")
	if text == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(text)
	if err != nil || limit < 0 {
		return 0, fmt.Errorf("invalid limit %q", text)
	}
	return limit, nil
}

func toJournalJSON(info port.JournalInfo) JournalJSON {
	return JournalJSON{Code: info.Code, Label: info.Label, Kind: string(info.Kind), LastNumber: info.LastNumber}
}

// journalLister is implemented by backends that can enumerate journals.
type journalLister interface {
	Journals(ctx context.Context) ([]port.JournalInfo, error)
}

func (s *Server) handleListJournals(w http.ResponseWriter, r *http.Request) {
	lister, ok := s.backend.(journalLister)
	if !ok {
		writeProblem(w, http.StatusNotImplemented, ProblemJSON{Kind: "internal", Op: "journals", Message: "listing journals is not supported"})
		return
	}
	journals, err := lister.Journals(r.Context())
	if err != nil {
		s.writeError(w, "journals", err)
		return
	}
	out := make([]JournalJSON, 0, len(journals))
	for _, j := range journals {
		out = append(out, toJournalJSON(j))
	}
	writeJSONResponse(w, out)
}

func (s *Server) handleGetJournal(w http.ResponseWriter, r *http.Request) {
	info, err := s.backend.FetchJournalInfo(r.Context(), r.PathValue("code"))
	if err != nil {
		s.writeError(w, "fetch journal", err)
		return
	}
	writeJSONResponse(w, toJournalJSON(info))
}

func (s *Server) handleNextNumber(w http.ResponseWriter, r *http.Request) {
	number, err := s.backend.SuggestNextNumber(r.Context(), r.PathValue("code"))
	if err != nil {
		s.writeError(w, "suggest number", err)
		return
	}
	writeJSONResponse(w, NumberJSON{Number: number})
}

// handleAdjacent answers 204 when there is no document in that direction.
func (s *Server) handleAdjacent(w http.ResponseWriter, r *http.Request) {
	dir := port.Direction(r.URL.Query().Get("direction"))
	if dir != port.Previous && dir != port.Next {
		badRequest(w, fmt.Errorf("invalid direction %q", dir))
		return
	}

	doc, err := s.backend.FetchAdjacentDocument(r.Context(), r.PathValue("code"), r.URL.Query().Get("number"), dir)
	if err != nil {
		s.writeError(w, "fetch adjacent", err)
		return
	}
	if doc == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSONResponse(w, NewDocumentJSON(doc))
}

func (s *Server) handleSearchAccounts(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r)
	if err != nil {
		badRequest(w, err)
		return
	}
	q := r.URL.Query()
	matches, err := s.backend.SearchAccounts(r.Context(), q.Get("q"), port.JournalKind(q.Get("kind")), limit)
	if err != nil {
		s.writeError(w, "search accounts", err)
		return
	}
	if matches == nil {
		matches = []port.AccountMatch{}
	}
	writeJSONResponse(w, matches)
}

func (s *Server) handleSearchCounterparties(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r)
	if err != nil {
		badRequest(w, err)
		return
	}
	q := r.URL.Query()
	matches, err := s.backend.SearchCounterparties(r.Context(), q.Get("q"), port.JournalKind(q.Get("kind")), limit)
	if err != nil {
		s.writeError(w, "search counterparties", err)
		return
	}
	if matches == nil {
		matches = []port.CounterpartyMatch{}
	}
	writeJSONResponse(w, matches)
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.backend.FetchDocument(r.Context(), r.PathValue("number"))
	if err != nil {
		s.writeError(w, "fetch document", err)
		return
	}
	writeJSONResponse(w, NewDocumentJSON(doc))
}

func decodeDocument(r *http.Request) (*port.Document, error) {
	var body DocumentJSON
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("invalid request body: %w", err)
	}
	return body.document()
}

func (s *Server) handleSaveDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := decodeDocument(r)
	if err != nil {
		badRequest(w, err)
		return
	}

	result, err := s.backend.SaveDocument(r.Context(), doc.Header, doc.Lines)
	if err != nil {
		s.writeError(w, "save document", err)
		return
	}
	if result.Success {
		s.broadcast("saved:" + result.SavedNumber)
	}
	writeJSONResponse(w, SaveResultJSON{Success: result.Success, SavedNumber: result.SavedNumber, Message: result.Message})
}

// ValidationJSON is the answer of the validate endpoint.
type ValidationJSON struct {
	Valid  bool               `json:"valid"`
	Debit  decimal.Decimal    `json:"debit"`
	Credit decimal.Decimal    `json:"credit"`
	Errors []errors.ErrorJSON `json:"errors"`
}

// handleValidateDocument checks a piece without saving it.
func (s *Server) handleValidateDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := decodeDocument(r)
	if err != nil {
		badRequest(w, err)
		return
	}

	p := piece.New()
	p.Load(doc.Header, doc.Lines)
	totals := p.Totals()

	response := ValidationJSON{Valid: true, Debit: totals.Debit, Credit: totals.Credit, Errors: []errors.ErrorJSON{}}
	if err := p.Validate(s.cfg); err != nil {
		response.Valid = false
		response.Errors = errors.NewJSONFormatter().FormatAllToSlice([]error{err})
	}
	writeJSONResponse(w, response)
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	number := r.PathValue("number")
	result, err := s.backend.DeleteDocument(r.Context(), number)
	if err != nil {
		s.writeError(w, "delete document", err)
		return
	}
	if result.Success {
		s.broadcast("deleted:" + number)
	}
	writeJSONResponse(w, DeleteResultJSON{Success: result.Success, Message: result.Message})
}

func (s *Server) handleSearchDocuments(w http.ResponseWriter, r *http.Request) {
	criteria, err := parseCriteria(r)
	if err != nil {
		badRequest(w, err)
		return
	}

	summaries, err := s.backend.SearchDocuments(r.Context(), criteria)
	if err != nil {
		s.writeError(w, "search documents", err)
		return
	}
	out := make([]SummaryJSON, 0, len(summaries))
	for _, sum := range summaries {
		out = append(out, SummaryJSON{
			Number:    sum.Number,
			Journal:   sum.Journal,
			Date:      formatDate(sum.Date),
			Reference: sum.Reference,
			Total:     sum.Total,
		})
	}
	writeJSONResponse(w, out)
}

func parseCriteria(r *http.Request) (port.SearchCriteria, error) {
	q := r.URL.Query()
	criteria := port.SearchCriteria{Journal: q.Get("journal"), Number: q.Get("number")}

	var err error
	if criteria.From, err = parseDate(q.Get("from")); err != nil {
		return criteria, err
	}
	if criteria.To, err = parseDate(q.Get("to")); err != nil {
		return criteria, err
	}
	if text := q.Get("amount"); text != "" {
		value, err := decimal.NewFromString(text)
		if err != nil {
			return criteria, fmt.Errorf("invalid amount %q", text)
		}
		criteria.Amount = decimal.NewNullDecimal(value)
	}
	return criteria, nil
}
