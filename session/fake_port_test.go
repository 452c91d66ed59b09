package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/Eudes8/Compta/piece"
	"github.com/Eudes8/Compta/port"
)

// fakePort keeps saved documents in memory, in save order.
type fakePort struct {
	mu        sync.Mutex
	journals  map[string]port.JournalInfo
	documents []port.Document
	next      string

	saveErr    error
	saveResult *port.SaveResult
	deleteErr  error
	saves      int
}

func newFakePort() *fakePort {
	return &fakePort{
		journals: map[string]port.JournalInfo{
			"AC": {Code: "AC", Label: "Achats", Kind: port.Purchases},
			"BQ": {Code: "BQ", Label: "Banque", Kind: port.Bank},
		},
		next: "AC240001",
	}
}

var _ port.Port = (*fakePort)(nil)

func (f *fakePort) SuggestNextNumber(ctx context.Context, journal string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.next, nil
}

func (f *fakePort) FetchJournalInfo(ctx context.Context, journal string) (port.JournalInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	info, ok := f.journals[journal]
	if !ok {
		return port.JournalInfo{}, &port.BusinessRejection{Op: "journal", Message: "journal inconnu"}
	}
	return info, nil
}

func (f *fakePort) FetchDocument(ctx context.Context, number string) (*port.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.documents {
		if f.documents[i].Header.Number == number {
			doc := f.documents[i]
			return &doc, nil
		}
	}
	return nil, port.ErrNotFound
}

func (f *fakePort) FetchAdjacentDocument(ctx context.Context, journal, number string, dir port.Direction) (*port.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	idx := len(f.documents)
	for i := range f.documents {
		if f.documents[i].Header.Number == number {
			idx = i
		}
	}
	switch dir {
	case port.Previous:
		idx--
	default:
		idx++
	}
	if idx < 0 || idx >= len(f.documents) {
		return nil, nil
	}
	doc := f.documents[idx]
	return &doc, nil
}

func (f *fakePort) SearchAccounts(ctx context.Context, query string, kind port.JournalKind, limit int) ([]port.AccountMatch, error) {
	return nil, nil
}

func (f *fakePort) SearchCounterparties(ctx context.Context, query string, kind port.JournalKind, limit int) ([]port.CounterpartyMatch, error) {
	return nil, nil
}

func (f *fakePort) SaveDocument(ctx context.Context, header piece.Header, lines []piece.Line) (port.SaveResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves++
	if f.saveErr != nil {
		return port.SaveResult{}, f.saveErr
	}
	if f.saveResult != nil {
		return *f.saveResult, nil
	}
	f.documents = append(f.documents, port.Document{Header: header, Lines: lines})
	f.next = fmt.Sprintf("AC24%04d", len(f.documents)+1)
	return port.SaveResult{Success: true, SavedNumber: header.Number}, nil
}

func (f *fakePort) DeleteDocument(ctx context.Context, number string) (port.DeleteResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return port.DeleteResult{}, f.deleteErr
	}
	for i := range f.documents {
		if f.documents[i].Header.Number == number {
			f.documents = append(f.documents[:i], f.documents[i+1:]...)
			return port.DeleteResult{Success: true}, nil
		}
	}
	return port.DeleteResult{Success: false, Message: "pièce introuvable"}, nil
}

func (f *fakePort) SearchDocuments(ctx context.Context, criteria port.SearchCriteria) ([]port.DocumentSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []port.DocumentSummary
	for _, d := range f.documents {
		out = append(out, port.DocumentSummary{Number: d.Header.Number, Journal: d.Header.Journal, Date: d.Header.Date})
	}
	return out, nil
}
