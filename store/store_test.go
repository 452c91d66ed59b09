package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/alecthomas/assert/v2"
	"github.com/shopspring/decimal"

	"github.com/Eudes8/Compta/piece"
	"github.com/Eudes8/Compta/port"
)

var reference = Reference{
	Journals: []port.JournalInfo{
		{Code: "AC", Label: "Achats", Kind: port.Purchases},
		{Code: "VE", Label: "Ventes", Kind: port.Sales},
		{Code: "BQ", Label: "Banque", Kind: port.Bank},
	},
	Accounts: []port.AccountMatch{
		{Code: "401000", Label: "Fournisseurs", Type: port.AccountSupplier},
		{Code: "411000", Label: "Clients", Type: port.AccountCustomer},
		{Code: "445660", Label: "TVA déductible", Type: port.AccountTax},
		{Code: "445710", Label: "TVA collectée", Type: port.AccountTax},
		{Code: "512000", Label: "Banque", Type: port.AccountTreasury},
		{Code: "601000", Label: "Achats de marchandises", Type: port.AccountCharge},
		{Code: "606100", Label: "Fournitures non stockables", Type: port.AccountCharge},
		{Code: "701000", Label: "Ventes de produits", Type: port.AccountProduct},
	},
	Counterparties: []port.CounterpartyMatch{
		{Code: "CL001", Name: "Martin SARL", Kind: port.Customer, Account: "411000"},
		{Code: "FO001", Name: "Dupont Fournitures", Kind: port.Supplier, Account: "401000"},
		{Code: "FO002", Name: "Bureau Vallée", Kind: port.Supplier, Account: "401000"},
	},
}

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "db", "compta.db"),
		WithClock(func() time.Time { return time.Date(2024, 3, 14, 9, 0, 0, 0, time.UTC) }))
	assert.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	assert.NoError(t, s.ImportReference(context.Background(), reference))
	return s
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func purchase(number string, date time.Time, value string) (piece.Header, []piece.Line) {
	header := piece.Header{Journal: "AC", Number: number, Date: date, Reference: "FA-" + number}
	lines := []piece.Line{
		*piece.BuildLine("601000", piece.WithLabel("Achat"), piece.WithDebit(value)),
		*piece.BuildLine("401000", piece.WithLabel("Achat"), piece.WithCredit(value), piece.WithCounterparty("FO001")),
	}
	return header, lines
}

func save(t *testing.T, s *Store, header piece.Header, lines []piece.Line) {
	t.Helper()
	res, err := s.SaveDocument(context.Background(), header, lines)
	assert.NoError(t, err)
	assert.True(t, res.Success, "save %s: %s", header.Number, res.Message)
}

func TestSaveAndFetch(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	header, lines := purchase("AC240001", day(2024, 3, 1), "120.50")
	lines[1].DueDate = day(2024, 4, 30)
	lines[0].Day = 1
	save(t, s, header, lines)

	doc, err := s.FetchDocument(ctx, "AC240001")
	assert.NoError(t, err)
	assert.Equal(t, header, doc.Header)
	assert.Equal(t, 2, len(doc.Lines))
	assert.Equal(t, lines[0].ID, doc.Lines[0].ID)
	assert.Equal(t, 1, doc.Lines[0].Day)
	assert.True(t, doc.Lines[0].Debit.Equal(decimal.RequireFromString("120.50")))
	assert.True(t, doc.Lines[1].Credit.Equal(decimal.RequireFromString("120.50")))
	assert.Equal(t, "FO001", doc.Lines[1].Counterparty)
	assert.Equal(t, day(2024, 4, 30), doc.Lines[1].DueDate)

	_, err = s.FetchDocument(ctx, "AC249999")
	assert.True(t, errors.Is(err, port.ErrNotFound))
}

func TestSaveReplacesSameNumber(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	header, lines := purchase("AC240001", day(2024, 3, 1), "100")
	save(t, s, header, lines)

	header.Reference = "FA-corrigée"
	lines = append(lines[:1], *piece.BuildLine("401000", piece.WithLabel("Achat"), piece.WithCredit("80"), piece.WithCounterparty("FO001")),
		*piece.BuildLine("401000", piece.WithLabel("Achat"), piece.WithCredit("20"), piece.WithCounterparty("FO002")))
	save(t, s, header, lines)

	doc, err := s.FetchDocument(ctx, "AC240001")
	assert.NoError(t, err)
	assert.Equal(t, "FA-corrigée", doc.Header.Reference)
	assert.Equal(t, 3, len(doc.Lines))

	found, err := s.SearchDocuments(ctx, port.SearchCriteria{})
	assert.NoError(t, err)
	assert.Equal(t, 1, len(found))
}

func TestSaveDropsBlankLines(t *testing.T) {
	s := openTestStore(t)
	header, lines := purchase("AC240001", day(2024, 3, 1), "100")
	lines = append(lines, *piece.NewLine())
	save(t, s, header, lines)

	doc, err := s.FetchDocument(context.Background(), "AC240001")
	assert.NoError(t, err)
	assert.Equal(t, 2, len(doc.Lines))
}

func TestSaveRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*piece.Header, []piece.Line) []piece.Line
		want   string
	}{
		{
			name: "unknown account",
			mutate: func(h *piece.Header, lines []piece.Line) []piece.Line {
				lines[0].Account = "699999"
				return lines
			},
			want: "compte inconnu : 699999",
		},
		{
			name: "unknown counterparty",
			mutate: func(h *piece.Header, lines []piece.Line) []piece.Line {
				lines[1].Counterparty = "FO999"
				return lines
			},
			want: "tiers inconnu : FO999",
		},
		{
			name: "unknown journal",
			mutate: func(h *piece.Header, lines []piece.Line) []piece.Line {
				h.Journal = "ZZ"
				return lines
			},
			want: "journal inconnu : ZZ",
		},
		{
			name: "unbalanced",
			mutate: func(h *piece.Header, lines []piece.Line) []piece.Line {
				lines[1].Credit = decimal.NewFromInt(99)
				return lines
			},
			want: "balance: piece is not balanced (debit 100.00, credit 99.00, difference 1.00)",
		},
		{
			name: "number used by another journal",
			mutate: func(h *piece.Header, lines []piece.Line) []piece.Line {
				h.Number = "VE240001"
				return lines
			},
			want: "le numéro VE240001 est déjà utilisé dans le journal VE",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := openTestStore(t)
			ctx := context.Background()
			save(t, s, piece.Header{Journal: "VE", Number: "VE240001", Date: day(2024, 3, 1)}, []piece.Line{
				*piece.BuildLine("411000", piece.WithLabel("Vente"), piece.WithDebit("10"), piece.WithCounterparty("CL001")),
				*piece.BuildLine("701000", piece.WithLabel("Vente"), piece.WithCredit("10")),
			})

			header, lines := purchase("AC240001", day(2024, 3, 1), "100")
			lines = tt.mutate(&header, lines)

			res, err := s.SaveDocument(ctx, header, lines)
			assert.NoError(t, err)
			assert.False(t, res.Success)
			assert.Equal(t, tt.want, res.Message)

			_, err = s.FetchDocument(ctx, "AC240001")
			assert.True(t, errors.Is(err, port.ErrNotFound))
		})
	}
}

func TestSuggestNextNumber(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	number, err := s.SuggestNextNumber(ctx, "AC")
	assert.NoError(t, err)
	assert.Equal(t, "AC240001", number)

	for _, n := range []string{"AC240001", "AC240007", "AC230042", "AC24-X"} {
		header, lines := purchase(n, day(2024, 3, 1), "10")
		save(t, s, header, lines)
	}

	number, err = s.SuggestNextNumber(ctx, "AC")
	assert.NoError(t, err)
	assert.Equal(t, "AC240008", number)

	number, err = s.SuggestNextNumber(ctx, "BQ")
	assert.NoError(t, err)
	assert.Equal(t, "BQ240001", number)

	_, err = s.SuggestNextNumber(ctx, "ZZ")
	var rejection *port.BusinessRejection
	assert.True(t, errors.As(err, &rejection))
}

func TestFetchJournalInfo(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	info, err := s.FetchJournalInfo(ctx, "AC")
	assert.NoError(t, err)
	assert.Equal(t, port.JournalInfo{Code: "AC", Label: "Achats", Kind: port.Purchases}, info)

	header, lines := purchase("AC240002", day(2024, 3, 5), "10")
	save(t, s, header, lines)
	header, lines = purchase("AC240001", day(2024, 3, 1), "10")
	save(t, s, header, lines)

	info, err = s.FetchJournalInfo(ctx, "AC")
	assert.NoError(t, err)
	assert.Equal(t, "AC240002", info.LastNumber)

	journals, err := s.Journals(ctx)
	assert.NoError(t, err)
	assert.Equal(t, 3, len(journals))
	assert.Equal(t, "AC", journals[0].Code)
}

func TestFetchAdjacentDocument(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	// Date order differs from number order on purpose.
	for _, d := range []struct {
		number string
		date   time.Time
	}{
		{"AC240001", day(2024, 3, 1)},
		{"AC240003", day(2024, 3, 1)},
		{"AC240002", day(2024, 3, 8)},
	} {
		header, lines := purchase(d.number, d.date, "10")
		save(t, s, header, lines)
	}
	save(t, s, piece.Header{Journal: "VE", Number: "VE240001", Date: day(2024, 3, 2)}, []piece.Line{
		*piece.BuildLine("411000", piece.WithLabel("Vente"), piece.WithDebit("10")),
		*piece.BuildLine("701000", piece.WithLabel("Vente"), piece.WithCredit("10")),
	})

	tests := []struct {
		name   string
		number string
		dir    port.Direction
		want   string
	}{
		{"previous of new piece is latest", "", port.Previous, "AC240002"},
		{"next of new piece", "", port.Next, ""},
		{"previous of unknown", "AC249999", port.Previous, "AC240002"},
		{"previous across dates", "AC240002", port.Previous, "AC240003"},
		{"previous same date", "AC240003", port.Previous, "AC240001"},
		{"previous of first", "AC240001", port.Previous, ""},
		{"next same date", "AC240001", port.Next, "AC240003"},
		{"next across dates", "AC240003", port.Next, "AC240002"},
		{"next of last", "AC240002", port.Next, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := s.FetchAdjacentDocument(ctx, "AC", tt.number, tt.dir)
			assert.NoError(t, err)
			if tt.want == "" {
				assert.Zero(t, doc)
				return
			}
			assert.NotZero(t, doc)
			assert.Equal(t, tt.want, doc.Header.Number)
			assert.Equal(t, 2, len(doc.Lines))
		})
	}
}

func TestSearchAccounts(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	codes := func(matches []port.AccountMatch) []string {
		var out []string
		for _, m := range matches {
			out = append(out, m.Code)
		}
		return out
	}

	tests := []struct {
		name  string
		query string
		kind  port.JournalKind
		limit int
		want  []string
	}{
		{"code prefix", "40", port.Misc, 0, []string{"401000"}},
		{"label substring", "tva", port.Misc, 0, []string{"445660", "445710"}},
		{"purchases", "", port.Purchases, 0, []string{"401000", "445660", "601000", "606100"}},
		{"sales", "", port.Sales, 0, []string{"411000", "445710", "701000"}},
		{"bank excludes treasury", "5", port.Bank, 0, nil},
		{"bank", "ban", port.Bank, 0, nil},
		{"misc keeps treasury", "ban", port.Misc, 0, []string{"512000"}},
		{"limit", "", port.Misc, 3, []string{"401000", "411000", "445660"}},
		{"like wildcards are literal", "%", port.Misc, 0, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			matches, err := s.SearchAccounts(ctx, tt.query, tt.kind, tt.limit)
			assert.NoError(t, err)
			assert.Equal(t, tt.want, codes(matches))
		})
	}
}

func TestSearchCounterparties(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	matches, err := s.SearchCounterparties(ctx, "", port.Purchases, 0)
	assert.NoError(t, err)
	assert.Equal(t, 2, len(matches))
	assert.Equal(t, "FO001", matches[0].Code)
	assert.Equal(t, "401000", matches[0].Account)

	matches, err = s.SearchCounterparties(ctx, "martin", port.Sales, 0)
	assert.NoError(t, err)
	assert.Equal(t, []port.CounterpartyMatch{{Code: "CL001", Name: "Martin SARL", Kind: port.Customer, Account: "411000"}}, matches)

	matches, err = s.SearchCounterparties(ctx, "martin", port.Purchases, 0)
	assert.NoError(t, err)
	assert.Equal(t, 0, len(matches))

	matches, err = s.SearchCounterparties(ctx, "FO", port.Misc, 1)
	assert.NoError(t, err)
	assert.Equal(t, 1, len(matches))
}

func TestDeleteDocument(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	header, lines := purchase("AC240001", day(2024, 3, 1), "10")
	save(t, s, header, lines)

	res, err := s.DeleteDocument(ctx, "AC240001")
	assert.NoError(t, err)
	assert.True(t, res.Success)

	_, err = s.FetchDocument(ctx, "AC240001")
	assert.True(t, errors.Is(err, port.ErrNotFound))

	res, err = s.DeleteDocument(ctx, "AC240001")
	assert.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "pièce introuvable : AC240001", res.Message)
}

func TestSearchDocuments(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for _, d := range []struct {
		number string
		date   time.Time
		value  string
	}{
		{"AC240001", day(2024, 1, 10), "100"},
		{"AC240002", day(2024, 2, 10), "250.40"},
		{"AC240003", day(2024, 3, 10), "100"},
	} {
		header, lines := purchase(d.number, d.date, d.value)
		save(t, s, header, lines)
	}

	numbers := func(found []port.DocumentSummary) []string {
		var out []string
		for _, f := range found {
			out = append(out, f.Number)
		}
		return out
	}

	tests := []struct {
		name     string
		criteria port.SearchCriteria
		want     []string
	}{
		{"all, most recent first", port.SearchCriteria{}, []string{"AC240003", "AC240002", "AC240001"}},
		{"journal", port.SearchCriteria{Journal: "VE"}, nil},
		{"number substring", port.SearchCriteria{Number: "0002"}, []string{"AC240002"}},
		{"from", port.SearchCriteria{From: day(2024, 2, 10)}, []string{"AC240003", "AC240002"}},
		{"to", port.SearchCriteria{To: day(2024, 2, 9)}, []string{"AC240001"}},
		{"amount", port.SearchCriteria{Amount: decimal.NewNullDecimal(decimal.RequireFromString("100"))}, []string{"AC240003", "AC240001"}},
		{"amount with cents", port.SearchCriteria{Amount: decimal.NewNullDecimal(decimal.RequireFromString("250.4"))}, []string{"AC240002"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			found, err := s.SearchDocuments(ctx, tt.criteria)
			assert.NoError(t, err)
			assert.Equal(t, tt.want, numbers(found))
		})
	}

	found, err := s.SearchDocuments(ctx, port.SearchCriteria{Number: "AC240002"})
	assert.NoError(t, err)
	assert.True(t, found[0].Total.Equal(decimal.RequireFromString("250.40")))
	assert.Equal(t, "FA-AC240002", found[0].Reference)
}

func TestImportReferenceRejectsUnknownKind(t *testing.T) {
	s := openTestStore(t)
	err := s.ImportReference(context.Background(), Reference{Journals: []port.JournalInfo{{Code: "XX", Kind: "ZZ"}}})
	assert.Error(t, err)
}
