// Sample Dossier Generator
//
// This tool generates a large dossier file for performance testing of
// `compta check` and `compta import`. Every piece it writes is balanced and
// references the chart of accounts written in the same file.
//
// Usage:
//
//	go run main.go > dossier.yaml
//	go run main.go 50000 > dossier.yaml  # Specify the number of pieces
package main

import (
	"fmt"
	"math/rand"
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/Eudes8/Compta/amount"
	"github.com/Eudes8/Compta/piece"
	"github.com/Eudes8/Compta/port"
)

const defaultPieces = 10000

type journal struct {
	Code  string `yaml:"code"`
	Label string `yaml:"label"`
	Kind  string `yaml:"kind"`
}

type account struct {
	Code  string `yaml:"code"`
	Label string `yaml:"label"`
	Type  string `yaml:"type"`
}

type counterparty struct {
	Code    string `yaml:"code"`
	Name    string `yaml:"name"`
	Kind    string `yaml:"kind"`
	Account string `yaml:"account"`
}

type line struct {
	Account      string `yaml:"account"`
	Label        string `yaml:"label"`
	Debit        string `yaml:"debit,omitempty"`
	Credit       string `yaml:"credit,omitempty"`
	Due          string `yaml:"due,omitempty"`
	Counterparty string `yaml:"counterparty,omitempty"`
}

type entry struct {
	Journal   string `yaml:"journal"`
	Number    string `yaml:"number"`
	Date      string `yaml:"date"`
	Reference string `yaml:"reference,omitempty"`
	Lines     []line `yaml:"lines"`
}

type dossier struct {
	Journals       []journal      `yaml:"journals"`
	Accounts       []account      `yaml:"accounts"`
	Counterparties []counterparty `yaml:"counterparties"`
	Pieces         []entry        `yaml:"pieces"`
}

var (
	journals = []journal{
		{"AC", "Achats", string(port.Purchases)},
		{"VE", "Ventes", string(port.Sales)},
		{"BQ", "Banque", string(port.Bank)},
	}

	charges = []account{
		{"601000", "Achats de matières premières", string(port.AccountCharge)},
		{"606100", "Fournitures non stockables", string(port.AccountCharge)},
		{"613200", "Locations immobilières", string(port.AccountCharge)},
		{"626000", "Frais postaux et télécommunications", string(port.AccountCharge)},
	}
	products = []account{
		{"706000", "Prestations de services", string(port.AccountProduct)},
		{"707000", "Ventes de marchandises", string(port.AccountProduct)},
	}
	others = []account{
		{"401000", "Fournisseurs", string(port.AccountSupplier)},
		{"411000", "Clients", string(port.AccountCustomer)},
		{"445660", "TVA déductible", string(port.AccountTax)},
		{"445710", "TVA collectée", string(port.AccountTax)},
		{"512000", "Banque", string(port.AccountTreasury)},
	}

	suppliers = []counterparty{
		{"FO001", "Papeterie Dupont", string(port.Supplier), "401000"},
		{"FO002", "Télécom Ouest", string(port.Supplier), "401000"},
		{"FO003", "SCI des Lilas", string(port.Supplier), "401000"},
	}
	customers = []counterparty{
		{"CL001", "Boulangerie Martin", string(port.Customer), "411000"},
		{"CL002", "Garage Leroy", string(port.Customer), "411000"},
	}

	vatRate = decimal.RequireFromString("0.2")
)

func main() {
	count := defaultPieces
	if len(os.Args) > 1 {
		if n, err := strconv.Atoi(os.Args[1]); err == nil && n > 0 {
			count = n
		}
	}

	d := dossier{Journals: journals}
	d.Accounts = append(append(append(d.Accounts, charges...), products...), others...)
	d.Counterparties = append(append(d.Counterparties, suppliers...), customers...)

	sequences := map[string]int{}
	date := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < count; i++ {
		var e entry
		switch rand.Intn(3) {
		case 0:
			e = purchase(date)
		case 1:
			e = sale(date)
		default:
			e = payment(date)
		}
		sequences[e.Journal]++
		e.Number = fmt.Sprintf("%s%02d%04d", e.Journal, date.Year()%100, sequences[e.Journal])
		e.Date = piece.FormatDate(date)
		d.Pieces = append(d.Pieces, e)

		if rand.Intn(4) == 0 {
			date = date.AddDate(0, 0, 1)
		}
	}

	enc := yaml.NewEncoder(os.Stdout)
	enc.SetIndent(2)
	if err := enc.Encode(d); err != nil {
		fmt.Fprintf(os.Stderr, "failed to encode dossier: %v\n", err)
		os.Exit(1)
	}
	_ = enc.Close()

	fmt.Fprintf(os.Stderr, "\nGenerated %d pieces\n", count)
}

func randAmount(min, max int64) decimal.Decimal {
	cents := min*100 + rand.Int63n((max-min)*100)
	return decimal.New(cents, -2)
}

func format(d decimal.Decimal) string {
	return amount.French.Format(d)
}

func purchase(date time.Time) entry {
	supplier := suppliers[rand.Intn(len(suppliers))]
	charge := charges[rand.Intn(len(charges))]
	net := randAmount(10, 5000)
	vat := amount.Round(net.Mul(vatRate))
	label := "Facture " + supplier.Name

	return entry{
		Journal:   "AC",
		Reference: fmt.Sprintf("FA-%d", rand.Intn(100000)),
		Lines: []line{
			{Account: charge.Code, Label: label, Debit: format(net)},
			{Account: "445660", Label: label, Debit: format(vat)},
			{
				Account:      supplier.Account,
				Label:        label,
				Credit:       format(net.Add(vat)),
				Counterparty: supplier.Code,
				Due:          piece.FormatDate(date.AddDate(0, 0, 30)),
			},
		},
	}
}

func sale(date time.Time) entry {
	customer := customers[rand.Intn(len(customers))]
	product := products[rand.Intn(len(products))]
	net := randAmount(50, 20000)
	vat := amount.Round(net.Mul(vatRate))
	label := "Facture " + customer.Name

	return entry{
		Journal: "VE",
		Lines: []line{
			{
				Account:      customer.Account,
				Label:        label,
				Debit:        format(net.Add(vat)),
				Counterparty: customer.Code,
				Due:          piece.FormatDate(date.AddDate(0, 0, 45)),
			},
			{Account: product.Code, Label: label, Credit: format(net)},
			{Account: "445710", Label: label, Credit: format(vat)},
		},
	}
}

func payment(date time.Time) entry {
	supplier := suppliers[rand.Intn(len(suppliers))]
	total := randAmount(10, 3000)
	label := "Règlement " + supplier.Name

	return entry{
		Journal: "BQ",
		Lines: []line{
			{Account: supplier.Account, Label: label, Debit: format(total), Counterparty: supplier.Code},
			{Account: "512000", Label: label, Credit: format(total)},
		},
	}
}
