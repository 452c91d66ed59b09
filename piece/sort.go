package piece

import (
	"golang.org/x/exp/slices"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// SortByAccount orders lines by account code using French collation, which
// sorts numeric codes digit by digit. Lines with equal codes keep their
// relative order.
func (p *Piece) SortByAccount() {
	c := collate.New(language.French)
	slices.SortStableFunc(p.lines, func(a, b *Line) int {
		return c.CompareString(a.Account, b.Account)
	})
	p.touch()
}
