package dataprocessing

import (
	"time"

	"salesdash/pkg/contracts/domain"
)

// stringSet is a lookup set built from a selection slice.
type stringSet map[string]struct{}

func newStringSet(values []string) stringSet {
	s := make(stringSet, len(values))
	for _, v := range values {
		s[v] = struct{}{}
	}
	return s
}

func (s stringSet) has(v string) bool {
	_, ok := s[v]
	return ok
}

// compiledSelection holds the selection in a form cheap to test per row.
type compiledSelection struct {
	branches      stringSet
	productLines  stringSet
	customerTypes stringSet
	start, end    time.Time
}

func compile(sel domain.FilterSelection) compiledSelection {
	return compiledSelection{
		branches:      newStringSet(sel.Branches),
		productLines:  newStringSet(sel.ProductLines),
		customerTypes: newStringSet(sel.CustomerTypes),
		start:         truncateDay(sel.Start),
		end:           truncateDay(sel.End),
	}
}

// ReversedRange reports whether sel ends on an earlier calendar day than it
// starts. Times of day are ignored, as in Filter.
func ReversedRange(sel domain.FilterSelection) bool {
	return truncateDay(sel.End).Before(truncateDay(sel.Start))
}

func (c compiledSelection) matches(r *domain.SaleRecord) bool {
	if !c.branches.has(r.Branch) ||
		!c.productLines.has(r.ProductLine) ||
		!c.customerTypes.has(r.CustomerType) {
		return false
	}
	if r.Date == nil {
		return false
	}
	day := truncateDay(*r.Date)
	return !day.Before(c.start) && !day.After(c.end)
}

// Matches reports whether a single record satisfies every criterion of sel.
// Rows without a date never match, whatever the range.
func Matches(r domain.SaleRecord, sel domain.FilterSelection) bool {
	return compile(sel).matches(&r)
}

// Filter returns the rows of table that satisfy all criteria of sel, in
// table order. Criteria are combined with AND; an empty categorical set
// matches nothing. Date bounds are inclusive at day granularity. The input
// table is never modified.
func Filter(table *domain.SalesTable, sel domain.FilterSelection) *domain.SalesTable {
	c := compile(sel)
	kept := make([]domain.SaleRecord, 0, table.Len())
	table.Each(func(_ int, r *domain.SaleRecord) {
		if c.matches(r) {
			kept = append(kept, *r)
		}
	})
	return domain.NewSalesTable(table.Source(), kept)
}

// Domain returns the distinct values of every filterable dimension, in
// first-appearance order, and the range of valid dates.
func Domain(table *domain.SalesTable) domain.SelectionDomain {
	var (
		d                                    domain.SelectionDomain
		branches, lines, customers, payments orderedSet
		minDate, maxDate                     time.Time
		haveDate                             bool
	)

	table.Each(func(_ int, r *domain.SaleRecord) {
		branches.add(r.Branch)
		lines.add(r.ProductLine)
		customers.add(r.CustomerType)
		payments.add(r.Payment)

		if r.Date == nil {
			d.NullDates++
			return
		}
		if !haveDate || r.Date.Before(minDate) {
			minDate = *r.Date
		}
		if !haveDate || r.Date.After(maxDate) {
			maxDate = *r.Date
		}
		haveDate = true
	})

	d.Branches = branches.values()
	d.ProductLines = lines.values()
	d.CustomerTypes = customers.values()
	d.Payments = payments.values()
	d.Rows = table.Len()
	if haveDate {
		d.MinDate, d.MaxDate = &minDate, &maxDate
	}
	return d
}

// DefaultSelection selects the whole table: every observed category and
// [min date, max date]. When no row has a date the range is left zero and
// therefore matches nothing.
func DefaultSelection(table *domain.SalesTable) domain.FilterSelection {
	return SelectionFromDomain(Domain(table))
}

// SelectionFromDomain builds the select-everything selection for d.
func SelectionFromDomain(d domain.SelectionDomain) domain.FilterSelection {
	sel := domain.FilterSelection{
		Branches:      append([]string{}, d.Branches...),
		ProductLines:  append([]string{}, d.ProductLines...),
		CustomerTypes: append([]string{}, d.CustomerTypes...),
	}
	if d.MinDate != nil && d.MaxDate != nil {
		sel.Start, sel.End = *d.MinDate, *d.MaxDate
	}
	return sel
}

// orderedSet keeps distinct strings in insertion order.
type orderedSet struct {
	seen  map[string]struct{}
	order []string
}

func (o *orderedSet) add(v string) {
	if o.seen == nil {
		o.seen = make(map[string]struct{})
	}
	if _, ok := o.seen[v]; ok {
		return
	}
	o.seen[v] = struct{}{}
	o.order = append(o.order, v)
}

func (o *orderedSet) values() []string {
	if o.order == nil {
		return []string{}
	}
	return o.order
}
