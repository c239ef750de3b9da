package operations

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dvloznov/bank-operations/internal/fixtures"
)

// Query parameter names understood by the operations endpoints.
const (
	ParamFamilyCode = "grandeFamilleCode"
	ParamAccountIdx = "compteIdx"
	ParamCardIdx    = "carteIdx"
	ParamCurrency   = "idDevise"
	ParamStartDate  = "dateDebut"
	ParamEndDate    = "dateFin"
	ParamCursor     = "startIndex"
	ParamCount      = "count"

	defaultCurrency = "EUR"
)

// Resources under the account detail path.
const (
	detailPath       = "particulier/operations/synthese/detail-comptes"
	windowedResource = "jcr:content.n3.operations.json"
	cardResource     = "jcr:content.n3.operations.encours.carte.debit.differe.json"
)

// Kind selects the endpoint and the response shape of a page.
type Kind int

const (
	// KindWindowed is the paginated, date-ranged account retrieval.
	KindWindowed Kind = iota
	// KindCard is the single-page deferred-card retrieval.
	KindCard
)

func (k Kind) String() string {
	switch k {
	case KindWindowed:
		return "windowed"
	case KindCard:
		return "card"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Param is one query parameter.
type Param struct {
	Key   string
	Value string
}

// Params is an ordered query. Order is kept on the wire.
type Params []Param

// Get returns the value of key and whether it is present.
func (p Params) Get(key string) (string, bool) {
	for _, kv := range p {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return "", false
}

// Has reports whether key is present.
func (p Params) Has(key string) bool {
	_, ok := p.Get(key)
	return ok
}

// Encode renders the query in order, escaping keys and values.
func (p Params) Encode() string {
	var sb strings.Builder
	for i, kv := range p {
		if i > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(url.QueryEscape(kv.Key))
		sb.WriteByte('=')
		sb.WriteString(url.QueryEscape(kv.Value))
	}
	return sb.String()
}

// PageSpec is everything needed to fetch one page.
type PageSpec struct {
	Kind     Kind
	Resource string
	Params   Params
	// FixtureName returns the fixture file name for a suffix.
	FixtureName func(suffix string) string
}

// Planner turns requests into page specs.
type Planner struct {
	// Location is used for the midnight of each date. Nil means time.Local.
	Location *time.Location
}

func (p Planner) location() *time.Location {
	if p.Location == nil {
		return time.Local
	}
	return p.Location
}

// Windowed plans one page of a windowed retrieval. Without a cursor this is
// the first page: it carries dateFin and asks for min(Count, PageSize)
// entries. With a cursor, dateFin is left out and startIndex is sent
// instead, asking for a full page.
func (p Planner) Windowed(req RetrievalRequest, cursor string, hasCursor bool) PageSpec {
	loc := p.location()
	startMs := req.Start.In(loc).UnixMilli()
	endMs := req.End.In(loc).UnixMilli()

	params := Params{
		{ParamFamilyCode, req.FamilyCode},
		{ParamAccountIdx, req.AccountIdx},
		{ParamCurrency, defaultCurrency},
		{ParamStartDate, strconv.FormatInt(startMs, 10)},
	}

	count := req.PageSize
	if hasCursor {
		params = append(params, Param{ParamCursor, cursor})
	} else {
		params = append(params, Param{ParamEndDate, strconv.FormatInt(endMs, 10)})
		count = min(req.Count, req.PageSize)
	}
	params = append(params, Param{ParamCount, strconv.Itoa(count)})

	return PageSpec{
		Kind:     KindWindowed,
		Resource: windowedResource,
		Params:   params,
		FixtureName: func(suffix string) string {
			return fixtures.AccountKey(req.FamilyCode, req.AccountIdx, suffix)
		},
	}
}

// Card plans the only page of a deferred-card retrieval.
func (p Planner) Card(req CardRequest) PageSpec {
	return PageSpec{
		Kind:     KindCard,
		Resource: cardResource,
		Params: Params{
			{ParamFamilyCode, req.FamilyCode},
			{ParamAccountIdx, req.AccountIdx},
			{ParamCardIdx, req.CardIdx},
		},
		FixtureName: func(suffix string) string {
			return fixtures.CardKey(req.CardIdx, suffix)
		},
	}
}
