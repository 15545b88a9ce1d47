package models

// Tag is a user-defined category. At most one tag per transaction.
// Names are unique per user, enforced server-side.
type Tag struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Rule maps an original transaction label to a custom nickname. Rules are
// created server-side when a label edit is saved with "apply to future
// transactions"; the client only lists and deletes them.
type Rule struct {
	ID       int64  `json:"id"`
	Label    string `json:"label"`    // original label the rule matches
	Nickname string `json:"nickname"` // replacement custom label
}

// Transaction is a single financial record as served by the API.
type Transaction struct {
	ID     int64   `json:"id"`
	Date   string  `json:"date"`   // calendar date, rendered as received
	Label  string  `json:"label"`  // system-derived description, immutable from the client
	Custom *string `json:"custom"` // user override; when set it is the display label
	Amount float64 `json:"amount"` // signed monetary value
	Tag    *Tag    `json:"tag,omitempty"`
	PandB  bool    `json:"pandb"`
	Flag   bool    `json:"flag"`
	Hidden bool    `json:"hidden"`
	M      bool    `json:"m"`
	Source string  `json:"source"` // originating account/institution
}

// EffectiveLabel returns the custom label when one is set, otherwise the
// original label. The original label stays available as provenance.
func (t Transaction) EffectiveLabel() string {
	if t.Custom != nil {
		return *t.Custom
	}
	return t.Label
}

// TransactionsResponse is the wire shape of the transactions list endpoint.
// A status other than "success" is an unauthenticated signal.
type TransactionsResponse struct {
	Status       string        `json:"status"`
	Transactions []Transaction `json:"transactions"`
	TotalRecords int           `json:"totalRecords"`
}

// Page is the locally cached slice of the transaction list. It is replaced
// wholesale on every successful fetch, never merged incrementally.
type Page struct {
	Records      []Transaction
	PageNumber   int // 1-based
	PageSize     int
	TotalRecords int
}

// HasNext reports whether records exist beyond this page.
func (p Page) HasNext() bool {
	return p.PageNumber*p.PageSize < p.TotalRecords
}

// ShowingRange returns the 1-based "showing FROM to TO of total" bounds for
// the current page. Returns (0, 0) for an empty result set.
func (p Page) ShowingRange() (from, to int) {
	if p.TotalRecords == 0 || p.PageNumber < 1 {
		return 0, 0
	}
	from = (p.PageNumber-1)*p.PageSize + 1
	to = p.PageNumber * p.PageSize
	if to > p.TotalRecords {
		to = p.TotalRecords
	}
	return from, to
}

// Find returns the cached record with the given id, or nil.
func (p Page) Find(id int64) *Transaction {
	for i := range p.Records {
		if p.Records[i].ID == id {
			return &p.Records[i]
		}
	}
	return nil
}
