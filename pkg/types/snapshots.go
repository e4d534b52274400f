package types

// RequesterSnapshot is the borrower's contact details captured at request
// time. Later edits to the user record do not rewrite history on the loan.
type RequesterSnapshot struct {
	Name  string  `json:"name"`
	Email string  `json:"email"`
	Phone *string `json:"phone,omitempty"`
}

// BookSnapshot captures the book's descriptive fields and the stock level
// observed when the loan was requested.
type BookSnapshot struct {
	Title        string   `json:"title"`
	Authors      []string `json:"authors"`
	Publisher    *string  `json:"publisher,omitempty"`
	AvailableQty int      `json:"available_qty"`
}
