package core

// Category is one of a fixed closed set of expense labels used to group
// expenses and budgets. The set is static configuration: the ledger only
// matches categories between records, it never interprets them.
type Category string

const (
	Groceries     Category = "Groceries"
	Shopping      Category = "Shopping"
	Utilities     Category = "Utilities"
	Entertainment Category = "Entertainment"
	Insurance     Category = "Insurance"
	Hobbies       Category = "Hobbies"
	Travel        Category = "Travel"
	Other         Category = "Other"
)

var categories = []Category{
	Groceries,
	Shopping,
	Utilities,
	Entertainment,
	Insurance,
	Hobbies,
	Travel,
	Other,
}

// Categories returns the closed category set, in display order.
func Categories() []Category {
	out := make([]Category, len(categories))
	copy(out, categories)
	return out
}

func (c Category) Validate() error {
	for _, known := range categories {
		if c == known {
			return nil
		}
	}
	return ErrInvalidCategory
}

func (c Category) String() string {
	return string(c)
}
