package campus

import (
	"path/filepath"
	"slices"
	"strings"
	"time"
)

// DefaultMonthlyBudget is the allowance of a new budget book.
const DefaultMonthlyBudget = 1500.0

// Record types.
const (
	Expense = "expense"
	Income  = "income"
)

// Record is one income or expense entry.
type Record struct {
	ID        int     `json:"id"`
	Type      string  `json:"type"`
	Amount    float64 `json:"amount"`
	Category  string  `json:"category"`
	Note      string  `json:"note"`
	Date      string  `json:"date"`
	CreatedAt string  `json:"created_at"`
}

// Book is the content of budget.json.
type Book struct {
	MonthlyBudget   float64            `json:"monthly_budget"`
	CategoryBudgets map[string]float64 `json:"category_budgets"`
	Records         []Record           `json:"records"`
}

// Balance summarizes the current month. Balance is the monthly budget
// plus the month's income minus the month's expenses.
type Balance struct {
	Balance        float64 `json:"balance"`
	MonthlyBudget  float64 `json:"monthly_budget"`
	MonthlyIncome  float64 `json:"monthly_income"`
	MonthlyExpense float64 `json:"monthly_expense"`
}

// RecordFilter narrows List. Empty fields match everything.
type RecordFilter struct {
	Month    string // YYYY-MM
	Date     string // YYYY-MM-DD, today or tomorrow
	Category string
}

// BudgetStore keeps the budget book in budget.json.
type BudgetStore struct {
	path string
	now  func() time.Time
}

// NewBudgetStore opens the budget book in dataDir. A nil now uses time.Now.
func NewBudgetStore(dataDir string, now func() time.Time) *BudgetStore {
	return &BudgetStore{path: filepath.Join(dataDir, BudgetFile), now: nowOr(now)}
}

func newBook() *Book {
	return &Book{MonthlyBudget: DefaultMonthlyBudget, CategoryBudgets: map[string]float64{}}
}

// Book returns the stored budget book, or a fresh one.
func (s *BudgetStore) Book() (*Book, error) {
	b := newBook()
	ok, err := loadJSON(s.path, b)
	if err != nil {
		return nil, err
	}
	if !ok {
		b = newBook()
	}
	if b.CategoryBudgets == nil {
		b.CategoryBudgets = map[string]float64{}
	}
	return b, nil
}

// Add records an entry dated today and returns it with the new balance.
func (s *BudgetStore) Add(amount float64, category, kind, note string) (Record, Balance, error) {
	if kind == "" {
		kind = Expense
	}
	if kind != Expense && kind != Income {
		return Record{}, Balance{}, invalidf("type %q is not expense or income", kind)
	}
	if amount <= 0 {
		return Record{}, Balance{}, invalidf("amount must be positive")
	}
	category = strings.TrimSpace(category)
	if category == "" {
		return Record{}, Balance{}, invalidf("category must not be empty")
	}

	b, err := s.Book()
	if err != nil {
		return Record{}, Balance{}, err
	}
	now := s.now()
	r := Record{
		ID:        nextRecordID(b.Records),
		Type:      kind,
		Amount:    amount,
		Category:  category,
		Note:      note,
		Date:      now.Format(DateLayout),
		CreatedAt: now.Format(TimestampLayout),
	}
	b.Records = append(b.Records, r)
	if err := saveJSON(s.path, b); err != nil {
		return Record{}, Balance{}, err
	}
	return r, b.balance(now.Format(MonthLayout)), nil
}

// Delete removes the record with id.
func (s *BudgetStore) Delete(id int) error {
	b, err := s.Book()
	if err != nil {
		return err
	}
	n := len(b.Records)
	b.Records = slices.DeleteFunc(b.Records, func(r Record) bool { return r.ID == id })
	if len(b.Records) == n {
		return ErrNotFound
	}
	return saveJSON(s.path, b)
}

// Update changes the amount and/or note of a record. Nil pointers leave
// the field unchanged.
func (s *BudgetStore) Update(id int, amount *float64, note *string) (Record, error) {
	if amount != nil && *amount <= 0 {
		return Record{}, invalidf("amount must be positive")
	}
	b, err := s.Book()
	if err != nil {
		return Record{}, err
	}
	i := slices.IndexFunc(b.Records, func(r Record) bool { return r.ID == id })
	if i < 0 {
		return Record{}, ErrNotFound
	}
	if amount != nil {
		b.Records[i].Amount = *amount
	}
	if note != nil {
		b.Records[i].Note = *note
	}
	return b.Records[i], saveJSON(s.path, b)
}

// Balance returns the current month's balance.
func (s *BudgetStore) Balance() (Balance, error) {
	b, err := s.Book()
	if err != nil {
		return Balance{}, err
	}
	return b.balance(s.now().Format(MonthLayout)), nil
}

// List returns the records matching f in insertion order.
func (s *BudgetStore) List(f RecordFilter) ([]Record, error) {
	var day string
	if f.Date != "" {
		var err error
		if day, err = ResolveDate(f.Date, s.now()); err != nil {
			return nil, err
		}
	}
	b, err := s.Book()
	if err != nil {
		return nil, err
	}
	out := []Record{}
	for _, r := range b.Records {
		if f.Month != "" && !strings.HasPrefix(r.Date, f.Month) {
			continue
		}
		if day != "" && r.Date != day {
			continue
		}
		if f.Category != "" && r.Category != f.Category {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

// Stats totals the expenses of month (YYYY-MM, default current) by
// category.
func (s *BudgetStore) Stats(month string) (string, map[string]float64, error) {
	if month == "" {
		month = s.now().Format(MonthLayout)
	}
	if _, err := time.Parse(MonthLayout, month); err != nil {
		return "", nil, invalidf("month %q is not YYYY-MM", month)
	}
	b, err := s.Book()
	if err != nil {
		return "", nil, err
	}
	totals := map[string]float64{}
	for _, r := range b.Records {
		if r.Type == Expense && strings.HasPrefix(r.Date, month) {
			totals[r.Category] += r.Amount
		}
	}
	return month, totals, nil
}

// SetBudget sets the monthly allowance, or a category budget when
// category is non-empty.
func (s *BudgetStore) SetBudget(amount float64, category string) error {
	if amount < 0 {
		return invalidf("amount must not be negative")
	}
	b, err := s.Book()
	if err != nil {
		return err
	}
	if category = strings.TrimSpace(category); category != "" {
		b.CategoryBudgets[category] = amount
	} else {
		b.MonthlyBudget = amount
	}
	return saveJSON(s.path, b)
}

func (b *Book) balance(month string) Balance {
	bal := Balance{MonthlyBudget: b.MonthlyBudget}
	for _, r := range b.Records {
		if !strings.HasPrefix(r.Date, month) {
			continue
		}
		switch r.Type {
		case Income:
			bal.MonthlyIncome += r.Amount
		case Expense:
			bal.MonthlyExpense += r.Amount
		}
	}
	bal.Balance = bal.MonthlyBudget + bal.MonthlyIncome - bal.MonthlyExpense
	return bal
}

func nextRecordID(records []Record) int {
	id := 0
	for _, r := range records {
		id = max(id, r.ID)
	}
	return id + 1
}
