// Package memory is an in-process ledger. It backs DATA_BACKEND=memory for
// local runs and the scenario tests. It mirrors the remote API's observable
// contract closely enough for the client, not its storage.
package memory

import (
	"bufio"
	"context"
	"crypto/rand"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"moneymanager/internal/core"
	"moneymanager/internal/ledger"
	"moneymanager/internal/period"
)

// EditWindow is how long after creation a transaction stays editable.
const EditWindow = 12 * time.Hour

const tokenTTL = 7 * 24 * time.Hour

var (
	defaultCategories = []string{"Food", "Fuel", "Medical", "Salary", "Shopping", "Travel", "Other"}
	defaultDivisions  = []string{"Office", "Personal"}
)

type user struct {
	core.User
	hash []byte
}

type book struct {
	txs      []core.Transaction
	accounts []core.Account
}

type Store struct {
	mu       sync.Mutex
	cats     []string
	divs     []string
	users    map[string]*user // by email
	books    map[string]*book // by user id
	secret   []byte
	now      func() time.Time
	loc      *time.Location
	hashCost int
}

type Option func(*Store)

// WithClock replaces time.Now, used by tests that cross the edit window.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLocation sets the zone used to resolve periods and dates.
func WithLocation(loc *time.Location) Option {
	return func(s *Store) { s.loc = loc }
}

// WithHashCost lowers bcrypt cost for tests.
func WithHashCost(cost int) Option {
	return func(s *Store) { s.hashCost = cost }
}

func New(cats, divs []string, opts ...Option) *Store {
	secret := make([]byte, 32)
	_, _ = rand.Read(secret)
	s := &Store{
		cats:     dedupe(cats),
		divs:     dedupe(divs),
		users:    make(map[string]*user),
		books:    make(map[string]*book),
		secret:   secret,
		now:      time.Now,
		loc:      time.Local,
		hashCost: bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewFromFiles seeds constants from seed_categories.txt and
// seed_divisions.txt under base, falling back to built-in lists.
func NewFromFiles(base string, opts ...Option) *Store {
	cats := readLines(filepath.Join(base, "seed_categories.txt"))
	divs := readLines(filepath.Join(base, "seed_divisions.txt"))
	if len(cats) == 0 {
		cats = defaultCategories
	}
	if len(divs) == 0 {
		divs = defaultDivisions
	}
	return New(cats, divs, opts...)
}

func reject(status int, msg string) error {
	return &ledger.Error{Status: status, Message: msg}
}

// Register creates a user and returns a signed token.
func (s *Store) Register(_ context.Context, name, email, password string) (core.AuthResult, error) {
	name, email = strings.TrimSpace(name), strings.ToLower(strings.TrimSpace(email))
	if name == "" || email == "" || password == "" {
		return core.AuthResult{}, reject(http.StatusBadRequest, "Name, email and password are required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return core.AuthResult{}, fmt.Errorf("hash password: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[email]; ok {
		return core.AuthResult{}, reject(http.StatusConflict, "Email already registered")
	}
	u := &user{User: core.User{ID: uuid.NewString(), Name: name, Email: email}, hash: hash}
	s.users[email] = u
	s.books[u.ID] = &book{}
	return s.issue(u.User)
}

func (s *Store) Login(_ context.Context, email, password string) (core.AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	s.mu.Lock()
	u, ok := s.users[email]
	s.mu.Unlock()
	if !ok || bcrypt.CompareHashAndPassword(u.hash, []byte(password)) != nil {
		return core.AuthResult{}, reject(http.StatusUnauthorized, "Invalid credentials")
	}
	return s.issue(u.User)
}

func (s *Store) issue(u core.User) (core.AuthResult, error) {
	now := s.now()
	claims := jwt.RegisteredClaims{
		Subject:   u.ID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return core.AuthResult{}, fmt.Errorf("sign token: %w", err)
	}
	return core.AuthResult{Token: token, User: u}, nil
}

func (s *Store) subject(token string) (string, bool) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		return "", false
	}
	return claims.Subject, true
}

// ForToken returns the ledger of the token's user. An invalid token yields a
// ledger whose every call fails with ErrUnauthorized.
func (s *Store) ForToken(token string) ledger.Ledger {
	id, _ := s.subject(token)
	return &userLedger{store: s, userID: id}
}

type userLedger struct {
	store  *Store
	userID string
}

// book returns the caller's data with the store lock held. Callers unlock.
func (l *userLedger) book() (*book, error) {
	l.store.mu.Lock()
	b, ok := l.store.books[l.userID]
	if !ok || l.userID == "" {
		l.store.mu.Unlock()
		return nil, reject(http.StatusUnauthorized, "Not authenticated")
	}
	return b, nil
}

func (l *userLedger) Me(context.Context) (core.User, error) {
	if _, err := l.book(); err != nil {
		return core.User{}, err
	}
	defer l.store.mu.Unlock()
	for _, u := range l.store.users {
		if u.ID == l.userID {
			return u.User, nil
		}
	}
	return core.User{}, reject(http.StatusUnauthorized, "Not authenticated")
}

func (l *userLedger) Constants(context.Context) (core.Constants, error) {
	if _, err := l.book(); err != nil {
		return core.Constants{}, err
	}
	defer l.store.mu.Unlock()
	return core.Constants{
		Categories: append([]string(nil), l.store.cats...),
		Divisions:  append([]string(nil), l.store.divs...),
	}, nil
}

func (l *userLedger) AddTransaction(_ context.Context, in core.NewTransaction) (core.Transaction, error) {
	in = in.Trimmed()
	if err := in.Validate(); err != nil {
		return core.Transaction{}, reject(http.StatusBadRequest, err.Error())
	}
	b, err := l.book()
	if err != nil {
		return core.Transaction{}, err
	}
	defer l.store.mu.Unlock()

	acc := b.account(in.Account)
	if acc == nil {
		return core.Transaction{}, reject(http.StatusBadRequest, "Account not found")
	}
	tx := core.Transaction{
		ID:          uuid.NewString(),
		Type:        in.Type,
		Amount:      in.Amount,
		Category:    in.Category,
		Division:    in.Division,
		Description: in.Description,
		DateTime:    in.DateTime,
		Account:     in.Account,
		CreatedAt:   l.store.now(),
	}
	acc.Balance = acc.Balance.Add(effect(tx))
	b.txs = append(b.txs, tx)
	return tx, nil
}

func (l *userLedger) ListTransactions(context.Context) ([]core.Transaction, error) {
	b, err := l.book()
	if err != nil {
		return nil, err
	}
	defer l.store.mu.Unlock()
	return b.sorted(func(core.Transaction) bool { return true }), nil
}

func (l *userLedger) CanEdit(_ context.Context, id string) (bool, error) {
	b, err := l.book()
	if err != nil {
		return false, err
	}
	defer l.store.mu.Unlock()
	i := b.index(id)
	if i < 0 {
		return false, reject(http.StatusNotFound, "Transaction not found")
	}
	return l.store.now().Sub(b.txs[i].CreatedAt) <= EditWindow, nil
}

func (l *userLedger) EditTransaction(_ context.Context, id string, edit core.TransactionEdit) (core.Transaction, error) {
	if err := edit.Validate(); err != nil {
		return core.Transaction{}, reject(http.StatusBadRequest, err.Error())
	}
	b, err := l.book()
	if err != nil {
		return core.Transaction{}, err
	}
	defer l.store.mu.Unlock()

	i := b.index(id)
	if i < 0 {
		return core.Transaction{}, reject(http.StatusNotFound, "Transaction not found")
	}
	old := b.txs[i]
	if l.store.now().Sub(old.CreatedAt) > EditWindow {
		return core.Transaction{}, reject(http.StatusForbidden, "Editing allowed only within 12 hours of creation.")
	}
	target := b.account(edit.Account)
	if target == nil {
		return core.Transaction{}, reject(http.StatusBadRequest, "Account not found")
	}
	if src := b.account(old.Account); src != nil {
		src.Balance = src.Balance.Sub(effect(old))
	}

	updated := old
	updated.Amount = edit.Amount
	updated.Category = strings.TrimSpace(edit.Category)
	updated.Division = strings.TrimSpace(edit.Division)
	updated.Description = strings.TrimSpace(edit.Description)
	updated.DateTime = edit.DateTime
	updated.Account = edit.Account
	target.Balance = target.Balance.Add(effect(updated))
	b.txs[i] = updated
	return updated, nil
}

func (l *userLedger) Monthly(_ context.Context, year, month int) (core.Report, error) {
	if !period.ValidMonth(month) {
		return core.Report{}, reject(http.StatusBadRequest, "Invalid month")
	}
	loc := l.store.loc
	return l.report(func(t core.Transaction) bool {
		d := t.DateTime.In(loc)
		return d.Year() == year && int(d.Month()) == month
	})
}

func (l *userLedger) Weekly(_ context.Context, year, week int) (core.Report, error) {
	if !period.ValidWeek(week) {
		return core.Report{}, reject(http.StatusBadRequest, "Invalid week")
	}
	loc := l.store.loc
	return l.report(func(t core.Transaction) bool {
		y, w := period.ISOWeekYear(t.DateTime.In(loc))
		return y == year && w == week
	})
}

func (l *userLedger) Yearly(_ context.Context, year int) (core.Report, error) {
	loc := l.store.loc
	return l.report(func(t core.Transaction) bool {
		return t.DateTime.In(loc).Year() == year
	})
}

func (l *userLedger) Filter(_ context.Context, q url.Values) (core.Report, error) {
	match, err := l.store.matcher(q)
	if err != nil {
		return core.Report{}, err
	}
	category, division := q.Get("category"), q.Get("division")
	return l.report(func(t core.Transaction) bool {
		if category != "" && t.Category != category {
			return false
		}
		if division != "" && t.Division != division {
			return false
		}
		return match(t)
	})
}

// CategorySummary totals expenses per category, largest first.
func (l *userLedger) CategorySummary(_ context.Context, q url.Values) ([]core.CategoryTotal, error) {
	match, err := l.store.matcher(q)
	if err != nil {
		return nil, err
	}
	b, err := l.book()
	if err != nil {
		return nil, err
	}
	defer l.store.mu.Unlock()

	totals := map[string]core.Money{}
	for _, t := range b.txs {
		if t.Type == core.Expense && match(t) {
			totals[t.Category] = totals[t.Category].Add(t.Amount)
		}
	}
	out := make([]core.CategoryTotal, 0, len(totals))
	for c, total := range totals {
		out = append(out, core.CategoryTotal{Category: c, Total: total})
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Total.Cmp(out[j].Total.Decimal); c != 0 {
			return c > 0
		}
		return out[i].Category < out[j].Category
	})
	return out, nil
}

func (l *userLedger) ListAccounts(context.Context) ([]core.Account, error) {
	b, err := l.book()
	if err != nil {
		return nil, err
	}
	defer l.store.mu.Unlock()
	return append([]core.Account{}, b.accounts...), nil
}

func (l *userLedger) CreateAccount(_ context.Context, name string) (core.Account, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return core.Account{}, reject(http.StatusBadRequest, "Account name is required")
	}
	b, err := l.book()
	if err != nil {
		return core.Account{}, err
	}
	defer l.store.mu.Unlock()
	if b.account(name) != nil {
		return core.Account{}, reject(http.StatusConflict, "Account already exists")
	}
	acc := core.Account{ID: uuid.NewString(), AccountName: name}
	b.accounts = append(b.accounts, acc)
	return acc, nil
}

func (l *userLedger) Transfer(_ context.Context, req core.TransferRequest) (core.TransferResult, error) {
	if err := req.Amount.Validate(); err != nil {
		return core.TransferResult{}, reject(http.StatusBadRequest, "Amount must be positive")
	}
	if req.FromAccount == req.ToAccount {
		return core.TransferResult{}, reject(http.StatusBadRequest, "Source and destination must be different")
	}
	b, err := l.book()
	if err != nil {
		return core.TransferResult{}, err
	}
	defer l.store.mu.Unlock()

	from, to := b.account(req.FromAccount), b.account(req.ToAccount)
	if from == nil || to == nil {
		return core.TransferResult{}, reject(http.StatusNotFound, "Account not found")
	}
	from.Balance = from.Balance.Sub(req.Amount)
	to.Balance = to.Balance.Add(req.Amount)
	fromCopy, toCopy := *from, *to
	return core.TransferResult{
		Message: "Transfer successful",
		From:    &fromCopy,
		To:      &toCopy,
		At:      l.store.now(),
	}, nil
}

func (l *userLedger) report(keep func(core.Transaction) bool) (core.Report, error) {
	b, err := l.book()
	if err != nil {
		return core.Report{}, err
	}
	defer l.store.mu.Unlock()

	r := core.EmptyReport()
	r.List = b.sorted(keep)
	for _, t := range r.List {
		if t.Type == core.Income {
			r.TotalIncome = r.TotalIncome.Add(t.Amount)
		} else {
			r.TotalExpense = r.TotalExpense.Add(t.Amount)
		}
	}
	r.Balance = r.TotalIncome.Sub(r.TotalExpense)
	return r, nil
}

// matcher builds the inclusive from/to date predicate shared by filter and
// category summary.
func (s *Store) matcher(q url.Values) (func(core.Transaction) bool, error) {
	var from, to time.Time
	if v := q.Get("from"); v != "" {
		d, err := time.ParseInLocation(time.DateOnly, v, s.loc)
		if err != nil {
			return nil, reject(http.StatusBadRequest, "Invalid from date")
		}
		from = d
	}
	if v := q.Get("to"); v != "" {
		d, err := time.ParseInLocation(time.DateOnly, v, s.loc)
		if err != nil {
			return nil, reject(http.StatusBadRequest, "Invalid to date")
		}
		to = d.AddDate(0, 0, 1)
	}
	return func(t core.Transaction) bool {
		if !from.IsZero() && t.DateTime.Before(from) {
			return false
		}
		if !to.IsZero() && !t.DateTime.Before(to) {
			return false
		}
		return true
	}, nil
}

func effect(t core.Transaction) core.Money {
	if t.Type == core.Income {
		return t.Amount
	}
	return core.Money{}.Sub(t.Amount)
}

func (b *book) account(name string) *core.Account {
	for i := range b.accounts {
		if b.accounts[i].AccountName == name {
			return &b.accounts[i]
		}
	}
	return nil
}

func (b *book) index(id string) int {
	for i, t := range b.txs {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// sorted returns matching rows newest first.
func (b *book) sorted(keep func(core.Transaction) bool) []core.Transaction {
	out := []core.Transaction{}
	for _, t := range b.txs {
		if keep(t) {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DateTime.After(out[j].DateTime) })
	return out
}

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return dedupe(out)
}

// dedupe drops blanks and repeats, keeping first-seen order.
func dedupe(in []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
