package devidp

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrInvalidCredentials indicates an unknown email or a wrong password.
	ErrInvalidCredentials = errors.New("devidp.accounts.invalid_credentials")
	// ErrAccountInactive indicates a known account that may not sign in.
	ErrAccountInactive = errors.New("devidp.accounts.inactive")
	// ErrAccountNotFound indicates no account matched the identifier.
	ErrAccountNotFound = errors.New("devidp.accounts.not_found")
	// ErrDuplicateAccount indicates the email is already registered.
	ErrDuplicateAccount = errors.New("devidp.accounts.duplicate")
)

// Account is an administrator known to the development provider.
type Account struct {
	UserID       string
	Email        string
	DisplayName  string
	Roles        []string
	Active       bool
	passwordHash []byte
}

// AccountStore keeps bcrypt-hashed accounts in memory.
type AccountStore struct {
	mutex      sync.RWMutex
	byEmail    map[string]*Account
	byID       map[string]*Account
	bcryptCost int
}

// NewAccountStore creates an empty store. A zero cost selects bcrypt.DefaultCost.
func NewAccountStore(bcryptCost int) *AccountStore {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &AccountStore{
		byEmail:    make(map[string]*Account),
		byID:       make(map[string]*Account),
		bcryptCost: bcryptCost,
	}
}

// Add registers an active account and returns its generated user id.
func (store *AccountStore) Add(email string, password string, displayName string, roles []string) (string, error) {
	normalizedEmail := normalizeEmail(email)
	if normalizedEmail == "" || password == "" {
		return "", fmt.Errorf("devidp.accounts.add: %w", ErrInvalidCredentials)
	}
	hash, hashErr := bcrypt.GenerateFromPassword([]byte(password), store.bcryptCost)
	if hashErr != nil {
		return "", fmt.Errorf("devidp.accounts.hash: %w", hashErr)
	}

	store.mutex.Lock()
	defer store.mutex.Unlock()
	if _, exists := store.byEmail[normalizedEmail]; exists {
		return "", fmt.Errorf("devidp.accounts.add: %w", ErrDuplicateAccount)
	}
	account := &Account{
		UserID:       uuid.NewString(),
		Email:        normalizedEmail,
		DisplayName:  displayName,
		Roles:        append([]string(nil), roles...),
		Active:       true,
		passwordHash: hash,
	}
	store.byEmail[normalizedEmail] = account
	store.byID[account.UserID] = account
	return account.UserID, nil
}

// SetActive toggles whether an account may sign in.
func (store *AccountStore) SetActive(userID string, active bool) error {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	account, ok := store.byID[userID]
	if !ok {
		return ErrAccountNotFound
	}
	account.Active = active
	return nil
}

// Authenticate checks the password against the stored hash.
func (store *AccountStore) Authenticate(ctx context.Context, email string, password string) (Account, error) {
	store.mutex.RLock()
	account, ok := store.byEmail[normalizeEmail(email)]
	var snapshot Account
	if ok {
		snapshot = *account
	}
	store.mutex.RUnlock()

	if !ok {
		return Account{}, ErrInvalidCredentials
	}
	if compareErr := bcrypt.CompareHashAndPassword(snapshot.passwordHash, []byte(password)); compareErr != nil {
		return Account{}, ErrInvalidCredentials
	}
	if !snapshot.Active {
		return Account{}, ErrAccountInactive
	}
	snapshot.passwordHash = nil
	return snapshot, nil
}

// Lookup returns the account for a user id.
func (store *AccountStore) Lookup(ctx context.Context, userID string) (Account, error) {
	store.mutex.RLock()
	defer store.mutex.RUnlock()
	account, ok := store.byID[userID]
	if !ok {
		return Account{}, ErrAccountNotFound
	}
	snapshot := *account
	snapshot.passwordHash = nil
	return snapshot, nil
}

// Counts returns the total, active and inactive account numbers.
func (store *AccountStore) Counts() (int, int, int) {
	store.mutex.RLock()
	defer store.mutex.RUnlock()
	active := 0
	for _, account := range store.byID {
		if account.Active {
			active++
		}
	}
	return len(store.byID), active, len(store.byID) - active
}

// Emails lists the registered emails in order.
func (store *AccountStore) Emails() []string {
	store.mutex.RLock()
	defer store.mutex.RUnlock()
	emails := make([]string, 0, len(store.byEmail))
	for email := range store.byEmail {
		emails = append(emails, email)
	}
	sort.Strings(emails)
	return emails
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
