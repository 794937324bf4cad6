package domain

import "strings"

// User is a logical B2C identity owning one account record per policy.
type User struct {
	Accounts []Account
}

// Subject returns the subject shared by the user's accounts.
func (u User) Subject() string {
	if len(u.Accounts) == 0 {
		return ""
	}
	return u.Accounts[0].Subject()
}

// Username returns the username of the first account.
func (u User) Username() string {
	if len(u.Accounts) == 0 {
		return ""
	}
	return u.Accounts[0].Username
}

// DisplayName returns the name claim of the first account.
func (u User) DisplayName() string {
	if len(u.Accounts) == 0 {
		return ""
	}
	return u.Accounts[0].DisplayName()
}

// Claims returns the claims of the first account.
func (u User) Claims() map[string]any {
	if len(u.Accounts) == 0 {
		return nil
	}
	return u.Accounts[0].Claims
}

// AccountForPolicy returns the account issued by policyName, falling back to
// the first account when no record matches.
func (u User) AccountForPolicy(policyName string) (Account, bool) {
	if len(u.Accounts) == 0 {
		return Account{}, false
	}
	for _, account := range u.Accounts {
		if policyName != "" && strings.EqualFold(account.Policy(), policyName) {
			return account, true
		}
	}
	return u.Accounts[0], true
}

// GroupUsers groups account records into users by subject claim. Users are
// ordered by the first appearance of their subject. Records without a
// subject cannot be attributed and are counted in unattributed instead.
func GroupUsers(accounts []Account) (users []User, unattributed int) {
	index := make(map[string]int)
	users = make([]User, 0, len(accounts))

	for _, account := range accounts {
		subject := account.Subject()
		if subject == "" {
			unattributed++
			continue
		}
		i, found := index[subject]
		if !found {
			i = len(users)
			index[subject] = i
			users = append(users, User{})
		}
		users[i].Accounts = append(users[i].Accounts, account)
	}
	return users, unattributed
}
