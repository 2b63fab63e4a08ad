// Package credentials looks the CLI password up in the operating system's
// keyring so it doesn't have to live in a config file.
package credentials

import "github.com/zalando/go-keyring"

const service = "caldav-client"

// Get fetches the stored password for the account, or "" when the keyring
// holds none.
func Get(account string) (string, error) {
	secret, err := keyring.Get(service, account)
	if err == keyring.ErrNotFound {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return secret, nil
}

// Set stores the password for the account.
func Set(account, password string) error {
	return keyring.Set(service, account, password)
}

// Delete removes the stored password for the account.
func Delete(account string) error {
	err := keyring.Delete(service, account)
	if err == keyring.ErrNotFound {
		return nil
	}
	return err
}
