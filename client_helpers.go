package ethcontract

import (
	"fmt"

	"github.com/pkg/errors"
)

const (
	ErrNoAccounts = "no accounts found in the client configuration"
)

var INSUFFICIENT_KEYS = `
Error: Insufficient Private Keys

This operation needs at least %d account(s), but only %d private key(s) are configured for network '%s'.
Add keys to the network section of your TOML configuration file:
   [[networks]]
   name = "%s"
   private_keys_secret = ["PRIVATE_KEY_1", "PRIVATE_KEY_2"]
or export an extra root key in ROOT_PRIVATE_KEY.
`

// AssertAccounts fails with setup instructions when fewer than min accounts are configured
func (c *Client) AssertAccounts(min int) error {
	if len(c.Accounts) >= min {
		return nil
	}
	name := c.Cfg.Network.Name
	return errors.New(fmt.Sprintf(INSUFFICIENT_KEYS, min, len(c.Accounts), name, name))
}

// RootAccount returns the first configured account, the default sender of the client
func (c *Client) RootAccount() (Account, error) {
	if len(c.Accounts) == 0 {
		return Account{}, errors.New(ErrNoAccounts)
	}
	return c.Accounts[0], nil
}

// MustRootAccount is RootAccount that panics when no account is configured
func (c *Client) MustRootAccount() Account {
	a, err := c.RootAccount()
	if err != nil {
		panic(err)
	}
	return a
}
