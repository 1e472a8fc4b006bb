package tokens

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenAccountRoundTrip(t *testing.T) {
	test := func(address TokenAddress) {
		t.Run(address.String(), func(t *testing.T) {
			t.Parallel()
			account := address.Account()
			assert.True(t, account.IsTokenAccount())

			actual, ok := TokenFromAccount(account)
			assert.True(t, ok)
			assert.Equal(t, address, actual)
		})
	}

	test(TokenAddress{CollectionId: 1, TokenId: 1})
	test(TokenAddress{CollectionId: 42, TokenId: 7})
	test(TokenAddress{CollectionId: 4294967295, TokenId: 4294967295})
}

func TestTokenFromAccountRejectsWallets(t *testing.T) {
	for _, account := range []AccountId{
		"alice",
		"0x00112233445566778899aabbccddeeff00112233",
		ZeroAccount,
		"nested:",
		"nested:1",
		"nested:1:2:3",
		"nested:x:y",
	} {
		_, ok := TokenFromAccount(account)
		assert.False(t, ok, "account %q must not parse as a token account", account)
	}
}

func TestNewTokenAddressFromString(t *testing.T) {
	address, err := NewTokenAddressFromString("3:15")
	assert.NoError(t, err)
	assert.Equal(t, TokenAddress{CollectionId: 3, TokenId: 15}, address)

	_, err = NewTokenAddressFromString("3")
	assert.Error(t, err)
	_, err = NewTokenAddressFromString("3:15:2")
	assert.Error(t, err)
	_, err = NewTokenAddressFromString("-1:2")
	assert.Error(t, err)
}
