package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContractDetailsResolveAdoptsLocalSymbol(t *testing.T) {
	configured := Contract{Symbol: "NIFTY", SecType: "FUT", Exchange: "NSE", LocalSymbol: "NIFTY26JAN"}
	details := ContractDetails{LocalSymbol: "NIFTY26FEB", ConID: 12345}

	got, err := details.Resolve(configured)
	require.NoError(t, err)
	// The gateway-assigned symbol replaces the configured one; the rest
	// of the contract is untouched.
	assert.Equal(t, "NIFTY26FEB", got.LocalSymbol)
	assert.Equal(t, "NIFTY", got.Symbol)
	assert.Equal(t, "NSE", got.Exchange)
}

func TestContractDetailsResolveEmptyIsError(t *testing.T) {
	configured := Contract{Symbol: "NIFTY", LocalSymbol: "NIFTY26FEB"}

	_, err := ContractDetails{}.Resolve(configured)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnresolvedContract)
}
