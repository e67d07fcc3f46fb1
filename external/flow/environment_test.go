package flow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEnvironment(t *testing.T) {
	testData := []struct {
		name         string
		value        string
		expected     Environment
		accessNode   string
		fungibleAddr string
		expectErr    bool
	}{
		{name: "emulator", value: "emulator", expected: Emulator, accessNode: "127.0.0.1:3569", fungibleAddr: "0xee82856bf20e2aa6"},
		{name: "testnet with prefix", value: "flow-testnet", expected: Testnet, accessNode: "access.devnet.nodes.onflow.org:9000", fungibleAddr: "0x9a0766d93b6608b7"},
		{name: "mainnet upper case", value: " Mainnet ", expected: Mainnet, accessNode: "access.mainnet.nodes.onflow.org:9000", fungibleAddr: "0xf233dcee88fe0abe"},
		{name: "unknown", value: "devnet", expectErr: true},
		{name: "empty", value: "", expectErr: true},
	}

	for _, testRun := range testData {
		t.Run(testRun.name, func(t *testing.T) {
			env, err := ParseEnvironment(testRun.value)
			if testRun.expectErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, testRun.expected, env)
			assert.Equal(t, testRun.accessNode, env.AccessNode())
			assert.Equal(t, testRun.fungibleAddr, env.FungibleTokenAddress())
			assert.Equal(t, map[string]string{"FungibleToken": testRun.fungibleAddr}, env.CoreContracts())
		})
	}
}
