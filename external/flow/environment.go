package flow

import (
	"strings"

	flowgrpc "github.com/onflow/flow-go-sdk/access/grpc"
	"github.com/pkg/errors"
)

type Environment string

const (
	Emulator Environment = "emulator"
	Testnet  Environment = "testnet"
	Mainnet  Environment = "mainnet"
)

// ParseEnvironment accepts `emulator`, `testnet` and `mainnet`, optionally
// prefixed with `flow-`.
func ParseEnvironment(value string) (Environment, error) {
	env := Environment(strings.TrimPrefix(strings.ToLower(strings.TrimSpace(value)), "flow-"))
	switch env {
	case Emulator, Testnet, Mainnet:
		return env, nil
	default:
		return "", errors.Errorf("invalid flow environment [%s]", value)
	}
}

// AccessNode returns the public access node of the network.
func (e Environment) AccessNode() string {
	switch e {
	case Testnet:
		return flowgrpc.TestnetHost
	case Mainnet:
		return flowgrpc.MainnetHost
	default:
		return flowgrpc.EmulatorHost
	}
}

// FungibleTokenAddress returns where the FungibleToken core contract is deployed.
func (e Environment) FungibleTokenAddress() string {
	switch e {
	case Testnet:
		return "0x9a0766d93b6608b7"
	case Mainnet:
		return "0xf233dcee88fe0abe"
	default:
		return "0xee82856bf20e2aa6"
	}
}

// CoreContracts maps core contract names to their address on the network.
func (e Environment) CoreContracts() map[string]string {
	return map[string]string{
		"FungibleToken": e.FungibleTokenAddress(),
	}
}
