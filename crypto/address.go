package crypto

import (
	"bytes"
	"crypto/rand"
	"fmt"

	"github.com/btcsuite/btcutil/bech32"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// AddressPrefix defines the human-readable prefix carried by encoded addresses.
type AddressPrefix string

// RFLPrefix is the prefix used for all reflectledger account addresses.
const RFLPrefix AddressPrefix = "rfl"

// AddressLength is the raw byte length of an account address.
const AddressLength = 20

// Address represents a 20-byte account address with a bech32 prefix.
type Address struct {
	prefix AddressPrefix
	bytes  []byte
}

func NewAddress(prefix AddressPrefix, b []byte) (Address, error) {
	if len(b) != AddressLength {
		return Address{}, fmt.Errorf("crypto: address must be %d bytes (got %d)", AddressLength, len(b))
	}
	buf := make([]byte, AddressLength)
	copy(buf, b)
	return Address{prefix: prefix, bytes: buf}, nil
}

// MustNewAddress constructs an address and panics on malformed input. It is
// intended for callers that already hold a validated 20-byte value.
func MustNewAddress(prefix AddressPrefix, b []byte) Address {
	addr, err := NewAddress(prefix, b)
	if err != nil {
		panic(err)
	}
	return addr
}

func (a Address) String() string {
	conv, err := bech32.ConvertBits(a.bytes, 8, 5, true)
	if err != nil {
		panic(err)
	}
	encoded, err := bech32.Encode(string(a.prefix), conv)
	if err != nil {
		panic(err)
	}
	return encoded
}

func (a Address) Bytes() []byte {
	buf := make([]byte, AddressLength)
	copy(buf, a.bytes)
	return buf
}

// Raw returns the address as a fixed-size array for map keys and engine calls.
func (a Address) Raw() [20]byte {
	var out [20]byte
	copy(out[:], a.bytes)
	return out
}

// Prefix returns the human-readable prefix associated with the address.
func (a Address) Prefix() AddressPrefix {
	return a.prefix
}

// IsZero reports whether the address is the all-zero address.
func (a Address) IsZero() bool {
	if len(a.bytes) != AddressLength {
		return true
	}
	return bytes.Equal(a.bytes, make([]byte, AddressLength))
}

// DecodeAddress parses a bech32-encoded account address.
func DecodeAddress(addrStr string) (Address, error) {
	prefix, decoded, err := bech32.Decode(addrStr)
	if err != nil {
		return Address{}, fmt.Errorf("crypto: invalid bech32 string: %w", err)
	}
	conv, err := bech32.ConvertBits(decoded, 5, 8, false)
	if err != nil {
		return Address{}, fmt.Errorf("crypto: error converting bits: %w", err)
	}
	return NewAddress(AddressPrefix(prefix), conv)
}

// GenerateAddress returns a fresh random account address. Used when a config
// file is created without an owner so first-run setups remain operable.
func GenerateAddress() (Address, error) {
	buf := make([]byte, AddressLength)
	if _, err := rand.Read(buf); err != nil {
		return Address{}, fmt.Errorf("crypto: generate address: %w", err)
	}
	return NewAddress(RFLPrefix, buf)
}

// LedgerAddress deterministically derives the ledger's own account address
// from the token identity. The ledger address holds swept tokens and is
// reward-excluded and fee-exempt from construction.
func LedgerAddress(name, symbol string) Address {
	digest := ethcrypto.Keccak256([]byte("reflectledger:" + name + ":" + symbol))
	return MustNewAddress(RFLPrefix, digest[12:])
}
