package walletd

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/shopspring/decimal"
)

const zeroBalanceHex = "0x0"

// Balance is the on-chain holdings of the active wallet address, in the
// smallest denomination. It serializes to a hex string for persistence.
type Balance struct {
	Unconfirmed *hexutil.Big `json:"unconfirmed_balance"`
	Confirmed   *hexutil.Big `json:"confirmed_balance,omitempty"`
}

func NewBalance(unconfirmed *big.Int) *Balance {
	return &Balance{
		Unconfirmed: (*hexutil.Big)(new(big.Int).Set(unconfirmed)),
	}
}

func BalanceFromHex(s string) (*Balance, error) {
	v, err := hexutil.DecodeBig(s)
	if err != nil {
		return nil, err
	}

	return &Balance{Unconfirmed: (*hexutil.Big)(v)}, nil
}

func (b *Balance) UnconfirmedBig() *big.Int {
	if b == nil || b.Unconfirmed == nil {
		return new(big.Int)
	}

	return (*big.Int)(b.Unconfirmed)
}

func (b *Balance) ConfirmedBig() *big.Int {
	if b == nil || b.Confirmed == nil {
		return new(big.Int)
	}

	return (*big.Int)(b.Confirmed)
}

// UnconfirmedHex is the persisted form of the balance.
func (b *Balance) UnconfirmedHex() string {
	return hexutil.EncodeBig(b.UnconfirmedBig())
}

// Equal reports whether the underlying integers are equal.
func (b *Balance) Equal(other *Balance) bool {
	if b == nil || other == nil {
		return b == other
	}

	return b.UnconfirmedBig().Cmp(other.UnconfirmedBig()) == 0 &&
		b.ConfirmedBig().Cmp(other.ConfirmedBig()) == 0
}

// MarketRates maps an ISO currency code to the local-currency price of one
// unit of the base asset. Absent and zero entries both mean "no conversion
// available".
type MarketRates map[string]decimal.Decimal

func (r MarketRates) Rate(code string) decimal.Decimal {
	return r[code]
}

// Network is a selectable chain/network the ledger service can point at.
type Network struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Networks is the fixed set of known networks plus the process-wide default.
type Networks struct {
	all       []Network
	defaultID string
}

func NewNetworks(defaultID string, all ...Network) *Networks {
	return &Networks{all: all, defaultID: defaultID}
}

func MainNetworks() *Networks {
	return NewNetworks(
		"1",
		Network{ID: "1", Name: "Mainnet", URL: "https://ledger.mainnet.oxeth.dev"},
		Network{ID: "3", Name: "Ropsten", URL: "https://ledger.ropsten.oxeth.dev"},
	)
}

func (n *Networks) All() []Network {
	return n.all
}

func (n *Networks) Default() Network {
	net, _ := n.Get(n.defaultID)
	return net
}

func (n *Networks) Get(id string) (Network, bool) {
	for _, net := range n.all {
		if net.ID == id {
			return net, true
		}
	}

	return Network{}, false
}

// IsDefault reports whether the given selection is the process-wide default
// network, whose push registration is shared and never torn down.
func (n *Networks) IsDefault(net Network) bool {
	return net.ID == n.defaultID
}

// PushRegistration carries the device token sent to the ledger service,
// along with the wallet address for register calls.
type PushRegistration struct {
	Registration string `json:"registration_id"`
	Address      string `json:"address,omitempty"`
}

// Payment is the ledger's view of a transaction, trimmed to the fields the
// session consumes.
type Payment struct {
	TxHash      string       `json:"txHash"`
	Status      string       `json:"status"`
	Value       *hexutil.Big `json:"value,omitempty"`
	FromAddress string       `json:"fromAddress,omitempty"`
	ToAddress   string       `json:"toAddress,omitempty"`
}
