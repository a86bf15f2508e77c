package clients

import (
	"context"
	"crypto/ecdsa"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
	hyperliquid "github.com/sonirico/go-hyperliquid"
)

// HyperliquidClient wraps the SDK exchange handle together with the account
// address derived from the signing key.
type HyperliquidClient struct {
	exchange    *hyperliquid.Exchange
	accountAddr string
}

// NewHyperliquidClient derives the account address from the private key and
// builds the exchange client. Candle snapshots only need the Info endpoint,
// but the SDK hangs it off the exchange handle.
func NewHyperliquidClient(privateKeyHex, baseURL string) (*HyperliquidClient, error) {
	key := strings.TrimPrefix(strings.TrimPrefix(privateKeyHex, "0x"), "0X")

	privateKey, err := crypto.HexToECDSA(key)
	if err != nil {
		return nil, errors.Wrap(err, "parse hyperliquid private key")
	}

	pubECDSA, ok := privateKey.Public().(*ecdsa.PublicKey)
	if !ok {
		return nil, errors.New("error casting public key to ECDSA")
	}
	accountAddr := crypto.PubkeyToAddress(*pubECDSA).Hex()

	ex := hyperliquid.NewExchange(
		context.Background(),
		privateKey,
		baseURL,
		nil,
		"",
		accountAddr,
		nil,
	)

	return &HyperliquidClient{exchange: ex, accountAddr: accountAddr}, nil
}

func (c *HyperliquidClient) Exchange() *hyperliquid.Exchange { return c.exchange }
func (c *HyperliquidClient) Info() *hyperliquid.Info         { return c.exchange.Info() }
func (c *HyperliquidClient) AccountAddress() string          { return c.accountAddr }
