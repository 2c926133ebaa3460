package config

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/michaelpento.lv/triscan/types"
	"gopkg.in/yaml.v2"
)

//go:embed catalog.yaml
var builtinCatalog []byte

const maxTokenDecimals = 36

type catalogFile struct {
	Networks []catalogNetwork `yaml:"networks"`
}

type catalogNetwork struct {
	ID      string         `yaml:"id"`
	Name    string         `yaml:"name"`
	ChainID uint64         `yaml:"chain_id"`
	RPC     string         `yaml:"rpc"`
	Quoter  string         `yaml:"quoter"`
	Factory string         `yaml:"factory"`
	Tokens  []catalogToken `yaml:"tokens"`
}

type catalogToken struct {
	Symbol       string  `yaml:"symbol"`
	Address      string  `yaml:"address"`
	Decimals     int     `yaml:"decimals"`
	Category     string  `yaml:"category"`
	MinLiquidity float64 `yaml:"min_liquidity"`
}

// Catalog is the set of supported networks, in declaration order
type Catalog struct {
	networks map[string]*types.Network
	order    []string
}

// LoadCatalog returns the built-in catalog, overlaid with the networks in
// path when path is not empty. A network in the file replaces the built-in
// network with the same id.
func LoadCatalog(path string) (*Catalog, error) {
	networks, err := ParseCatalog(builtinCatalog)
	if err != nil {
		return nil, fmt.Errorf("invalid built-in catalog: %w", err)
	}
	c := &Catalog{networks: make(map[string]*types.Network)}
	for _, n := range networks {
		c.add(n)
	}

	if path == "" {
		return c, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}
	overlay, err := ParseCatalog(data)
	if err != nil {
		return nil, fmt.Errorf("invalid catalog file %s: %w", path, err)
	}
	for _, n := range overlay {
		c.add(n)
	}
	return c, nil
}

// NewCatalog builds a catalog from already constructed networks
func NewCatalog(networks ...*types.Network) *Catalog {
	c := &Catalog{networks: make(map[string]*types.Network)}
	for _, n := range networks {
		n.Seal()
		c.add(n)
	}
	return c
}

func (c *Catalog) add(n *types.Network) {
	if _, exists := c.networks[n.ID]; !exists {
		c.order = append(c.order, n.ID)
	}
	c.networks[n.ID] = n
}

// Network looks a network up by id
func (c *Catalog) Network(id string) (*types.Network, bool) {
	n, ok := c.networks[id]
	return n, ok
}

// Networks returns every network in declaration order
func (c *Catalog) Networks() []*types.Network {
	out := make([]*types.Network, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.networks[id])
	}
	return out
}

// IDs returns the network ids in declaration order
func (c *Catalog) IDs() []string {
	return append([]string(nil), c.order...)
}

// ApplyRPCEndpoints overrides the RPC endpoint of the listed networks.
// Call before the catalog is shared.
func (c *Catalog) ApplyRPCEndpoints(endpoints map[string]string) {
	for id, url := range endpoints {
		if n, ok := c.networks[id]; ok && url != "" {
			n.RPCEndpoint = url
		}
	}
}

// ParseCatalog decodes and validates a YAML catalog
func ParseCatalog(data []byte) ([]*types.Network, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to decode catalog: %w", err)
	}

	var errors []string
	var networks []*types.Network
	seenNetworks := make(map[string]bool)

	for i, cn := range file.Networks {
		if cn.ID == "" {
			errors = append(errors, fmt.Sprintf("network %d: id must be specified", i))
			continue
		}
		if seenNetworks[cn.ID] {
			errors = append(errors, fmt.Sprintf("network %s: declared twice", cn.ID))
			continue
		}
		seenNetworks[cn.ID] = true

		n := &types.Network{
			ID:          cn.ID,
			Name:        cn.Name,
			ChainID:     cn.ChainID,
			RPCEndpoint: cn.RPC,
		}
		if cn.Quoter != "" {
			if !common.IsHexAddress(cn.Quoter) {
				errors = append(errors, fmt.Sprintf("network %s: invalid quoter address %q", cn.ID, cn.Quoter))
			}
			n.Quoter = common.HexToAddress(cn.Quoter)
		}
		if cn.Factory != "" {
			if !common.IsHexAddress(cn.Factory) {
				errors = append(errors, fmt.Sprintf("network %s: invalid factory address %q", cn.ID, cn.Factory))
			}
			n.Factory = common.HexToAddress(cn.Factory)
		}

		seenSymbols := make(map[string]bool)
		for _, ct := range cn.Tokens {
			switch {
			case ct.Symbol == "":
				errors = append(errors, fmt.Sprintf("network %s: token without symbol", cn.ID))
				continue
			case seenSymbols[ct.Symbol]:
				errors = append(errors, fmt.Sprintf("network %s: duplicate token %s", cn.ID, ct.Symbol))
				continue
			}
			seenSymbols[ct.Symbol] = true

			if !common.IsHexAddress(ct.Address) {
				errors = append(errors, fmt.Sprintf("network %s: token %s has invalid address %q", cn.ID, ct.Symbol, ct.Address))
			}
			if ct.Decimals < 0 || ct.Decimals > maxTokenDecimals {
				errors = append(errors, fmt.Sprintf("network %s: token %s has invalid decimals %d", cn.ID, ct.Symbol, ct.Decimals))
			}
			category := types.Category(ct.Category)
			if !category.Valid() {
				errors = append(errors, fmt.Sprintf("network %s: token %s has unknown category %q", cn.ID, ct.Symbol, ct.Category))
			}
			if ct.MinLiquidity < 0 {
				errors = append(errors, fmt.Sprintf("network %s: token %s has negative min_liquidity", cn.ID, ct.Symbol))
			}

			n.Tokens = append(n.Tokens, types.Token{
				Symbol:       ct.Symbol,
				Address:      common.HexToAddress(ct.Address),
				Decimals:     uint8(ct.Decimals),
				Category:     category,
				MinLiquidity: ct.MinLiquidity,
			})
		}

		n.Seal()
		networks = append(networks, n)
	}

	if len(errors) > 0 {
		return nil, fmt.Errorf("catalog validation failed: %s", strings.Join(errors, "; "))
	}
	return networks, nil
}
