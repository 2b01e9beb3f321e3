package domain

type L2Type string

const (
	L2OptimisticRollup L2Type = "optimistic_rollup"
	L2ZkRollup         L2Type = "zk_rollup"
	L2Validium         L2Type = "validium"
	L2Plasma           L2Type = "plasma"
	L2StateChannel     L2Type = "state_channel"
)

type L2Chain struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	LaunchDate  string   `json:"launch_date"`
	LaunchBlock *uint64  `json:"launch_block,omitempty"`
	ChainType   L2Type   `json:"chain_type"`
	Color       string   `json:"color"`
	TVLUSD      *float64 `json:"tvl_usd,omitempty"`
}

// L2Chains returns the known scaling networks and forks, in display order.
func L2Chains() []L2Chain {
	return []L2Chain{
		{ID: "optimism", Name: "Optimism", LaunchDate: "2021-01-16", LaunchBlock: blockPtr(12_686_786), ChainType: L2OptimisticRollup, Color: "#FF0420"},
		{ID: "arbitrum", Name: "Arbitrum One", LaunchDate: "2021-08-31", LaunchBlock: blockPtr(13_133_428), ChainType: L2OptimisticRollup, Color: "#28A0F0"},
		{ID: "base", Name: "Base", LaunchDate: "2023-08-09", LaunchBlock: blockPtr(17_880_000), ChainType: L2OptimisticRollup, Color: "#0052FF"},
		{ID: "zksync", Name: "zkSync Era", LaunchDate: "2023-03-24", LaunchBlock: blockPtr(16_890_000), ChainType: L2ZkRollup, Color: "#4E529A"},
		{ID: "polygon-zkevm", Name: "Polygon zkEVM", LaunchDate: "2023-03-27", LaunchBlock: blockPtr(16_900_000), ChainType: L2ZkRollup, Color: "#8247E5"},
		{ID: "linea", Name: "Linea", LaunchDate: "2023-07-18", LaunchBlock: blockPtr(17_720_000), ChainType: L2ZkRollup, Color: "#61DFFF"},
		{ID: "scroll", Name: "Scroll", LaunchDate: "2023-10-17", LaunchBlock: blockPtr(18_400_000), ChainType: L2ZkRollup, Color: "#FFEEDA"},
		// historical, never launched as a chain
		{ID: "plasma", Name: "Plasma (concept)", LaunchDate: "2017-08-11", ChainType: L2Plasma, Color: "#888888"},
		{ID: "raiden", Name: "Raiden Network", LaunchDate: "2017-12-01", ChainType: L2StateChannel, Color: "#666666"},
		// the DAO fork split, shown alongside for context
		{ID: "etc", Name: "Ethereum Classic", LaunchDate: "2016-07-20", LaunchBlock: blockPtr(1_920_000), ChainType: L2OptimisticRollup, Color: "#34D399"},
	}
}
