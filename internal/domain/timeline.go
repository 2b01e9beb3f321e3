package domain

import "slices"

type EventType string

const (
	EventHardFork    EventType = "hard_fork"
	EventEIP         EventType = "eip"
	EventResearch    EventType = "research"
	EventMilestone   EventType = "milestone"
	EventScaling     EventType = "scaling"
	EventControversy EventType = "controversy"
	EventApplication EventType = "application"
	EventSocial      EventType = "social"
)

type Era string

const (
	EraFrontier   Era = "frontier"
	EraHomestead  Era = "homestead"
	EraMetropolis Era = "metropolis"
	EraIstanbul   Era = "istanbul"
	EraBeacon     Era = "beacon"
	EraMerge      Era = "merge"
	EraShanghai   Era = "shanghai"
	EraCancun     Era = "cancun"
)

type Importance string

const (
	ImportanceMajor       Importance = "major"
	ImportanceSignificant Importance = "significant"
	ImportanceMinor       Importance = "minor"
)

type Source struct {
	Title      string `json:"title"`
	URL        string `json:"url"`
	SourceType string `json:"source_type,omitempty"`
}

type TimelineEvent struct {
	ID          string     `json:"id"`
	Type        EventType  `json:"type"`
	Date        string     `json:"date"`
	BlockNumber *uint64    `json:"block_number,omitempty"`
	Title       string     `json:"title"`
	Summary     string     `json:"summary"`
	Era         Era        `json:"era"`
	Importance  Importance `json:"importance"`
	RelatedEIPs []uint32   `json:"related_eips,omitempty"`
	Content     string     `json:"content,omitempty"`
	Sources     []Source   `json:"sources,omitempty"`
	Tags        []string   `json:"tags"`
}

// eraStarts lists the first day of each era, oldest first.
var eraStarts = []struct {
	date string
	era  Era
}{
	{"2015-07-30", EraFrontier},
	{"2016-03-14", EraHomestead},
	{"2017-10-16", EraMetropolis},
	{"2019-12-08", EraIstanbul},
	{"2020-12-01", EraBeacon},
	{"2022-09-15", EraMerge},
	{"2023-04-12", EraShanghai},
	{"2024-03-13", EraCancun},
}

// EraForDate maps an ISO date (or RFC 3339 timestamp) to the protocol era it
// falls in. Dates before launch map to frontier.
func EraForDate(date string) Era {
	if len(date) > 10 {
		date = date[:10]
	}
	era := EraFrontier
	for _, s := range eraStarts {
		if date < s.date {
			break
		}
		era = s.era
	}
	return era
}

func blockPtr(n uint64) *uint64 { return &n }

// Clone returns a copy that shares no slices or pointers with e.
func (e TimelineEvent) Clone() TimelineEvent {
	if e.BlockNumber != nil {
		e.BlockNumber = blockPtr(*e.BlockNumber)
	}
	e.RelatedEIPs = slices.Clone(e.RelatedEIPs)
	e.Sources = slices.Clone(e.Sources)
	e.Tags = slices.Clone(e.Tags)
	return e
}

// CoreEvents are the hand-curated milestones that are always part of the
// timeline, whatever the state of the upstream sources.
func CoreEvents() []TimelineEvent {
	return []TimelineEvent{
		{
			ID:          "frontier-launch",
			Type:        EventMilestone,
			Date:        "2015-07-30",
			BlockNumber: blockPtr(0),
			Title:       "Frontier Launch",
			Summary:     "Ethereum mainnet goes live. The genesis block is mined.",
			Era:         EraFrontier,
			Importance:  ImportanceMajor,
			Content:     "Ethereum officially launched on July 30, 2015.",
			Tags:        []string{"protocol", "milestone"},
		},
		{
			ID:          "the-merge",
			Type:        EventMilestone,
			Date:        "2022-09-15",
			BlockNumber: blockPtr(15_537_394),
			Title:       "The Merge",
			Summary:     "Ethereum transitions from Proof of Work to Proof of Stake.",
			Era:         EraMerge,
			Importance:  ImportanceMajor,
			Content:     "The Merge reduced Ethereum's energy consumption by 99.95%.",
			Tags:        []string{"protocol", "milestone"},
		},
		{
			ID:          "eip-4844",
			Type:        EventHardFork,
			Date:        "2024-03-13",
			BlockNumber: blockPtr(19_426_587),
			Title:       "Dencun (EIP-4844)",
			Summary:     "Proto-Danksharding introduces blob transactions, reducing L2 costs 10-100x.",
			Era:         EraCancun,
			Importance:  ImportanceMajor,
			RelatedEIPs: []uint32{4844},
			Tags:        []string{"protocol", "scaling"},
		},
	}
}
