package github

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"

	"eth_history_api/internal/domain"
)

const upgradeArchivePath = "/repos/ethereum/pm/contents/Network-Upgrade-Archive"

// upgrade is a mainnet activation. coreID is set when the upgrade is already
// one of the curated core events, so the timeline keeps a single entry.
type upgrade struct {
	title      string
	date       string
	block      uint64
	importance domain.Importance
	eips       []uint32
	coreID     string
}

// mainnetUpgrades is keyed by the normalized archive entry name.
var mainnetUpgrades = map[string]upgrade{
	"frontier":          {title: "Frontier", date: "2015-07-30", block: 0, importance: domain.ImportanceMajor, coreID: "frontier-launch"},
	"homestead":         {title: "Homestead", date: "2016-03-14", block: 1_150_000, importance: domain.ImportanceMajor, eips: []uint32{2, 7, 8}},
	"dao fork":          {title: "DAO Fork", date: "2016-07-20", block: 1_920_000, importance: domain.ImportanceMajor},
	"tangerine whistle": {title: "Tangerine Whistle", date: "2016-10-18", block: 2_463_000, importance: domain.ImportanceSignificant, eips: []uint32{150}},
	"spurious dragon":   {title: "Spurious Dragon", date: "2016-11-22", block: 2_675_000, importance: domain.ImportanceSignificant, eips: []uint32{155, 160, 161, 170}},
	"byzantium":         {title: "Byzantium", date: "2017-10-16", block: 4_370_000, importance: domain.ImportanceMajor, eips: []uint32{100, 140, 196, 197, 198, 211, 214, 649, 658}},
	"constantinople":    {title: "Constantinople", date: "2019-02-28", block: 7_280_000, importance: domain.ImportanceSignificant, eips: []uint32{145, 1014, 1052, 1234}},
	"petersburg":        {title: "Constantinople", date: "2019-02-28", block: 7_280_000, importance: domain.ImportanceSignificant, eips: []uint32{145, 1014, 1052, 1234}},
	"istanbul":          {title: "Istanbul", date: "2019-12-08", block: 9_069_000, importance: domain.ImportanceSignificant, eips: []uint32{152, 1108, 1344, 1884, 2028, 2200}},
	"muir glacier":      {title: "Muir Glacier", date: "2020-01-02", block: 9_200_000, importance: domain.ImportanceMinor, eips: []uint32{2384}},
	"berlin":            {title: "Berlin", date: "2021-04-15", block: 12_244_000, importance: domain.ImportanceSignificant, eips: []uint32{2565, 2718, 2929, 2930}},
	"london":            {title: "London", date: "2021-08-05", block: 12_965_000, importance: domain.ImportanceMajor, eips: []uint32{1559, 3198, 3529, 3541, 3554}},
	"arrow glacier":     {title: "Arrow Glacier", date: "2021-12-09", block: 13_773_000, importance: domain.ImportanceMinor, eips: []uint32{4345}},
	"gray glacier":      {title: "Gray Glacier", date: "2022-06-30", block: 15_050_000, importance: domain.ImportanceMinor, eips: []uint32{5133}},
	"merge":             {title: "Paris (The Merge)", date: "2022-09-15", block: 15_537_394, importance: domain.ImportanceMajor, coreID: "the-merge"},
	"paris":             {title: "Paris (The Merge)", date: "2022-09-15", block: 15_537_394, importance: domain.ImportanceMajor, coreID: "the-merge"},
	"shanghai":          {title: "Shanghai", date: "2023-04-12", block: 17_034_870, importance: domain.ImportanceMajor, eips: []uint32{3651, 3855, 3860, 4895, 6049}},
	"cancun":            {title: "Dencun", date: "2024-03-13", block: 19_426_587, importance: domain.ImportanceMajor, coreID: "eip-4844"},
	"dencun":            {title: "Dencun", date: "2024-03-13", block: 19_426_587, importance: domain.ImportanceMajor, coreID: "eip-4844"},
	"prague":            {title: "Pectra", date: "2025-05-07", block: 22_431_084, importance: domain.ImportanceMajor, eips: []uint32{2537, 2935, 6110, 7002, 7251, 7549, 7623, 7685, 7691, 7702, 7840}},
	"pectra":            {title: "Pectra", date: "2025-05-07", block: 22_431_084, importance: domain.ImportanceMajor, eips: []uint32{2537, 2935, 6110, 7002, 7251, 7549, 7623, 7685, 7691, 7702, 7840}},
}

// normalizeUpgradeName turns "Arrow-Glacier.md" or "arrow_glacier" into
// "arrow glacier".
func normalizeUpgradeName(name string) string {
	name = strings.TrimSuffix(strings.ToLower(name), ".md")
	name = strings.NewReplacer("-", " ", "_", " ").Replace(name)
	return strings.Join(strings.Fields(name), " ")
}

// FetchEipEvents lists the ethereum/pm network upgrade archive and emits one
// hard-fork event per mainnet upgrade it recognises, oldest first. Entries
// that are not mainnet upgrades (testnets, meta notes) are skipped.
func (c *Client) FetchEipEvents(ctx context.Context) ([]domain.TimelineEvent, error) {
	zap.L().Info("fetching network upgrades from ethereum/pm")

	var contents []content
	if err := c.events.GetJSON(ctx, c.apiURL+upgradeArchivePath, &contents); err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	events := make([]domain.TimelineEvent, 0, len(contents))
	for _, ct := range contents {
		if ct.Type != "" && ct.Type != "dir" && !strings.HasSuffix(ct.Name, ".md") {
			continue
		}
		u, ok := mainnetUpgrades[normalizeUpgradeName(ct.Name)]
		if !ok {
			zap.L().Debug("skipping archive entry", zap.String("name", ct.Name))
			continue
		}
		ev := upgradeEvent(u, ct.HTMLURL)
		if _, dup := seen[ev.ID]; dup {
			continue
		}
		seen[ev.ID] = struct{}{}
		events = append(events, ev)
	}
	slices.SortStableFunc(events, func(a, b domain.TimelineEvent) int {
		return cmp.Compare(a.Date, b.Date)
	})

	zap.L().Info("fetched network upgrades", zap.Int("count", len(events)))
	return events, nil
}

func upgradeEvent(u upgrade, link string) domain.TimelineEvent {
	id := u.coreID
	if id == "" {
		id = "upgrade-" + strings.ReplaceAll(strings.ToLower(u.title), " ", "-")
	}
	block := u.block
	ev := domain.TimelineEvent{
		ID:          id,
		Type:        domain.EventHardFork,
		Date:        u.date,
		BlockNumber: &block,
		Title:       u.title,
		Summary:     fmt.Sprintf("%s network upgrade activated at block %d.", u.title, u.block),
		Era:         domain.EraForDate(u.date),
		Importance:  u.importance,
		RelatedEIPs: slices.Clone(u.eips),
		Tags:        []string{"protocol", "network-upgrade"},
	}
	if link != "" {
		ev.Sources = []domain.Source{{
			Title:      "ethereum/pm: " + u.title,
			URL:        link,
			SourceType: domain.SourceGitHubEvents,
		}}
	}
	return ev
}
