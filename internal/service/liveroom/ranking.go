package liveroom

import (
	"sort"
)

// ComputeRanking строит рейтинг по снимку прогресса. Чистая функция:
// один и тот же снимок всегда дает один и тот же порядок, сколько бы
// раз ее ни вызвали.
//
// Ключ сортировки: score desc, effectiveTime asc, wrongCount asc,
// затем порядок входа в комнату. Порядок прихода событий на сортировку
// не влияет - иначе рейтинг "мерцал" бы от сетевого джиттера.
func ComputeRanking(roster []*Participant, progress map[uint]*ProgressRecord, penaltyPerWrongMs int64) []RankedEntry {
	entries := make([]RankedEntry, 0, len(roster))
	order := make(map[uint]int, len(roster))

	for _, p := range roster {
		rec := progress[p.UserID]
		if rec == nil {
			rec = &ProgressRecord{}
		}
		order[p.UserID] = p.JoinOrder
		entries = append(entries, RankedEntry{
			UserID:          p.UserID,
			DisplayName:     p.DisplayName,
			Score:           rec.Score,
			EffectiveTimeMs: rec.ElapsedTimeMs + int64(rec.WrongCount)*penaltyPerWrongMs,
			WrongCount:      rec.WrongCount,
			Finished:        rec.Finished,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.EffectiveTimeMs != b.EffectiveTimeMs {
			return a.EffectiveTimeMs < b.EffectiveTimeMs
		}
		if a.WrongCount != b.WrongCount {
			return a.WrongCount < b.WrongCount
		}
		return order[a.UserID] < order[b.UserID]
	})

	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}
