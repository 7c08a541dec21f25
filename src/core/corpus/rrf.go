package corpus

import "sort"

// DefaultRRFK is the standard rank-fusion constant.
const DefaultRRFK = 60

// fusedChunk is a chunk scored by reciprocal rank fusion across the
// semantic and lexical result lists.
type fusedChunk struct {
	record ChunkRecord
	score  float64
}

// fuseRRF merges the semantic and lexical rankings with Reciprocal Rank
// Fusion: score(d) = Σ 1/(k + rank_engine(d)) over the engines d appears
// in, with 1-based ranks. A chunk present in both lists keeps the record
// (and so the metadata) from the semantic side. The result is sorted by
// fused score descending, ties broken by chunk id for determinism.
func fuseRRF(semantic, lexical []RankedChunk, k int) []fusedChunk {
	if k <= 0 {
		k = DefaultRRFK
	}

	order := make([]string, 0, len(semantic)+len(lexical))
	fused := make(map[string]*fusedChunk, len(semantic)+len(lexical))

	add := func(results []RankedChunk, preferRecord bool) {
		for rank, r := range results {
			contribution := 1.0 / float64(k+rank+1)
			if entry, ok := fused[r.Record.ID]; ok {
				entry.score += contribution
				if preferRecord {
					entry.record = r.Record
				}
				continue
			}
			fused[r.Record.ID] = &fusedChunk{record: r.Record, score: contribution}
			order = append(order, r.Record.ID)
		}
	}
	// Semantic first: on overlap its record wins.
	add(semantic, true)
	add(lexical, false)

	out := make([]fusedChunk, 0, len(order))
	for _, id := range order {
		out = append(out, *fused[id])
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].score != out[j].score {
			return out[i].score > out[j].score
		}
		return out[i].record.ID < out[j].record.ID
	})
	return out
}
