package email

import (
	"sort"

	"github.com/brandon/mcp-imap-search/pkg/types"
)

// mergeSummaries drops repeated (folder, uid) pairs, sorts the concatenated
// per-folder results newest first and applies the limit to the merged set
func mergeSummaries(summaries []types.MessageSummary, limit int) []types.MessageSummary {
	seen := make(map[types.UIDRef]bool, len(summaries))
	unique := make([]types.MessageSummary, 0, len(summaries))
	for _, summary := range summaries {
		ref := types.UIDRef{UID: summary.UID, Folder: summary.Folder}
		if !seen[ref] {
			seen[ref] = true
			unique = append(unique, summary)
		}
	}
	summaries = unique

	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].Date.After(summaries[j].Date)
	})
	if limit > 0 && len(summaries) > limit {
		summaries = summaries[:limit]
	}
	return summaries
}

// newestUIDs keeps the n highest UIDs, in ascending order
func newestUIDs(uids []uint32, n int) []uint32 {
	if n <= 0 || len(uids) <= n {
		return uids
	}
	sorted := append([]uint32(nil), uids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	return sorted[len(sorted)-n:]
}

// folderBatch is the set of UIDs requested from one folder
type folderBatch struct {
	folder string
	uids   []uint32
}

// groupByFolder groups refs by folder, keeping first-seen folder order and
// dropping duplicate pairs
func groupByFolder(refs []types.UIDRef) []folderBatch {
	var batches []folderBatch
	index := make(map[string]int)
	seen := make(map[types.UIDRef]bool, len(refs))

	for _, ref := range refs {
		if seen[ref] {
			continue
		}
		seen[ref] = true

		i, ok := index[ref.Folder]
		if !ok {
			i = len(batches)
			index[ref.Folder] = i
			batches = append(batches, folderBatch{folder: ref.Folder})
		}
		batches[i].uids = append(batches[i].uids, ref.UID)
	}
	return batches
}
