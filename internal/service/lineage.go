package service

import (
	"sort"

	"pdfhistory/internal/domain"
)

// HistoryGroup ветки, выросшие из одного исходного файла
type HistoryGroup struct {
	OriginalID string                       `json:"originalId"`
	Branches   [][]domain.FileVersionRecord `json:"branches"`
}

// LineageIndex восстанавливает цепочки ревизий по плоскому списку записей.
// Индекс строится по снимку и не отслеживает последующие изменения.
type LineageIndex struct {
	records    []domain.FileVersionRecord
	byID       map[string]domain.FileVersionRecord
	isParent   map[string]bool
	isOriginal map[string]bool
}

func NewLineageIndex(records []domain.FileVersionRecord) *LineageIndex {
	idx := &LineageIndex{
		byID:       make(map[string]domain.FileVersionRecord, len(records)),
		isParent:   make(map[string]bool),
		isOriginal: make(map[string]bool),
	}

	pos := make(map[string]int, len(records))
	for _, r := range records {
		if i, seen := pos[r.ID]; seen {
			idx.records[i] = r
		} else {
			pos[r.ID] = len(idx.records)
			idx.records = append(idx.records, r)
		}
		idx.byID[r.ID] = r
	}

	for _, r := range idx.records {
		if r.ParentFileID != "" {
			idx.isParent[r.ParentFileID] = true
		}
		// ссылка записи на саму себя не делает ее "оригиналом других"
		if r.OriginalFileID != "" && r.OriginalFileID != r.ID {
			idx.isOriginal[r.OriginalFileID] = true
		}
	}

	return idx
}

// GroupByBranch раскладывает записи по веткам: ключ - id листа,
// значение - путь от листа к оригиналу по убыванию versionNumber.
func GroupByBranch(records []domain.FileVersionRecord) map[string][]domain.FileVersionRecord {
	return NewLineageIndex(records).GroupByBranch()
}

// IsLeaf: никто не ссылается на запись как на родителя, и при этом
// либо versionNumber > 0, либо запись не является оригиналом для других.
// Свежеимпортированный корень без потомков тоже считается листом.
func (idx *LineageIndex) IsLeaf(r domain.FileVersionRecord) bool {
	if idx.isParent[r.ID] {
		return false
	}
	return r.VersionNumber > 0 || !idx.isOriginal[r.ID]
}

func (idx *LineageIndex) GroupByBranch() map[string][]domain.FileVersionRecord {
	groups := make(map[string][]domain.FileVersionRecord)
	for _, r := range idx.records {
		if !idx.IsLeaf(r) {
			continue
		}
		groups[r.ID] = idx.walk(r)
	}
	return groups
}

// Lineage цепочка от записи id к оригиналу. nil, если id неизвестен.
func (idx *LineageIndex) Lineage(id string) []domain.FileVersionRecord {
	r, ok := idx.byID[id]
	if !ok {
		return nil
	}
	return idx.walk(r)
}

// Leaves последние версии каждой ветки, новые первыми
func (idx *LineageIndex) Leaves() []domain.FileVersionRecord {
	var leaves []domain.FileVersionRecord
	for _, r := range idx.records {
		if idx.IsLeaf(r) {
			leaves = append(leaves, r)
		}
	}
	sort.Slice(leaves, func(i, j int) bool {
		if !leaves[i].CreatedAt.Equal(leaves[j].CreatedAt) {
			return leaves[i].CreatedAt.After(leaves[j].CreatedAt)
		}
		return leaves[i].ID < leaves[j].ID
	})
	return leaves
}

// GroupByOriginal группирует ветки по корню цепочки (последний элемент пути)
func (idx *LineageIndex) GroupByOriginal() []HistoryGroup {
	branches := idx.GroupByBranch()

	leafIDs := make([]string, 0, len(branches))
	for id := range branches {
		leafIDs = append(leafIDs, id)
	}
	sort.Strings(leafIDs)

	byRoot := make(map[string]*HistoryGroup)
	var roots []string
	for _, leafID := range leafIDs {
		path := branches[leafID]
		rootID := path[len(path)-1].ID
		group, ok := byRoot[rootID]
		if !ok {
			group = &HistoryGroup{OriginalID: rootID}
			byRoot[rootID] = group
			roots = append(roots, rootID)
		}
		group.Branches = append(group.Branches, path)
	}
	sort.Strings(roots)

	result := make([]HistoryGroup, 0, len(roots))
	for _, rootID := range roots {
		group := byRoot[rootID]
		sort.SliceStable(group.Branches, func(i, j int) bool {
			return group.Branches[i][0].VersionNumber > group.Branches[j][0].VersionNumber
		})
		result = append(result, *group)
	}
	return result
}

func (idx *LineageIndex) walk(start domain.FileVersionRecord) []domain.FileVersionRecord {
	path := []domain.FileVersionRecord{start}
	visited := map[string]bool{start.ID: true}

	current := start
	for {
		next, ok := idx.next(current)
		if !ok || visited[next.ID] {
			break
		}
		path = append(path, next)
		visited[next.ID] = true
		current = next
	}

	sort.SliceStable(path, func(i, j int) bool {
		return path[i].VersionNumber > path[j].VersionNumber
	})
	return path
}

// next: родитель, а при его отсутствии в записи - оригинал.
// Ссылка на неизвестного родителя обрывает цепочку.
func (idx *LineageIndex) next(current domain.FileVersionRecord) (domain.FileVersionRecord, bool) {
	if current.ParentFileID != "" {
		parent, ok := idx.byID[current.ParentFileID]
		return parent, ok
	}
	if current.OriginalFileID != "" && current.OriginalFileID != current.ID {
		if original, ok := idx.byID[current.OriginalFileID]; ok {
			return original, true
		}
	}
	return domain.FileVersionRecord{}, false
}
