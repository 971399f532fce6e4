package vocab

import "time"

const eventTopWords = 20

// IndexBuiltEvent is published after an index has been saved.
type IndexBuiltEvent struct {
	Name          string    `json:"name"`
	Path          string    `json:"path"`
	Size          int       `json:"size"`
	DistinctWords int       `json:"distinct_words"`
	Files         int       `json:"files"`
	TopWords      []string  `json:"top_words"`
	BuiltAt       time.Time `json:"built_at"`
}

func NewIndexBuiltEvent(name string, res *Result) IndexBuiltEvent {
	top := make([]string, 0, eventTopWords)
	for _, e := range res.Index.Entries() {
		if len(top) == eventTopWords {
			break
		}
		top = append(top, e.Word)
	}
	return IndexBuiltEvent{
		Name:          name,
		Path:          res.IndexPath,
		Size:          res.Index.Len(),
		DistinctWords: res.Global.Len(),
		Files:         len(res.Files),
		TopWords:      top,
		BuiltAt:       time.Now().UTC(),
	}
}
