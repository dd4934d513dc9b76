// CLAUDE:SUMMARY Term co-occurrence matrix over per-participant term lists, its edge list and the semicolon CSV export.
package analysis

import (
	"encoding/csv"
	"io"
	"sort"
	"strconv"
)

// Matrix is a symmetric label x label count matrix. Values[i][j] is the
// number of lists holding both Labels[i] and Labels[j]; Values[i][i] the
// number of lists holding Labels[i].
type Matrix struct {
	Labels []string `json:"labels"`
	Values [][]int  `json:"values"`
}

// BuildCoOccurrence counts each list once per label pair. Duplicates within
// a list and empty strings are ignored. Labels are sorted lexicographically.
func BuildCoOccurrence(lists [][]string) Matrix {
	index := make(map[string]int)
	var labels []string
	for _, list := range lists {
		for _, s := range list {
			if s == "" {
				continue
			}
			if _, ok := index[s]; !ok {
				index[s] = 0
				labels = append(labels, s)
			}
		}
	}
	sort.Strings(labels)
	for i, l := range labels {
		index[l] = i
	}

	values := make([][]int, len(labels))
	for i := range values {
		values[i] = make([]int, len(labels))
	}

	for _, list := range lists {
		unique := dedup(list)
		for i := 0; i < len(unique); i++ {
			a := index[unique[i]]
			values[a][a]++
			for j := i + 1; j < len(unique); j++ {
				b := index[unique[j]]
				values[a][b]++
				values[b][a]++
			}
		}
	}
	if labels == nil {
		labels = []string{}
	}
	return Matrix{Labels: labels, Values: values}
}

func dedup(list []string) []string {
	seen := make(map[string]bool, len(list))
	out := make([]string, 0, len(list))
	for _, s := range list {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

// Edge is one non-zero cell of the upper triangle, diagonal included.
type Edge struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Count  int    `json:"count"`
}

func Edges(m Matrix) []Edge {
	var out []Edge
	for i := range m.Labels {
		for j := i; j < len(m.Labels); j++ {
			if c := m.Values[i][j]; c > 0 {
				out = append(out, Edge{Source: m.Labels[i], Target: m.Labels[j], Count: c})
			}
		}
	}
	return out
}

// WriteEdgesCSV writes the edge list as "source;target;count" with a header.
func WriteEdgesCSV(w io.Writer, m Matrix) error {
	cw := csv.NewWriter(w)
	cw.Comma = ';'
	if err := cw.Write([]string{"source", "target", "count"}); err != nil {
		return err
	}
	for _, e := range Edges(m) {
		if err := cw.Write([]string{e.Source, e.Target, strconv.Itoa(e.Count)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
