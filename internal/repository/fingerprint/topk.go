package fingerprint

import "github.com/kailas-cloud/tastefeed/internal/domain/recommendation"

// topK keeps the k best candidates seen so far. The root is the worst kept
// candidate, so a new one only has to beat the root to get in. An id already
// kept is ignored, since a SCAN may return the same key twice.
type topK struct {
	k    int
	h    []recommendation.Candidate
	kept map[int64]struct{}
}

func newTopK(k int) *topK {
	return &topK{
		k:    k,
		h:    make([]recommendation.Candidate, 0, min(k, 1024)),
		kept: make(map[int64]struct{}, min(k, 1024)),
	}
}

func (t *topK) offer(c recommendation.Candidate) {
	if _, dup := t.kept[c.ID]; dup {
		return
	}
	if len(t.h) < t.k {
		t.h = append(t.h, c)
		t.kept[c.ID] = struct{}{}
		t.up(len(t.h) - 1)
		return
	}
	if recommendation.Before(c, t.h[0]) {
		delete(t.kept, t.h[0].ID)
		t.h[0] = c
		t.kept[c.ID] = struct{}{}
		t.down(0)
	}
}

// sorted returns the kept candidates best first.
func (t *topK) sorted() []recommendation.Candidate {
	out := make([]recommendation.Candidate, len(t.h))
	copy(out, t.h)
	recommendation.Sort(out)
	return out
}

// worse reports whether h[i] ranks below h[j].
func (t *topK) worse(i, j int) bool {
	return recommendation.Before(t.h[j], t.h[i])
}

func (t *topK) up(j int) {
	for j > 0 {
		i := (j - 1) / 2
		if !t.worse(j, i) {
			break
		}
		t.h[i], t.h[j] = t.h[j], t.h[i]
		j = i
	}
}

func (t *topK) down(i int) {
	n := len(t.h)
	for {
		j1 := 2*i + 1
		if j1 >= n {
			break
		}
		j := j1
		if j2 := j1 + 1; j2 < n && t.worse(j2, j1) {
			j = j2
		}
		if !t.worse(j, i) {
			break
		}
		t.h[i], t.h[j] = t.h[j], t.h[i]
		i = j
	}
}
