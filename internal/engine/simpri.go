package engine

// Simpri scans candidates in interleaved clusters: cluster c holds the
// indices congruent to c modulo the cluster count. A scan starts at a
// rotating cluster, stops inside a cluster after ImprovingCandidates finds
// and stops overall after VisitClusters clusters once something was found.
// When nothing improving was found every cluster is visited.
type Simpri struct {
	cfg   SimpriConfig
	start int
}

// NewSimpri returns a scanner for cfg.
func NewSimpri(cfg SimpriConfig) *Simpri {
	return &Simpri{cfg: cfg}
}

// Scan returns the index with the highest score among those it visits.
// score reports false for candidates that are not improving.
func (s *Simpri) Scan(n int, score func(i int) (float64, bool)) (int, bool) {
	if n == 0 {
		return -1, false
	}
	k := min(max(s.cfg.Clusters, 1), n)
	start := s.start % k
	s.start = (start + 1) % k

	best, bestScore := -1, 0.0
	for visited := range k {
		c := (start + visited) % k
		found := 0
		for i := c; i < n; i += k {
			v, ok := score(i)
			if !ok {
				continue
			}
			if best < 0 || v > bestScore {
				best, bestScore = i, v
			}
			found++
			if found >= s.cfg.ImprovingCandidates {
				break
			}
		}
		if best >= 0 && visited+1 >= s.cfg.VisitClusters {
			break
		}
	}
	return best, best >= 0
}

// Reset restarts the cluster rotation.
func (s *Simpri) Reset() { s.start = 0 }
