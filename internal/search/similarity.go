package search

// matchRatio measures how alike two strings are as 2*M/T, where M is the
// total size of the longest matching blocks found by repeatedly locating
// the longest common contiguous run and recursing on the pieces to either
// side, and T is the combined length of both strings. The result is in
// [0, 1]; two empty strings score 1.
func matchRatio(a, b string) float64 {
	ra := []rune(a)
	rb := []rune(b)

	total := len(ra) + len(rb)
	if total == 0 {
		return 1.0
	}

	b2j := make(map[rune][]int, len(rb))
	for j, r := range rb {
		b2j[r] = append(b2j[r], j)
	}

	matched := 0
	type span struct{ alo, ahi, blo, bhi int }
	queue := []span{{0, len(ra), 0, len(rb)}}

	for len(queue) > 0 {
		s := queue[len(queue)-1]
		queue = queue[:len(queue)-1]

		besti, bestj, bestsize := longestMatch(ra, b2j, s.alo, s.ahi, s.blo, s.bhi)
		if bestsize == 0 {
			continue
		}

		matched += bestsize
		queue = append(queue,
			span{s.alo, besti, s.blo, bestj},
			span{besti + bestsize, s.ahi, bestj + bestsize, s.bhi},
		)
	}

	return 2.0 * float64(matched) / float64(total)
}

// longestMatch finds the longest run of runes common to a[alo:ahi] and the
// b positions indexed in b2j within [blo, bhi). j2len maps a b-index to the
// length of the common run ending there, rebuilt per row of a.
func longestMatch(a []rune, b2j map[rune][]int, alo, ahi, blo, bhi int) (besti, bestj, bestsize int) {
	besti, bestj = alo, blo

	j2len := make(map[int]int)
	for i := alo; i < ahi; i++ {
		next := make(map[int]int)
		for _, j := range b2j[a[i]] {
			if j < blo {
				continue
			}
			if j >= bhi {
				break
			}
			k := j2len[j-1] + 1
			next[j] = k
			if k > bestsize {
				besti, bestj, bestsize = i-k+1, j-k+1, k
			}
		}
		j2len = next
	}

	return besti, bestj, bestsize
}
