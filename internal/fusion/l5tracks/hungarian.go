package l5tracks

import "math"

// hungarianAssign implements the Kuhn–Munkres (Hungarian) algorithm for
// minimum-cost rectangular assignment in O(n³) time.
//
// forbidden[i][j] marks pairs that must never be selected. Rather than a
// huge sentinel cost (which swamps the real costs in float64 once the
// potentials grow), forbidden cells cost bigM, chosen so that using even
// one forbidden cell is worse than any assignment made of allowed cells.
// Padding rows and columns cost zero. The solver therefore maximises the
// number of allowed pairs first and minimises their total cost second.
//
// Returns assignments[i] = column assigned to row i, or -1.
func hungarianAssign(cost [][]float64, forbidden [][]bool) []int {
	n := len(cost)
	if n == 0 {
		return nil
	}
	m := len(cost[0])
	result := make([]int, n)
	for i := range result {
		result[i] = -1
	}
	if m == 0 {
		return result
	}

	dim := n
	if m > dim {
		dim = m
	}

	maxCost := 0.0
	for i := 0; i < n; i++ {
		for j := 0; j < m; j++ {
			if !forbidden[i][j] && cost[i][j] > maxCost {
				maxCost = cost[i][j]
			}
		}
	}
	bigM := (maxCost+1)*float64(dim) + 1

	c := make([][]float64, dim)
	for i := 0; i < dim; i++ {
		c[i] = make([]float64, dim)
		for j := 0; j < dim; j++ {
			switch {
			case i >= n || j >= m:
				c[i][j] = 0
			case forbidden[i][j]:
				c[i][j] = bigM
			default:
				c[i][j] = cost[i][j]
			}
		}
	}

	// Jonker-Volgenant style potentials, 1-indexed internally.
	const inf = math.MaxFloat64 / 2

	u := make([]float64, dim+1)
	v := make([]float64, dim+1)
	p := make([]int, dim+1)   // p[j] = row assigned to column j
	way := make([]int, dim+1) // way[j] = previous column in augmenting path
	minv := make([]float64, dim+1)
	used := make([]bool, dim+1)

	for i := 1; i <= dim; i++ {
		p[0] = i
		j0 := 0

		for j := 1; j <= dim; j++ {
			minv[j] = inf
			used[j] = false
		}

		for {
			used[j0] = true
			i0 := p[j0]
			delta := inf
			j1 := -1

			for j := 1; j <= dim; j++ {
				if used[j] {
					continue
				}
				cur := c[i0-1][j-1] - u[i0] - v[j]
				if cur < minv[j] {
					minv[j] = cur
					way[j] = j0
				}
				if minv[j] < delta {
					delta = minv[j]
					j1 = j
				}
			}

			if j1 < 0 {
				break
			}

			for j := 0; j <= dim; j++ {
				if used[j] {
					u[p[j]] += delta
					v[j] -= delta
				} else {
					minv[j] -= delta
				}
			}

			j0 = j1
			if p[j0] == 0 {
				break
			}
		}

		for j0 != 0 {
			p[j0] = p[way[j0]]
			j0 = way[j0]
		}
	}

	for j := 1; j <= dim; j++ {
		row, col := p[j]-1, j-1
		if row < 0 || row >= n || col >= m || forbidden[row][col] {
			continue
		}
		result[row] = col
	}
	return result
}
