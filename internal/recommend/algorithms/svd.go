// Codex - Hybrid Title Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/codex

package algorithms

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// csr is a compressed sparse row matrix.
type csr struct {
	rows, cols int
	rowPtr     []int
	colIdx     []int
	vals       []float64
}

// mulDense returns a * x.
func (a *csr) mulDense(x *mat.Dense) *mat.Dense {
	_, l := x.Dims()
	out := mat.NewDense(a.rows, l, nil)
	for i := 0; i < a.rows; i++ {
		dst := out.RawRowView(i)
		for p := a.rowPtr[i]; p < a.rowPtr[i+1]; p++ {
			floats.AddScaled(dst, a.vals[p], x.RawRowView(a.colIdx[p]))
		}
	}
	return out
}

// tmulDense returns aᵀ * x.
func (a *csr) tmulDense(x *mat.Dense) *mat.Dense {
	_, l := x.Dims()
	out := mat.NewDense(a.cols, l, nil)
	for i := 0; i < a.rows; i++ {
		src := x.RawRowView(i)
		for p := a.rowPtr[i]; p < a.rowPtr[i+1]; p++ {
			floats.AddScaled(out.RawRowView(a.colIdx[p]), a.vals[p], src)
		}
	}
	return out
}

// orthonormalize replaces the columns of y with an orthonormal basis of
// their span using modified Gram-Schmidt, run twice for stability.
// Columns that vanish are left as zero.
func orthonormalize(y *mat.Dense) {
	n, l := y.Dims()
	col := make([]float64, n)
	for pass := 0; pass < 2; pass++ {
		for j := 0; j < l; j++ {
			mat.Col(col, j, y)
			for k := 0; k < j; k++ {
				prev := mat.Col(nil, k, y)
				floats.AddScaled(col, -floats.Dot(prev, col), prev)
			}
			norm := floats.Norm(col, 2)
			if norm < 1e-12 {
				floats.Scale(0, col)
			} else {
				floats.Scale(1/norm, col)
			}
			y.SetCol(j, col)
		}
	}
}

// randomizedSVD computes a rank-k approximation a ≈ U Σ Vᵀ with a seeded
// Gaussian range finder and returns U Σ (a.rows x k) plus the singular
// values. Each component's sign makes its largest-magnitude U entry
// positive, so results are reproducible for a fixed seed.
func randomizedSVD(ctx context.Context, a *csr, k, oversamples, powerIters int, seed uint64) (*mat.Dense, []float64, error) {
	limit := min(a.rows, a.cols)
	k = min(k, limit)
	l := min(k+oversamples, limit)
	if k < 1 {
		return nil, nil, errors.New("matrix has no rows or columns")
	}

	rng := rand.New(rand.NewPCG(seed, seed)) //nolint:gosec // reproducibility, not security
	omega := mat.NewDense(a.cols, l, nil)
	for i := 0; i < a.cols; i++ {
		row := omega.RawRowView(i)
		for j := range row {
			row[j] = rng.NormFloat64()
		}
	}

	q := a.mulDense(omega)
	orthonormalize(q)
	for it := 0; it < powerIters; it++ {
		if ContextCancelled(ctx) {
			return nil, nil, ctx.Err()
		}
		z := a.tmulDense(q)
		orthonormalize(z)
		q = a.mulDense(z)
		orthonormalize(q)
	}

	// B = Qᵀ A is small (l x cols); factorize it exactly.
	bt := a.tmulDense(q)
	var svd mat.SVD
	if !svd.Factorize(bt.T(), mat.SVDThin) {
		return nil, nil, errors.New("svd did not converge")
	}
	var ub mat.Dense
	svd.UTo(&ub)
	sigma := svd.Values(nil)

	var u mat.Dense
	u.Mul(q, &ub)

	out := mat.NewDense(a.rows, k, nil)
	col := make([]float64, a.rows)
	for j := 0; j < k; j++ {
		mat.Col(col, j, &u)
		if col[floats.MaxIdx(absAll(col))] < 0 {
			floats.Scale(-1, col)
		}
		floats.Scale(sigma[j], col)
		out.SetCol(j, col)
	}
	return out, sigma[:k], nil
}

func absAll(xs []float64) []float64 {
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = math.Abs(x)
	}
	return out
}
