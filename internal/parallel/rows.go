package parallel

// Band is a half-open row range [Lo, Hi).
type Band struct {
	Lo, Hi int
}

// Bands splits n rows into at most parts contiguous bands of near-equal size.
// It returns nil for n <= 0.
func Bands(n, parts int) []Band {
	if n <= 0 {
		return nil
	}
	parts = min(max(parts, 1), n)
	out := make([]Band, 0, parts)
	step, rem := n/parts, n%parts
	lo := 0
	for i := range parts {
		hi := lo + step
		if i < rem {
			hi++
		}
		out = append(out, Band{Lo: lo, Hi: hi})
		lo = hi
	}
	return out
}

// ForRows runs fn over n rows split into bands across the pool and waits.
// A nil pool runs every band on the calling goroutine.
func ForRows(p *WorkerPool, n int, fn func(lo, hi int)) {
	if p == nil || p.Workers() == 1 {
		if n > 0 {
			fn(0, n)
		}
		return
	}
	bands := Bands(n, p.Workers()*4)
	work := make([]func(), len(bands))
	for i, b := range bands {
		work[i] = func() { fn(b.Lo, b.Hi) }
	}
	p.ExecuteAll(work)
}
