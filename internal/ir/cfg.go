package ir

// ReversePostOrder returns f's blocks in reverse post-order starting
// from f.Entry. Unreachable blocks are excluded.
//
// TILT needs no dominance tree: name resolution during lowering uses a
// single function-wide scope, not a dominance relation (see
// internal/lower/func.go), so nothing in lowering or verification
// depends on dominance. RPO alone is enough for --show-ir's
// deterministic block ordering and for the reachability check in Verify.
func ReversePostOrder(f *Func) []*Block {
	visited := make(map[*Block]bool, len(f.Blocks))
	var order []*Block

	var dfs func(b *Block)
	dfs = func(b *Block) {
		if visited[b] {
			return
		}
		visited[b] = true
		for _, s := range b.Succs() {
			dfs(s)
		}
		order = append(order, b)
	}
	if f.Entry != nil {
		dfs(f.Entry)
	}

	for i, j := 0, len(order)-1; i < j; i, j = i+1, j-1 {
		order[i], order[j] = order[j], order[i]
	}
	return order
}

// Reachable reports whether every block in f is reachable from its entry
// block. Verify reports each unreachable block as a failure, and
// lowering turns that into a lowering error, so a source function with a
// block nothing ever branches to is rejected.
func Reachable(f *Func) (ok bool, unreached []*Block) {
	rpo := ReversePostOrder(f)
	seen := make(map[*Block]bool, len(rpo))
	for _, b := range rpo {
		seen[b] = true
	}
	for _, b := range f.Blocks {
		if !seen[b] {
			unreached = append(unreached, b)
		}
	}
	return len(unreached) == 0, unreached
}
