package cheats

// BlockOverlay is a thin view over the wrapped EVM's BlockOverrides,
// kept as its own type so callers can reset every active warp/roll/fee
// override in one call without reaching into the EVM directly.
type BlockOverlay struct {
	evm interface {
		ResetBlockOverrides()
	}
}

// Reset clears every active block context override, restoring
// TIMESTAMP/NUMBER/BASEFEE to the underlying block context.
func (o *BlockOverlay) Reset() {
	if o.evm != nil {
		o.evm.ResetBlockOverrides()
	}
}
