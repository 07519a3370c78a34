package scene

import "github.com/comalice/framesync"

// BoundsFunc adapts a function to framesync.BoundsListener. Listeners are
// compared by identity, so adapters are pointers.
type BoundsFunc struct {
	fn func(framesync.NodeHandle)
}

func OnBounds(fn func(framesync.NodeHandle)) *BoundsFunc {
	return &BoundsFunc{fn: fn}
}

func (f *BoundsFunc) OnBoundsChange(n framesync.NodeHandle) { f.fn(n) }

// DataFunc adapts a function to framesync.DataListener.
type DataFunc struct {
	fn func(framesync.NodeHandle)
}

func OnData(fn func(framesync.NodeHandle)) *DataFunc {
	return &DataFunc{fn: fn}
}

func (f *DataFunc) OnDataChange(n framesync.NodeHandle) { f.fn(n) }
