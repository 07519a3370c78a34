package framesync

// Surface is the render target driven by the pump. The pump never looks
// past these methods.
type Surface interface {
	// RenderFrame draws the current scene into the back buffer.
	RenderFrame() error
	// PresentLastFrame re-presents the previously rendered buffer.
	PresentLastFrame() error
	SwapBuffers()
	IsDisposed() bool
	Dispose() error
}

// NodeHandle is an opaque mutable scene entity. Implementations fan the
// notifier callbacks out to the listener, typically by calling
// l.OnBoundsChange(self). The dynamic type must be comparable.
type NodeHandle interface {
	NotifyBoundsChanged(l BoundsListener)
	NotifyDataChanged(l DataListener)
}

// BoundsListener mutates transform or geometry of a node.
type BoundsListener interface {
	OnBoundsChange(node NodeHandle)
}

// DataListener mutates non-bounds properties (material, appearance) of a node.
type DataListener interface {
	OnDataChange(node NodeHandle)
}

// Window reports whether a safe mutation window is currently open.
type Window interface {
	IsOpen() bool
}

// Dimensions is a viewport rectangle in surface pixels.
type Dimensions struct {
	X      int `json:"x" yaml:"x"`
	Y      int `json:"y" yaml:"y"`
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
}

// Viewport receives buffered surface geometry.
type Viewport interface {
	SetDimensions(d Dimensions)
}
