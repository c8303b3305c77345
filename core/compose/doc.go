// Package compose stacks layer images into one flattened token image.
//
// Layers are painted in the order given (bottom first) with Porter-Duff
// "over" blending onto a transparent canvas, or onto an opaque background
// colour when one is configured.
//
// # Canvas size and fit policy
//
// The canvas is either a fixed size or, when zero, the size of the first
// layer. Layers of a different size are adapted per FitMode:
//
//   - stretch: resized to the canvas (Lanczos)
//   - fit:     scaled to fit, aspect ratio kept, centred
//   - center:  centred unscaled; larger layers fall back to fit
//
// No mode crops a layer.
//
// # Errors
//
// Compositing no layers returns ErrNoLayers. A layer that cannot be decoded
// returns a *LayerDecodeError and the token is abandoned.
//
// # Output
//
// WriteFile encodes PNG or JPEG through a temporary file and rename.
package compose
