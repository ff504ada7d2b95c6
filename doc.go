// Package velaterm implements the multi-pane rendering engine of the
// velaterm terminal: pane layout, parallel per-pane rasterization, frame
// compositing, and GPU presentation.
//
// # Overview
//
// The engine turns terminal state snapshots into presented frames. Each
// frame flows one way through the pipeline:
//
//	layout -> rasterize (parallel) -> composite -> overlay state -> present
//
// The window is divided into panes by a binary split tree (package
// layout). Every visible pane is rasterized concurrently into its own
// RGBA buffer, the buffers are assembled with wallpaper and overlay
// pixels into one window-sized buffer, and the result is uploaded and
// drawn together with cursor, selection and border geometry on a
// dedicated GPU thread (package present).
//
// # Quick Start
//
//	eng, err := velaterm.NewEngine(src, 1280, 720,
//	    velaterm.WithWorkers(4))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer eng.Close()
//
//	eng.Request(velaterm.TriggerOutput)
//
// # Collaborators
//
// Terminal emulation, PTY lifecycle, windowing and font shaping live
// outside this module. They are consumed through narrow interfaces:
// term.Source supplies non-blocking grid snapshots, glyph.Source
// supplies cell bitmaps, and present.Device abstracts the graphics API.
//
// # Architecture
//
// The module is organized into:
//   - Root package: Engine, Rasterizer, Compositor, overlay and
//     selection state, Pixmap, options
//   - layout: pane split tree and viewport derivation
//   - term: snapshot contracts with the emulator
//   - glyph: font-backed cell bitmaps with a sharded LRU cache
//   - present: frame queueing and single-threaded GPU submission
//   - internal/parallel: the work-stealing pool behind RasterizeAll
package velaterm
